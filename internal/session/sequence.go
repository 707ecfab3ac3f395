package session

import (
	"strconv"
	"sync/atomic"
)

// Sequence is a monotonic counter used to stamp prompt references.
//
// Thread-safety: Sequence is safe for concurrent use.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next value.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last value handed out without advancing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}

// Ref returns the next value as a prompt reference, e.g. "p-7".
func (s *Sequence) Ref() string {
	return "p-" + strconv.FormatInt(s.Next(), 10)
}
