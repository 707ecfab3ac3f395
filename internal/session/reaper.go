package session

import (
	"context"
	"log/slog"
	"time"
)

// ExpireFunc aborts the flow of an idle session.
type ExpireFunc func(ctx context.Context, sessionID string) error

// ForgetFunc is told about every session the reaper removes, so state kept
// per session elsewhere can go with it.
type ForgetFunc func(sessionID string)

// ReaperOption configures a Reaper.
type ReaperOption func(*Reaper)

// WithForgetHook adds a callback run for each forgotten session.
func WithForgetHook(f ForgetFunc) ReaperOption {
	return func(r *Reaper) { r.onForget = append(r.onForget, f) }
}

// Reaper periodically aborts flows that have been idle too long and
// removes sessions that have had no flow for as long.
//
// The abort itself is delegated to ExpireFunc so it goes through the same
// path as any other aborted flow. The callback must recheck idleness after
// acquiring the session, since the user may have answered in between.
type Reaper struct {
	sessions *Store
	expire   ExpireFunc
	idle     time.Duration
	interval time.Duration
	logger   *slog.Logger
	onForget []ForgetFunc
}

// NewReaper creates a reaper that checks every interval for sessions idle
// for at least idle.
func NewReaper(sessions *Store, idle, interval time.Duration, expire ExpireFunc, logger *slog.Logger, opts ...ReaperOption) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reaper{
		sessions: sessions,
		expire:   expire,
		idle:     idle,
		interval: interval,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sweep expires every idle session once and returns how many were handed
// to the callback without error. It then forgets sessions that have sat
// without a flow for the idle timeout. Expiry counts as activity, so a
// session expired by this sweep is kept until a later one.
func (r *Reaper) Sweep(ctx context.Context) int {
	n := 0
	for _, id := range r.sessions.Expired(r.idle) {
		if err := r.expire(ctx, id); err != nil {
			r.logger.Warn("session expiry failed", "session_id", id, "error", err)
			continue
		}
		n++
	}
	if n > 0 {
		r.logger.Info("idle sessions expired", "event", "sessions_expired", "count", n)
	}

	forgotten := r.sessions.Forget(r.idle)
	for _, id := range forgotten {
		for _, f := range r.onForget {
			f(id)
		}
	}
	if len(forgotten) > 0 {
		r.logger.Debug("idle sessions forgotten", "event", "sessions_forgotten", "count", len(forgotten))
	}
	return n
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("session reaper stopping: context cancelled")
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}
