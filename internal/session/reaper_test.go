package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lunchdesk/internal/order"
	"github.com/roach88/lunchdesk/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReaper_Sweep(t *testing.T) {
	clk := testutil.NewFakeClock(testutil.Morning)
	st := NewStore(clk)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		s, release, err := st.Acquire(ctx, id, "user-"+id)
		require.NoError(t, err)
		s.Begin(testutil.Menu(), order.CourseFirst, clk.Now())
		release()
	}
	clk.Advance(15 * time.Minute)

	var expired []string
	r := NewReaper(st, 10*time.Minute, time.Hour, func(ctx context.Context, id string) error {
		if id == "b" {
			return errors.New("boom")
		}
		s, release, err := st.Acquire(ctx, id, "user-"+id)
		if err != nil {
			return err
		}
		defer release()
		s.Reset(clk.Now())
		expired = append(expired, id)
		return nil
	}, quietLogger())

	assert.Equal(t, 1, r.Sweep(ctx))
	assert.Equal(t, []string{"a"}, expired)

	// "a" is idle now; "b" failed and is retried next sweep.
	assert.Equal(t, []string{"b"}, st.Expired(10*time.Minute))
}

func TestReaper_RunStopsOnCancel(t *testing.T) {
	clk := testutil.NewFakeClock(testutil.Morning)
	st := NewStore(clk)

	s, release, err := st.Acquire(context.Background(), "a", "ada")
	require.NoError(t, err)
	s.Begin(testutil.Menu(), order.CourseFirst, clk.Now())
	release()
	clk.Advance(time.Hour)

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})
	r := NewReaper(st, time.Minute, time.Millisecond, func(ctx context.Context, id string) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			close(done)
		}
		return nil
	}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper never swept")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop")
	}
}

func TestReaper_SweepForgetsIdleSessions(t *testing.T) {
	clk := testutil.NewFakeClock(testutil.Morning)
	st := NewStore(clk)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		s, release, err := st.Acquire(ctx, fmt.Sprintf("chat-%03d", i), "ada")
		require.NoError(t, err)
		s.Begin(testutil.Menu(), order.CourseFirst, clk.Now())
		release()
	}

	var forgotten []string
	r := NewReaper(st, 10*time.Minute, time.Hour, func(ctx context.Context, id string) error {
		s, release, err := st.AcquireExisting(ctx, id)
		if err != nil {
			return err
		}
		defer release()
		s.Reset(clk.Now())
		return nil
	}, quietLogger(), WithForgetHook(func(id string) {
		forgotten = append(forgotten, id)
	}))

	clk.Advance(time.Hour)
	assert.Equal(t, 100, r.Sweep(ctx))
	assert.Equal(t, 100, st.Len(), "just expired counts as activity")
	assert.Empty(t, forgotten)

	clk.Advance(10 * time.Minute)
	assert.Equal(t, 0, r.Sweep(ctx))
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, 0, st.locks.Len())
	assert.Len(t, forgotten, 100)
	assert.Equal(t, "chat-000", forgotten[0])
}
