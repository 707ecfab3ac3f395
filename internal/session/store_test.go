package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lunchdesk/internal/order"
	"github.com/roach88/lunchdesk/internal/testutil"
)

func TestStore_AcquireCreatesIdleSession(t *testing.T) {
	st := NewStore(testutil.NewFakeClock(testutil.Morning))

	s, release, err := st.Acquire(context.Background(), "chat-1", "ada")
	require.NoError(t, err)
	defer release()

	assert.Equal(t, "chat-1", s.ID)
	assert.Equal(t, "ada", s.UserID)
	assert.Equal(t, StateIdle, s.State)
	assert.Equal(t, testutil.Morning, s.UpdatedAt)
	assert.Equal(t, 1, st.Len())
}

func TestStore_AcquireReturnsSameSession(t *testing.T) {
	st := NewStore(nil)
	ctx := context.Background()

	s, release, err := st.Acquire(ctx, "chat-1", "ada")
	require.NoError(t, err)
	s.State = StateTableSelection
	release()

	again, release, err := st.Acquire(ctx, "chat-1", "ada")
	require.NoError(t, err)
	defer release()
	assert.Equal(t, StateTableSelection, again.State)
}

func TestStore_AcquireWrongUser(t *testing.T) {
	st := NewStore(nil)
	ctx := context.Background()

	_, release, err := st.Acquire(ctx, "chat-1", "ada")
	require.NoError(t, err)
	release()

	_, _, err = st.Acquire(ctx, "chat-1", "bob")
	assert.True(t, errors.Is(err, ErrWrongUser))

	// The failed attempt must not leave the session locked.
	_, release, err = st.Acquire(ctx, "chat-1", "ada")
	require.NoError(t, err)
	release()
}

func TestStore_AcquireIsExclusive(t *testing.T) {
	st := NewStore(nil)
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release, err := st.Acquire(ctx, "chat-1", "ada")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
}

func TestStore_AcquireHonoursContext(t *testing.T) {
	st := NewStore(nil)

	_, release, err := st.Acquire(context.Background(), "chat-1", "ada")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err = st.Acquire(ctx, "chat-1", "ada")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_Expired(t *testing.T) {
	clk := testutil.NewFakeClock(testutil.Morning)
	st := NewStore(clk)
	ctx := context.Background()

	begin := func(id string) {
		s, release, err := st.Acquire(ctx, id, "user-"+id)
		require.NoError(t, err)
		s.Begin(testutil.Menu(), order.CourseFirst, clk.Now())
		release()
	}

	begin("b")
	begin("a")
	_, release, err := st.Acquire(ctx, "idle", "user-idle")
	require.NoError(t, err)
	release()

	assert.Empty(t, st.Expired(10*time.Minute))

	clk.Advance(10 * time.Minute)
	begin("fresh")

	assert.Equal(t, []string{"a", "b"}, st.Expired(10*time.Minute))

	// A session in use is skipped.
	_, release, err = st.Acquire(ctx, "a", "user-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, st.Expired(10*time.Minute))
	release()
}

func TestStore_AcquireExisting(t *testing.T) {
	st := NewStore(nil)
	ctx := context.Background()

	_, _, err := st.AcquireExisting(ctx, "chat-1")
	assert.ErrorIs(t, err, ErrNoSession)

	_, release, err := st.Acquire(ctx, "chat-1", "ada")
	require.NoError(t, err)
	release()

	s, release, err := st.AcquireExisting(ctx, "chat-1")
	require.NoError(t, err)
	defer release()
	assert.Equal(t, "ada", s.UserID)
}

func TestStore_Forget(t *testing.T) {
	clk := testutil.NewFakeClock(testutil.Morning)
	st := NewStore(clk)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "ordering", "held"} {
		_, release, err := st.Acquire(ctx, id, "user-"+id)
		require.NoError(t, err)
		release()
	}
	s, release, err := st.Acquire(ctx, "ordering", "user-ordering")
	require.NoError(t, err)
	s.Begin(testutil.Menu(), order.CourseFirst, clk.Now())
	release()

	assert.Empty(t, st.Forget(10*time.Minute), "nothing idle yet")

	clk.Advance(10 * time.Minute)
	_, releaseHeld, err := st.Acquire(ctx, "held", "user-held")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, st.Forget(10*time.Minute))
	assert.Equal(t, 2, st.Len(), "flows in progress and held sessions stay")
	assert.Equal(t, 2, st.locks.Len(), "lock entries go with their sessions")

	releaseHeld()
	assert.Equal(t, []string{"held"}, st.Forget(10*time.Minute))
	assert.Equal(t, 1, st.Len())

	// A forgotten session comes back fresh on the next message.
	s, release, err = st.Acquire(ctx, "a", "someone-else")
	require.NoError(t, err)
	defer release()
	assert.Equal(t, StateIdle, s.State)
	assert.Equal(t, "someone-else", s.UserID)
}

func TestStore_AcquireExistingAfterForget(t *testing.T) {
	clk := testutil.NewFakeClock(testutil.Morning)
	st := NewStore(clk)
	ctx := context.Background()

	_, release, err := st.Acquire(ctx, "chat-1", "ada")
	require.NoError(t, err)
	release()

	clk.Advance(time.Hour)
	require.Equal(t, []string{"chat-1"}, st.Forget(time.Minute))

	_, _, err = st.AcquireExisting(ctx, "chat-1")
	assert.ErrorIs(t, err, ErrNoSession)
}
