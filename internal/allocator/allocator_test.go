package allocator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lunchdesk/internal/guard"
	"github.com/roach88/lunchdesk/internal/menu"
	"github.com/roach88/lunchdesk/internal/notify"
	"github.com/roach88/lunchdesk/internal/order"
	"github.com/roach88/lunchdesk/internal/store"
	"github.com/roach88/lunchdesk/internal/testutil"
	"github.com/roach88/lunchdesk/internal/token"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type fixture struct {
	store    *store.Store
	clock    *testutil.FakeClock
	locks    *guard.Registry
	notifier *recordingNotifier
	alloc    *Allocator
}

func newFixture(t *testing.T, m menu.DailyMenu, opts ...Option) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.SaveMenu(context.Background(), m, true))

	f := &fixture{
		store:    st,
		clock:    testutil.NewFakeClock(testutil.Morning),
		locks:    guard.NewRegistry(),
		notifier: &recordingNotifier{},
	}
	base := []Option{
		WithClock(f.clock),
		WithLocks(f.locks),
		WithNotifier(f.notifier),
		WithIDGenerator(token.NewSequenceGenerator("order")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	f.alloc = New(st, append(base, opts...)...)
	return f
}

func firstDraft(user, table string) order.Draft {
	return order.Draft{
		MenuID:  testutil.MenuDate,
		OwnerID: user,
		First:   &order.FirstCourseSelection{Item: "Pasta", Condiment: "Pesto"},
		TableID: table,
	}
}

func secondDraft(user, table string, sides ...string) order.Draft {
	return order.Draft{
		MenuID:  testutil.MenuDate,
		OwnerID: user,
		Second:  &order.SecondCourseSelection{Item: "Chicken", SideDishes: sides},
		TableID: table,
	}
}

func countOrders(t *testing.T, st *store.Store, table string) int {
	t.Helper()
	counts, err := st.TableUsageCounts(context.Background(), testutil.MenuDate)
	require.NoError(t, err)
	return counts[table]
}

func TestCommit_RoundTrip(t *testing.T) {
	f := newFixture(t, testutil.Menu())
	ctx := context.Background()

	draft := secondDraft("ada", "window", "Fries", "Salad")
	o, err := f.alloc.Commit(ctx, draft)
	require.NoError(t, err)

	assert.Equal(t, "order-1", o.ID)
	assert.Equal(t, draft.OwnerID, o.OwnerID)
	assert.Equal(t, draft.MenuID, o.MenuID)
	assert.Equal(t, draft.TableID, o.TableID)
	assert.Equal(t, draft.Second, o.Second)
	assert.Nil(t, o.First)
	assert.Equal(t, testutil.Morning, o.CreatedAt)

	stored, err := f.store.Order(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.Second, stored.Second)

	assert.Equal(t, 1, f.notifier.count())
	assert.Equal(t, notify.KindOrderCommitted, f.notifier.events[0].Kind)
	assert.Equal(t, "Chicken with Fries, Salad", f.notifier.events[0].Summary)
	assert.False(t, f.locks.Held(CommitLockName))
}

func TestCommit_RejectedAttemptsUseNoID(t *testing.T) {
	f := newFixture(t, testutil.Menu(), WithIDGenerator(testutil.NewFixedGenerator("id-ada", "id-bob")))
	ctx := context.Background()

	o, err := f.alloc.Commit(ctx, firstDraft("ada", "window"))
	require.NoError(t, err)
	assert.Equal(t, "id-ada", o.ID)

	_, err = f.alloc.Commit(ctx, firstDraft("ada", "patio"))
	require.True(t, order.IsAlreadyOrdered(err))

	o, err = f.alloc.Commit(ctx, firstDraft("bob", "window"))
	require.NoError(t, err)
	assert.Equal(t, "id-bob", o.ID)
}

func TestCommit_IncompleteDraft(t *testing.T) {
	f := newFixture(t, testutil.Menu())

	_, err := f.alloc.Commit(context.Background(), order.Draft{MenuID: testutil.MenuDate, OwnerID: "ada"})
	require.Error(t, err)
	assert.True(t, order.IsValidation(err))
	assert.Equal(t, 0, f.notifier.count())
}

func TestCommit_ConcurrentAttemptsRespectCapacity(t *testing.T) {
	for _, tc := range []struct{ n, capacity int }{{10, 2}, {3, 2}, {2, 4}, {25, 7}} {
		t.Run(fmt.Sprintf("n=%d_c=%d", tc.n, tc.capacity), func(t *testing.T) {
			m := testutil.Menu()
			m.Tables[0].SeatCapacity = tc.capacity
			f := newFixture(t, m)

			var wg sync.WaitGroup
			errs := make([]error, tc.n)
			start := make(chan struct{})
			for i := 0; i < tc.n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					_, errs[i] = f.alloc.Commit(context.Background(), firstDraft(fmt.Sprintf("user-%d", i), "window"))
				}(i)
			}
			close(start)
			wg.Wait()

			succeeded, full := 0, 0
			for _, err := range errs {
				switch {
				case err == nil:
					succeeded++
				case order.IsTableFull(err):
					full++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}

			want := min(tc.n, tc.capacity)
			assert.Equal(t, want, succeeded)
			assert.Equal(t, tc.n-want, full)
			assert.Equal(t, want, countOrders(t, f.store, "window"))
			assert.Equal(t, want, f.notifier.count())
		})
	}
}

func TestCommit_ThirdSessionGetsTableFull(t *testing.T) {
	f := newFixture(t, testutil.Menu()) // window seats 2
	ctx := context.Background()

	_, err := f.alloc.Commit(ctx, firstDraft("ada", "window"))
	require.NoError(t, err)
	_, err = f.alloc.Commit(ctx, secondDraft("bob", "window"))
	require.NoError(t, err)

	_, err = f.alloc.Commit(ctx, firstDraft("cy", "window"))
	require.Error(t, err)
	assert.True(t, order.IsTableFull(err))

	var oe *order.Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, "window", oe.Details["table_id"])
	assert.Equal(t, "2", oe.Details["capacity"])

	assert.Equal(t, 2, countOrders(t, f.store, "window"))

	// Another table still works for the same user.
	_, err = f.alloc.Commit(ctx, firstDraft("cy", "patio"))
	require.NoError(t, err)
}

func TestCommit_DeadlineExceeded(t *testing.T) {
	f := newFixture(t, testutil.Menu()) // deadline 13:00
	f.clock.Set(testutil.Deadline.Add(time.Minute))

	_, err := f.alloc.Commit(context.Background(), firstDraft("ada", "window"))
	require.Error(t, err)
	assert.True(t, order.IsDeadlineExceeded(err))
	assert.Contains(t, err.Error(), "13:00")

	assert.Equal(t, 0, countOrders(t, f.store, "window"))
	assert.Equal(t, 0, f.notifier.count())
}

func TestCommit_DeadlineIsExclusive(t *testing.T) {
	f := newFixture(t, testutil.Menu())
	f.clock.Set(testutil.Deadline)

	_, err := f.alloc.Commit(context.Background(), firstDraft("ada", "window"))
	assert.True(t, order.IsDeadlineExceeded(err))
}

func TestCommit_UsesReloadedDeadline(t *testing.T) {
	f := newFixture(t, testutil.Menu())
	ctx := context.Background()

	// The menu is edited after the flow started: deadline moved earlier.
	edited := testutil.Menu()
	edited.Deadline = testutil.Morning.Add(-time.Minute)
	require.NoError(t, f.store.SaveMenu(ctx, edited, true))

	_, err := f.alloc.Commit(ctx, firstDraft("ada", "window"))
	assert.True(t, order.IsDeadlineExceeded(err))
}

func TestCommit_StaleMenuFailsValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(m *menu.DailyMenu)
		draft order.Draft
		want  string
	}{
		{
			name:  "item removed",
			edit:  func(m *menu.DailyMenu) { m.FirstCourses = m.FirstCourses[1:] },
			draft: firstDraft("ada", "window"),
			want:  `"Pasta" is no longer on the menu`,
		},
		{
			name:  "condiment removed",
			edit:  func(m *menu.DailyMenu) { m.FirstCourses[0].Condiments = []string{"Tomato"} },
			draft: firstDraft("ada", "window"),
			want:  `condiment "Pesto"`,
		},
		{
			name:  "side dish removed",
			edit:  func(m *menu.DailyMenu) { m.SideDishes = []string{"Salad"} },
			draft: secondDraft("ada", "window", "Fries"),
			want:  `side dish "Fries"`,
		},
		{
			name:  "table disabled",
			edit:  func(m *menu.DailyMenu) { m.Tables[0].Enabled = false },
			draft: firstDraft("ada", "window"),
			want:  "closed today",
		},
		{
			name:  "menu disabled",
			edit:  func(m *menu.DailyMenu) { m.Enabled = false },
			draft: firstDraft("ada", "window"),
			want:  "not available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testutil.Menu())
			ctx := context.Background()

			edited := testutil.Menu()
			tt.edit(&edited)
			require.NoError(t, f.store.SaveMenu(ctx, edited, true))

			_, err := f.alloc.Commit(ctx, tt.draft)
			require.Error(t, err)
			assert.True(t, order.IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)

			orders, err := f.store.ListOrders(ctx, testutil.MenuDate, true)
			require.NoError(t, err)
			assert.Empty(t, orders)
		})
	}
}

func TestCommit_MenuReplacedByAnotherDay(t *testing.T) {
	f := newFixture(t, testutil.Menu())
	ctx := context.Background()

	tomorrow := testutil.Menu()
	tomorrow.ID = "2026-10-18"
	tomorrow.Date = "2026-10-18"
	tomorrow.Deadline = testutil.Deadline.Add(24 * time.Hour)
	require.NoError(t, f.store.SaveMenu(ctx, tomorrow, true))

	_, err := f.alloc.Commit(ctx, firstDraft("ada", "window"))
	assert.True(t, order.IsValidation(err))
}

func TestCommit_SameUserRacingTwoFlows(t *testing.T) {
	f := newFixture(t, testutil.Menu())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	drafts := []order.Draft{firstDraft("ada", "window"), secondDraft("ada", "patio")}
	for i := range drafts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.alloc.Commit(context.Background(), drafts[i])
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case order.IsAlreadyOrdered(err):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)

	orders, err := f.store.ListOrders(context.Background(), testutil.MenuDate, false)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

// failingStore wraps a real store and injects errors.
type failingStore struct {
	*store.Store
	createErr error
	usageErr  error
}

func (s *failingStore) CreateOrder(ctx context.Context, o order.Order, capacity int) error {
	if s.createErr != nil {
		return s.createErr
	}
	return s.Store.CreateOrder(ctx, o, capacity)
}

func (s *failingStore) TableUsageCounts(ctx context.Context, menuID string) (map[string]int, error) {
	if s.usageErr != nil {
		return nil, s.usageErr
	}
	return s.Store.TableUsageCounts(ctx, menuID)
}

func TestCommit_PersistenceError(t *testing.T) {
	f := newFixture(t, testutil.Menu())
	fs := &failingStore{Store: f.store, createErr: errors.New("disk I/O error")}
	alloc := New(fs,
		WithClock(f.clock),
		WithLocks(f.locks),
		WithNotifier(f.notifier),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	_, err := alloc.Commit(context.Background(), firstDraft("ada", "window"))
	require.Error(t, err)
	assert.True(t, order.IsPersistence(err))
	assert.Contains(t, err.Error(), "disk I/O error")

	assert.Equal(t, 0, countOrders(t, f.store, "window"))
	assert.Equal(t, 0, f.notifier.count())
	assert.False(t, f.locks.Held(CommitLockName), "lock released after failure")

	fs.createErr = nil
	fs.usageErr = errors.New("database is locked")
	_, err = alloc.Commit(context.Background(), firstDraft("ada", "window"))
	assert.True(t, order.IsPersistence(err))
	assert.False(t, f.locks.Held(CommitLockName))
}

func TestCommit_LockHeldAcrossCriticalSection(t *testing.T) {
	var f *fixture
	var heldDuringValidate bool
	f = newFixture(t, testutil.Menu(), WithValidator(func(d order.Draft, m menu.DailyMenu) error {
		heldDuringValidate = f.locks.Held(CommitLockName)
		return menu.Validate(d, m)
	}))

	_, err := f.alloc.Commit(context.Background(), firstDraft("ada", "window"))
	require.NoError(t, err)
	assert.True(t, heldDuringValidate)
	assert.False(t, f.locks.Held(CommitLockName))
}

func TestCommit_LockReleasedOnPanic(t *testing.T) {
	f := newFixture(t, testutil.Menu(), WithValidator(func(order.Draft, menu.DailyMenu) error {
		panic("validator bug")
	}))

	assert.Panics(t, func() {
		_, _ = f.alloc.Commit(context.Background(), firstDraft("ada", "window"))
	})
	assert.False(t, f.locks.Held(CommitLockName))
}

func TestCommit_CancelledWhileWaitingForLock(t *testing.T) {
	f := newFixture(t, testutil.Menu())

	unlock, err := f.locks.Lock(context.Background(), CommitLockName)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = f.alloc.Commit(ctx, firstDraft("ada", "window"))
	require.Error(t, err)
	assert.True(t, order.IsPersistence(err))
	assert.Equal(t, 0, countOrders(t, f.store, "window"))
}

func TestCommit_NoMenu(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	alloc := New(st, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err = alloc.Commit(context.Background(), firstDraft("ada", "window"))
	assert.True(t, order.IsNoMenu(err))
	assert.Contains(t, err.Error(), "no menu")

	_, err = alloc.Withdraw(context.Background(), "ada")
	assert.True(t, order.IsNoMenu(err))
}
