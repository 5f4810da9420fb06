package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BatmanBruc/vip-access-bot/internal/testutil"
	"github.com/BatmanBruc/vip-access-bot/types"
)

type recorder struct {
	mu       sync.Mutex
	expired  []int64
	reminded []int64
	failFor  map[int64]bool
}

func (r *recorder) SubscriptionExpired(_ context.Context, u types.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[u.UserID] {
		return errors.New("blocked")
	}
	r.expired = append(r.expired, u.UserID)
	return nil
}

func (r *recorder) ExpiryReminder(_ context.Context, u types.User, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reminded = append(r.reminded, u.UserID)
	return nil
}

type stubLocker struct {
	held     bool
	released int
}

func (l *stubLocker) TryLock(_ context.Context, _ string, _ time.Duration) (func(context.Context) error, bool, error) {
	if l.held {
		return nil, false, nil
	}
	return func(context.Context) error { l.released++; return nil }, true, nil
}

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func seed(store *testutil.MemStore) {
	store.PutUser(types.User{UserID: 1, ChatID: 1, Status: types.UserStatusActive, ExpiresAt: at(-time.Hour)})
	store.PutUser(types.User{UserID: 2, ChatID: 2, Status: types.UserStatusActive, ExpiresAt: at(-time.Minute)})
	store.PutUser(types.User{UserID: 3, ChatID: 3, Status: types.UserStatusActive, ExpiresAt: at(48 * time.Hour)})
	store.PutUser(types.User{UserID: 4, ChatID: 4, Status: types.UserStatusActive, ExpiresAt: at(30 * 24 * time.Hour)})
	store.PutUser(types.User{UserID: 5, ChatID: 5, Status: types.UserStatusExpired, ExpiresAt: at(-48 * time.Hour)})
}

func newTestSweeper(t *testing.T, store *testutil.MemStore, n Notifier, locker Locker) *Sweeper {
	return New(store, n, zaptest.NewLogger(t), Config{
		Interval:       time.Hour,
		ReminderWindow: 72 * time.Hour,
		Locker:         locker,
		Now:            func() time.Time { return now },
	})
}

func TestRunOnceExpiresAndNotifiesOnce(t *testing.T) {
	store := testutil.NewMemStore()
	seed(store)
	rec := &recorder{}
	s := newTestSweeper(t, store, rec, nil)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Expired)
	assert.Equal(t, 2, res.Notified)
	assert.Equal(t, 1, res.Reminded)
	assert.ElementsMatch(t, []int64{1, 2}, rec.expired)
	assert.Equal(t, []int64{3}, rec.reminded)

	res, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Expired)
	assert.Zero(t, res.Reminded)
	assert.Len(t, rec.expired, 2)
	assert.Len(t, rec.reminded, 1)

	u, err := store.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, types.UserStatusExpired, u.Status)
}

func TestRunOnceNotificationFailureDoesNotAbort(t *testing.T) {
	store := testutil.NewMemStore()
	seed(store)
	rec := &recorder{failFor: map[int64]bool{1: true}}
	s := newTestSweeper(t, store, rec, nil)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Expired)
	assert.Equal(t, 1, res.Notified)
	assert.Equal(t, []int64{2}, rec.expired)

	u, _ := store.GetUser(context.Background(), 1)
	assert.Equal(t, types.UserStatusExpired, u.Status, "failed notice still expires the user")
}

func TestRunOnceHonoursLocker(t *testing.T) {
	store := testutil.NewMemStore()
	seed(store)
	locker := &stubLocker{held: true}
	s := newTestSweeper(t, store, &recorder{}, locker)

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, types.ErrSweepInProgress)

	locker.held = false
	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, locker.released)
}

func TestRunOnceRejectsConcurrentSweep(t *testing.T) {
	s := newTestSweeper(t, testutil.NewMemStore(), &recorder{}, nil)
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, types.ErrSweepInProgress)
}

func TestRenewalResetsReminder(t *testing.T) {
	store := testutil.NewMemStore()
	store.PutUser(types.User{UserID: 3, ChatID: 3, Status: types.UserStatusActive, ExpiresAt: at(24 * time.Hour), RemindedAt: at(-time.Hour)})
	rec := &recorder{}
	s := newTestSweeper(t, store, rec, nil)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Reminded, "already reminded")

	err = store.WithTx(context.Background(), func(q types.Queries) error {
		return q.ActivateSubscription(context.Background(), 3, "Weekly", now.Add(48*time.Hour), now)
	})
	require.NoError(t, err)

	res, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reminded)
}

func TestStartStop(t *testing.T) {
	store := testutil.NewMemStore()
	seed(store)
	rec := &recorder{}
	s := newTestSweeper(t, store, rec, nil)

	s.Start(context.Background())
	s.Start(context.Background())
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.expired) == 2
	}, time.Second, 10*time.Millisecond)
	s.Stop()
	s.Stop()
}
