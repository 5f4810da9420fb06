// Package sweeper periodically marks lapsed subscriptions as expired, tells
// each affected user once, and reminds users whose access ends soon.
package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/types"
)

const (
	defaultInterval = 5 * time.Minute
	lockName        = "expiry-sweep"
	lockTTL         = 2 * time.Minute
)

type Notifier interface {
	SubscriptionExpired(ctx context.Context, u types.User) error
	ExpiryReminder(ctx context.Context, u types.User, now time.Time) error
}

// Locker guards a sweep across processes. The in-process guard is always applied.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

type Config struct {
	Interval time.Duration
	// ReminderWindow is how far ahead of expiry a reminder goes out; zero disables reminders.
	ReminderWindow time.Duration
	Locker         Locker
	Now            func() time.Time
}

type Result struct {
	RunID    string
	Expired  int
	Notified int
	Reminded int
}

type Sweeper struct {
	store    types.ExpiryStore
	notifier Notifier
	locker   Locker
	log      *zap.Logger
	interval time.Duration
	window   time.Duration
	now      func() time.Time

	sweepMu sync.Mutex

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func New(store types.ExpiryStore, notifier Notifier, logger *zap.Logger, cfg Config) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Sweeper{
		store:    store,
		notifier: notifier,
		locker:   cfg.Locker,
		log:      logger.Named("sweeper"),
		interval: cfg.Interval,
		window:   cfg.ReminderWindow,
		now:      cfg.Now,
	}
}

func (s *Sweeper) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(parent)
	s.running = true

	s.log.Info("sweeper started", zap.Duration("interval", s.interval))
	s.wg.Add(1)
	go s.loop(s.ctx)
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	s.tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	res, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, types.ErrSweepInProgress):
		s.log.Debug("sweep skipped, another run holds the lock")
	case err != nil:
		s.log.Error("sweep failed", zap.Error(err))
	case res.Expired > 0 || res.Reminded > 0:
		s.log.Info("sweep finished", zap.String("run_id", res.RunID),
			zap.Int("expired", res.Expired), zap.Int("notified", res.Notified), zap.Int("reminded", res.Reminded))
	}
}

// RunOnce performs a single sweep. Only one sweep runs at a time; a
// concurrent call gets types.ErrSweepInProgress. Each expired user is
// notified once because the status change and the selection are one statement.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	if !s.sweepMu.TryLock() {
		return Result{}, types.ErrSweepInProgress
	}
	defer s.sweepMu.Unlock()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, lockName, lockTTL)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, types.ErrSweepInProgress
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("release sweep lock", zap.Error(err))
			}
		}()
	}

	res := Result{RunID: uuid.NewString()}
	log := s.log.With(zap.String("run_id", res.RunID))
	now := s.now()

	expired, err := s.store.ExpireDue(ctx, now)
	if err != nil {
		return res, err
	}
	res.Expired = len(expired)
	for _, u := range expired {
		if err := s.notifier.SubscriptionExpired(ctx, u); err != nil {
			log.Warn("expiry notice failed", zap.Int64("user_id", u.UserID), zap.Error(err))
			continue
		}
		res.Notified++
	}

	if s.window <= 0 {
		return res, nil
	}
	due, err := s.store.MarkReminders(ctx, now, now.Add(s.window))
	if err != nil {
		return res, err
	}
	for _, u := range due {
		if err := s.notifier.ExpiryReminder(ctx, u, now); err != nil {
			log.Warn("expiry reminder failed", zap.Int64("user_id", u.UserID), zap.Error(err))
			continue
		}
		res.Reminded++
	}
	return res, nil
}
