package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BatmanBruc/vip-access-bot/types"
)

// MaxGrantDays caps a single grant at ten years.
const MaxGrantDays = 3650

// HasActiveAccess is computed from the stored expiry at call time, so it turns
// false the instant expiry passes, before any sweep runs.
func (s *Service) HasActiveAccess(ctx context.Context, userID int64) (bool, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check access for %d: %w", userID, err)
	}
	return u.ActiveAt(s.now()), nil
}

// Subscription returns the user's ledger row, or nil when the user is unknown.
func (s *Service) Subscription(ctx context.Context, userID int64) (*types.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription for %d: %w", userID, err)
	}
	return u, nil
}

// GrantOrExtend gives userID days of access on planID. Remaining time on a
// live subscription is kept and the new days are added on top of it.
func (s *Service) GrantOrExtend(ctx context.Context, userID int64, planID int, days int, actorID int64) (time.Time, error) {
	if days <= 0 || days > MaxGrantDays {
		return time.Time{}, types.ErrInvalidDuration
	}
	now := s.now()
	var expiresAt time.Time
	err := s.store.WithTx(ctx, func(q types.Queries) error {
		plan, err := q.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		expiresAt, err = s.extend(ctx, q, userID, plan, days, now)
		if err != nil {
			return err
		}
		return q.InsertAudit(ctx, types.AuditEntry{
			UserID:    actorID,
			Action:    "subscription_granted",
			Details:   fmt.Sprintf("user=%d plan=%d days=%d expires=%s", userID, planID, days, expiresAt.Format(time.RFC3339)),
			CreatedAt: now,
		})
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("grant %d days to %d: %w", days, userID, err)
	}
	return expiresAt, nil
}

func (s *Service) extend(ctx context.Context, q types.Queries, userID int64, plan *types.Plan, days int, now time.Time) (time.Time, error) {
	if days <= 0 || days > MaxGrantDays {
		return time.Time{}, types.ErrInvalidDuration
	}
	if err := q.EnsureUser(ctx, userID); err != nil {
		return time.Time{}, err
	}
	u, err := q.LockUser(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	base := now
	if u.ExpiresAt != nil && u.ExpiresAt.After(base) {
		base = *u.ExpiresAt
	}
	expiresAt := base.AddDate(0, 0, days)
	if err := q.ActivateSubscription(ctx, userID, plan.Name, expiresAt, now); err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}
