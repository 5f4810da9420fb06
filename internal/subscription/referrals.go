package subscription

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/internal/pricing"
	"github.com/BatmanBruc/vip-access-bot/types"
)

// TouchUser records the user's latest profile and reports whether the row is new.
func (s *Service) TouchUser(ctx context.Context, u types.User) (bool, error) {
	now := s.now()
	if u.JoinedAt.IsZero() {
		u.JoinedAt = now
	}
	u.LastActive = now
	created, err := s.store.UpsertUser(ctx, u)
	if err != nil {
		return false, fmt.Errorf("upsert user %d: %w", u.UserID, err)
	}
	return created, nil
}

// AttachReferral records that referrerID invited referredID. A user can be
// referred once, never by themselves, and only by a known user.
func (s *Service) AttachReferral(ctx context.Context, referredID, referrerID int64) (bool, error) {
	if referrerID <= 0 || referrerID == referredID {
		return false, nil
	}
	ok, err := s.store.InsertReferral(ctx, referrerID, referredID, s.now())
	if err != nil {
		return false, fmt.Errorf("attach referral %d -> %d: %w", referrerID, referredID, err)
	}
	if ok {
		s.log.Info("referral attached", zap.Int64("referrer_id", referrerID), zap.Int64("referred_id", referredID))
	}
	return ok, nil
}

// CreditCommission completes referredID's pending referral for a payment of
// amount, outside the approval flow. It returns the commission credited, zero
// when there was nothing to credit.
func (s *Service) CreditCommission(ctx context.Context, referredID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, types.ErrInvalidAmount
	}
	var commission int64
	err := s.store.WithTx(ctx, func(q types.Queries) error {
		var err error
		_, commission, err = s.creditReferral(ctx, q, referredID, amount, s.now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("credit commission for %d: %w", referredID, err)
	}
	return commission, nil
}

func (s *Service) ReferralStats(ctx context.Context, userID int64) (types.ReferralStats, error) {
	st, err := s.store.ReferralStats(ctx, userID)
	if err != nil {
		return types.ReferralStats{}, fmt.Errorf("referral stats for %d: %w", userID, err)
	}
	return st, nil
}

func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance for %d: %w", userID, err)
	}
	return u.Balance, nil
}

// RequestWithdrawal asks admins to pay out the user's balance. The balance is
// only debited when an admin confirms the payout.
func (s *Service) RequestWithdrawal(ctx context.Context, userID int64) (int64, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return 0, fmt.Errorf("request withdrawal for %d: %w", userID, err)
	}
	if u == nil || u.Balance <= 0 {
		return 0, types.ErrInsufficientBalance
	}
	s.log.Info("withdrawal requested", zap.Int64("user_id", userID), zap.String("balance", pricing.Format(u.Balance)))
	if err := s.notifier.WithdrawalRequested(ctx, u, u.Balance); err != nil {
		s.log.Warn("notify admins about withdrawal", zap.Int64("user_id", userID), zap.Error(err))
	}
	return u.Balance, nil
}

// Payout debits amount from userID's referral balance after an admin paid it
// out. The balance never goes negative.
func (s *Service) Payout(ctx context.Context, adminID, userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, types.ErrInvalidAmount
	}
	var balance int64
	err := s.store.WithTx(ctx, func(q types.Queries) error {
		var err error
		balance, err = q.AdjustBalance(ctx, userID, -amount)
		if err != nil {
			return err
		}
		return q.InsertAudit(ctx, types.AuditEntry{
			UserID:    adminID,
			Action:    "referral_payout",
			Details:   fmt.Sprintf("user=%d amount=%d balance=%d", userID, amount, balance),
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return 0, fmt.Errorf("payout %d to %d: %w", amount, userID, err)
	}
	s.log.Info("referral payout", zap.Int64("admin_id", adminID), zap.Int64("user_id", userID), zap.Int64("amount", amount))
	return balance, nil
}
