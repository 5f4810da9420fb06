package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/internal/pricing"
	"github.com/BatmanBruc/vip-access-bot/types"
)

const pendingListLimit = 50

// Approval describes a committed approval.
type Approval struct {
	Payment    types.PaymentRequest
	Plan       types.Plan
	ExpiresAt  time.Time
	ReferrerID int64
	Commission int64
}

// Submit records a pending payment request. The amount always comes from the
// plan price, never from the client.
func (s *Service) Submit(ctx context.Context, userID int64, planID int, method types.PaymentMethod) (*types.PaymentRequest, error) {
	if !method.Valid() {
		return nil, types.ErrInvalidMethod
	}
	now := s.now()
	var (
		p    types.PaymentRequest
		plan *types.Plan
	)
	err := s.store.WithTx(ctx, func(q types.Queries) error {
		var err error
		plan, err = q.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		if !plan.Active {
			return types.ErrPlanNotFound
		}
		if err := q.EnsureUser(ctx, userID); err != nil {
			return err
		}
		p = types.PaymentRequest{
			UserID:    userID,
			PlanID:    plan.ID,
			Amount:    plan.Price,
			Method:    method,
			Status:    types.PaymentPending,
			CreatedAt: now,
		}
		if err := q.InsertPayment(ctx, &p); err != nil {
			return err
		}
		return q.InsertAudit(ctx, types.AuditEntry{
			UserID:    userID,
			Action:    "payment_submitted",
			Details:   fmt.Sprintf("payment=%d plan=%d amount=%d method=%s", p.ID, plan.ID, p.Amount, method),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("submit payment for %d: %w", userID, err)
	}

	s.log.Info("payment submitted",
		zap.Int64("payment_id", p.ID), zap.Int64("user_id", userID),
		zap.Int("plan_id", plan.ID), zap.Int64("amount", p.Amount), zap.String("method", string(method)))

	user := s.payer(ctx, userID)
	if err := s.notifier.PaymentSubmitted(ctx, p, *plan, user); err != nil {
		s.log.Warn("notify admins about payment", zap.Int64("payment_id", p.ID), zap.Error(err))
	}
	return &p, nil
}

// AttachProof links a screenshot or transaction reference to the user's own pending request.
func (s *Service) AttachProof(ctx context.Context, userID, requestID int64, proof types.Proof) (*types.PaymentRequest, error) {
	proof.TransactionRef = strings.TrimSpace(proof.TransactionRef)
	proof.Note = strings.TrimSpace(proof.Note)
	if proof.Empty() {
		return nil, types.ErrEmptyProof
	}
	if proof.TransactionRef != "" && !types.LooksLikeReference(proof.TransactionRef) {
		if proof.FileID == "" {
			return nil, types.ErrInvalidReference
		}
		proof.Note = strings.TrimSpace(proof.TransactionRef + " " + proof.Note)
		proof.TransactionRef = ""
	}
	var p *types.PaymentRequest
	err := s.store.WithTx(ctx, func(q types.Queries) error {
		var err error
		p, err = q.GetPayment(ctx, requestID)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			return types.ErrPaymentNotFound
		}
		if p.Status != types.PaymentPending {
			return types.ErrAlreadyProcessed
		}
		ok, err := q.AttachProof(ctx, requestID, userID, proof)
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrAlreadyProcessed
		}
		if proof.TransactionRef != "" {
			p.TransactionRef = proof.TransactionRef
		}
		if proof.FileID != "" {
			p.ProofFileID = proof.FileID
		}
		if proof.Note != "" {
			p.Note = proof.Note
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("attach proof to payment %d: %w", requestID, err)
	}

	user := s.payer(ctx, userID)
	if err := s.notifier.ProofAttached(ctx, *p, user, proof); err != nil {
		s.log.Warn("forward payment proof", zap.Int64("payment_id", p.ID), zap.Error(err))
	}
	return p, nil
}

// payer loads the user shown in admin notifications; nil only drops the name line.
func (s *Service) payer(ctx context.Context, userID int64) *types.User {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		s.log.Debug("load payer for notification", zap.Int64("user_id", userID), zap.Error(err))
		return nil
	}
	return u
}

// Approve moves a pending request to approved and, in the same transaction,
// extends the payer's subscription and credits a pending referral once.
func (s *Service) Approve(ctx context.Context, requestID, adminID int64) (*Approval, error) {
	now := s.now()
	var res Approval
	err := s.store.WithTx(ctx, func(q types.Queries) error {
		p, err := q.GetPayment(ctx, requestID)
		if err != nil {
			return err
		}
		if p.Status != types.PaymentPending {
			return types.ErrAlreadyProcessed
		}
		plan, err := q.GetPlan(ctx, p.PlanID)
		if err != nil {
			return err
		}
		ok, err := q.TransitionPayment(ctx, p.ID, types.PaymentApproved, adminID, "", now)
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrAlreadyProcessed
		}
		expiresAt, err := s.extend(ctx, q, p.UserID, plan, plan.DurationDays, now)
		if err != nil {
			return err
		}
		referrerID, commission, err := s.creditReferral(ctx, q, p.UserID, p.Amount, now)
		if err != nil {
			return err
		}

		p.Status = types.PaymentApproved
		p.VerifiedBy = &adminID
		p.VerifiedAt = &now
		res = Approval{Payment: *p, Plan: *plan, ExpiresAt: expiresAt, ReferrerID: referrerID, Commission: commission}

		return q.InsertAudit(ctx, types.AuditEntry{
			UserID:    adminID,
			Action:    "payment_approved",
			Details:   fmt.Sprintf("payment=%d user=%d plan=%d amount=%d commission=%d", p.ID, p.UserID, plan.ID, p.Amount, commission),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("approve payment %d: %w", requestID, err)
	}

	s.log.Info("payment approved",
		zap.Int64("payment_id", requestID), zap.Int64("admin_id", adminID),
		zap.Int64("user_id", res.Payment.UserID), zap.Time("expires_at", res.ExpiresAt),
		zap.Int64("commission", res.Commission))

	if err := s.notifier.PaymentApproved(ctx, res.Payment, res.Plan, res.ExpiresAt, s.AccessChannels(ctx)); err != nil {
		s.log.Warn("notify user about approval", zap.Int64("payment_id", requestID), zap.Error(err))
	}
	return &res, nil
}

// creditReferral completes the payer's pending referral, if any, and credits
// the referrer. A completed referral is never credited again.
func (s *Service) creditReferral(ctx context.Context, q types.Queries, referredID, paid int64, now time.Time) (int64, int64, error) {
	ref, err := q.GetReferral(ctx, referredID)
	if errors.Is(err, types.ErrNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	if ref.Status != types.ReferralPending {
		return ref.ReferrerID, 0, nil
	}
	commission := pricing.Commission(paid, s.rate)
	ok, err := q.CompleteReferral(ctx, referredID, commission, now)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return ref.ReferrerID, 0, nil
	}
	if commission > 0 {
		if _, err := q.AdjustBalance(ctx, ref.ReferrerID, commission); err != nil {
			return 0, 0, err
		}
	}
	return ref.ReferrerID, commission, nil
}

func (s *Service) Reject(ctx context.Context, requestID, adminID int64, reason string) (*types.PaymentRequest, error) {
	now := s.now()
	reason = strings.TrimSpace(reason)
	var p *types.PaymentRequest
	err := s.store.WithTx(ctx, func(q types.Queries) error {
		var err error
		p, err = q.GetPayment(ctx, requestID)
		if err != nil {
			return err
		}
		if p.Status != types.PaymentPending {
			return types.ErrAlreadyProcessed
		}
		ok, err := q.TransitionPayment(ctx, p.ID, types.PaymentRejected, adminID, reason, now)
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrAlreadyProcessed
		}
		p.Status = types.PaymentRejected
		p.VerifiedBy = &adminID
		p.VerifiedAt = &now
		if reason != "" {
			p.Note = reason
		}
		return q.InsertAudit(ctx, types.AuditEntry{
			UserID:    adminID,
			Action:    "payment_rejected",
			Details:   fmt.Sprintf("payment=%d user=%d reason=%q", p.ID, p.UserID, reason),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reject payment %d: %w", requestID, err)
	}

	s.log.Info("payment rejected", zap.Int64("payment_id", requestID), zap.Int64("admin_id", adminID))

	if err := s.notifier.PaymentRejected(ctx, *p, reason); err != nil {
		s.log.Warn("notify user about rejection", zap.Int64("payment_id", requestID), zap.Error(err))
	}
	return p, nil
}

func (s *Service) ListPending(ctx context.Context) ([]types.PaymentRequest, error) {
	list, err := s.store.ListPendingPayments(ctx, pendingListLimit)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	return list, nil
}
