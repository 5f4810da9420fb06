// Package subscription holds the plan catalog, the subscription ledger, the
// manual payment workflow and referral bookkeeping.
package subscription

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/types"
)

// Notifier delivers workflow outcomes to users and admins. Implementations are
// best effort; a returned error is logged and never undoes the workflow.
type Notifier interface {
	PaymentSubmitted(ctx context.Context, p types.PaymentRequest, plan types.Plan, user *types.User) error
	ProofAttached(ctx context.Context, p types.PaymentRequest, user *types.User, proof types.Proof) error
	PaymentApproved(ctx context.Context, p types.PaymentRequest, plan types.Plan, expiresAt time.Time, channels []types.Channel) error
	PaymentRejected(ctx context.Context, p types.PaymentRequest, reason string) error
	WithdrawalRequested(ctx context.Context, user *types.User, balance int64) error
}

type Config struct {
	CommissionRate decimal.Decimal
	// ChannelTopic selects which registered channels approved users are invited to.
	ChannelTopic string
	// Payment holds the configured receiving details; admins override them at runtime.
	Payment types.PaymentSettings
	Now     func() time.Time
}

type Service struct {
	store    types.Store
	notifier Notifier
	log      *zap.Logger
	rate     decimal.Decimal
	topic    string
	payment  types.PaymentSettings
	now      func() time.Time
}

func New(store types.Store, notifier Notifier, logger *zap.Logger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:    store,
		notifier: notifier,
		log:      logger.Named("subscription"),
		rate:     cfg.CommissionRate,
		topic:    cfg.ChannelTopic,
		payment:  cfg.Payment,
		now:      now,
	}
}

func (s *Service) CommissionRate() decimal.Decimal {
	return s.rate
}
