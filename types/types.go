package types

import (
	"context"
	"time"
)

// Session is the short-lived conversation state kept per user.
type Session struct {
	UserID    int64     `json:"user_id"`
	ChatID    int64     `json:"chat_id"`
	State     ChatState `json:"state"`
	PaymentID int64     `json:"payment_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SessionStore interface {
	GetSession(ctx context.Context, userID int64) (*Session, error)
	SaveSession(ctx context.Context, session *Session) error
	ClearSession(ctx context.Context, userID int64) error
}

// Queries is the set of reads and writes that must share a transaction
// when a workflow reads and then mutates related rows.
type Queries interface {
	GetPlan(ctx context.Context, id int) (*Plan, error)

	EnsureUser(ctx context.Context, userID int64) error
	LockUser(ctx context.Context, userID int64) (*User, error)
	ActivateSubscription(ctx context.Context, userID int64, planName string, expiresAt, now time.Time) error
	AdjustBalance(ctx context.Context, userID int64, delta int64) (int64, error)

	InsertPayment(ctx context.Context, p *PaymentRequest) error
	GetPayment(ctx context.Context, id int64) (*PaymentRequest, error)
	TransitionPayment(ctx context.Context, id int64, to PaymentStatus, adminID int64, note string, at time.Time) (bool, error)
	AttachProof(ctx context.Context, id, userID int64, proof Proof) (bool, error)

	GetReferral(ctx context.Context, referredID int64) (*Referral, error)
	CompleteReferral(ctx context.Context, referredID int64, commission int64, at time.Time) (bool, error)

	SetSetting(ctx context.Context, key, value string, at time.Time) error
	SetWallet(ctx context.Context, w Wallet, at time.Time) error

	InsertAudit(ctx context.Context, e AuditEntry) error
}

type Store interface {
	WithTx(ctx context.Context, fn func(q Queries) error) error

	GetPlan(ctx context.Context, id int) (*Plan, error)
	ListActivePlans(ctx context.Context) ([]Plan, error)
	SeedPlans(ctx context.Context, plans []Plan) (int, error)

	UpsertUser(ctx context.Context, user User) (created bool, err error)
	GetUser(ctx context.Context, userID int64) (*User, error)
	ListUserIDs(ctx context.Context) ([]int64, error)

	InsertReferral(ctx context.Context, referrerID, referredID int64, at time.Time) (bool, error)
	ReferralStats(ctx context.Context, userID int64) (ReferralStats, error)

	ListPendingPayments(ctx context.Context, limit int) ([]PaymentRequest, error)

	AddChannel(ctx context.Context, c *Channel) error
	ListChannels(ctx context.Context, topic string) ([]Channel, error)

	Stats(ctx context.Context, now time.Time) (Stats, error)

	ListSettings(ctx context.Context) (map[string]string, error)
	ListWallets(ctx context.Context) ([]Wallet, error)
}

// ExpiryStore is the narrow surface the expiry sweeper works against.
type ExpiryStore interface {
	ExpireDue(ctx context.Context, now time.Time) ([]User, error)
	MarkReminders(ctx context.Context, now, until time.Time) ([]User, error)
}
