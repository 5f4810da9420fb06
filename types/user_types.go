package types

import (
	"regexp"
	"strings"
	"time"
)

type User struct {
	UserID     int64
	ChatID     int64
	Username   string
	FirstName  string
	LastName   string
	PlanName   string
	ExpiresAt  *time.Time
	Status     UserStatus
	ReferredBy *int64
	Balance    int64
	RemindedAt *time.Time
	JoinedAt   time.Time
	LastActive time.Time
}

func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		return "@" + u.Username
	}
	if name == "" {
		return "user"
	}
	return name
}

// ActiveAt reports whether the stored expiry lies strictly after t.
// Status is a sweeper-maintained cache and is ignored here.
func (u User) ActiveAt(t time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.After(t)
}

type Plan struct {
	ID           int
	Name         string
	DurationDays int
	Price        int64
	Description  string
	Features     []string
	Active       bool
}

type PaymentRequest struct {
	ID             int64
	UserID         int64
	PlanID         int
	Amount         int64
	Method         PaymentMethod
	Status         PaymentStatus
	TransactionRef string
	ProofFileID    string
	Note           string
	VerifiedBy     *int64
	VerifiedAt     *time.Time
	CreatedAt      time.Time
}

// Proof is what a user sends after paying: a screenshot or a transaction reference.
// Note carries free text such as a screenshot caption and is never unique.
type Proof struct {
	FileID         string
	IsDocument     bool
	TransactionRef string
	Note           string
}

func (p Proof) Empty() bool {
	return strings.TrimSpace(p.FileID) == "" && strings.TrimSpace(p.TransactionRef) == ""
}

// UTRs, bank references and crypto tx hashes: one token with at least one digit.
var referencePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/#-]{5,127}$`)

// LooksLikeReference reports whether s can be a payment transaction id.
func LooksLikeReference(s string) bool {
	return referencePattern.MatchString(s) && strings.ContainsAny(s, "0123456789")
}

// Wallet is a crypto receiving address shown to users paying with crypto.
type Wallet struct {
	Symbol  string
	Address string
}

// PaymentSettings are the receiving details admins can change at runtime.
type PaymentSettings struct {
	UPIID        string
	UPIPayeeName string
	Wallets      []Wallet
}

type Referral struct {
	ID          int64
	ReferrerID  int64
	ReferredID  int64
	Commission  int64
	Status      ReferralStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type ReferralStats struct {
	Referred  int
	Completed int
	Earned    int64
	Balance   int64
}

type Channel struct {
	ID          int64
	Topic       string
	Target      string
	Description string
	AddedBy     int64
	CreatedAt   time.Time
}

type AuditEntry struct {
	UserID    int64
	Action    string
	Details   string
	CreatedAt time.Time
}

type Stats struct {
	TotalUsers   int
	ActiveUsers  int
	NewToday     int
	Revenue      int64
	RevenueToday int64
	Pending      int
	ActivePlans  int
}
