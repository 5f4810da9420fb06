package types

import "strings"

type ChatState string

const (
	StateIdle          ChatState = "idle"
	StateAwaitingProof ChatState = "awaiting_proof"
)

type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusExpired UserStatus = "expired"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

type PaymentMethod string

const (
	MethodUPI     PaymentMethod = "upi"
	MethodBank    PaymentMethod = "bank"
	MethodPhonePe PaymentMethod = "phonepe"
	MethodCard    PaymentMethod = "card"
	MethodCrypto  PaymentMethod = "crypto"
	MethodManual  PaymentMethod = "manual"
)

// PaymentMethods lists the methods offered to users, in menu order.
var PaymentMethods = []PaymentMethod{MethodUPI, MethodPhonePe, MethodBank, MethodCrypto, MethodCard}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodUPI, MethodBank, MethodPhonePe, MethodCard, MethodCrypto, MethodManual:
		return true
	default:
		return false
	}
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", ErrInvalidMethod
	}
	return m, nil
}

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
)
