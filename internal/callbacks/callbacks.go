// Package callbacks decodes inline-button payloads into a typed command once,
// at the transport boundary, so handlers can switch on Kind.
package callbacks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/BatmanBruc/vip-access-bot/types"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindMainMenu
	KindPlans
	KindPlan
	KindBuy
	KindPayMethod
	KindConfirmPaid
	KindMySubscription
	KindReferral
	KindWithdraw
	KindCheckAccess
	KindHelp
	KindApprove
	KindReject
)

var ErrMalformed = errors.New("malformed callback data")

// Data is one decoded button press.
type Data struct {
	Kind      Kind
	PlanID    int
	Method    types.PaymentMethod
	PaymentID int64
}

var simple = map[string]Kind{
	"menu":     KindMainMenu,
	"plans":    KindPlans,
	"mysub":    KindMySubscription,
	"refer":    KindReferral,
	"withdraw": KindWithdraw,
	"access":   KindCheckAccess,
	"help":     KindHelp,
}

func MainMenu() Data       { return Data{Kind: KindMainMenu} }
func Plans() Data          { return Data{Kind: KindPlans} }
func MySubscription() Data { return Data{Kind: KindMySubscription} }
func Referral() Data       { return Data{Kind: KindReferral} }
func Withdraw() Data       { return Data{Kind: KindWithdraw} }
func CheckAccess() Data    { return Data{Kind: KindCheckAccess} }
func Help() Data           { return Data{Kind: KindHelp} }

func Plan(id int) Data { return Data{Kind: KindPlan, PlanID: id} }
func Buy(id int) Data  { return Data{Kind: KindBuy, PlanID: id} }

func PayMethod(m types.PaymentMethod, planID int) Data {
	return Data{Kind: KindPayMethod, Method: m, PlanID: planID}
}

func ConfirmPaid(m types.PaymentMethod, planID int) Data {
	return Data{Kind: KindConfirmPaid, Method: m, PlanID: planID}
}

func Approve(paymentID int64) Data { return Data{Kind: KindApprove, PaymentID: paymentID} }
func Reject(paymentID int64) Data  { return Data{Kind: KindReject, PaymentID: paymentID} }

// Encode produces the wire form; it stays well under Telegram's 64-byte limit.
func (d Data) Encode() string {
	switch d.Kind {
	case KindMainMenu:
		return "menu"
	case KindPlans:
		return "plans"
	case KindMySubscription:
		return "mysub"
	case KindReferral:
		return "refer"
	case KindWithdraw:
		return "withdraw"
	case KindCheckAccess:
		return "access"
	case KindHelp:
		return "help"
	case KindPlan:
		return "plan:" + strconv.Itoa(d.PlanID)
	case KindBuy:
		return "buy:" + strconv.Itoa(d.PlanID)
	case KindPayMethod:
		return "pay:" + string(d.Method) + ":" + strconv.Itoa(d.PlanID)
	case KindConfirmPaid:
		return "paid:" + string(d.Method) + ":" + strconv.Itoa(d.PlanID)
	case KindApprove:
		return "adm:ok:" + strconv.FormatInt(d.PaymentID, 10)
	case KindReject:
		return "adm:no:" + strconv.FormatInt(d.PaymentID, 10)
	default:
		return ""
	}
}

func Decode(raw string) (Data, error) {
	raw = strings.TrimSpace(raw)
	if k, ok := simple[raw]; ok {
		return Data{Kind: k}, nil
	}
	parts := strings.Split(raw, ":")
	switch {
	case len(parts) == 2 && (parts[0] == "plan" || parts[0] == "buy"):
		id, err := parsePlanID(parts[1])
		if err != nil {
			return Data{}, err
		}
		if parts[0] == "plan" {
			return Plan(id), nil
		}
		return Buy(id), nil
	case len(parts) == 3 && (parts[0] == "pay" || parts[0] == "paid"):
		m, err := types.ParsePaymentMethod(parts[1])
		if err != nil {
			return Data{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
		id, err := parsePlanID(parts[2])
		if err != nil {
			return Data{}, err
		}
		if parts[0] == "pay" {
			return PayMethod(m, id), nil
		}
		return ConfirmPaid(m, id), nil
	case len(parts) == 3 && parts[0] == "adm" && (parts[1] == "ok" || parts[1] == "no"):
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || id <= 0 {
			return Data{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
		if parts[1] == "ok" {
			return Approve(id), nil
		}
		return Reject(id), nil
	}
	return Data{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
}

func parsePlanID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: plan id %q", ErrMalformed, s)
	}
	return id, nil
}

// AdminOnly reports whether the command may only be issued by an admin.
func (d Data) AdminOnly() bool {
	return d.Kind == KindApprove || d.Kind == KindReject
}
