package utils

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/vip-access-bot/internal/callbacks"
	"github.com/BatmanBruc/vip-access-bot/internal/messages"
	"github.com/BatmanBruc/vip-access-bot/internal/pricing"
	"github.com/BatmanBruc/vip-access-bot/types"
)

func backButton(to callbacks.Data) Button {
	return Button{Text: "⬅️ Back", Callback: to}
}

func MainMenuKeyboard() *models.InlineKeyboardMarkup {
	return BuildInlineKeyboard([]Button{
		{Text: "💎 Plans", Callback: callbacks.Plans()},
		{Text: "📅 My Subscription", Callback: callbacks.MySubscription()},
		{Text: "🔑 Access", Callback: callbacks.CheckAccess()},
		{Text: "🤝 Refer & Earn", Callback: callbacks.Referral()},
		{Text: "❔ Help", Callback: callbacks.Help()},
	}, 2)
}

// PlansKeyboard has one button per plan, in catalog order.
func PlansKeyboard(plans []types.Plan) *models.InlineKeyboardMarkup {
	buttons := make([]Button, 0, len(plans))
	for _, p := range plans {
		buttons = append(buttons, Button{
			Text:     fmt.Sprintf("%s · %s", p.Name, pricing.Format(p.Price)),
			Callback: callbacks.Plan(p.ID),
		})
	}
	return WithRow(BuildInlineKeyboard(buttons, 1), backButton(callbacks.MainMenu()))
}

func PlanKeyboard(planID int) *models.InlineKeyboardMarkup {
	return BuildInlineKeyboard([]Button{
		{Text: "🛒 Buy", Callback: callbacks.Buy(planID)},
		backButton(callbacks.Plans()),
	}, 1)
}

func MethodsKeyboard(planID int) *models.InlineKeyboardMarkup {
	buttons := make([]Button, 0, len(types.PaymentMethods))
	for _, m := range types.PaymentMethods {
		buttons = append(buttons, Button{Text: messages.MethodLabel(m), Callback: callbacks.PayMethod(m, planID)})
	}
	return WithRow(BuildInlineKeyboard(buttons, 2), backButton(callbacks.Plan(planID)))
}

func PaidKeyboard(m types.PaymentMethod, planID int) *models.InlineKeyboardMarkup {
	return BuildInlineKeyboard([]Button{
		{Text: "✅ I've Paid", Callback: callbacks.ConfirmPaid(m, planID)},
		backButton(callbacks.Buy(planID)),
	}, 1)
}

// ReviewKeyboard is attached to admin notifications about a payment request.
func ReviewKeyboard(paymentID int64) *models.InlineKeyboardMarkup {
	return BuildInlineKeyboard([]Button{
		{Text: "✅ Approve", Callback: callbacks.Approve(paymentID)},
		{Text: "❌ Reject", Callback: callbacks.Reject(paymentID)},
	}, 2)
}

func RenewKeyboard() *models.InlineKeyboardMarkup {
	return BuildInlineKeyboard([]Button{{Text: "🔄 Renew", Callback: callbacks.Plans()}}, 1)
}

func ReferralKeyboard(canWithdraw bool) *models.InlineKeyboardMarkup {
	buttons := []Button{}
	if canWithdraw {
		buttons = append(buttons, Button{Text: "💸 Withdraw", Callback: callbacks.Withdraw()})
	}
	buttons = append(buttons, backButton(callbacks.MainMenu()))
	return BuildInlineKeyboard(buttons, 1)
}

func BackToMenuKeyboard() *models.InlineKeyboardMarkup {
	return BuildInlineKeyboard([]Button{backButton(callbacks.MainMenu())}, 1)
}
