package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/BatmanBruc/vip-access-bot/internal/pricing"
	"github.com/BatmanBruc/vip-access-bot/types"
)

const ParseModeHTML = "HTML"

const timeLayout = "02 Jan 2006 15:04 UTC"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func Title(text string) string {
	return fmt.Sprintf("✨ <b>%s</b>", Escape(text))
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func ErrorDefault() string {
	return "🚫 <b>Something went wrong</b>\nPlease try again in a moment."
}

func ErrorUnknownCommand() string {
	return "❓ <b>Unknown command</b>\nSend /help to see what I can do."
}

func ErrorUnsupportedMessage() string {
	return "🤖 I did not understand that. Use /plans to see subscriptions or /help for commands."
}

func Welcome(name string, active bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👋 <b>Welcome, %s!</b>\n\n", Escape(name))
	b.WriteString("This bot sells access to our private VIP channel.\n")
	if active {
		b.WriteString("✅ Your subscription is <b>active</b>.\n")
	} else {
		b.WriteString("Pick a plan, pay with UPI, bank transfer or crypto, and an admin will verify it.\n")
	}
	b.WriteString("\nUse the buttons below to get started.")
	return b.String()
}

func Help(isAdmin bool) string {
	var b strings.Builder
	b.WriteString(Title("Commands") + "\n")
	b.WriteString("/plans - browse subscription plans\n")
	b.WriteString("/mysub - your subscription status\n")
	b.WriteString("/refer - your referral link and earnings\n")
	b.WriteString("/withdraw - request a payout of your referral balance\n")
	b.WriteString("/help - this message\n")
	if isAdmin {
		b.WriteString("\n<b>Admin</b>\n")
		b.WriteString("/approve &lt;id&gt; - approve a payment\n")
		b.WriteString("/reject &lt;id&gt; [reason] - reject a payment\n")
		b.WriteString("/addsub &lt;user_id&gt; &lt;days&gt; - grant access without payment\n")
		b.WriteString("/add_channel &lt;topic&gt; &lt;id|@name|link&gt; [desc]\n")
		b.WriteString("/set_upi &lt;upi_id&gt; [payee] - change the UPI id\n")
		b.WriteString("/set_crypto &lt;symbol&gt; &lt;address&gt; - set a crypto wallet\n")
		b.WriteString("/list_wallets - current payment details\n")
		b.WriteString("/channels - registered channels\n")
		b.WriteString("/pending - pending payments\n")
		b.WriteString("/stats - bot statistics\n")
		b.WriteString("/broadcast &lt;text&gt; - message every user\n")
		b.WriteString("/payout &lt;user_id&gt; &lt;amount&gt; - record a referral payout\n")
		b.WriteString("/sweep - run the expiry sweep now\n")
	}
	return b.String()
}

func PlansList(plans []types.Plan) string {
	if len(plans) == 0 {
		return "😕 No plans are available right now. Please check back later."
	}
	var b strings.Builder
	b.WriteString(Title("VIP Plans") + "\n\n")
	for _, p := range plans {
		fmt.Fprintf(&b, "%s · <b>%s</b> · %s\n", Escape(p.Name), pricing.Format(p.Price), pricing.FormatDuration(p.DurationDays))
	}
	b.WriteString("\nTap a plan for details.")
	return b.String()
}

func PlanCard(p types.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", Escape(p.Name))
	fmt.Fprintf(&b, "💰 Price: <b>%s</b>\n", pricing.Format(p.Price))
	fmt.Fprintf(&b, "⏳ Duration: %s\n", pricing.FormatDuration(p.DurationDays))
	if d := strings.TrimSpace(p.Description); d != "" {
		fmt.Fprintf(&b, "\n%s\n", Escape(d))
	}
	if len(p.Features) > 0 {
		b.WriteString("\n")
		for _, f := range p.Features {
			b.WriteString(Escape(f) + "\n")
		}
	}
	return b.String()
}

func ChooseMethod(p types.Plan) string {
	return fmt.Sprintf("💳 <b>%s</b> for %s\n\nChoose how you want to pay:", Escape(p.Name), pricing.Format(p.Price))
}

func MethodLabel(m types.PaymentMethod) string {
	switch m {
	case types.MethodUPI:
		return "📱 UPI"
	case types.MethodPhonePe:
		return "💜 PhonePe"
	case types.MethodBank:
		return "🏦 Bank Transfer"
	case types.MethodCrypto:
		return "🪙 Crypto"
	case types.MethodCard:
		return "💳 Card"
	default:
		return "✍️ Manual"
	}
}

// PaymentDetails are the receiving identifiers shown in payment instructions.
type PaymentDetails struct {
	UPIID           string
	UPIPayeeName    string
	PhonePeNumber   string
	BankDetails     string
	Wallets         []types.Wallet
	SupportUsername string
}

func PaymentInstructions(m types.PaymentMethod, p types.Plan, d PaymentDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s payment for <b>%s</b>\n", MethodLabel(m), Escape(p.Name))
	fmt.Fprintf(&b, "Amount: <b>%s</b>\n\n", pricing.Format(p.Price))
	switch m {
	case types.MethodUPI:
		if d.UPIID == "" {
			b.WriteString("UPI is not configured yet, please contact support.\n")
			break
		}
		fmt.Fprintf(&b, "UPI ID: <code>%s</code>\n", Escape(d.UPIID))
		if d.UPIPayeeName != "" {
			fmt.Fprintf(&b, "Name: %s\n", Escape(d.UPIPayeeName))
		}
		b.WriteString("Scan the QR code or pay to the UPI ID above.\n")
	case types.MethodPhonePe:
		if d.PhonePeNumber == "" {
			b.WriteString("PhonePe is not configured yet, please contact support.\n")
			break
		}
		fmt.Fprintf(&b, "PhonePe number: <code>%s</code>\n", Escape(d.PhonePeNumber))
	case types.MethodBank:
		if d.BankDetails == "" {
			b.WriteString("Bank transfer is not configured yet, please contact support.\n")
			break
		}
		fmt.Fprintf(&b, "<pre>%s</pre>\n", Escape(d.BankDetails))
	case types.MethodCrypto:
		if len(d.Wallets) == 0 {
			b.WriteString("Crypto is not configured yet, please contact support.\n")
			break
		}
		for _, w := range d.Wallets {
			fmt.Fprintf(&b, "%s: <code>%s</code>\n", Escape(w.Symbol), Escape(w.Address))
		}
		b.WriteString("Send the equivalent of the amount above at the current rate.\n")
	default:
		b.WriteString("Contact support to pay by card or another method.\n")
	}
	if d.SupportUsername != "" {
		fmt.Fprintf(&b, "\nSupport: @%s\n", Escape(d.SupportUsername))
	}
	b.WriteString("\nAfter paying, tap <b>I've Paid</b>.")
	return b.String()
}

func PaymentSubmitted(p types.PaymentRequest, plan types.Plan) string {
	return fmt.Sprintf("🧾 <b>Payment request #%d received</b>\n\nPlan: %s\nAmount: %s\nMethod: %s\n\n"+
		"📸 Now send a screenshot of the payment or the transaction ID so the admin can verify it.",
		p.ID, Escape(plan.Name), pricing.Format(p.Amount), MethodLabel(p.Method))
}

func ProofReceived(paymentID int64) string {
	return fmt.Sprintf("✅ Proof attached to request #%d. You will be notified once an admin verifies it.", paymentID)
}

func ProofNotReference() string {
	return "⚠️ That does not look like a transaction ID. Send the UTR / transaction hash, or a screenshot of the payment."
}

func ProofDuplicate() string {
	return "⚠️ That transaction ID was already submitted. Send a different reference or a screenshot."
}

func AdminNewPayment(p types.PaymentRequest, plan types.Plan, user *types.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 <b>New payment request #%d</b>\n\n", p.ID)
	b.WriteString(userLine(p.UserID, user))
	fmt.Fprintf(&b, "Plan: %s (%s)\n", Escape(plan.Name), pricing.FormatDuration(plan.DurationDays))
	fmt.Fprintf(&b, "Amount: <b>%s</b>\nMethod: %s\n", pricing.Format(p.Amount), MethodLabel(p.Method))
	fmt.Fprintf(&b, "Created: %s\n\n", FormatTime(p.CreatedAt))
	fmt.Fprintf(&b, "Approve: <code>/approve %d</code>\nReject: <code>/reject %d reason</code>", p.ID, p.ID)
	return b.String()
}

func AdminProof(p types.PaymentRequest, user *types.User, proof types.Proof) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📎 <b>Proof for request #%d</b>\n", p.ID)
	b.WriteString(userLine(p.UserID, user))
	fmt.Fprintf(&b, "Amount: %s via %s\n", pricing.Format(p.Amount), MethodLabel(p.Method))
	if proof.TransactionRef != "" {
		fmt.Fprintf(&b, "Transaction ID: <code>%s</code>\n", Escape(proof.TransactionRef))
	}
	if proof.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", Escape(proof.Note))
	}
	fmt.Fprintf(&b, "\n<code>/approve %d</code>", p.ID)
	return b.String()
}

func userLine(userID int64, user *types.User) string {
	if user == nil {
		return fmt.Sprintf("User: <code>%d</code>\n", userID)
	}
	handle := ""
	if user.Username != "" {
		handle = " @" + Escape(user.Username)
	}
	return fmt.Sprintf("User: %s%s (<code>%d</code>)\n", Escape(user.DisplayName()), handle, userID)
}

func PaymentApproved(plan types.Plan, expiresAt time.Time, invites []string) string {
	var b strings.Builder
	b.WriteString("🎉 <b>Payment approved!</b>\n\n")
	fmt.Fprintf(&b, "Plan: %s\nDuration: %s\n", Escape(plan.Name), pricing.FormatDuration(plan.DurationDays))
	fmt.Fprintf(&b, "Access until: <b>%s</b>\n", FormatTime(expiresAt))
	b.WriteString(inviteBlock(invites))
	return b.String()
}

func PaymentRejected(paymentID int64, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "The payment could not be verified."
	}
	return fmt.Sprintf("❌ <b>Payment request #%d was rejected</b>\n\nReason: %s\n\nIf you think this is a mistake, contact support.", paymentID, Escape(reason))
}

func AdminApproved(p types.PaymentRequest, expiresAt time.Time, commission int64) string {
	s := fmt.Sprintf("✅ Request #%d approved. User <code>%d</code> has access until %s.", p.ID, p.UserID, FormatTime(expiresAt))
	if commission > 0 {
		s += fmt.Sprintf("\nReferral commission credited: %s", pricing.Format(commission))
	}
	return s
}

func AdminRejected(paymentID int64) string {
	return fmt.Sprintf("🚫 Request #%d rejected and the user was notified.", paymentID)
}

func AlreadyProcessed(paymentID int64) string {
	return fmt.Sprintf("⚠️ Request #%d was already processed.", paymentID)
}

func PaymentNotFound(paymentID int64) string {
	return fmt.Sprintf("❓ Request #%d not found.", paymentID)
}

func PlanNotFound(planID int) string {
	return fmt.Sprintf("❓ Plan %d not found.", planID)
}

func SubscriptionStatus(u *types.User, now time.Time) string {
	if u == nil || u.ExpiresAt == nil {
		return "📭 You do not have a subscription yet. Use /plans to get one."
	}
	if !u.ActiveAt(now) {
		return fmt.Sprintf("⌛ Your subscription <b>%s</b> expired on %s.\nUse /plans to renew.", Escape(u.PlanName), FormatTime(*u.ExpiresAt))
	}
	left := u.ExpiresAt.Sub(now)
	days := int(left.Hours() / 24)
	return fmt.Sprintf("✅ <b>Active</b>: %s\nValid until: %s\nDays left: %d\n\nRenewing now adds time on top of what you have.",
		Escape(u.PlanName), FormatTime(*u.ExpiresAt), days)
}

func AccessInfo(active bool, invites []string) string {
	if !active {
		return "🔒 You do not have active access. Use /plans to subscribe."
	}
	return "🔓 <b>Your access is active.</b>\n" + inviteBlock(invites)
}

func inviteBlock(invites []string) string {
	if len(invites) == 0 {
		return "\nAn admin will share the channel link with you shortly."
	}
	var b strings.Builder
	b.WriteString("\nJoin the channel:\n")
	for _, link := range invites {
		fmt.Fprintf(&b, "👉 %s\n", Escape(link))
	}
	return b.String()
}

func SubscriptionExpired(u types.User) string {
	plan := u.PlanName
	if plan == "" {
		plan = "VIP"
	}
	return fmt.Sprintf("⌛ <b>Your %s subscription has expired.</b>\n\nRenew with /plans to keep your channel access.", Escape(plan))
}

func ExpiryReminder(u types.User, now time.Time) string {
	if u.ExpiresAt == nil {
		return ""
	}
	days := int(u.ExpiresAt.Sub(now).Hours()/24) + 1
	return fmt.Sprintf("⏰ <b>Reminder</b>: your subscription ends on %s (in about %d day(s)).\nRenew early with /plans, remaining time is kept.",
		FormatTime(*u.ExpiresAt), days)
}

func ReferralInfo(link string, st types.ReferralStats, rate string) string {
	var b strings.Builder
	b.WriteString(Title("Refer & Earn") + "\n\n")
	fmt.Fprintf(&b, "Earn <b>%s</b> of every first payment made by people you invite.\n\n", Escape(rate))
	if link != "" {
		fmt.Fprintf(&b, "Your link:\n<code>%s</code>\n\n", Escape(link))
	}
	fmt.Fprintf(&b, "Invited: %d\nPaid: %d\nEarned: %s\nBalance: <b>%s</b>", st.Referred, st.Completed, pricing.Format(st.Earned), pricing.Format(st.Balance))
	return b.String()
}

func WithdrawRequested(balance int64) string {
	return fmt.Sprintf("📤 Withdrawal request for %s sent to the admin. You will be contacted for payout details.", pricing.Format(balance))
}

func WithdrawNothing() string {
	return "💤 Your referral balance is empty. Invite friends with /refer."
}

func AdminWithdrawRequest(u *types.User, balance int64) string {
	return fmt.Sprintf("💸 <b>Withdrawal request</b>\n%sBalance: <b>%s</b>\n\nAfter paying out: <code>/payout %d %d</code>",
		userLine(u.UserID, u), pricing.Format(balance), u.UserID, balance)
}

func PayoutDone(userID, amount, balance int64) string {
	return fmt.Sprintf("✅ Recorded payout of %s to <code>%d</code>. Remaining balance: %s.", pricing.Format(amount), userID, pricing.Format(balance))
}

func PayoutSent(amount int64) string {
	return fmt.Sprintf("💸 Your referral payout of %s has been sent.", pricing.Format(amount))
}

func PayoutInsufficient(userID int64) string {
	return fmt.Sprintf("⚠️ User <code>%d</code> does not have enough balance for that payout.", userID)
}

func AdminStats(st types.Stats) string {
	var b strings.Builder
	b.WriteString(Title("Statistics") + "\n\n")
	fmt.Fprintf(&b, "👥 Users: %d (new today: %d)\n", st.TotalUsers, st.NewToday)
	fmt.Fprintf(&b, "✅ Active subscribers: %d\n", st.ActiveUsers)
	fmt.Fprintf(&b, "💰 Revenue: %s (today: %s)\n", pricing.Format(st.Revenue), pricing.Format(st.RevenueToday))
	fmt.Fprintf(&b, "⏳ Pending payments: %d\n", st.Pending)
	fmt.Fprintf(&b, "📦 Active plans: %d", st.ActivePlans)
	return b.String()
}

func AdminPendingList(list []types.PaymentRequest) string {
	if len(list) == 0 {
		return "✨ No pending payments."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏳ <b>Pending payments (%d)</b>\n\n", len(list))
	for _, p := range list {
		proof := ""
		if p.ProofFileID != "" || p.TransactionRef != "" {
			proof = " 📎"
		}
		fmt.Fprintf(&b, "#%d · user <code>%d</code> · plan %d · %s · %s%s\n", p.ID, p.UserID, p.PlanID, pricing.Format(p.Amount), p.Method, proof)
	}
	return b.String()
}

func AdminGrantDone(userID int64, expiresAt time.Time) string {
	return fmt.Sprintf("✅ User <code>%d</code> now has access until %s.", userID, FormatTime(expiresAt))
}

func AdminApproveUsage() string   { return "Usage: <code>/approve &lt;payment_id&gt;</code>" }
func AdminRejectUsage() string    { return "Usage: <code>/reject &lt;payment_id&gt; [reason]</code>" }
func AdminAddSubUsage() string    { return "Usage: <code>/addsub &lt;user_id&gt; &lt;days&gt; [plan_id]</code>" }
func AdminPayoutUsage() string    { return "Usage: <code>/payout &lt;user_id&gt; &lt;amount&gt;</code>" }
func AdminBroadcastUsage() string { return "Usage: <code>/broadcast &lt;text&gt;</code>" }
func AdminSetUPIUsage() string    { return "Usage: <code>/set_upi &lt;upi_id&gt; [payee name]</code>" }
func AdminSetCryptoUsage() string { return "Usage: <code>/set_crypto &lt;symbol&gt; &lt;address&gt;</code>" }

func AdminAddSubTooLong(maxDays int) string {
	return fmt.Sprintf("⚠️ A single grant can add at most %d days.", maxDays)
}

func AdminAddChannelUsage() string {
	return "Usage: <code>/add_channel &lt;topic&gt; &lt;channel_id|@username|invite_link&gt; [description]</code>"
}

func UPIUpdated(upiID, payee string) string {
	if payee == "" {
		return fmt.Sprintf("✅ UPI set to <code>%s</code>.", Escape(upiID))
	}
	return fmt.Sprintf("✅ UPI set to <code>%s</code> (%s).", Escape(upiID), Escape(payee))
}

func WalletUpdated(w types.Wallet) string {
	return fmt.Sprintf("✅ %s wallet set to <code>%s</code>.", Escape(w.Symbol), Escape(w.Address))
}

// PaymentSettingsList shows what payers currently see.
func PaymentSettingsList(ps types.PaymentSettings) string {
	var b strings.Builder
	b.WriteString(Title("Payment details") + "\n\n")
	if ps.UPIID == "" {
		b.WriteString("UPI: not configured\n")
	} else {
		fmt.Fprintf(&b, "UPI: <code>%s</code>", Escape(ps.UPIID))
		if ps.UPIPayeeName != "" {
			fmt.Fprintf(&b, " (%s)", Escape(ps.UPIPayeeName))
		}
		b.WriteString("\n")
	}
	if len(ps.Wallets) == 0 {
		b.WriteString("No crypto wallets configured.")
		return b.String()
	}
	b.WriteString("\nWallets:\n")
	for _, w := range ps.Wallets {
		fmt.Fprintf(&b, "• %s: <code>%s</code>\n", Escape(w.Symbol), Escape(w.Address))
	}
	return strings.TrimRight(b.String(), "\n")
}

func ChannelAdded(c types.Channel) string {
	return fmt.Sprintf("✅ Channel #%d added to topic <b>%s</b>: %s", c.ID, Escape(c.Topic), Escape(c.Target))
}

func ChannelDuplicate() string {
	return "⚠️ That channel is already registered for this topic."
}

func ChannelList(cs []types.Channel) string {
	if len(cs) == 0 {
		return "No channels registered. Use /add_channel."
	}
	var b strings.Builder
	b.WriteString(Title("Channels") + "\n\n")
	for _, c := range cs {
		fmt.Fprintf(&b, "#%d [%s] %s", c.ID, Escape(c.Topic), Escape(c.Target))
		if c.Description != "" {
			fmt.Fprintf(&b, " - %s", Escape(c.Description))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func BroadcastDone(sent, failed int) string {
	return fmt.Sprintf("📣 Broadcast finished: %d delivered, %d failed.", sent, failed)
}

func SweepDone(expired, reminded int) string {
	return fmt.Sprintf("🧹 Sweep finished: %d expired, %d reminded.", expired, reminded)
}

func SweepBusy() string {
	return "⏳ A sweep is already running."
}

func PaymentCreateFailed() string {
	return "🚫 Could not create the payment request. Please try again."
}

func ButtonInvalid() string {
	return "This button is no longer valid."
}
