package messages

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BatmanBruc/vip-access-bot/types"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;Tom &amp; &#39;Jerry&#39;&lt;/b&gt;", Escape(" <b>Tom & 'Jerry'</b> "))
}

func TestAdminNewPaymentSuggestsApproveCommand(t *testing.T) {
	p := types.PaymentRequest{ID: 7, UserID: 42, PlanID: 2, Amount: 299, Method: types.MethodUPI, CreatedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)}
	plan := types.Plan{ID: 2, Name: "PRO <1 Month>", DurationDays: 30, Price: 299}
	text := AdminNewPayment(p, plan, &types.User{UserID: 42, FirstName: "Asha", Username: "asha"})

	assert.Contains(t, text, "/approve 7")
	assert.Contains(t, text, "₹299")
	assert.Contains(t, text, "PRO &lt;1 Month&gt;")
	assert.Contains(t, text, "@asha")
}

func TestSubscriptionStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Contains(t, SubscriptionStatus(nil, now), "/plans")

	future := now.Add(10*24*time.Hour + time.Hour)
	active := SubscriptionStatus(&types.User{PlanName: "PRO", ExpiresAt: &future}, now)
	assert.Contains(t, active, "Active")
	assert.Contains(t, active, "Days left: 10")

	past := now.Add(-time.Second)
	assert.Contains(t, SubscriptionStatus(&types.User{PlanName: "PRO", ExpiresAt: &past}, now), "expired")
}

func TestPaymentInstructionsPerMethod(t *testing.T) {
	plan := types.Plan{Name: "PRO", Price: 299}
	d := PaymentDetails{UPIID: "shop@upi", BankDetails: "A/C 123\nIFSC X0001"}

	assert.Contains(t, PaymentInstructions(types.MethodUPI, plan, d), "shop@upi")
	assert.Contains(t, PaymentInstructions(types.MethodBank, plan, d), "IFSC X0001")
	assert.Contains(t, PaymentInstructions(types.MethodCrypto, plan, d), "not configured")
}

func TestPaymentApprovedListsInvites(t *testing.T) {
	exp := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	text := PaymentApproved(types.Plan{Name: "PRO", DurationDays: 30}, exp, []string{"https://t.me/+abc"})
	assert.Contains(t, text, "30 days")
	assert.Contains(t, text, "https://t.me/+abc")
	assert.True(t, strings.Contains(text, "01 Apr 2026"))
}

func TestAdminProofShowsCaptionAsNote(t *testing.T) {
	text := AdminProof(types.PaymentRequest{ID: 5, UserID: 42, Amount: 99, Method: types.MethodUPI}, nil,
		types.Proof{FileID: "f", Note: "paid <via gpay>"})
	assert.Contains(t, text, "Note: paid &lt;via gpay&gt;")
	assert.NotContains(t, text, "Transaction ID")
}

func TestPaymentSettingsList(t *testing.T) {
	empty := PaymentSettingsList(types.PaymentSettings{})
	assert.Contains(t, empty, "UPI: not configured")
	assert.Contains(t, empty, "No crypto wallets configured.")

	text := PaymentSettingsList(types.PaymentSettings{
		UPIID:        "shop@upi",
		UPIPayeeName: "Shop",
		Wallets:      []types.Wallet{{Symbol: "USDT", Address: "TXabc"}},
	})
	assert.Contains(t, text, "<code>shop@upi</code>")
	assert.Contains(t, text, "USDT")
	assert.Contains(t, text, "<code>TXabc</code>")
	assert.NotContains(t, text, "not configured")
}
