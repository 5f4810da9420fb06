package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/vip-access-bot/types"
)

func TestDecodeKnownPayloads(t *testing.T) {
	cases := []struct {
		raw  string
		want Data
	}{
		{"menu", MainMenu()},
		{"plans", Plans()},
		{"plan:3", Plan(3)},
		{"buy:2", Buy(2)},
		{"pay:upi:2", PayMethod(types.MethodUPI, 2)},
		{"paid:crypto:4", ConfirmPaid(types.MethodCrypto, 4)},
		{"adm:ok:7", Approve(7)},
		{"adm:no:7", Reject(7)},
		{" mysub ", MySubscription()},
	}
	for _, tc := range cases {
		got, err := Decode(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestEncodeDecodeAgree(t *testing.T) {
	for _, d := range []Data{Plan(1), Buy(4), PayMethod(types.MethodBank, 3), ConfirmPaid(types.MethodPhonePe, 1), Approve(99), Referral()} {
		got, err := Decode(d.Encode())
		require.NoError(t, err)
		assert.Equal(t, d, got)
		assert.LessOrEqual(t, len(d.Encode()), 64)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "plan_3", "plan:", "plan:x", "plan:-1", "pay:paypal:2", "pay:upi", "adm:ok:0", "adm:maybe:3", "confirm_upi_3"} {
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestAdminOnly(t *testing.T) {
	assert.True(t, Approve(1).AdminOnly())
	assert.True(t, Reject(1).AdminOnly())
	assert.False(t, Plan(1).AdminOnly())
}
