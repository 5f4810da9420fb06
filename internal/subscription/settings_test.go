package subscription

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BatmanBruc/vip-access-bot/internal/testutil"
	"github.com/BatmanBruc/vip-access-bot/types"
)

func newSettingsService(t *testing.T, payment types.PaymentSettings) (*Service, *testutil.MemStore) {
	t.Helper()
	store := testutil.NewMemStore(testPlans...)
	svc := New(store, &recordingNotifier{}, zaptest.NewLogger(t), Config{
		CommissionRate: decimal.RequireFromString("0.10"),
		Payment:        payment,
	})
	return svc, store
}

func TestPaymentSettings_FallsBackToConfig(t *testing.T) {
	configured := types.PaymentSettings{
		UPIID:        "shop@upi",
		UPIPayeeName: "Shop",
		Wallets:      []types.Wallet{{Symbol: "USDT", Address: "T-env"}},
	}
	svc, _ := newSettingsService(t, configured)

	got, err := svc.PaymentSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, configured, got)
}

func TestPaymentSettings_StoredValuesWin(t *testing.T) {
	svc, _ := newSettingsService(t, types.PaymentSettings{
		UPIID:        "shop@upi",
		UPIPayeeName: "Shop",
		Wallets: []types.Wallet{
			{Symbol: "USDT", Address: "T-env"},
			{Symbol: "BTC", Address: "bc1-env"},
		},
	})
	ctx := context.Background()

	require.NoError(t, svc.SetUPI(ctx, 1, " newshop@okaxis ", " New Shop "))
	_, err := svc.SetWallet(ctx, 1, "btc", "bc1-admin")
	require.NoError(t, err)
	_, err = svc.SetWallet(ctx, 1, "ETH", "0xadmin")
	require.NoError(t, err)

	got, err := svc.PaymentSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "newshop@okaxis", got.UPIID)
	assert.Equal(t, "New Shop", got.UPIPayeeName)
	assert.Equal(t, []types.Wallet{
		{Symbol: "USDT", Address: "T-env"},
		{Symbol: "BTC", Address: "bc1-admin"},
		{Symbol: "ETH", Address: "0xadmin"},
	}, got.Wallets, "configured order first, then admin-only wallets")
}

func TestSetUPI_Validates(t *testing.T) {
	svc, store := newSettingsService(t, types.PaymentSettings{})
	ctx := context.Background()

	for _, bad := range []string{"", "shop", "@upi", "shop@", "shop @upi"} {
		assert.ErrorIs(t, svc.SetUPI(ctx, 1, bad, ""), types.ErrInvalidUPI, bad)
	}
	assert.Empty(t, store.Audit())

	require.NoError(t, svc.SetUPI(ctx, 1, "shop@upi", ""))
	audit := store.Audit()
	require.Len(t, audit, 1)
	assert.Equal(t, "upi_updated", audit[0].Action)
	assert.Equal(t, int64(1), audit[0].UserID)
}

func TestSetWallet_Validates(t *testing.T) {
	svc, store := newSettingsService(t, types.PaymentSettings{})
	ctx := context.Background()

	cases := []struct{ symbol, address string }{
		{"", "addr"},
		{"U", "addr"},
		{"US DT", "addr"},
		{"USDT", ""},
		{"USDT", "two parts"},
	}
	for _, c := range cases {
		_, err := svc.SetWallet(ctx, 1, c.symbol, c.address)
		assert.ErrorIs(t, err, types.ErrInvalidWallet, "%q %q", c.symbol, c.address)
	}
	assert.Empty(t, store.Audit())

	w, err := svc.SetWallet(ctx, 1, "usdt-trc20", "TXabc")
	require.NoError(t, err)
	assert.Equal(t, types.Wallet{Symbol: "USDT-TRC20", Address: "TXabc"}, w)

	audit := store.Audit()
	require.Len(t, audit, 1)
	assert.Equal(t, "wallet_updated", audit[0].Action)
}

func TestPayer_LogsLookupFailureAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	svc := New(testutil.NewMemStore(), &recordingNotifier{}, zap.New(core), Config{})

	assert.Nil(t, svc.payer(context.Background(), 404))
	entries := logs.FilterMessage("load payer for notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
}
