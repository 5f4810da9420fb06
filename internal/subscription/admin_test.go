package subscription

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/vip-access-bot/types"
)

func TestNormalizeChannelTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "-1001234567890", want: "-1001234567890"},
		{in: " @vip_lounge ", want: "@vip_lounge"},
		{in: "t.me/+AbCdEf", want: "https://t.me/+AbCdEf"},
		{in: "https://t.me/joinchat/xyz", want: "https://t.me/joinchat/xyz"},
		{in: "", wantErr: true},
		{in: "@ab", wantErr: true},
		{in: "vip channel", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeChannelTarget(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidChannel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddChannelAndAccessChannels(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.AddChannel(ctx, 1, "VIP", "t.me/+invite", "main room")
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+invite", c.Target)

	_, err = svc.AddChannel(ctx, 1, "VIP", "https://t.me/+invite", "")
	assert.ErrorIs(t, err, types.ErrDuplicateChannel)

	_, err = svc.AddChannel(ctx, 1, "Crypto", "-100200", "")
	require.NoError(t, err)

	_, err = svc.AddChannel(ctx, 1, " ", "-100300", "")
	assert.ErrorIs(t, err, types.ErrInvalidChannel)

	access := svc.AccessChannels(ctx)
	require.Len(t, access, 1)
	assert.Equal(t, "main room", access[0].Description)

	all, err := svc.ListChannels(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStatsAndBroadcastTargets(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Submit(ctx, 42, 2, types.MethodUPI)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, 43, 1, types.MethodUPI)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, p.ID, 1)
	require.NoError(t, err)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalUsers)
	assert.Equal(t, 1, st.ActiveUsers)
	assert.Equal(t, int64(299), st.Revenue)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 3, st.ActivePlans)

	ids, err := svc.BroadcastTargets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{42, 43}, ids)
}

func TestSeedPlans(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedPlans(ctx, []types.Plan{
		{ID: 2, Name: "Changed", DurationDays: 1, Price: 1, Active: true},
		{ID: 4, Name: "Lifetime", DurationDays: 36500, Price: 1999, Active: true},
	}))

	p, err := svc.GetPlan(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Monthly", p.Name, "existing plans are not overwritten")

	_, err = svc.GetPlan(ctx, 4)
	require.NoError(t, err)
}
