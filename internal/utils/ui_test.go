package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/vip-access-bot/internal/callbacks"
)

func TestBuildInlineKeyboardRows(t *testing.T) {
	kb := BuildInlineKeyboard([]Button{
		{Text: "A", Callback: callbacks.Plan(1)},
		{Text: "B", Callback: callbacks.Plan(2)},
		{Text: "C", Callback: callbacks.Plan(3)},
	}, 2)

	require.Len(t, kb.InlineKeyboard, 2)
	assert.Len(t, kb.InlineKeyboard[0], 2)
	assert.Len(t, kb.InlineKeyboard[1], 1)
	assert.Equal(t, "plan:3", kb.InlineKeyboard[1][0].CallbackData)
}

func TestWithRowAddsLinkButton(t *testing.T) {
	kb := BuildInlineKeyboard(nil, 1)
	WithRow(kb, Button{Text: "Join", URL: "https://t.me/+x"})

	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, "https://t.me/+x", kb.InlineKeyboard[0][0].URL)
	assert.Empty(t, kb.InlineKeyboard[0][0].CallbackData)
}

func TestReviewKeyboardCarriesPaymentID(t *testing.T) {
	kb := ReviewKeyboard(17)

	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, "adm:ok:17", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "adm:no:17", kb.InlineKeyboard[0][1].CallbackData)
}

func TestMethodsKeyboardEndsWithBack(t *testing.T) {
	kb := MethodsKeyboard(2)

	last := kb.InlineKeyboard[len(kb.InlineKeyboard)-1]
	require.Len(t, last, 1)
	assert.Equal(t, "plan:2", last[0].CallbackData)
	assert.Equal(t, "pay:upi:2", kb.InlineKeyboard[0][0].CallbackData)
}
