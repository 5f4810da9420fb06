package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/internal/callbacks"
	"github.com/BatmanBruc/vip-access-bot/internal/messages"
	"github.com/BatmanBruc/vip-access-bot/internal/pricing"
	"github.com/BatmanBruc/vip-access-bot/internal/utils"
	"github.com/BatmanBruc/vip-access-bot/types"
)

// show edits the message a button was pressed on, or sends a new one when
// there is nothing to edit.
func (bh *Handlers) show(ctx context.Context, api BotAPI, chatID int64, origin *models.Message, text string, kb *models.InlineKeyboardMarkup) {
	if origin != nil {
		_, err := api.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   origin.ID,
			Text:        text,
			ParseMode:   messages.ParseModeHTML,
			ReplyMarkup: kb,
		})
		if err == nil {
			return
		}
		bh.log.Debug("edit message, sending instead", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	bh.send(ctx, api, chatID, text, kb)
}

func (bh *Handlers) showPlans(ctx context.Context, api BotAPI, chatID int64, origin *models.Message) {
	plans, err := bh.svc.ListActivePlans(ctx)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	bh.show(ctx, api, chatID, origin, messages.PlansList(plans), utils.PlansKeyboard(plans))
}

func (bh *Handlers) showSubscription(ctx context.Context, api BotAPI, userID, chatID int64, origin *models.Message) {
	u, err := bh.svc.Subscription(ctx, userID)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	kb := utils.BackToMenuKeyboard()
	if u != nil && u.ExpiresAt != nil {
		kb = utils.WithRow(utils.RenewKeyboard(), utils.Button{Text: "⬅️ Back", Callback: callbacks.MainMenu()})
	}
	bh.show(ctx, api, chatID, origin, messages.SubscriptionStatus(u, bh.now()), kb)
}

func (bh *Handlers) referralLink(userID int64) string {
	if bh.botName == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%s%d", bh.botName, referralPrefix, userID)
}

func (bh *Handlers) showReferral(ctx context.Context, api BotAPI, userID, chatID int64, origin *models.Message) {
	st, err := bh.svc.ReferralStats(ctx, userID)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	text := messages.ReferralInfo(bh.referralLink(userID), st, pricing.FormatRate(bh.svc.CommissionRate()))
	bh.show(ctx, api, chatID, origin, text, utils.ReferralKeyboard(st.Balance > 0))
}

func (bh *Handlers) requestWithdrawal(ctx context.Context, api BotAPI, userID, chatID int64) {
	balance, err := bh.svc.RequestWithdrawal(ctx, userID)
	if errors.Is(err, types.ErrInsufficientBalance) {
		bh.send(ctx, api, chatID, messages.WithdrawNothing(), nil)
		return
	}
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	bh.send(ctx, api, chatID, messages.WithdrawRequested(balance), nil)
}

func (bh *Handlers) showAccess(ctx context.Context, api BotAPI, userID, chatID int64, origin *models.Message) {
	active, err := bh.svc.HasActiveAccess(ctx, userID)
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, 0)
		return
	}
	var invites []string
	if active {
		invites = bh.notifier.InviteLinks(ctx, bh.svc.AccessChannels(ctx))
	}
	bh.show(ctx, api, chatID, origin, messages.AccessInfo(active, invites), utils.BackToMenuKeyboard())
}
