package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/internal/callbacks"
	"github.com/BatmanBruc/vip-access-bot/internal/contextkeys"
	"github.com/BatmanBruc/vip-access-bot/internal/messages"
	"github.com/BatmanBruc/vip-access-bot/internal/payqr"
	"github.com/BatmanBruc/vip-access-bot/internal/subscription"
	"github.com/BatmanBruc/vip-access-bot/internal/utils"
	"github.com/BatmanBruc/vip-access-bot/types"
)

func (bh *Handlers) HandleClickButton(ctx context.Context, api BotAPI, q *models.CallbackQuery, userID, chatID int64) {
	if q == nil {
		return
	}
	data, _ := contextkeys.GetCallback(ctx)
	origin := q.Message.Message

	if data.AdminOnly() && !bh.isAdmin(userID) {
		bh.log.Warn("admin button pressed by non-admin", zap.Int64("user_id", userID), zap.Error(types.ErrUnauthorized))
		bh.answerCallbackAlert(ctx, api, q.ID, messages.ButtonInvalid())
		return
	}

	switch data.Kind {
	case callbacks.KindMainMenu:
		bh.answerCallback(ctx, api, q.ID, "")
		_ = bh.sessions.ClearSession(ctx, userID)
		name := q.From.FirstName
		if name == "" {
			name = "there"
		}
		active, _ := bh.svc.HasActiveAccess(ctx, userID)
		bh.show(ctx, api, chatID, origin, messages.Welcome(name, active), utils.MainMenuKeyboard())
	case callbacks.KindPlans:
		bh.answerCallback(ctx, api, q.ID, "")
		bh.showPlans(ctx, api, chatID, origin)
	case callbacks.KindPlan:
		bh.answerCallback(ctx, api, q.ID, "")
		plan, ok := bh.activePlan(ctx, api, chatID, data.PlanID)
		if !ok {
			return
		}
		bh.show(ctx, api, chatID, origin, messages.PlanCard(*plan), utils.PlanKeyboard(plan.ID))
	case callbacks.KindBuy:
		bh.answerCallback(ctx, api, q.ID, "")
		plan, ok := bh.activePlan(ctx, api, chatID, data.PlanID)
		if !ok {
			return
		}
		bh.show(ctx, api, chatID, origin, messages.ChooseMethod(*plan), utils.MethodsKeyboard(plan.ID))
	case callbacks.KindPayMethod:
		bh.answerCallback(ctx, api, q.ID, "")
		bh.showInstructions(ctx, api, chatID, origin, data)
	case callbacks.KindConfirmPaid:
		bh.confirmPaid(ctx, api, q.ID, userID, chatID, data)
	case callbacks.KindMySubscription:
		bh.answerCallback(ctx, api, q.ID, "")
		bh.showSubscription(ctx, api, userID, chatID, origin)
	case callbacks.KindReferral:
		bh.answerCallback(ctx, api, q.ID, "")
		bh.showReferral(ctx, api, userID, chatID, origin)
	case callbacks.KindWithdraw:
		bh.answerCallback(ctx, api, q.ID, "")
		bh.requestWithdrawal(ctx, api, userID, chatID)
	case callbacks.KindCheckAccess:
		bh.answerCallback(ctx, api, q.ID, "")
		bh.showAccess(ctx, api, userID, chatID, origin)
	case callbacks.KindHelp:
		bh.answerCallback(ctx, api, q.ID, "")
		bh.show(ctx, api, chatID, origin, messages.Help(bh.isAdmin(userID)), utils.BackToMenuKeyboard())
	case callbacks.KindApprove:
		bh.reviewByButton(ctx, api, q, userID, chatID, data.PaymentID, true)
	case callbacks.KindReject:
		bh.reviewByButton(ctx, api, q, userID, chatID, data.PaymentID, false)
	default:
		bh.answerCallbackAlert(ctx, api, q.ID, messages.ButtonInvalid())
	}
}

func (bh *Handlers) activePlan(ctx context.Context, api BotAPI, chatID int64, planID int) (*types.Plan, bool) {
	plan, err := bh.svc.GetPlan(ctx, planID)
	if err == nil && !plan.Active {
		err = types.ErrPlanNotFound
	}
	if err != nil {
		bh.replyError(ctx, api, chatID, err, 0, planID)
		return nil, false
	}
	return plan, true
}

func (bh *Handlers) showInstructions(ctx context.Context, api BotAPI, chatID int64, origin *models.Message, data callbacks.Data) {
	plan, ok := bh.activePlan(ctx, api, chatID, data.PlanID)
	if !ok {
		return
	}
	details := bh.paymentDetails(ctx)
	if data.Method == types.MethodUPI {
		bh.sendUPIQR(ctx, api, chatID, *plan, details)
	}
	bh.show(ctx, api, chatID, origin, messages.PaymentInstructions(data.Method, *plan, details), utils.PaidKeyboard(data.Method, plan.ID))
}

// sendUPIQR sends a scannable QR with the plan price pre-filled. Failures
// are logged; the text instructions still carry the UPI id.
func (bh *Handlers) sendUPIQR(ctx context.Context, api BotAPI, chatID int64, plan types.Plan, d messages.PaymentDetails) {
	uri, err := payqr.UPIURI(d.UPIID, d.UPIPayeeName, plan.Price, plan.Name)
	if errors.Is(err, payqr.ErrNoUPIID) {
		return
	}
	var png []byte
	if err == nil {
		png, err = payqr.PNG(uri, payqr.DefaultSize)
	}
	if err != nil {
		bh.log.Warn("render upi qr", zap.Error(err))
		return
	}
	_, err = api.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:    chatID,
		Photo:     &models.InputFileUpload{Filename: "upi.png", Data: bytes.NewReader(png)},
		Caption:   fmt.Sprintf("Scan to pay <b>%s</b>", messages.Escape(plan.Name)),
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		bh.log.Warn("send upi qr", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// confirmPaid records the payment request and waits for proof in the session.
func (bh *Handlers) confirmPaid(ctx context.Context, api BotAPI, callbackID string, userID, chatID int64, data callbacks.Data) {
	p, err := bh.svc.Submit(ctx, userID, data.PlanID, data.Method)
	if err != nil {
		bh.answerCallback(ctx, api, callbackID, "")
		if errors.Is(err, types.ErrPlanNotFound) {
			bh.replyError(ctx, api, chatID, err, 0, data.PlanID)
			return
		}
		bh.log.Error("submit payment", zap.Int64("user_id", userID), zap.Error(err))
		bh.send(ctx, api, chatID, messages.PaymentCreateFailed(), nil)
		return
	}
	bh.answerCallback(ctx, api, callbackID, "✅")

	err = bh.sessions.SaveSession(ctx, &types.Session{
		UserID:    userID,
		ChatID:    chatID,
		State:     types.StateAwaitingProof,
		PaymentID: p.ID,
		UpdatedAt: bh.now(),
	})
	if err != nil {
		bh.log.Warn("save session", zap.Int64("user_id", userID), zap.Error(err))
	}

	plan, err := bh.svc.GetPlan(ctx, p.PlanID)
	if err != nil {
		plan = &types.Plan{ID: p.PlanID}
	}
	bh.send(ctx, api, chatID, messages.PaymentSubmitted(*p, *plan), nil)
}

func (bh *Handlers) reviewByButton(ctx context.Context, api BotAPI, q *models.CallbackQuery, adminID, chatID, paymentID int64, approve bool) {
	var (
		text string
		err  error
	)
	if approve {
		var res *subscription.Approval
		res, err = bh.svc.Approve(ctx, paymentID, adminID)
		if err == nil {
			text = messages.AdminApproved(res.Payment, res.ExpiresAt, res.Commission)
		}
	} else {
		_, err = bh.svc.Reject(ctx, paymentID, adminID, "")
		if err == nil {
			text = messages.AdminRejected(paymentID)
		}
	}
	if err != nil {
		bh.answerCallback(ctx, api, q.ID, "")
		bh.replyError(ctx, api, chatID, err, paymentID, 0)
		return
	}
	bh.answerCallback(ctx, api, q.ID, "✅")
	bh.send(ctx, api, chatID, text, nil)
}

func (bh *Handlers) answerCallback(ctx context.Context, api BotAPI, callbackID, text string) {
	_, err := api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		bh.log.Debug("answer callback", zap.Error(err))
	}
}

func (bh *Handlers) answerCallbackAlert(ctx context.Context, api BotAPI, callbackID, text string) {
	_, err := api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
	if err != nil {
		bh.log.Debug("answer callback", zap.Error(err))
	}
}
