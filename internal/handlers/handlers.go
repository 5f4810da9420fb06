package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/internal/contextkeys"
	"github.com/BatmanBruc/vip-access-bot/internal/messages"
	"github.com/BatmanBruc/vip-access-bot/internal/subscription"
	"github.com/BatmanBruc/vip-access-bot/internal/sweeper"
	"github.com/BatmanBruc/vip-access-bot/types"
)

// BotAPI is the part of *bot.Bot the handlers call.
type BotAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, ids []int64, text string) (sent, failed int)
	InviteLinks(ctx context.Context, channels []types.Channel) []string
}

type SweepRunner interface {
	RunOnce(ctx context.Context) (sweeper.Result, error)
}

type Config struct {
	Admins []int64
	// BotUsername is used to build referral links.
	BotUsername   string
	DefaultPlanID int
	Payment       messages.PaymentDetails
	Now           func() time.Time
}

type Handlers struct {
	svc       *subscription.Service
	sessions  types.SessionStore
	notifier  Broadcaster
	sweeper   SweepRunner
	log       *zap.Logger
	admins    map[int64]struct{}
	botName   string
	defPlanID int
	payment   messages.PaymentDetails
	now       func() time.Time
}

func NewHandlers(svc *subscription.Service, sessions types.SessionStore, notifier Broadcaster, sw SweepRunner, logger *zap.Logger, cfg Config) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	admins := make(map[int64]struct{}, len(cfg.Admins))
	for _, id := range cfg.Admins {
		admins[id] = struct{}{}
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Handlers{
		svc:       svc,
		sessions:  sessions,
		notifier:  notifier,
		sweeper:   sw,
		log:       logger.Named("handlers"),
		admins:    admins,
		botName:   cfg.BotUsername,
		defPlanID: cfg.DefaultPlanID,
		payment:   cfg.Payment,
		now:       now,
	}
}

// paymentDetails overlays the runtime UPI id and wallets on the configured
// details. On a store error the configured values are shown.
func (bh *Handlers) paymentDetails(ctx context.Context) messages.PaymentDetails {
	d := bh.payment
	ps, err := bh.svc.PaymentSettings(ctx)
	if err != nil {
		bh.log.Warn("load payment settings", zap.Error(err))
		return d
	}
	if ps.UPIID != "" {
		d.UPIID = ps.UPIID
		d.UPIPayeeName = ps.UPIPayeeName
	}
	if len(ps.Wallets) > 0 {
		d.Wallets = ps.Wallets
	}
	return d
}

func (bh *Handlers) isAdmin(userID int64) bool {
	_, ok := bh.admins[userID]
	return ok
}

// MainHandler is registered as the bot's default handler behind the middleware chain.
func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	bh.Dispatch(ctx, b, update)
}

func (bh *Handlers) Dispatch(ctx context.Context, api BotAPI, update *models.Update) {
	userID, _ := contextkeys.GetUserID(ctx)
	chatID, _ := contextkeys.GetChatID(ctx)
	if userID == 0 || chatID == 0 {
		return
	}
	msgType, _ := contextkeys.GetMessageType(ctx)

	switch msgType {
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, api, update.Message, userID, chatID)
	case contextkeys.MessageTypeClickButton:
		bh.HandleClickButton(ctx, api, update.CallbackQuery, userID, chatID)
	case contextkeys.MessageTypePhoto, contextkeys.MessageTypeDocument, contextkeys.MessageTypeText:
		bh.HandleProof(ctx, api, update.Message, userID, chatID)
	default:
		bh.send(ctx, api, chatID, messages.ErrorUnsupportedMessage(), nil)
	}
}

func (bh *Handlers) send(ctx context.Context, api BotAPI, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := api.SendMessage(ctx, params); err != nil {
		bh.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// replyError maps workflow errors to user-facing text. Unexpected errors are
// logged and answered with the generic message.
func (bh *Handlers) replyError(ctx context.Context, api BotAPI, chatID int64, err error, paymentID int64, planID int) {
	switch {
	case errors.Is(err, types.ErrPaymentNotFound):
		bh.send(ctx, api, chatID, messages.PaymentNotFound(paymentID), nil)
	case errors.Is(err, types.ErrAlreadyProcessed):
		bh.send(ctx, api, chatID, messages.AlreadyProcessed(paymentID), nil)
	case errors.Is(err, types.ErrPlanNotFound):
		bh.send(ctx, api, chatID, messages.PlanNotFound(planID), nil)
	default:
		bh.log.Error("request failed", zap.Int64("chat_id", chatID), zap.Error(err))
		bh.send(ctx, api, chatID, messages.ErrorDefault(), nil)
	}
}
