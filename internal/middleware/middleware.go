package middleware

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/internal/callbacks"
	"github.com/BatmanBruc/vip-access-bot/internal/contextkeys"
	"github.com/BatmanBruc/vip-access-bot/internal/messages"
	"github.com/BatmanBruc/vip-access-bot/types"
)

// UserTracker records who is talking to the bot.
type UserTracker interface {
	TouchUser(ctx context.Context, u types.User) (bool, error)
}

type Middlewares struct {
	users UserTracker
	log   *zap.Logger
}

func New(users UserTracker, logger *zap.Logger) *Middlewares {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middlewares{users: users, log: logger.Named("middleware")}
}

// TrackUser upserts the sender and stores user and chat ids in the context.
// Updates without a human sender are dropped.
func (m *Middlewares) TrackUser(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		from, chatID := sender(update)
		if from == nil || from.IsBot || chatID == 0 {
			return
		}

		created, err := m.users.TouchUser(ctx, types.User{
			UserID:    from.ID,
			ChatID:    chatID,
			Username:  from.Username,
			FirstName: from.FirstName,
			LastName:  from.LastName,
		})
		if err != nil {
			m.log.Error("track user", zap.Int64("user_id", from.ID), zap.Error(err))
			if b != nil {
				_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID:    chatID,
					Text:      messages.ErrorDefault(),
					ParseMode: messages.ParseModeHTML,
				})
			}
			return
		}

		next(contextkeys.WithUser(ctx, from.ID, chatID, created), b, update)
	}
}

func sender(update *models.Update) (*models.User, int64) {
	switch {
	case update == nil:
		return nil, 0
	case update.Message != nil:
		return update.Message.From, update.Message.Chat.ID
	case update.CallbackQuery != nil:
		from := update.CallbackQuery.From
		return &from, chatIDFromMaybeInaccessible(update.CallbackQuery.Message)
	default:
		return nil, 0
	}
}

func chatIDFromMaybeInaccessible(m models.MaybeInaccessibleMessage) int64 {
	if m.Message != nil {
		return m.Message.Chat.ID
	}
	if m.InaccessibleMessage != nil {
		return m.InaccessibleMessage.Chat.ID
	}
	return 0
}

// AnalyzeMessage classifies the update once so handlers can switch on the
// message type. Button payloads are decoded here; undecodable ones keep
// KindUnknown.
func (m *Middlewares) AnalyzeMessage(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		next(m.analyze(ctx, update), b, update)
	}
}

func (m *Middlewares) analyze(ctx context.Context, update *models.Update) context.Context {
	if update.CallbackQuery != nil {
		data, err := callbacks.Decode(update.CallbackQuery.Data)
		if err != nil {
			m.log.Debug("undecodable callback", zap.String("data", update.CallbackQuery.Data), zap.Error(err))
		}
		ctx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeClickButton)
		return contextkeys.WithCallback(ctx, data)
	}

	msg := update.Message
	if msg == nil {
		return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeUnknown)
	}

	switch {
	case strings.HasPrefix(msg.Text, "/"):
		return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCommand)
	case len(msg.Photo) > 0:
		ctx = contextkeys.WithProofFile(ctx, contextkeys.ProofFile{FileID: largestPhoto(msg.Photo).FileID})
		return contextkeys.WithMessageType(ctx, contextkeys.MessageTypePhoto)
	case msg.Document != nil:
		ctx = contextkeys.WithProofFile(ctx, contextkeys.ProofFile{FileID: msg.Document.FileID, IsDocument: true})
		return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeDocument)
	case strings.TrimSpace(msg.Text) != "":
		return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeText)
	}
	return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeUnknown)
}

func largestPhoto(sizes []models.PhotoSize) models.PhotoSize {
	best := sizes[0]
	for _, p := range sizes[1:] {
		if p.FileSize > best.FileSize {
			best = p
		}
	}
	return best
}
