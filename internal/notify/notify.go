// Package notify delivers bot messages to users and admins through the
// Telegram API, throttled to stay under the global send limit.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BatmanBruc/vip-access-bot/internal/messages"
)

const (
	defaultRate  = 25
	defaultBurst = 5
	fanOutLimit  = 8
	inviteTTL    = 24 * time.Hour
	inviteName   = "vip-access"
	sendTimeout  = 15 * time.Second
)

// Sender is the part of *bot.Bot the notifier needs.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	CreateChatInviteLink(ctx context.Context, params *bot.CreateChatInviteLinkParams) (*models.ChatInviteLink, error)
}

type Config struct {
	Admins []int64
	// FallbackInvite is handed out when no channel is registered for the topic.
	FallbackInvite string
	// PerSecond caps outgoing messages; zero means the default.
	PerSecond float64
	Burst     int
	Now       func() time.Time
}

type Notifier struct {
	api      Sender
	admins   []int64
	fallback string
	limiter  *rate.Limiter
	log      *zap.Logger
	now      func() time.Time
}

func New(api Sender, logger *zap.Logger, cfg Config) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	perSecond := cfg.PerSecond
	if perSecond <= 0 {
		perSecond = defaultRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Notifier{
		api:      api,
		admins:   append([]int64(nil), cfg.Admins...),
		fallback: strings.TrimSpace(cfg.FallbackInvite),
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		log:      logger.Named("notify"),
		now:      now,
	}
}

// Send delivers an HTML message to chatID.
func (n *Notifier) Send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, err := n.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

// SendFile re-sends an already uploaded photo or document by its file id.
func (n *Notifier) SendFile(ctx context.Context, chatID int64, fileID string, isDocument bool, caption string, markup models.ReplyMarkup) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	var err error
	if isDocument {
		_, err = n.api.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:      chatID,
			Document:    &models.InputFileString{Data: fileID},
			Caption:     caption,
			ParseMode:   messages.ParseModeHTML,
			ReplyMarkup: markup,
		})
	} else {
		_, err = n.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       &models.InputFileString{Data: fileID},
			Caption:     caption,
			ParseMode:   messages.ParseModeHTML,
			ReplyMarkup: markup,
		})
	}
	if err != nil {
		return fmt.Errorf("send file to %d: %w", chatID, err)
	}
	return nil
}

// NotifyAdmins sends text to every admin. All admins are attempted and the
// failures are joined.
func (n *Notifier) NotifyAdmins(ctx context.Context, text string, markup models.ReplyMarkup) error {
	return n.eachAdmin(ctx, func(ctx context.Context, adminID int64) error {
		return n.Send(ctx, adminID, text, markup)
	})
}

func (n *Notifier) eachAdmin(ctx context.Context, fn func(ctx context.Context, adminID int64) error) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(fanOutLimit)
	for _, id := range n.admins {
		adminID := id
		g.Go(func() error {
			if err := fn(ctx, adminID); err != nil {
				n.log.Warn("admin notification failed", zap.Int64("admin_id", adminID), zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Broadcast sends text to every chat in ids and counts the outcomes.
func (n *Notifier) Broadcast(ctx context.Context, ids []int64, text string) (sent, failed int) {
	var (
		g          errgroup.Group
		okN, failN atomic.Int64
	)
	g.SetLimit(fanOutLimit)
	for _, id := range ids {
		chatID := id
		g.Go(func() error {
			if err := n.Send(ctx, chatID, text, nil); err != nil {
				failN.Add(1)
				n.log.Debug("broadcast delivery failed", zap.Int64("chat_id", chatID), zap.Error(err))
				return nil
			}
			okN.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	n.log.Info("broadcast finished", zap.Int64("sent", okN.Load()), zap.Int64("failed", failN.Load()))
	return int(okN.Load()), int(failN.Load())
}

// isChatRef reports whether target names a chat the bot administers rather
// than a ready-made link.
func isChatRef(target string) bool {
	if strings.HasPrefix(target, "@") {
		return true
	}
	_, err := strconv.ParseInt(target, 10, 64)
	return err == nil
}

func chatIDArg(target string) any {
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		return id
	}
	return target
}
