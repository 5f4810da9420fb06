package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BatmanBruc/vip-access-bot/internal/config"
	"github.com/BatmanBruc/vip-access-bot/internal/handlers"
	"github.com/BatmanBruc/vip-access-bot/internal/httpserver"
	"github.com/BatmanBruc/vip-access-bot/internal/logger"
	"github.com/BatmanBruc/vip-access-bot/internal/messages"
	"github.com/BatmanBruc/vip-access-bot/internal/middleware"
	"github.com/BatmanBruc/vip-access-bot/internal/notify"
	"github.com/BatmanBruc/vip-access-bot/internal/subscription"
	"github.com/BatmanBruc/vip-access-bot/internal/sweeper"
	"github.com/BatmanBruc/vip-access-bot/store"
	"github.com/BatmanBruc/vip-access-bot/types"
)

const (
	sessionTTL      = 24 * time.Hour
	pollTimeout     = 50 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnvFiles("config.env", ".env"); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pgStore.Close()

	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	sessions := store.NewRedisSessionStore(rdb, sessionTTL)
	locker := store.NewRedisLocker(rdb)

	opts := []bot.Option{
		bot.WithHTTPClient(pollTimeout, &http.Client{Timeout: pollTimeout + 10*time.Second}),
	}
	if cfg.WebhookSecret != "" {
		opts = append(opts, bot.WithWebhookSecretToken(cfg.WebhookSecret))
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}
	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot profile: %w", err)
	}

	notifier := notify.New(b, log, notify.Config{
		Admins:         cfg.AdminIDs,
		FallbackInvite: cfg.ChannelInviteLink,
	})

	svc := subscription.New(pgStore, notifier, log, subscription.Config{
		CommissionRate: cfg.CommissionRate,
		ChannelTopic:   cfg.ChannelTopic,
		Payment: types.PaymentSettings{
			UPIID:        cfg.UPIID,
			UPIPayeeName: cfg.UPIPayeeName,
			Wallets:      cfg.CryptoWallets,
		},
	})
	if err := svc.SeedPlans(ctx, cfg.Plans); err != nil {
		return fmt.Errorf("seed plans: %w", err)
	}

	sw := sweeper.New(pgStore, notifier, log, sweeper.Config{
		Interval:       cfg.SweepInterval,
		ReminderWindow: cfg.ReminderWindow,
		Locker:         locker,
	})

	h := handlers.NewHandlers(svc, sessions, notifier, sw, log, handlers.Config{
		Admins:        cfg.AdminIDs,
		BotUsername:   me.Username,
		DefaultPlanID: cfg.DefaultPlanID,
		Payment: messages.PaymentDetails{
			UPIID:           cfg.UPIID,
			UPIPayeeName:    cfg.UPIPayeeName,
			PhonePeNumber:   cfg.PhonePeNumber,
			BankDetails:     cfg.BankDetails,
			Wallets:         cfg.CryptoWallets,
			SupportUsername: cfg.SupportUsername,
		},
	})
	mw := middleware.New(svc, log)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil || update.CallbackQuery != nil
	}, h.MainHandler, mw.TrackUser, mw.AnalyzeMessage)

	sw.Start(ctx)
	defer sw.Stop()

	g, gctx := errgroup.WithContext(ctx)

	var srv *httpserver.Server
	if cfg.HTTPAddr != "" {
		srvOpts := httpserver.Options{
			Addr: cfg.HTTPAddr,
			Checks: map[string]httpserver.Pinger{
				"postgres": pgStore,
				"redis":    rdb,
			},
		}
		if cfg.WebhookURL != "" {
			srvOpts.Webhook = b.WebhookHandler()
		}
		srv = httpserver.New(log, srvOpts)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.WebhookURL != "" {
		if srv == nil {
			return errors.New("WEBHOOK_URL requires HTTP_ADDR")
		}
		if _, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
			URL:         cfg.WebhookURL,
			SecretToken: cfg.WebhookSecret,
		}); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		g.Go(func() error {
			b.StartWebhook(gctx)
			return nil
		})
	} else {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
			log.Warn("delete webhook failed", zap.Error(err))
		}
		g.Go(func() error {
			b.Start(gctx)
			return nil
		})
	}

	log.Info("bot started",
		zap.String("username", me.Username),
		zap.Int("admins", len(cfg.AdminIDs)),
		zap.Bool("webhook", cfg.WebhookURL != ""))

	err = g.Wait()
	log.Info("bot stopped")
	return err
}
