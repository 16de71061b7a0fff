// Package bot owns the event-ingestion lifecycle: it starts exactly one of
// webhook or polling mode, dispatches updates through the background
// scheduler, and on shutdown drains scheduled work before releasing handles
// in a fixed order.
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"birthday-app-backend/internal/bot/scheduler"
	"birthday-app-backend/internal/common/cache"
	"birthday-app-backend/internal/common/config"
	"birthday-app-backend/internal/platform/postgres"
	redisplatform "birthday-app-backend/internal/platform/redis"
)

type App struct {
	cfg   *config.Config
	log   zerolog.Logger
	bot   *tgbotapi.BotAPI
	sched *scheduler.Scheduler
	store io.Closer
	cache cache.Cache

	// Set by the chosen ingestion mode; stops accepting updates.
	stopIngest func(ctx context.Context)
}

// New wires the bot process: Telegram client, storage handle, cache handle
// (in-memory in debug mode, Redis otherwise) and the job scheduler. The
// ingestion mode is fixed here and never switches at runtime.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	store, err := postgres.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	var c cache.Cache
	if cfg.Debug {
		c = cache.NewMemoryCache()
	} else {
		rdb, err := redisplatform.FromConfig(ctx, cfg)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		c = cache.NewRedisCache(rdb)
	}

	return &App{
		cfg:   cfg,
		log:   log,
		bot:   api,
		sched: scheduler.New(64),
		store: store,
		cache: c,
	}, nil
}

// Run starts the configured ingestion mode and blocks until ctx is
// cancelled, then performs the drain-and-close sequence. The shutdown
// sequence runs regardless of how ingestion ended.
func (a *App) Run(ctx context.Context) error {
	var runErr error
	if a.cfg.Telegram.UseWebhook {
		runErr = a.runWebhook(ctx)
	} else {
		runErr = a.runPolling(ctx)
	}

	a.Shutdown(context.Background())
	return runErr
}

func (a *App) runPolling(ctx context.Context) error {
	// Discard the backlog accumulated while offline, and any leftover
	// webhook registration from a previous deployment.
	if _, err := a.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.cfg.Telegram.PollingUpdateTimeout
	updates := a.bot.GetUpdatesChan(u)
	a.stopIngest = func(context.Context) { a.bot.StopReceivingUpdates() }

	a.log.Info().Msg("Polling for updates")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			a.dispatch(update)
		}
	}
}

func (a *App) runWebhook(ctx context.Context) error {
	tg := a.cfg.Telegram

	// tgbotapi's typed config predates webhook secret tokens, so the
	// registration call is assembled by hand.
	params := tgbotapi.Params{"url": tg.WebhookAddress}
	if tg.WebhookSecretToken != "" {
		params["secret_token"] = tg.WebhookSecretToken
	}
	if _, err := a.bot.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", tg.WebhookListenHost, tg.WebhookListenPort),
		Handler:      a.webhookRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	a.stopIngest = func(ctx context.Context) { _ = srv.Shutdown(ctx) }

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("Webhook server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// dispatch hands an update to the scheduler so ingestion never blocks on
// handler latency. Updates arriving after Draining begins are dropped.
func (a *App) dispatch(update tgbotapi.Update) {
	if err := a.sched.Submit(func() { a.handleUpdate(update) }); err != nil {
		a.log.Warn().Int("update_id", update.UpdateID).Msg("Scheduler closed, update dropped")
	}
}

// Shutdown drains the scheduler and releases handles: ingestion stops taking
// new work first, then the Telegram client session, then storage, then the
// cache. Storage is never closed while jobs are pending.
func (a *App) Shutdown(ctx context.Context) {
	a.log.Info().Msg("Shutting down")

	a.sched.Close()
	if !drainScheduler(ctx, a.sched, a.cfg.Shutdown.DrainTimeout, a.log) {
		a.log.Error().Int("pending", a.sched.Pending()).Msg("Drain timeout, forcing shutdown")
	}

	if a.stopIngest != nil {
		a.stopIngest(ctx)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Error().Err(err).Msg("Closing storage failed")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Error().Err(err).Msg("Closing cache failed")
		}
	}

	a.log.Info().Msg("Shutdown complete")
}

type pendingReporter interface {
	Pending() int
}

// drainScheduler polls the pending count with bounded exponential backoff
// until it reaches zero or maxWait elapses. Reports whether the scheduler
// fully drained.
func drainScheduler(ctx context.Context, s pendingReporter, maxWait time.Duration, log zerolog.Logger) bool {
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}
	deadline := time.Now().Add(maxWait)
	interval := 10 * time.Millisecond

	for {
		pending := s.Pending()
		if pending == 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		log.Debug().Int("pending", pending).Msg("Waiting for scheduled jobs")

		select {
		case <-ctx.Done():
			return s.Pending() == 0
		case <-time.After(interval):
		}

		if interval < 640*time.Millisecond {
			interval *= 2
		}
	}
}
