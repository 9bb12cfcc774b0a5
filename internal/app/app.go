// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Bot mode: Telegram bot commands plus the digest scheduler
//   - Scheduler mode: digest scheduler only, for headless deployments
//   - Once mode: build and deliver a single digest, then exit
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/dkotenko/channel-digest/internal/bot"
	"github.com/dkotenko/channel-digest/internal/core/domain"
	"github.com/dkotenko/channel-digest/internal/delivery"
	"github.com/dkotenko/channel-digest/internal/ingest"
	"github.com/dkotenko/channel-digest/internal/pipeline"
	"github.com/dkotenko/channel-digest/internal/platform/config"
	"github.com/dkotenko/channel-digest/internal/platform/observability"
	"github.com/dkotenko/channel-digest/internal/platform/schedule"
	"github.com/dkotenko/channel-digest/internal/process/cluster"
	"github.com/dkotenko/channel-digest/internal/process/dedup"
	"github.com/dkotenko/channel-digest/internal/process/filters"
	"github.com/dkotenko/channel-digest/internal/process/trend"
	"github.com/dkotenko/channel-digest/internal/scheduler"
	db "github.com/dkotenko/channel-digest/internal/storage"
)

const errBotInit = "bot initialization failed: %w"

// App holds the application dependencies and provides methods to run
// different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunBot runs the bot mode: command handling plus the scheduler loop.
func (a *App) RunBot(ctx context.Context) error {
	a.logger.Info().Msg("Starting bot mode")

	sched, b, err := a.buildScheduler(ctx)
	if err != nil {
		return err
	}

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("bot run: %w", err)
	}

	return nil
}

// RunScheduler runs the scheduler loop without the command surface.
func (a *App) RunScheduler(ctx context.Context) error {
	a.logger.Info().Msg("Starting scheduler mode")

	sched, _, err := a.buildScheduler(ctx)
	if err != nil {
		return err
	}

	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("scheduler run: %w", err)
	}

	return nil
}

// RunOnce builds and delivers one digest for a user, then exits.
func (a *App) RunOnce(ctx context.Context, userID int64, periodName string) error {
	period, err := domain.ParsePeriod(periodName)
	if err != nil {
		return fmt.Errorf("parse period: %w", err)
	}

	a.logger.Info().Int64("user_id", userID).Str("period", periodName).Msg("Starting once mode")

	sched, _, err := a.buildScheduler(ctx)
	if err != nil {
		return err
	}

	if err := sched.RunNow(ctx, userID, period); err != nil {
		return fmt.Errorf("run once: %w", err)
	}

	return nil
}

// buildScheduler wires storage, pipeline, delivery, and the bot together,
// and restores persisted schedules into live triggers.
func (a *App) buildScheduler(ctx context.Context) (*scheduler.Scheduler, *bot.Bot, error) {
	quiet, err := schedule.ParseQuietHours(a.cfg.QuietHours)
	if err != nil {
		return nil, nil, fmt.Errorf("parse quiet hours: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(a.cfg.BotToken)
	if err != nil {
		return nil, nil, fmt.Errorf(errBotInit, err)
	}

	renderer := delivery.NewRenderer(a.cfg.MaxDigestItems)
	sender := delivery.NewSender(api, renderer, a.logger)

	pipe := pipeline.New(
		a.database,
		dedup.New(nil, a.cfg.DedupSimilarityThreshold, a.logger),
		cluster.New(a.cfg.ClusterSimilarityThreshold, a.logger),
		trend.New(nil, a.logger),
		sender,
		a.database,
		a.logger,
	)

	sched := scheduler.New(a.database, pipe, scheduler.Config{
		HourlyWindow: a.cfg.HourlyWindow(),
		Quiet:        quiet,
		Tick:         a.cfg.SchedulerTickInterval,
	}, a.logger)

	if err := sched.Restore(ctx); err != nil {
		return nil, nil, fmt.Errorf("restore schedules: %w", err)
	}

	ingestor := ingest.New(a.database, filters.NewMatcher(a.logger), sender, a.logger)
	b := bot.New(a.cfg, a.database, sched, ingestor, api, a.logger)

	return sched, b, nil
}
