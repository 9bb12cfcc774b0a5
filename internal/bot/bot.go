// Package bot implements the Telegram command surface: subscriptions,
// schedules, on-demand digests, and keyword alert rules.
package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/dkotenko/channel-digest/internal/core/domain"
	"github.com/dkotenko/channel-digest/internal/platform/config"
	db "github.com/dkotenko/channel-digest/internal/storage"
)

const updateTimeout = 60

// Log field names.
const (
	LogFieldUserID   = "user_id"
	LogFieldUsername = "username"
)

// Repository is the storage surface the bot uses.
type Repository interface {
	UpsertChannel(ctx context.Context, ch db.Channel) error
	GetChannelByUsername(ctx context.Context, username string) (db.Channel, error)
	Subscribe(ctx context.Context, userID, channelID int64) error
	Unsubscribe(ctx context.Context, userID, channelID int64) error
	GetSubscriptions(ctx context.Context, userID int64) ([]db.Channel, error)
	GetUserSchedules(ctx context.Context, userID int64) ([]domain.Schedule, error)
	SaveKeywordRule(ctx context.Context, rule domain.KeywordRule) (string, error)
	DeactivateKeywordRule(ctx context.Context, userID int64, ruleID string) error
	GetKeywordRules(ctx context.Context, userID int64) ([]domain.KeywordRule, error)
	GetRecentDigests(ctx context.Context, userID int64, limit int) ([]db.DigestRecord, error)
}

// SchedulerControl is the scheduler surface the bot drives.
type SchedulerControl interface {
	Register(ctx context.Context, userID int64, period domain.Period, cronExpr string) error
	Remove(ctx context.Context, userID int64, period domain.Period) error
	RemoveAll(ctx context.Context, userID int64) error
	RunNow(ctx context.Context, userID int64, period domain.Period) error
	RunRange(ctx context.Context, userID int64, period domain.Period, from, to time.Time) error
}

// ChannelPostHandler consumes channel posts from the update stream.
type ChannelPostHandler interface {
	HandleChannelPost(ctx context.Context, post *tgbotapi.Message)
}

type Bot struct {
	cfg       *config.Config
	database  Repository
	scheduler SchedulerControl
	ingestor  ChannelPostHandler
	api       *tgbotapi.BotAPI
	logger    *zerolog.Logger
}

// New creates a Bot on an existing API client, so delivery and the command
// surface share one connection.
func New(cfg *config.Config, database Repository, scheduler SchedulerControl, ingestor ChannelPostHandler, api *tgbotapi.BotAPI, logger *zerolog.Logger) *Bot {
	return &Bot{
		cfg:       cfg,
		database:  database,
		scheduler: scheduler,
		ingestor:  ingestor,
		api:       api,
		logger:    logger,
	}
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeout

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("bot run context canceled: %w", ctx.Err())
		case update := <-updates:
			if update.ChannelPost != nil && b.ingestor != nil {
				b.ingestor.HandleChannelPost(ctx, update.ChannelPost)

				continue
			}

			if update.Message == nil {
				continue
			}

			if !b.isAllowed(update.Message.From.ID) {
				b.logger.Warn().
					Int64(LogFieldUserID, update.Message.From.ID).
					Str(LogFieldUsername, update.Message.From.UserName).
					Msg("Unauthorized access attempt")

				continue
			}

			b.handleMessage(ctx, update.Message)
		}
	}
}

// isAllowed checks the allowlist. An empty ADMIN_IDS list means the bot is
// open to all users.
func (b *Bot) isAllowed(userID int64) bool {
	if len(b.cfg.AdminIDs) == 0 {
		return true
	}

	for _, id := range b.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}

	return false
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	b.logger.Info().Str("command", msg.Command()).Int64(LogFieldUserID, msg.From.ID).Msg("Handling command")

	registry := b.newCommandRegistry()
	if !registry.route(ctx, msg) {
		b.reply(msg, "Unknown command. Try /help.")
	}
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.DisableWebPagePreview = true

	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send reply")
	}
}

func (b *Bot) replyErr(msg *tgbotapi.Message, action string, err error) {
	b.logger.Error().Err(err).Str("action", action).Int64(LogFieldUserID, msg.From.ID).Msg("command failed")
	b.reply(msg, fmt.Sprintf("❌ %s: %s", action, err))
}
