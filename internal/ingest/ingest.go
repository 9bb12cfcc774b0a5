// Package ingest stores channel posts arriving on the bot's update stream
// and fires keyword alerts. The bot must be a member of a channel to receive
// its posts; that membership is the ingestion contract.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/dkotenko/channel-digest/internal/core/domain"
	"github.com/dkotenko/channel-digest/internal/platform/observability"
	"github.com/dkotenko/channel-digest/internal/process/filters"
	db "github.com/dkotenko/channel-digest/internal/storage"
)

// alertPreviewLen caps the quoted message text in an alert notification.
const alertPreviewLen = 200

// Store is the storage surface ingestion writes to.
type Store interface {
	UpsertChannel(ctx context.Context, ch db.Channel) error
	SaveMessage(ctx context.Context, msg domain.Message) error
	GetActiveKeywordRules(ctx context.Context) ([]domain.KeywordRule, error)
}

// Notifier delivers keyword alert notifications.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// Ingestor persists channel posts and evaluates keyword rules against them.
type Ingestor struct {
	store    Store
	matcher  *filters.Matcher
	notifier Notifier
	logger   *zerolog.Logger
}

// New creates an Ingestor.
func New(store Store, matcher *filters.Matcher, notifier Notifier, logger *zerolog.Logger) *Ingestor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Ingestor{
		store:    store,
		matcher:  matcher,
		notifier: notifier,
		logger:   logger,
	}
}

// HandleChannelPost stores one channel post and fires alerts for matching
// keyword rules. Alert failures are logged; the post is already stored.
func (i *Ingestor) HandleChannelPost(ctx context.Context, post *tgbotapi.Message) {
	text := post.Text
	if text == "" {
		text = post.Caption
	}

	if text == "" {
		return
	}

	ch := db.Channel{ID: post.Chat.ID, Username: post.Chat.UserName, Title: post.Chat.Title}
	if err := i.store.UpsertChannel(ctx, ch); err != nil {
		i.logger.Error().Err(err).Int64("channel_id", ch.ID).Msg("failed to upsert channel")

		return
	}

	msg := messageFromPost(post, text)
	if err := i.store.SaveMessage(ctx, msg); err != nil {
		i.logger.Error().Err(err).
			Int64("channel_id", msg.ChannelID).
			Int64("external_id", msg.ExternalID).
			Msg("failed to save channel post")

		return
	}

	i.fireAlerts(ctx, msg)
}

func messageFromPost(post *tgbotapi.Message, text string) domain.Message {
	var url string
	if post.Chat.UserName != "" {
		url = fmt.Sprintf("https://t.me/%s/%d", post.Chat.UserName, post.MessageID)
	}

	raw, _ := json.Marshal(post) //nolint:errcheck // tgbotapi messages always marshal

	return domain.Message{
		ChannelID:       post.Chat.ID,
		ChannelUsername: post.Chat.UserName,
		ChannelTitle:    post.Chat.Title,
		ExternalID:      int64(post.MessageID),
		URL:             url,
		PostedAt:        time.Unix(int64(post.Date), 0).UTC(),
		Text:            text,
		RawPayload:      raw,
	}
}

// fireAlerts notifies every user whose active rule matches the post. One
// notification per user even when several of their rules match.
func (i *Ingestor) fireAlerts(ctx context.Context, msg domain.Message) {
	rules, err := i.store.GetActiveKeywordRules(ctx)
	if err != nil {
		i.logger.Error().Err(err).Msg("failed to load keyword rules")

		return
	}

	matched := i.matcher.MatchAny(rules, msg.Text)
	if len(matched) == 0 {
		return
	}

	notified := make(map[int64]bool, len(matched))

	for _, rule := range matched {
		if notified[rule.UserID] {
			continue
		}

		notified[rule.UserID] = true

		if err := i.notifier.Notify(ctx, rule.UserID, alertText(rule, msg)); err != nil {
			i.logger.Error().Err(err).
				Int64("user_id", rule.UserID).
				Str("rule_id", rule.ID).
				Msg("failed to send keyword alert")

			continue
		}

		observability.KeywordAlerts.Inc()
	}
}

func alertText(rule domain.KeywordRule, msg domain.Message) string {
	preview := msg.Text
	if runes := []rune(preview); len(runes) > alertPreviewLen {
		preview = string(runes[:alertPreviewLen-1]) + "…"
	}

	label := msg.ChannelLabel()
	if msg.URL != "" {
		label = fmt.Sprintf("<a href=%q>%s</a>", msg.URL, html.EscapeString(label))
	} else {
		label = html.EscapeString(label)
	}

	return fmt.Sprintf("🔔 <b>Keyword alert</b> (<code>%s</code>) in %s\n\n%s",
		html.EscapeString(rule.Pattern), label, html.EscapeString(preview))
}
