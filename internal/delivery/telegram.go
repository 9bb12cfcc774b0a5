package delivery

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

const (
	// maxMessageSize keeps parts under Telegram's 4096-character cap with
	// headroom for tag reopening.
	maxMessageSize = 4000

	// sendRate is the outgoing message budget. Telegram allows roughly 30
	// messages per second bot-wide; stay well under it.
	sendRate  = 20
	sendBurst = 5
)

// BotAPI is the subset of the Telegram client the sender uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender renders digests and delivers them to Telegram chats.
type Sender struct {
	api      BotAPI
	renderer *Renderer
	limiter  *rate.Limiter
	logger   *zerolog.Logger
}

// NewSender creates a Sender.
func NewSender(api BotAPI, renderer *Renderer, logger *zerolog.Logger) *Sender {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Sender{
		api:      api,
		renderer: renderer,
		limiter:  rate.NewLimiter(rate.Limit(sendRate), sendBurst),
		logger:   logger,
	}
}

// Deliver renders the digest and sends it to the user's chat, splitting
// long digests into multiple messages. It returns the rendered text for
// auditing.
func (s *Sender) Deliver(ctx context.Context, digest domain.Digest) (string, error) {
	rendered := s.renderer.Render(digest)

	parts := splitMessage(rendered, maxMessageSize)
	for i, part := range parts {
		if err := s.send(ctx, digest.UserID, part); err != nil {
			return rendered, fmt.Errorf("send digest part %d/%d: %w", i+1, len(parts), err)
		}
	}

	s.logger.Debug().
		Int64("user_id", digest.UserID).
		Int("parts", len(parts)).
		Msg("digest sent")

	return rendered, nil
}

// Notify sends a plain HTML message to a chat, used for keyword alerts.
func (s *Sender) Notify(ctx context.Context, chatID int64, text string) error {
	if err := s.send(ctx, chatID, text); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}

func (s *Sender) send(ctx context.Context, chatID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := s.api.Send(msg); err != nil {
		return err
	}

	return nil
}

// splitMessage splits text into parts of at most limit runes, preferring
// line breaks as split points.
func splitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var (
		parts []string
		sb    strings.Builder
		size  int
	)

	flush := func() {
		if size > 0 {
			parts = append(parts, strings.TrimRight(sb.String(), "\n"))
			sb.Reset()

			size = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		lineLen := len([]rune(line)) + 1

		if size+lineLen > limit {
			flush()
		}

		// A single line over the limit is hard-wrapped.
		for len([]rune(line)) > limit {
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
		}

		sb.WriteString(line)
		sb.WriteString("\n")

		size += len([]rune(line)) + 1
	}

	flush()

	return parts
}
