package db

import (
	"context"
	"fmt"
	"time"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

// SaveMessage stores one channel message. Re-saving the same
// (channel, external id) pair refreshes the text and payload.
func (db *DB) SaveMessage(ctx context.Context, msg domain.Message) error {
	const query = `
		INSERT INTO messages (channel_id, external_id, url, posted_at, text, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (channel_id, external_id) DO UPDATE
		SET url = EXCLUDED.url,
		    text = EXCLUDED.text,
		    raw_payload = EXCLUDED.raw_payload`

	_, err := db.Pool.Exec(ctx, query,
		msg.ChannelID,
		msg.ExternalID,
		toText(msg.URL),
		toTimestamptz(msg.PostedAt),
		toText(msg.Text),
		msg.RawPayload,
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}

	return nil
}

// GetMessagesInPeriod returns the messages from the user's subscribed
// channels posted in [from, to), oldest first.
func (db *DB) GetMessagesInPeriod(ctx context.Context, userID int64, from, to time.Time) ([]domain.Message, error) {
	const query = `
		SELECT m.channel_id, c.username, c.title, m.external_id, m.url,
		       m.posted_at, m.text, m.raw_payload
		FROM messages m
		JOIN subscriptions s ON s.channel_id = m.channel_id
		JOIN channels c ON c.id = m.channel_id
		WHERE s.user_id = $1
		  AND m.posted_at >= $2
		  AND m.posted_at < $3
		ORDER BY m.posted_at`

	rows, err := db.Pool.Query(ctx, query, userID, toTimestamptz(from), toTimestamptz(to))
	if err != nil {
		return nil, fmt.Errorf("get messages in period: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message

	for rows.Next() {
		var (
			msg         domain.Message
			usernameCol = toText("")
			titleCol    = toText("")
			urlCol      = toText("")
			textCol     = toText("")
			postedAtCol = toTimestamptz(time.Time{})
		)

		err := rows.Scan(
			&msg.ChannelID,
			&usernameCol,
			&titleCol,
			&msg.ExternalID,
			&urlCol,
			&postedAtCol,
			&textCol,
			&msg.RawPayload,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		msg.ChannelUsername = fromText(usernameCol)
		msg.ChannelTitle = fromText(titleCol)
		msg.URL = fromText(urlCol)
		msg.PostedAt = fromTimestamptz(postedAtCol)
		msg.Text = fromText(textCol)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
