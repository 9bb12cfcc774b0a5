package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

// Channel is a tracked source channel.
type Channel struct {
	ID       int64
	Username string
	Title    string
}

// UpsertChannel inserts or refreshes a channel row, keyed by its external ID.
func (db *DB) UpsertChannel(ctx context.Context, ch Channel) error {
	const query = `
		INSERT INTO channels (id, username, title, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    title = EXCLUDED.title,
		    updated_at = now()`

	if _, err := db.Pool.Exec(ctx, query, ch.ID, toText(ch.Username), toText(ch.Title)); err != nil {
		return fmt.Errorf("upsert channel: %w", err)
	}

	return nil
}

// GetChannelByUsername resolves a channel by its public username.
func (db *DB) GetChannelByUsername(ctx context.Context, username string) (Channel, error) {
	const query = `
		SELECT id, username, title
		FROM channels
		WHERE lower(username) = lower($1)`

	var (
		ch          Channel
		usernameCol = toText("")
		titleCol    = toText("")
	)

	err := db.Pool.QueryRow(ctx, query, username).Scan(&ch.ID, &usernameCol, &titleCol)
	if errors.Is(err, pgx.ErrNoRows) {
		return Channel{}, domain.ErrChannelNotFound
	}

	if err != nil {
		return Channel{}, fmt.Errorf("get channel by username: %w", err)
	}

	ch.Username = fromText(usernameCol)
	ch.Title = fromText(titleCol)

	return ch, nil
}

// Subscribe links a user to a channel. Subscribing twice is a no-op.
func (db *DB) Subscribe(ctx context.Context, userID, channelID int64) error {
	const query = `
		INSERT INTO subscriptions (user_id, channel_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, channel_id) DO NOTHING`

	if _, err := db.Pool.Exec(ctx, query, userID, channelID); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	return nil
}

// Unsubscribe removes the user-channel link. Removing a missing link is a
// no-op.
func (db *DB) Unsubscribe(ctx context.Context, userID, channelID int64) error {
	const query = `DELETE FROM subscriptions WHERE user_id = $1 AND channel_id = $2`

	if _, err := db.Pool.Exec(ctx, query, userID, channelID); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}

	return nil
}

// GetSubscriptions lists the channels a user follows, ordered by title.
func (db *DB) GetSubscriptions(ctx context.Context, userID int64) ([]Channel, error) {
	const query = `
		SELECT c.id, c.username, c.title
		FROM subscriptions s
		JOIN channels c ON c.id = s.channel_id
		WHERE s.user_id = $1
		ORDER BY c.title`

	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get subscriptions: %w", err)
	}
	defer rows.Close()

	var channels []Channel

	for rows.Next() {
		var (
			ch          Channel
			usernameCol = toText("")
			titleCol    = toText("")
		)

		if err := rows.Scan(&ch.ID, &usernameCol, &titleCol); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}

		ch.Username = fromText(usernameCol)
		ch.Title = fromText(titleCol)
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return channels, nil
}
