package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

// SaveDigest stores the rendered digest for audit, together with the window
// and reduction counts.
func (db *DB) SaveDigest(ctx context.Context, digest domain.Digest, rendered string) error {
	const query = `
		INSERT INTO digests (id, user_id, period, window_from, window_to,
		                     cluster_count, duplicate_groups, rendered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`

	_, err := db.Pool.Exec(ctx, query,
		toUUID(uuid.NewString()),
		digest.UserID,
		string(digest.Period),
		toTimestamptz(digest.From),
		toTimestamptz(digest.To),
		len(digest.Clusters),
		len(digest.DuplicateGroups),
		toText(rendered),
	)
	if err != nil {
		return fmt.Errorf("save digest: %w", err)
	}

	return nil
}

// DigestRecord is a stored digest audit row.
type DigestRecord struct {
	ID        string
	UserID    int64
	Period    domain.Period
	Rendered  string
	CreatedAt time.Time
}

// GetRecentDigests returns the user's latest stored digests, newest first.
func (db *DB) GetRecentDigests(ctx context.Context, userID int64, limit int) ([]DigestRecord, error) {
	const query = `
		SELECT id, user_id, period, rendered, created_at
		FROM digests
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent digests: %w", err)
	}
	defer rows.Close()

	var records []DigestRecord

	for rows.Next() {
		var (
			rec         DigestRecord
			idCol       = toUUID("")
			period      string
			renderedCol = toText("")
			createdCol  pgtype.Timestamptz
		)

		if err := rows.Scan(&idCol, &rec.UserID, &period, &renderedCol, &createdCol); err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}

		rec.ID = fromUUID(idCol)
		rec.Period = domain.Period(period)
		rec.Rendered = fromText(renderedCol)
		rec.CreatedAt = fromTimestamptz(createdCol)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate digests: %w", err)
	}

	return records, nil
}
