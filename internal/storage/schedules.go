package db

import (
	"context"
	"fmt"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

// SaveSchedule upserts the schedule for (user, period). Re-registering an
// occupied identity overwrites the cron expression and reactivates the row.
func (db *DB) SaveSchedule(ctx context.Context, s domain.Schedule) error {
	const query = `
		INSERT INTO schedules (user_id, period, cron_expr, active, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, period) DO UPDATE
		SET cron_expr = EXCLUDED.cron_expr,
		    active = EXCLUDED.active,
		    updated_at = EXCLUDED.updated_at`

	_, err := db.Pool.Exec(ctx, query,
		s.UserID,
		string(s.Period),
		s.CronExpr,
		s.Active,
		toTimestamptz(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}

	return nil
}

// DeactivateSchedule marks one (user, period) schedule inactive. A missing
// row is not an error.
func (db *DB) DeactivateSchedule(ctx context.Context, userID int64, period domain.Period) error {
	const query = `
		UPDATE schedules
		SET active = false, updated_at = now()
		WHERE user_id = $1 AND period = $2`

	if _, err := db.Pool.Exec(ctx, query, userID, string(period)); err != nil {
		return fmt.Errorf("deactivate schedule: %w", err)
	}

	return nil
}

// DeactivateSchedules marks every schedule of the user inactive.
func (db *DB) DeactivateSchedules(ctx context.Context, userID int64) error {
	const query = `
		UPDATE schedules
		SET active = false, updated_at = now()
		WHERE user_id = $1`

	if _, err := db.Pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("deactivate schedules: %w", err)
	}

	return nil
}

// GetActiveSchedules returns all active schedules across users.
func (db *DB) GetActiveSchedules(ctx context.Context) ([]domain.Schedule, error) {
	const query = `
		SELECT user_id, period, cron_expr, active, updated_at
		FROM schedules
		WHERE active
		ORDER BY user_id, period`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.Schedule

	for rows.Next() {
		var (
			s            domain.Schedule
			period       string
			updatedAtCol = toTimestamptz(s.UpdatedAt)
		)

		if err := rows.Scan(&s.UserID, &period, &s.CronExpr, &s.Active, &updatedAtCol); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}

		s.Period = domain.Period(period)
		s.UpdatedAt = fromTimestamptz(updatedAtCol)
		schedules = append(schedules, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}

	return schedules, nil
}

// GetUserSchedules returns the user's schedules, active or not.
func (db *DB) GetUserSchedules(ctx context.Context, userID int64) ([]domain.Schedule, error) {
	const query = `
		SELECT user_id, period, cron_expr, active, updated_at
		FROM schedules
		WHERE user_id = $1
		ORDER BY period`

	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get user schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.Schedule

	for rows.Next() {
		var (
			s            domain.Schedule
			period       string
			updatedAtCol = toTimestamptz(s.UpdatedAt)
		)

		if err := rows.Scan(&s.UserID, &period, &s.CronExpr, &s.Active, &updatedAtCol); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}

		s.Period = domain.Period(period)
		s.UpdatedAt = fromTimestamptz(updatedAtCol)
		schedules = append(schedules, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}

	return schedules, nil
}
