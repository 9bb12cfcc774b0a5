package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

// Keyword rule statements. Rules are never removed: deactivation flips the
// active flag and the row stays behind for audit.
const (
	insertKeywordRuleStmt = `
		INSERT INTO keyword_rules (id, user_id, pattern, is_regex, active, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`

	deactivateKeywordRuleStmt = `
		UPDATE keyword_rules SET active = false
		WHERE id = $1 AND user_id = $2`

	userKeywordRulesQuery = `
		SELECT id, user_id, pattern, is_regex, active
		FROM keyword_rules
		WHERE user_id = $1 AND active
		ORDER BY created_at`

	activeKeywordRulesQuery = `
		SELECT id, user_id, pattern, is_regex, active
		FROM keyword_rules
		WHERE active
		ORDER BY user_id, created_at`
)

// SaveKeywordRule stores a new keyword alert rule and returns its ID.
func (db *DB) SaveKeywordRule(ctx context.Context, rule domain.KeywordRule) (string, error) {
	id := uuid.NewString()

	_, err := db.Pool.Exec(ctx, insertKeywordRuleStmt,
		toUUID(id),
		rule.UserID,
		toText(rule.Pattern),
		rule.IsRegex,
		rule.Active,
	)
	if err != nil {
		return "", fmt.Errorf("save keyword rule: %w", err)
	}

	return id, nil
}

// DeactivateKeywordRule soft-deletes a rule owned by the user by flipping its
// active flag; the row is kept. Deactivating a missing or foreign rule is a
// no-op.
func (db *DB) DeactivateKeywordRule(ctx context.Context, userID int64, ruleID string) error {
	if _, err := db.Pool.Exec(ctx, deactivateKeywordRuleStmt, toUUID(ruleID), userID); err != nil {
		return fmt.Errorf("deactivate keyword rule: %w", err)
	}

	return nil
}

// GetKeywordRules lists the user's active rules, oldest first.
func (db *DB) GetKeywordRules(ctx context.Context, userID int64) ([]domain.KeywordRule, error) {
	rows, err := db.Pool.Query(ctx, userKeywordRulesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("get keyword rules: %w", err)
	}
	defer rows.Close()

	return scanKeywordRules(rows)
}

// GetActiveKeywordRules lists every active rule across users, for the alert
// matcher.
func (db *DB) GetActiveKeywordRules(ctx context.Context) ([]domain.KeywordRule, error) {
	rows, err := db.Pool.Query(ctx, activeKeywordRulesQuery)
	if err != nil {
		return nil, fmt.Errorf("get active keyword rules: %w", err)
	}
	defer rows.Close()

	return scanKeywordRules(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanKeywordRules(rows rowScanner) ([]domain.KeywordRule, error) {
	var rules []domain.KeywordRule

	for rows.Next() {
		var (
			rule       domain.KeywordRule
			idCol      = toUUID("")
			patternCol = toText("")
		)

		if err := rows.Scan(&idCol, &rule.UserID, &patternCol, &rule.IsRegex, &rule.Active); err != nil {
			return nil, fmt.Errorf("scan keyword rule: %w", err)
		}

		rule.ID = fromUUID(idCol)
		rule.Pattern = fromText(patternCol)
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword rules: %w", err)
	}

	return rules, nil
}
