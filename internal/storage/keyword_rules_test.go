package db

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Keyword rules are soft-deleted: the lifecycle statements must flip the
// active flag, never remove rows, and user-facing reads must filter on it.
func TestKeywordRuleLifecycleStatements(t *testing.T) {
	deactivate := strings.Join(strings.Fields(deactivateKeywordRuleStmt), " ")

	if !strings.HasPrefix(deactivate, "UPDATE keyword_rules SET active = false") {
		t.Errorf("deactivation must flip the active flag, got %q", deactivate)
	}

	if !strings.Contains(deactivate, "user_id = $2") {
		t.Errorf("deactivation must be scoped to the owning user, got %q", deactivate)
	}

	for name, stmt := range map[string]string{
		"insert":     insertKeywordRuleStmt,
		"deactivate": deactivateKeywordRuleStmt,
		"user list":  userKeywordRulesQuery,
		"active set": activeKeywordRulesQuery,
	} {
		if strings.Contains(stmt, "DELETE") {
			t.Errorf("%s statement removes rows: %q", name, stmt)
		}
	}

	for name, query := range map[string]string{
		"user list":  userKeywordRulesQuery,
		"active set": activeKeywordRulesQuery,
	} {
		if !strings.Contains(query, "active") {
			t.Errorf("%s query does not filter deactivated rules: %q", name, query)
		}
	}
}

type fakeRuleRows struct {
	rows [][]any
	pos  int
}

func (f *fakeRuleRows) Next() bool {
	f.pos++

	return f.pos <= len(f.rows)
}

func (f *fakeRuleRows) Scan(dest ...any) error {
	row := f.rows[f.pos-1]

	*dest[0].(*pgtype.UUID) = row[0].(pgtype.UUID)
	*dest[1].(*int64) = row[1].(int64)
	*dest[2].(*pgtype.Text) = row[2].(pgtype.Text)
	*dest[3].(*bool) = row[3].(bool)
	*dest[4].(*bool) = row[4].(bool)

	return nil
}

func (f *fakeRuleRows) Err() error { return nil }

func TestScanKeywordRules(t *testing.T) {
	id := uuid.NewString()

	rows := &fakeRuleRows{rows: [][]any{
		{toUUID(id), int64(42), toText("bitcoin"), false, true},
	}}

	rules, err := scanKeywordRules(rows)
	if err != nil {
		t.Fatalf("scanKeywordRules returned error: %v", err)
	}

	if len(rules) != 1 {
		t.Fatalf("rules = %d, want 1", len(rules))
	}

	rule := rules[0]
	if rule.ID != id || rule.UserID != 42 || rule.Pattern != "bitcoin" || rule.IsRegex || !rule.Active {
		t.Errorf("scanned rule = %+v", rule)
	}
}
