package filters

import (
	"testing"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

func rule(pattern string, isRegex, active bool) domain.KeywordRule {
	return domain.KeywordRule{ID: "r1", UserID: 1, Pattern: pattern, IsRegex: isRegex, Active: active}
}

func TestMatchesSubstring(t *testing.T) {
	m := NewMatcher(nil)

	tests := []struct {
		name string
		rule domain.KeywordRule
		text string
		want bool
	}{
		{name: "plain hit", rule: rule("bitcoin", false, true), text: "Bitcoin hits new high", want: true},
		{name: "case insensitive both ways", rule: rule("BITCOIN", false, true), text: "bitcoin dips", want: true},
		{name: "miss", rule: rule("ethereum", false, true), text: "Bitcoin hits new high", want: false},
		{name: "markup stripped before matching", rule: rule("bitcoin", false, true), text: "#Bitcoin 🚀", want: false},
		{name: "inactive never matches", rule: rule("bitcoin", false, false), text: "bitcoin", want: false},
		{name: "empty pattern never matches", rule: rule("", false, true), text: "anything", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(tt.rule, tt.text); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.rule.Pattern, tt.text, got, tt.want)
			}
		})
	}
}

func TestMatchesRegex(t *testing.T) {
	m := NewMatcher(nil)

	tests := []struct {
		name string
		rule domain.KeywordRule
		text string
		want bool
	}{
		{name: "alternation", rule: rule(`bitcoin|ethereum`, true, true), text: "Ethereum merge news", want: true},
		{name: "word boundary", rule: rule(`\brate\b`, true, true), text: "interest rate decision", want: true},
		{name: "word boundary miss", rule: rule(`\brate\b`, true, true), text: "operate normally", want: false},
		{name: "case folded by compile", rule: rule(`BTC`, true, true), text: "btc up", want: true},
		{name: "invalid pattern treated as no match", rule: rule(`[unclosed`, true, true), text: "anything", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(tt.rule, tt.text); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.rule.Pattern, tt.text, got, tt.want)
			}
		})
	}
}

func TestMatchAny(t *testing.T) {
	m := NewMatcher(nil)

	rules := []domain.KeywordRule{
		rule("bitcoin", false, true),
		rule("weather", false, true),
		rule("bit", false, false),
	}

	matched := m.MatchAny(rules, "Bitcoin price and weather update")

	if len(matched) != 2 {
		t.Fatalf("matched %d rules, want 2", len(matched))
	}

	for _, r := range matched {
		if !r.Active {
			t.Errorf("inactive rule %q matched", r.Pattern)
		}
	}
}

func TestCompileCacheReuse(t *testing.T) {
	m := NewMatcher(nil)
	r := rule(`bit(coin)?`, true, true)

	if !m.Matches(r, "bitcoin news") {
		t.Fatal("first match failed")
	}

	// Second call hits the cache; behavior must be identical.
	if !m.Matches(r, "a bit of news") {
		t.Error("cached pattern did not match")
	}
}
