// Package filters matches user keyword rules against message text. Rules
// share the pipeline's text normalization so a rule matches regardless of
// case or surrounding markup.
package filters

import (
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dkotenko/channel-digest/internal/core/domain"
	"github.com/dkotenko/channel-digest/internal/core/textnorm"
)

// Matcher evaluates keyword rules. Compiled regexes are cached per pattern;
// safe for concurrent use.
type Matcher struct {
	logger *zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

// NewMatcher creates a Matcher.
func NewMatcher(logger *zerolog.Logger) *Matcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Matcher{logger: logger, cache: make(map[string]*regexp.Regexp)}
}

// Matches reports whether an active rule matches the text. Inactive rules
// never match; an invalid regex pattern is logged and treated as no match.
func (m *Matcher) Matches(rule domain.KeywordRule, text string) bool {
	if !rule.Active || rule.Pattern == "" {
		return false
	}

	cleaned := strings.ToLower(textnorm.Clean(text))

	if !rule.IsRegex {
		return strings.Contains(cleaned, strings.ToLower(rule.Pattern))
	}

	re, err := m.compile(rule.Pattern)
	if err != nil {
		m.logger.Warn().Err(err).Str("rule_id", rule.ID).Msg("invalid keyword rule pattern")

		return false
	}

	return re.MatchString(cleaned)
}

// MatchAny returns the subset of rules matching the text.
func (m *Matcher) MatchAny(rules []domain.KeywordRule, text string) []domain.KeywordRule {
	var matched []domain.KeywordRule

	for _, rule := range rules {
		if m.Matches(rule, text) {
			matched = append(matched, rule)
		}
	}

	return matched
}

func (m *Matcher) compile(pattern string) (*regexp.Regexp, error) {
	m.mu.RLock()
	re, ok := m.cache[pattern]
	m.mu.RUnlock()

	if ok {
		return re, nil
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[pattern] = re
	m.mu.Unlock()

	return re, nil
}
