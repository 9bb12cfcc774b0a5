// Package dedup collapses near-identical messages using fuzzy text
// similarity. Grouping is greedy single-linkage over the input order: each
// ungrouped message seeds a group and absorbs every later ungrouped message
// scoring at or above the threshold.
package dedup

import (
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

const (
	// DefaultThreshold is the similarity score (0-100) at which two texts
	// are considered duplicates.
	DefaultThreshold = 85

	// minTextLen is the rune count below which a text carries too little
	// signal for similarity scoring and is never grouped.
	minTextLen = 10
)

// Deduplicator groups near-identical messages. It is stateless between calls
// and safe for concurrent use.
type Deduplicator struct {
	scorer    Scorer
	threshold int
	logger    *zerolog.Logger
}

// Result is the outcome of one deduplication pass. Unique holds one
// representative per duplicate group plus all ungrouped messages. Groups
// holds the collapsed non-representative members per group, for merge-count
// display.
type Result struct {
	Unique []domain.Message
	Groups []domain.DuplicateGroup
}

// New creates a Deduplicator. A non-positive threshold falls back to
// DefaultThreshold; a nil scorer falls back to the token-set scorer.
func New(scorer Scorer, threshold int, logger *zerolog.Logger) *Deduplicator {
	if scorer == nil {
		scorer = TokenSetScorer{}
	}

	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Deduplicator{scorer: scorer, threshold: threshold, logger: logger}
}

// Deduplicate partitions messages into duplicate groups and returns one
// representative per group alongside all ungrouped messages. A scoring
// failure on a pair is treated as "not similar" and never aborts the pass.
func (d *Deduplicator) Deduplicate(messages []domain.Message) Result {
	grouped := make([]bool, len(messages))
	result := Result{Unique: make([]domain.Message, 0, len(messages))}

	for i, seed := range messages {
		if grouped[i] {
			continue
		}

		if utf8.RuneCountInString(seed.Text) < minTextLen {
			result.Unique = append(result.Unique, seed)
			continue
		}

		members := []domain.Message{seed}
		grouped[i] = true

		for j := i + 1; j < len(messages); j++ {
			if grouped[j] || utf8.RuneCountInString(messages[j].Text) < minTextLen {
				continue
			}

			score, err := d.scorer.Score(seed.Text, messages[j].Text)
			if err != nil {
				d.logger.Debug().Err(err).
					Int("seed", i).
					Int("candidate", j).
					Msg("similarity scoring failed, treating pair as distinct")

				continue
			}

			if score >= d.threshold {
				members = append(members, messages[j])
				grouped[j] = true
			}
		}

		rep := pickRepresentative(members)
		result.Unique = append(result.Unique, rep)

		if len(members) > 1 {
			result.Groups = append(result.Groups, domain.DuplicateGroup{
				Representative: rep,
				Duplicates:     withoutRepresentative(members, rep),
			})
		}
	}

	return result
}

// pickRepresentative keeps the longest text; ties go to the earliest post,
// preserving the original rather than a repost.
func pickRepresentative(members []domain.Message) domain.Message {
	best := members[0]

	for _, m := range members[1:] {
		switch {
		case len(m.Text) > len(best.Text):
			best = m
		case len(m.Text) == len(best.Text) && m.PostedAt.Before(best.PostedAt):
			best = m
		}
	}

	return best
}

func withoutRepresentative(members []domain.Message, rep domain.Message) []domain.Message {
	rest := make([]domain.Message, 0, len(members)-1)
	skipped := false

	for _, m := range members {
		if !skipped && m.ChannelID == rep.ChannelID && m.ExternalID == rep.ExternalID {
			skipped = true
			continue
		}

		rest = append(rest, m)
	}

	return rest
}
