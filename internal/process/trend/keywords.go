package trend

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/dkotenko/channel-digest/internal/core/textnorm"
)

// sentenceBoundary splits text into phrase segments. Terminal punctuation
// only counts before whitespace or end of text, so dots inside URLs do not
// split them.
var sentenceBoundary = regexp.MustCompile(`[.!?…]+(\s+|$)|\n+`)

// ErrNoCandidates is returned when a text yields no keyword candidates,
// letting the analyzer fall back to plain term-frequency ranking.
var ErrNoCandidates = errors.New("no keyword candidates")

// Candidate is a scored keyword phrase. Lower score = more salient.
type Candidate struct {
	Phrase string
	Score  float64
}

// Extractor extracts up to limit scored keyword phrases from text.
// Implementations must be safe for concurrent use.
type Extractor interface {
	Extract(text string, limit int) ([]Candidate, error)
}

// Phrase extraction parameters.
const (
	maxPhraseWords = 3
	minWordLen     = 3

	// phraseSimilarityCutoff collapses near-duplicate phrases: when the
	// word-set Dice coefficient of two candidates reaches this value only
	// the better-scored one is kept.
	phraseSimilarityCutoff = 0.7

	// lengthBonusStep rewards multi-word phrases slightly so "interest rate
	// hike" can outrank its individual words.
	lengthBonusStep = 0.25
)

// StatExtractor is an unsupervised statistical phrase extractor. Candidate
// phrases are 1-3 word windows over stop-word-delimited token runs. The raw
// score combines frequency, phrase length, and first occurrence position;
// lower scores mark more salient phrases.
type StatExtractor struct{}

type phraseStats struct {
	freq     int
	firstPos int
}

func (StatExtractor) Extract(text string, limit int) ([]Candidate, error) {
	stats := make(map[string]*phraseStats)
	pos := 0

	// Candidate phrases never cross a sentence boundary, so concatenated
	// inputs do not produce phrases spanning two source texts.
	for _, segment := range sentenceBoundary.Split(text, -1) {
		tokens := textnorm.Tokenize(segment)
		if len(tokens) == 0 {
			continue
		}

		collectPhrases(tokens, pos, stats)
		pos += len(tokens)
	}

	if len(stats) == 0 {
		return nil, ErrNoCandidates
	}

	candidates := make([]Candidate, 0, len(stats))
	total := float64(pos)

	for phrase, st := range stats {
		words := strings.Count(phrase, " ") + 1
		positionPenalty := 1 + float64(st.firstPos)/total
		weight := float64(st.freq) * (1 + lengthBonusStep*float64(words-1))
		candidates = append(candidates, Candidate{
			Phrase: phrase,
			Score:  positionPenalty / weight,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score < candidates[j].Score
		}

		return candidates[i].Phrase < candidates[j].Phrase
	})

	return suppressNearDuplicates(candidates, limit), nil
}

// collectPhrases slides 1..maxPhraseWords windows over runs of content
// tokens, accumulating into stats. Stop words and short tokens end a run, so
// phrases never span them. base offsets first-occurrence positions when the
// tokens are one segment of a larger text.
func collectPhrases(tokens []string, base int, stats map[string]*phraseStats) {
	run := make([]string, 0, 8)
	runStart := 0

	flush := func() {
		for i := range run {
			for n := 1; n <= maxPhraseWords && i+n <= len(run); n++ {
				phrase := strings.Join(run[i:i+n], " ")

				if st, ok := stats[phrase]; ok {
					st.freq++
				} else {
					stats[phrase] = &phraseStats{freq: 1, firstPos: runStart + i}
				}
			}
		}

		run = run[:0]
	}

	for pos, tok := range tokens {
		if textnorm.IsStopword(tok) || len([]rune(tok)) < minWordLen {
			flush()
			continue
		}

		if len(run) == 0 {
			runStart = base + pos
		}

		run = append(run, tok)
	}

	flush()
}

// suppressNearDuplicates keeps candidates in score order, dropping any whose
// word set nearly matches an already-kept phrase.
func suppressNearDuplicates(candidates []Candidate, limit int) []Candidate {
	kept := make([]Candidate, 0, limit)

	for _, cand := range candidates {
		if len(kept) >= limit {
			break
		}

		duplicate := false

		for _, k := range kept {
			if diceCoefficient(cand.Phrase, k.Phrase) >= phraseSimilarityCutoff {
				duplicate = true
				break
			}
		}

		if !duplicate {
			kept = append(kept, cand)
		}
	}

	return kept
}

// diceCoefficient measures word-set overlap of two phrases in [0, 1].
func diceCoefficient(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(wordsA))

	for _, w := range wordsA {
		setA[w] = struct{}{}
	}

	var inter int

	seen := make(map[string]struct{}, len(wordsB))

	for _, w := range wordsB {
		if _, dup := seen[w]; dup {
			continue
		}

		seen[w] = struct{}{}

		if _, ok := setA[w]; ok {
			inter++
		}
	}

	return 2 * float64(inter) / float64(len(setA)+len(seen))
}

// Relevance converts a raw extractor score into a 0-1 salience where higher
// means more salient.
func Relevance(score float64) float64 {
	return 1 / (1 + math.Max(score, 0))
}
