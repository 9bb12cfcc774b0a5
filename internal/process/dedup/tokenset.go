package dedup

import (
	"errors"
	"sort"
	"strings"

	"github.com/dkotenko/channel-digest/internal/core/textnorm"
)

// ErrNoTokens is returned when a text yields no comparable tokens.
var ErrNoTokens = errors.New("no tokens to compare")

const maxScore = 100

// Scorer scores fuzzy similarity between two texts on a 0-100 scale.
// Implementations must be safe for concurrent use.
type Scorer interface {
	Score(a, b string) (int, error)
}

// TokenSetScorer compares the word sets of two texts, ignoring token order
// and duplication. The sorted intersection and remainder strings are compared
// pairwise by Levenshtein ratio and the best score wins, which tolerates
// reordering and partial paraphrase that plain edit distance misses.
type TokenSetScorer struct{}

func (TokenSetScorer) Score(a, b string) (int, error) {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 || len(setB) == 0 {
		return 0, ErrNoTokens
	}

	var inter, onlyA, onlyB []string

	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter = append(inter, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}

	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}

	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	common := strings.Join(inter, " ")
	left := joinNonEmpty(common, strings.Join(onlyA, " "))
	right := joinNonEmpty(common, strings.Join(onlyB, " "))

	score := levenshteinRatio(left, right)

	if common != "" {
		if s := levenshteinRatio(common, left); s > score {
			score = s
		}

		if s := levenshteinRatio(common, right); s > score {
			score = s
		}
	}

	return score, nil
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})

	for _, tok := range textnorm.Tokenize(text) {
		set[tok] = struct{}{}
	}

	return set
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

// levenshteinRatio returns a 0-100 similarity for two strings: the indel
// ratio (lensum - distance) / lensum with substitutions costing 2.
func levenshteinRatio(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)

	if total == 0 {
		return maxScore
	}

	dist := indelDistance(ra, rb)

	return int(float64(maxScore)*float64(total-dist)/float64(total) + 0.5)
}

// indelDistance is the Levenshtein distance with substitution cost 2, i.e.
// the minimum number of insertions and deletions turning a into b.
func indelDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}

	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i

		for j := 1; j <= len(b); j++ {
			cost := 2
			if a[i-1] == b[j-1] {
				cost = 0
			}

			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}

	if c < a {
		a = c
	}

	return a
}
