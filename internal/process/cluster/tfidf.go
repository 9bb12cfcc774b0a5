package cluster

import (
	"errors"
	"math"
	"sort"
)

// Vectorizer limits mirroring the original digest pipeline: a capped
// vocabulary of unigrams and bigrams, with near-ubiquitous terms excluded.
const (
	maxVocabulary = 1000
	maxDocFreq    = 0.8
)

// ErrEmptyVocabulary is returned when no term survives vocabulary pruning.
var ErrEmptyVocabulary = errors.New("empty vocabulary")

// sparseVec is an L2-normalized sparse TF-IDF row keyed by term index.
type sparseVec map[int]float64

// vectorize builds TF-IDF vectors over unigrams and bigrams of the given
// token lists. Term frequency is sublinear (1 + ln tf), IDF is smoothed, and
// each row is L2-normalized.
func vectorize(docs [][]string) ([]sparseVec, error) {
	n := len(docs)
	if n == 0 {
		return nil, ErrEmptyVocabulary
	}

	termCounts := make([]map[string]int, n)
	docFreq := make(map[string]int)

	for i, tokens := range docs {
		counts := make(map[string]int)

		for _, t := range tokens {
			counts[t]++
		}

		for j := 0; j+1 < len(tokens); j++ {
			counts[tokens[j]+" "+tokens[j+1]]++
		}

		termCounts[i] = counts

		for term := range counts {
			docFreq[term]++
		}
	}

	vocab := buildVocabulary(docFreq, n)
	if len(vocab) == 0 {
		return nil, ErrEmptyVocabulary
	}

	idf := make([]float64, len(vocab))
	index := make(map[string]int, len(vocab))

	for i, term := range vocab {
		index[term] = i
		idf[i] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}

	vectors := make([]sparseVec, n)

	for i, counts := range termCounts {
		vec := make(sparseVec)

		for term, tf := range counts {
			idx, ok := index[term]
			if !ok {
				continue
			}

			vec[idx] = (1 + math.Log(float64(tf))) * idf[idx]
		}

		normalize(vec)
		vectors[i] = vec
	}

	return vectors, nil
}

// buildVocabulary drops terms present in more than maxDocFreq of documents
// and keeps at most maxVocabulary terms, preferring frequent ones. Ties
// break alphabetically so vectorization is deterministic.
func buildVocabulary(docFreq map[string]int, n int) []string {
	cutoff := int(math.Floor(maxDocFreq * float64(n)))
	if cutoff < 1 {
		cutoff = 1
	}

	terms := make([]string, 0, len(docFreq))

	for term, df := range docFreq {
		if n > 1 && df > cutoff {
			continue
		}

		terms = append(terms, term)
	}

	sort.Slice(terms, func(i, j int) bool {
		if docFreq[terms[i]] != docFreq[terms[j]] {
			return docFreq[terms[i]] > docFreq[terms[j]]
		}

		return terms[i] < terms[j]
	})

	if len(terms) > maxVocabulary {
		terms = terms[:maxVocabulary]
	}

	return terms
}

func normalize(vec sparseVec) {
	var sum float64

	for _, w := range vec {
		sum += w * w
	}

	if sum == 0 {
		return
	}

	norm := math.Sqrt(sum)

	for idx, w := range vec {
		vec[idx] = w / norm
	}
}

// cosine returns the cosine similarity of two L2-normalized sparse vectors.
func cosine(a, b sparseVec) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot float64

	for idx, w := range a {
		if v, ok := b[idx]; ok {
			dot += w * v
		}
	}

	return dot
}
