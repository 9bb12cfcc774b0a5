// Package cluster groups deduplicated messages into topic clusters. Texts
// are normalized, vectorized with TF-IDF over unigrams and bigrams, and
// grouped by a density pass over the pairwise cosine distance matrix. Any
// vectorization or clustering failure falls back to a single whole-input
// cluster; the Clusterer never returns an error to its caller.
package cluster

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dkotenko/channel-digest/internal/core/domain"
	"github.com/dkotenko/channel-digest/internal/core/textnorm"
)

// DefaultThreshold is the cosine similarity above which two messages are
// considered topically related.
const DefaultThreshold = 0.62

// recencyDivisor scales the unix timestamp into a small tie-break bonus so
// text length dominates representative selection.
const recencyDivisor = 1_000_000

// Clusterer groups messages by topical similarity. Stateless and safe for
// concurrent use.
type Clusterer struct {
	threshold float64
	logger    *zerolog.Logger
}

// New creates a Clusterer. A threshold outside (0, 1] falls back to
// DefaultThreshold.
func New(threshold float64, logger *zerolog.Logger) *Clusterer {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Clusterer{threshold: threshold, logger: logger}
}

// Cluster partitions messages into topic clusters sorted by descending size.
func (c *Clusterer) Cluster(messages []domain.Message) []domain.Cluster {
	switch len(messages) {
	case 0:
		return nil
	case 1:
		return []domain.Cluster{makeCluster(messages)}
	}

	lang := dominantLanguage(messages)

	// Empty normalized texts are excluded from the similarity computation
	// but keep their position so they come back as singleton clusters.
	docs := make([][]string, 0, len(messages))
	docIndex := make([]int, 0, len(messages))
	empties := make([]int, 0)

	for i, m := range messages {
		tokens := textnorm.Normalize(m.Text, lang)
		if len(tokens) == 0 {
			empties = append(empties, i)
			continue
		}

		docs = append(docs, tokens)
		docIndex = append(docIndex, i)
	}

	vectors, err := vectorize(docs)
	if err != nil {
		c.logger.Warn().Err(err).Int("messages", len(messages)).
			Msg("vectorization failed, falling back to a single cluster")

		return []domain.Cluster{makeCluster(messages)}
	}

	labels := densityLabels(distanceMatrix(vectors), 1-c.threshold)

	groups := make(map[int][]domain.Message)
	order := make([]int, 0)

	for d, label := range labels {
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}

		groups[label] = append(groups[label], messages[docIndex[d]])
	}

	clusters := make([]domain.Cluster, 0, len(order)+len(empties))

	for _, label := range order {
		clusters = append(clusters, makeCluster(groups[label]))
	}

	for _, i := range empties {
		clusters = append(clusters, makeCluster(messages[i:i+1]))
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Size > clusters[j].Size
	})

	return clusters
}

func distanceMatrix(vectors []sparseVec) [][]float64 {
	n := len(vectors)
	dist := make([][]float64, n)

	for i := range dist {
		dist[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - cosine(vectors[i], vectors[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	return dist
}

// dominantLanguage detects the language over the concatenation of all texts
// so short individual messages do not flip the stop-word set per message.
func dominantLanguage(messages []domain.Message) textnorm.Language {
	var b strings.Builder

	for _, m := range messages {
		b.WriteString(m.Text)
		b.WriteByte(' ')
	}

	return textnorm.Detect(b.String())
}

func makeCluster(members []domain.Message) domain.Cluster {
	return domain.Cluster{
		Representative: PickRepresentative(members),
		Members:        members,
		Size:           len(members),
		Channels:       channelSet(members),
	}
}

// PickRepresentative selects the message maximizing text length plus a small
// recency bonus: length dominates, newer posts win ties. This is the
// opposite tie-break to deduplication, which keeps the original post - a
// cluster should surface the freshest framing of its topic.
func PickRepresentative(members []domain.Message) domain.Message {
	best := members[0]
	bestScore := repScore(best)

	for _, m := range members[1:] {
		if s := repScore(m); s > bestScore {
			best = m
			bestScore = s
		}
	}

	return best
}

func repScore(m domain.Message) float64 {
	return float64(len(m.Text)) + float64(m.PostedAt.Unix())/recencyDivisor
}

func channelSet(members []domain.Message) []string {
	seen := make(map[string]struct{})
	channels := make([]string, 0, 1)

	for _, m := range members {
		label := m.ChannelLabel()
		if _, ok := seen[label]; ok {
			continue
		}

		seen[label] = struct{}{}
		channels = append(channels, label)
	}

	sort.Strings(channels)

	return channels
}
