// Package trend computes keyword, channel, and time statistics over a
// message set. Trend analysis is advisory: every failure path degrades to a
// well-formed (possibly empty) record and never blocks the pipeline.
package trend

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dkotenko/channel-digest/internal/core/domain"
	"github.com/dkotenko/channel-digest/internal/core/textnorm"
)

// Output caps.
const (
	topKeywordsLimit    = 10
	channelStatsLimit   = 10
	trendingTopicsLimit = 5
	perMessageKeywords  = 5
)

// Analyzer derives a TrendRecord from a message set. Stateless and safe for
// concurrent use.
type Analyzer struct {
	extractor Extractor
	logger    *zerolog.Logger
}

// New creates an Analyzer. A nil extractor falls back to the statistical
// phrase extractor.
func New(extractor Extractor, logger *zerolog.Logger) *Analyzer {
	if extractor == nil {
		extractor = StatExtractor{}
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Analyzer{extractor: extractor, logger: logger}
}

// Analyze computes the trend record for a message set. Empty input returns
// an empty record with TotalMessages = 0.
func (a *Analyzer) Analyze(messages []domain.Message, period domain.Period) domain.TrendRecord {
	record := domain.TrendRecord{Period: period, TotalMessages: len(messages)}
	if len(messages) == 0 {
		return record
	}

	record.TopKeywords = a.topKeywords(messages)
	record.TrendingTopics = a.trendingTopics(messages)
	record.ChannelStats = channelStats(messages)
	record.TimeDistribution = hourHistogram(messages)
	record.TimeRange = timeRange(messages)

	return record
}

// topKeywords extracts salient phrases over the concatenated raw text,
// falling back to plain term-frequency ranking when extraction fails. The
// texts are joined with a sentence terminator so the extractor never builds
// a phrase spanning two messages.
func (a *Analyzer) topKeywords(messages []domain.Message) []domain.Keyword {
	var b strings.Builder

	for _, m := range messages {
		b.WriteString(m.Text)
		b.WriteString(". ")
	}

	candidates, err := a.extractor.Extract(b.String(), topKeywordsLimit)
	if err != nil {
		a.logger.Debug().Err(err).Msg("keyword extraction failed, falling back to term frequency")

		return termFrequencyKeywords(messages)
	}

	keywords := make([]domain.Keyword, len(candidates))

	for i, c := range candidates {
		keywords[i] = domain.Keyword{
			Keyword:   c.Phrase,
			Score:     c.Score,
			Relevance: Relevance(c.Score),
		}
	}

	return keywords
}

// termFrequencyKeywords ranks stop-word-filtered tokens by frequency with
// relevance = frequency / total token count.
func termFrequencyKeywords(messages []domain.Message) []domain.Keyword {
	freq := make(map[string]int)
	total := 0

	for _, m := range messages {
		lang := textnorm.Detect(m.Text)

		for _, tok := range textnorm.Normalize(m.Text, lang) {
			freq[tok]++
			total++
		}
	}

	if total == 0 {
		return nil
	}

	keywords := make([]domain.Keyword, 0, len(freq))

	for tok, n := range freq {
		keywords = append(keywords, domain.Keyword{
			Keyword:   tok,
			Score:     float64(n),
			Relevance: float64(n) / float64(total),
		})
	}

	sortKeywords(keywords)

	if len(keywords) > topKeywordsLimit {
		keywords = keywords[:topKeywordsLimit]
	}

	return keywords
}

// trendingTopics extracts the top phrases of every message individually and
// ranks them by how many extractions they appear in.
func (a *Analyzer) trendingTopics(messages []domain.Message) []domain.Keyword {
	freq := make(map[string]int)

	for _, m := range messages {
		candidates, err := a.extractor.Extract(m.Text, perMessageKeywords)
		if err != nil {
			continue
		}

		for _, c := range candidates {
			freq[c.Phrase]++
		}
	}

	if len(freq) == 0 {
		return nil
	}

	topics := make([]domain.Keyword, 0, len(freq))
	total := float64(len(messages))

	for phrase, n := range freq {
		topics = append(topics, domain.Keyword{
			Keyword:   phrase,
			Score:     float64(n),
			Relevance: float64(n) / total,
		})
	}

	sortKeywords(topics)

	if len(topics) > trendingTopicsLimit {
		topics = topics[:trendingTopicsLimit]
	}

	return topics
}

// sortKeywords orders by descending relevance, ties alphabetical for
// deterministic output.
func sortKeywords(keywords []domain.Keyword) {
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Relevance != keywords[j].Relevance {
			return keywords[i].Relevance > keywords[j].Relevance
		}

		return keywords[i].Keyword < keywords[j].Keyword
	})
}

func channelStats(messages []domain.Message) []domain.ChannelStat {
	counts := make(map[string]int)
	lengths := make(map[string]int)

	for _, m := range messages {
		label := m.ChannelLabel()
		counts[label]++
		lengths[label] += len([]rune(m.Text))
	}

	stats := make([]domain.ChannelStat, 0, len(counts))

	for channel, n := range counts {
		stats = append(stats, domain.ChannelStat{
			Channel:      channel,
			MessageCount: n,
			AvgLength:    float64(lengths[channel]) / float64(n),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].MessageCount != stats[j].MessageCount {
			return stats[i].MessageCount > stats[j].MessageCount
		}

		return stats[i].Channel < stats[j].Channel
	})

	if len(stats) > channelStatsLimit {
		stats = stats[:channelStatsLimit]
	}

	return stats
}

func hourHistogram(messages []domain.Message) [24]int {
	var hist [24]int

	for _, m := range messages {
		hist[m.PostedAt.UTC().Hour()]++
	}

	return hist
}

func timeRange(messages []domain.Message) domain.TimeRange {
	start := messages[0].PostedAt
	end := messages[0].PostedAt

	for _, m := range messages[1:] {
		if m.PostedAt.Before(start) {
			start = m.PostedAt
		}

		if m.PostedAt.After(end) {
			end = m.PostedAt
		}
	}

	return domain.TimeRange{
		Start:         start,
		End:           end,
		DurationHours: end.Sub(start).Hours(),
	}
}
