// Package delivery renders digests to Telegram HTML and sends them.
package delivery

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

const (
	// DefaultMaxItems caps the clusters rendered per digest.
	DefaultMaxItems = 10

	separatorLine        = "━━━━━━━━━━━━━━━━━━━━━\n"
	timeFormatWindow     = "02 Jan 15:04"
	maxTrendKeywords     = 5
	maxTrendTopics       = 5
	maxTrendChannels     = 5
	maxRepresentativeLen = 280
)

// Renderer formats a digest as Telegram HTML.
type Renderer struct {
	maxItems int
	titler   cases.Caser
}

// NewRenderer creates a Renderer. Non-positive maxItems falls back to
// DefaultMaxItems.
func NewRenderer(maxItems int) *Renderer {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	return &Renderer{
		maxItems: maxItems,
		titler:   cases.Title(language.English),
	}
}

// Render produces the full digest text. Clusters beyond the item cap are
// folded into a trailing "and N more topics" line.
func (r *Renderer) Render(digest domain.Digest) string {
	var sb strings.Builder

	r.renderHeader(&sb, digest)

	shown := digest.Clusters
	overflow := 0

	if len(shown) > r.maxItems {
		overflow = len(shown) - r.maxItems
		shown = shown[:r.maxItems]
	}

	duplicateCounts := duplicateCountByMessage(digest.DuplicateGroups)

	for i, c := range shown {
		r.renderCluster(&sb, i+1, c, duplicateCounts)
	}

	if overflow > 0 {
		fmt.Fprintf(&sb, "\n<i>…and %d more topics</i>\n", overflow)
	}

	if digest.Trend != nil {
		r.renderTrend(&sb, digest.Trend)
	}

	return sb.String()
}

func (r *Renderer) renderHeader(sb *strings.Builder, digest domain.Digest) {
	title := r.titler.String(string(digest.Period))

	sb.WriteString(separatorLine)
	fmt.Fprintf(sb, "📰 <b>%s digest</b> • %s – %s\n",
		html.EscapeString(title),
		digest.From.Format(timeFormatWindow),
		digest.To.Format(timeFormatWindow),
	)
	sb.WriteString(separatorLine)

	total := 0
	for _, c := range digest.Clusters {
		total += c.Size
	}

	merged := 0
	for _, g := range digest.DuplicateGroups {
		merged += len(g.Duplicates)
	}

	fmt.Fprintf(sb, "📊 <i>%d topics | %d messages | %d duplicates merged</i>\n\n",
		len(digest.Clusters), total+merged, merged)
}

func (r *Renderer) renderCluster(sb *strings.Builder, index int, c domain.Cluster, duplicateCounts map[messageKey]int) {
	rep := c.Representative

	text := strings.TrimSpace(rep.Text)
	if runes := []rune(text); len(runes) > maxRepresentativeLen {
		text = string(runes[:maxRepresentativeLen-1]) + "…"
	}

	fmt.Fprintf(sb, "%d. %s", index, html.EscapeString(text))

	related := c.Size - 1 + duplicateCounts[keyOf(rep)]
	for _, m := range c.Members {
		if m.ChannelID == rep.ChannelID && m.ExternalID == rep.ExternalID {
			continue
		}

		related += duplicateCounts[keyOf(m)]
	}

	if related > 0 {
		fmt.Fprintf(sb, " <i>(+%d similar)</i>", related)
	}

	sb.WriteString("\n")

	links := sourceLinks(c)
	if len(links) > 0 {
		fmt.Fprintf(sb, "   <i>via %s</i>\n", strings.Join(links, ", "))
	}

	sb.WriteString("\n")
}

func (r *Renderer) renderTrend(sb *strings.Builder, trend *domain.TrendRecord) {
	sb.WriteString(separatorLine)
	sb.WriteString("📈 <b>Trends</b>\n")

	if topics := trend.TrendingTopics; len(topics) > 0 {
		sb.WriteString("\n🔥 <b>Trending:</b> ")
		sb.WriteString(html.EscapeString(joinKeywords(topics, maxTrendTopics)))
		sb.WriteString("\n")
	}

	if keywords := trend.TopKeywords; len(keywords) > 0 {
		sb.WriteString("🔑 <b>Keywords:</b> ")
		sb.WriteString(html.EscapeString(joinKeywords(keywords, maxTrendKeywords)))
		sb.WriteString("\n")
	}

	if stats := trend.ChannelStats; len(stats) > 0 {
		sb.WriteString("\n📣 <b>Most active channels:</b>\n")

		limit := len(stats)
		if limit > maxTrendChannels {
			limit = maxTrendChannels
		}

		for _, stat := range stats[:limit] {
			fmt.Fprintf(sb, " • %s: %d\n", html.EscapeString(stat.Channel), stat.MessageCount)
		}
	}

	if hours := busiestHours(trend.TimeDistribution); len(hours) > 0 {
		fmt.Fprintf(sb, "\n🕐 <i>Busiest hours (UTC): %s</i>\n", strings.Join(hours, ", "))
	}
}

func joinKeywords(keywords []domain.Keyword, limit int) string {
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}

	parts := make([]string, len(keywords))
	for i, kw := range keywords {
		parts[i] = kw.Keyword
	}

	return strings.Join(parts, ", ")
}

// busiestHours returns the up-to-three busiest non-empty hours, formatted
// "15:00", ordered by count descending.
func busiestHours(dist [24]int) []string {
	type hourCount struct {
		hour  int
		count int
	}

	counts := make([]hourCount, 0, len(dist))

	for hour, count := range dist {
		if count > 0 {
			counts = append(counts, hourCount{hour: hour, count: count})
		}
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}

		return counts[i].hour < counts[j].hour
	})

	if len(counts) > 3 {
		counts = counts[:3]
	}

	hours := make([]string, len(counts))
	for i, hc := range counts {
		hours[i] = fmt.Sprintf("%02d:00", hc.hour)
	}

	return hours
}

type messageKey struct {
	channelID  int64
	externalID int64
}

func keyOf(msg domain.Message) messageKey {
	return messageKey{channelID: msg.ChannelID, externalID: msg.ExternalID}
}

func duplicateCountByMessage(groups []domain.DuplicateGroup) map[messageKey]int {
	counts := make(map[messageKey]int, len(groups))
	for _, g := range groups {
		counts[keyOf(g.Representative)] = len(g.Duplicates)
	}

	return counts
}

// sourceLinks formats distinct channel labels for a cluster, linking the
// representative to its message when a URL is known.
func sourceLinks(c domain.Cluster) []string {
	rep := c.Representative

	links := make([]string, 0, len(c.Channels))
	for _, label := range c.Channels {
		if label == rep.ChannelLabel() && rep.URL != "" {
			links = append(links, FormatLink(rep.URL, label))

			continue
		}

		links = append(links, html.EscapeString(label))
	}

	return links
}

// FormatLink wraps a label in an anchor to the message URL.
func FormatLink(url, label string) string {
	return fmt.Sprintf("<a href=%q>%s</a>", url, html.EscapeString(label))
}
