// Package domain holds the core data model shared by the digest pipeline,
// the scheduler, and the storage layer. All pipeline types are plain values;
// the pipeline components never mutate a Message after ingestion.
package domain

import (
	"errors"
	"time"
)

// ChannelUnknown is the label used when a message's channel has neither a
// username nor a title.
const ChannelUnknown = "Unknown"

// Message is an immutable channel message. It is created once at ingestion
// and uniquely identified by (ChannelID, ExternalID).
type Message struct {
	ChannelID       int64
	ChannelUsername string
	ChannelTitle    string
	ExternalID      int64
	URL             string
	PostedAt        time.Time
	Text            string
	RawPayload      []byte
}

// ChannelLabel returns the channel username, falling back to the title and
// then to ChannelUnknown.
func (m Message) ChannelLabel() string {
	if m.ChannelUsername != "" {
		return m.ChannelUsername
	}

	if m.ChannelTitle != "" {
		return m.ChannelTitle
	}

	return ChannelUnknown
}

// DuplicateGroup is a set of messages judged near-identical by fuzzy text
// similarity. Representative is the message kept in the digest; Duplicates
// are the collapsed members, retained for merge-count display.
type DuplicateGroup struct {
	Representative Message
	Duplicates     []Message
}

// Cluster is a set of deduplicated messages grouped by topical similarity.
type Cluster struct {
	Representative Message
	Members        []Message
	Size           int
	Channels       []string
}

// Period is the digest cadence of a schedule.
type Period string

// Supported digest periods.
const (
	PeriodHourly  Period = "hourly"
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ErrUnknownPeriod is returned when parsing an unsupported period name.
var ErrUnknownPeriod = errors.New("unknown period")

// ErrChannelNotFound is returned when a channel lookup finds no row.
var ErrChannelNotFound = errors.New("channel not found")

// ParsePeriod converts a user-supplied period name into a Period.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly:
		return Period(s), nil
	default:
		return "", ErrUnknownPeriod
	}
}

// Schedule is a per-user, per-period digest trigger. At most one active
// schedule exists per (UserID, Period); registering a new one supersedes it.
type Schedule struct {
	UserID    int64
	Period    Period
	CronExpr  string
	Active    bool
	UpdatedAt time.Time
}

// KeywordRule is a user-defined alerting rule. Rules are soft-deleted by
// flipping Active, never removed.
type KeywordRule struct {
	ID      string
	UserID  int64
	Pattern string
	IsRegex bool
	Active  bool
}

// Keyword is a scored keyword or phrase in a trend record. Score is the
// extractor's raw score (lower = more salient); Relevance is normalized so
// higher = more salient.
type Keyword struct {
	Keyword   string
	Score     float64
	Relevance float64
}

// ChannelStat aggregates per-channel activity over a message set.
type ChannelStat struct {
	Channel      string
	MessageCount int
	AvgLength    float64
}

// TimeRange is the observed posting span of a message set.
type TimeRange struct {
	Start         time.Time
	End           time.Time
	DurationHours float64
}

// TrendRecord is the keyword/channel/time statistics computed for a message
// set. It is derived purely from its input and recomputed per request.
type TrendRecord struct {
	Period           Period
	TotalMessages    int
	TopKeywords      []Keyword
	TrendingTopics   []Keyword
	ChannelStats     []ChannelStat
	TimeDistribution [24]int
	TimeRange        TimeRange
}

// Digest is the pipeline output handed to the renderer/delivery collaborator.
// Trend is nil for hourly digests and for windows with too few messages.
type Digest struct {
	UserID          int64
	Period          Period
	From            time.Time
	To              time.Time
	Clusters        []Cluster
	DuplicateGroups []DuplicateGroup
	Trend           *TrendRecord
}
