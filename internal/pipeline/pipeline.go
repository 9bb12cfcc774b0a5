// Package pipeline runs the digest reduction for one user and window:
// fetch -> deduplicate -> cluster -> trend -> render/deliver -> audit.
// The reduction stages are pure; all persistent state lives behind the
// MessageSource and AuditStore interfaces.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkotenko/channel-digest/internal/core/domain"
	"github.com/dkotenko/channel-digest/internal/platform/observability"
	"github.com/dkotenko/channel-digest/internal/process/cluster"
	"github.com/dkotenko/channel-digest/internal/process/dedup"
	"github.com/dkotenko/channel-digest/internal/process/trend"
)

// trendMinMessages is the unique-message count a non-hourly window must
// exceed before trend analysis is worth running.
const trendMinMessages = 3

// MessageSource reads messages from the external store.
type MessageSource interface {
	GetMessagesInPeriod(ctx context.Context, userID int64, from, to time.Time) ([]domain.Message, error)
}

// Deliverer renders and delivers a digest, returning the rendered artifact.
type Deliverer interface {
	Deliver(ctx context.Context, digest domain.Digest) (string, error)
}

// AuditStore persists rendered digests for audit.
type AuditStore interface {
	SaveDigest(ctx context.Context, digest domain.Digest, rendered string) error
}

// Pipeline wires the reduction stages together.
type Pipeline struct {
	source    MessageSource
	dedup     *dedup.Deduplicator
	clusterer *cluster.Clusterer
	trends    *trend.Analyzer
	deliverer Deliverer
	audit     AuditStore
	logger    *zerolog.Logger
}

// New creates a Pipeline.
func New(
	source MessageSource,
	deduplicator *dedup.Deduplicator,
	clusterer *cluster.Clusterer,
	trends *trend.Analyzer,
	deliverer Deliverer,
	audit AuditStore,
	logger *zerolog.Logger,
) *Pipeline {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Pipeline{
		source:    source,
		dedup:     deduplicator,
		clusterer: clusterer,
		trends:    trends,
		deliverer: deliverer,
		audit:     audit,
		logger:    logger,
	}
}

// Run executes one digest generation for the window [from, to). An empty
// window is a no-op: nothing is delivered and nil is returned. Delivery
// failures are returned to the caller; audit failures are logged only,
// since the digest already reached the user.
func (p *Pipeline) Run(ctx context.Context, userID int64, period domain.Period, from, to time.Time) error {
	logger := p.logger.With().
		Int64("user_id", userID).
		Str("period", string(period)).
		Time("from", from).
		Time("to", to).
		Logger()

	messages, err := p.source.GetMessagesInPeriod(ctx, userID, from, to)
	if err != nil {
		return fmt.Errorf("fetch messages for window: %w", err)
	}

	observability.PipelineMessages.Observe(float64(len(messages)))

	if len(messages) == 0 {
		logger.Debug().Msg("empty window, skipping digest")

		return nil
	}

	result := runStage("dedup", func() dedup.Result {
		return p.dedup.Deduplicate(messages)
	})

	clusters := runStage("cluster", func() []domain.Cluster {
		return p.clusterer.Cluster(result.Unique)
	})

	digest := domain.Digest{
		UserID:          userID,
		Period:          period,
		From:            from,
		To:              to,
		Clusters:        clusters,
		DuplicateGroups: result.Groups,
	}

	if period != domain.PeriodHourly && len(result.Unique) > trendMinMessages {
		record := runStage("trend", func() domain.TrendRecord {
			return p.trends.Analyze(result.Unique, period)
		})
		digest.Trend = &record
	}

	rendered, err := p.deliverer.Deliver(ctx, digest)
	if err != nil {
		observability.DigestsDelivered.WithLabelValues(string(period), "failed").Inc()

		return fmt.Errorf("deliver digest: %w", err)
	}

	observability.DigestsDelivered.WithLabelValues(string(period), "delivered").Inc()

	if err := p.audit.SaveDigest(ctx, digest, rendered); err != nil {
		logger.Error().Err(err).Msg("failed to persist digest audit record")
	}

	logger.Info().
		Int("messages", len(messages)).
		Int("unique", len(result.Unique)).
		Int("clusters", len(clusters)).
		Bool("trend", digest.Trend != nil).
		Msg("digest delivered")

	return nil
}

// runStage times a pipeline stage for the stage-duration histogram.
func runStage[T any](name string, fn func() T) T {
	start := time.Now()
	out := fn()
	observability.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	return out
}
