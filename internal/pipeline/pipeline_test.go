package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkotenko/channel-digest/internal/core/domain"
	"github.com/dkotenko/channel-digest/internal/process/cluster"
	"github.com/dkotenko/channel-digest/internal/process/dedup"
	"github.com/dkotenko/channel-digest/internal/process/trend"
)

type fakeSource struct {
	messages []domain.Message
	err      error
}

func (f *fakeSource) GetMessagesInPeriod(_ context.Context, _ int64, _, _ time.Time) ([]domain.Message, error) {
	return f.messages, f.err
}

type fakeDeliverer struct {
	digests []domain.Digest
	err     error
}

func (f *fakeDeliverer) Deliver(_ context.Context, digest domain.Digest) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	f.digests = append(f.digests, digest)

	return "rendered digest", nil
}

type fakeAudit struct {
	saved []string
	err   error
}

func (f *fakeAudit) SaveDigest(_ context.Context, _ domain.Digest, rendered string) error {
	if f.err != nil {
		return f.err
	}

	f.saved = append(f.saved, rendered)

	return nil
}

func msg(channel, id int64, text string, postedAt time.Time) domain.Message {
	return domain.Message{ChannelID: channel, ExternalID: id, Text: text, PostedAt: postedAt}
}

func newPipeline(source MessageSource, deliverer Deliverer, audit AuditStore) *Pipeline {
	return New(
		source,
		dedup.New(nil, 0, nil),
		cluster.New(0, nil),
		trend.New(nil, nil),
		deliverer,
		audit,
		nil,
	)
}

func window() (time.Time, time.Time) {
	to := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	return to.Add(-24 * time.Hour), to
}

func TestRunEmptyWindowDeliversNothing(t *testing.T) {
	deliverer := &fakeDeliverer{}
	audit := &fakeAudit{}
	p := newPipeline(&fakeSource{}, deliverer, audit)

	from, to := window()

	if err := p.Run(context.Background(), 42, domain.PeriodDaily, from, to); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(deliverer.digests) != 0 {
		t.Error("empty window produced a delivery")
	}

	if len(audit.saved) != 0 {
		t.Error("empty window produced an audit record")
	}
}

func TestRunSourceError(t *testing.T) {
	sourceErr := errors.New("connection refused")
	p := newPipeline(&fakeSource{err: sourceErr}, &fakeDeliverer{}, &fakeAudit{})

	from, to := window()

	if err := p.Run(context.Background(), 42, domain.PeriodDaily, from, to); !errors.Is(err, sourceErr) {
		t.Errorf("Run error = %v, want wrapped source error", err)
	}
}

func TestRunDeliversDigest(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	source := &fakeSource{messages: []domain.Message{
		msg(1, 1, "bitcoin price rises today", base),
		msg(2, 1, "football team wins championship final", base),
	}}
	deliverer := &fakeDeliverer{}
	audit := &fakeAudit{}
	p := newPipeline(source, deliverer, audit)

	from, to := window()

	if err := p.Run(context.Background(), 42, domain.PeriodDaily, from, to); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(deliverer.digests) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(deliverer.digests))
	}

	digest := deliverer.digests[0]
	if digest.UserID != 42 || digest.Period != domain.PeriodDaily {
		t.Errorf("digest identity = user %d period %q", digest.UserID, digest.Period)
	}

	if len(digest.Clusters) != 2 {
		t.Errorf("clusters = %d, want 2", len(digest.Clusters))
	}

	if len(audit.saved) != 1 || audit.saved[0] != "rendered digest" {
		t.Errorf("audit = %v, want the rendered artifact", audit.saved)
	}
}

func TestRunTrendGating(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		msg(1, 1, "bitcoin price rises today", base),
		msg(2, 1, "football team wins championship final", base),
		msg(3, 1, "new smartphone model announced yesterday", base),
		msg(4, 1, "heavy rain expected across the region", base),
	}

	from, to := window()

	t.Run("daily with enough unique messages gets trend", func(t *testing.T) {
		deliverer := &fakeDeliverer{}
		p := newPipeline(&fakeSource{messages: messages}, deliverer, &fakeAudit{})

		if err := p.Run(context.Background(), 42, domain.PeriodDaily, from, to); err != nil {
			t.Fatal(err)
		}

		if deliverer.digests[0].Trend == nil {
			t.Error("daily digest over 4 unique messages should carry a trend record")
		}
	})

	t.Run("hourly never gets trend", func(t *testing.T) {
		deliverer := &fakeDeliverer{}
		p := newPipeline(&fakeSource{messages: messages}, deliverer, &fakeAudit{})

		if err := p.Run(context.Background(), 42, domain.PeriodHourly, from, to); err != nil {
			t.Fatal(err)
		}

		if deliverer.digests[0].Trend != nil {
			t.Error("hourly digest should not carry a trend record")
		}
	})

	t.Run("too few unique messages skips trend", func(t *testing.T) {
		deliverer := &fakeDeliverer{}
		p := newPipeline(&fakeSource{messages: messages[:2]}, deliverer, &fakeAudit{})

		if err := p.Run(context.Background(), 42, domain.PeriodDaily, from, to); err != nil {
			t.Fatal(err)
		}

		if deliverer.digests[0].Trend != nil {
			t.Error("trend should be skipped below the unique-message floor")
		}
	})
}

func TestRunDeliveryErrorReturned(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	source := &fakeSource{messages: []domain.Message{
		msg(1, 1, "bitcoin price rises today", base),
	}}
	deliveryErr := errors.New("telegram unavailable")
	audit := &fakeAudit{}
	p := newPipeline(source, &fakeDeliverer{err: deliveryErr}, audit)

	from, to := window()

	if err := p.Run(context.Background(), 42, domain.PeriodDaily, from, to); !errors.Is(err, deliveryErr) {
		t.Errorf("Run error = %v, want wrapped delivery error", err)
	}

	if len(audit.saved) != 0 {
		t.Error("failed delivery must not be audited")
	}
}

func TestRunAuditErrorIsNotFatal(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	source := &fakeSource{messages: []domain.Message{
		msg(1, 1, "bitcoin price rises today", base),
	}}
	p := newPipeline(source, &fakeDeliverer{}, &fakeAudit{err: errors.New("disk full")})

	from, to := window()

	if err := p.Run(context.Background(), 42, domain.PeriodDaily, from, to); err != nil {
		t.Errorf("audit failure should not fail the run, got %v", err)
	}
}
