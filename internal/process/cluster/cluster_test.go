package cluster

import (
	"testing"
	"time"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

func msg(channel int64, username string, id int64, text string, postedAt time.Time) domain.Message {
	return domain.Message{
		ChannelID:       channel,
		ChannelUsername: username,
		ExternalID:      id,
		Text:            text,
		PostedAt:        postedAt,
	}
}

func TestClusterEmptyInput(t *testing.T) {
	if got := New(0, nil).Cluster(nil); got != nil {
		t.Errorf("Cluster(nil) = %v, want nil", got)
	}
}

func TestClusterSingleMessage(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clusters := New(0, nil).Cluster([]domain.Message{
		msg(1, "news", 1, "bitcoin price rises today", base),
	})

	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}

	if clusters[0].Size != 1 {
		t.Errorf("Size = %d, want 1", clusters[0].Size)
	}

	if len(clusters[0].Channels) != 1 || clusters[0].Channels[0] != "news" {
		t.Errorf("Channels = %v, want [news]", clusters[0].Channels)
	}
}

func TestClusterGroupsRelatedTexts(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		msg(1, "alpha", 1, "bitcoin price rises today", base),
		msg(2, "beta", 1, "bitcoin price rises today again", base.Add(time.Minute)),
		msg(3, "gamma", 1, "football team wins championship final", base),
	}

	clusters := New(0, nil).Cluster(messages)

	if len(clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(clusters))
	}

	// Sorted by descending size: the bitcoin pair first.
	if clusters[0].Size != 2 || clusters[1].Size != 1 {
		t.Fatalf("sizes = %d, %d, want 2, 1", clusters[0].Size, clusters[1].Size)
	}

	// Representative prefers the longer, newer text.
	if clusters[0].Representative.ChannelID != 2 {
		t.Errorf("representative channel = %d, want 2", clusters[0].Representative.ChannelID)
	}

	wantChannels := []string{"alpha", "beta"}
	for i, ch := range clusters[0].Channels {
		if ch != wantChannels[i] {
			t.Errorf("Channels = %v, want %v", clusters[0].Channels, wantChannels)

			break
		}
	}
}

func TestClusterPartition(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		msg(1, "a", 1, "bitcoin price rises today", base),
		msg(2, "b", 1, "bitcoin price rises today again", base),
		msg(3, "c", 1, "football team wins championship final", base),
		msg(4, "d", 1, "new smartphone model announced yesterday", base),
	}

	clusters := New(0, nil).Cluster(messages)

	total := 0
	for _, c := range clusters {
		total += c.Size

		if c.Size != len(c.Members) {
			t.Errorf("Size %d does not match Members %d", c.Size, len(c.Members))
		}
	}

	if total != len(messages) {
		t.Errorf("partition lost messages: total = %d, want %d", total, len(messages))
	}
}

func TestClusterThresholdMonotonic(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		msg(1, "a", 1, "bitcoin price rises today", base),
		msg(2, "b", 1, "bitcoin price rises today again", base),
	}

	loose := New(0.62, nil).Cluster(messages)
	strict := New(0.9, nil).Cluster(messages)

	if len(loose) != 1 {
		t.Errorf("loose threshold: clusters = %d, want 1", len(loose))
	}

	if len(strict) != 2 {
		t.Errorf("strict threshold: clusters = %d, want 2", len(strict))
	}
}

func TestClusterAllStopwordTextsFallBackToSingleCluster(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		msg(1, "a", 1, "the and for", base),
		msg(2, "b", 1, "was were been", base),
	}

	clusters := New(0, nil).Cluster(messages)

	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1 (whole-input fallback)", len(clusters))
	}

	if clusters[0].Size != 2 {
		t.Errorf("fallback cluster size = %d, want 2", clusters[0].Size)
	}
}

func TestClusterEmptyNormalizedTextBecomesSingleton(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		msg(1, "a", 1, "bitcoin price rises today", base),
		msg(2, "b", 1, "bitcoin price rises today again", base),
		msg(3, "c", 1, "👍", base),
	}

	clusters := New(0, nil).Cluster(messages)

	if len(clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(clusters))
	}

	var singleton *domain.Cluster

	for i := range clusters {
		if clusters[i].Size == 1 {
			singleton = &clusters[i]
		}
	}

	if singleton == nil || singleton.Representative.ChannelID != 3 {
		t.Errorf("emoji-only message should form its own singleton cluster, got %+v", clusters)
	}
}

func TestVectorizeEmptyDocs(t *testing.T) {
	if _, err := vectorize(nil); err == nil {
		t.Error("vectorize(nil) should return ErrEmptyVocabulary")
	}
}

func TestDensityLabelsConnectedComponents(t *testing.T) {
	// 0-1 close, 2 far from both: two components.
	dist := [][]float64{
		{0, 0.1, 0.9},
		{0.1, 0, 0.9},
		{0.9, 0.9, 0},
	}

	labels := densityLabels(dist, 0.38)

	if labels[0] != labels[1] {
		t.Errorf("close points got different labels: %v", labels)
	}

	if labels[2] == labels[0] {
		t.Errorf("far point shares a label: %v", labels)
	}
}
