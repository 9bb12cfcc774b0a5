package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SchedulerFirings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_scheduler_firings_total",
		Help: "The total number of scheduler job firings by period and outcome",
	}, []string{"period", "status"})

	ActiveSchedules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "digest_active_schedules",
		Help: "Number of live schedule triggers",
	})

	PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "digest_pipeline_stage_duration_seconds",
		Help:    "Duration of pipeline stages (dedup, cluster, trend)",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"stage"})

	PipelineMessages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "digest_pipeline_window_messages",
		Help:    "Number of messages fetched per pipeline window",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	DigestsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_deliveries_total",
		Help: "The total number of digest deliveries by period and status",
	}, []string{"period", "status"})

	KeywordAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_keyword_alerts_total",
		Help: "The total number of keyword rule alerts sent",
	})
)

// Firing outcome labels.
const (
	FiringCompleted  = "completed"
	FiringFailed     = "failed"
	FiringSkipped    = "skipped"
	FiringQuietHours = "quiet_hours"
)
