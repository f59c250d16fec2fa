package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes recorded by FeedMetrics.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeDropped   = "dropped"   // a load arrived while one was in flight
	OutcomeDiscarded = "discarded" // a completed response lost the token race
)

// FeedMetrics instruments the snapshot feeds: one set shared by every
// resource, labeled by resource name.
type FeedMetrics struct {
	FetchesTotal  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	SnapshotSize  *prometheus.GaugeVec
	SnapshotAge   *prometheus.GaugeVec
}

// NewFeedMetrics creates and registers feed metrics with reg.
func NewFeedMetrics(namespace string, reg prometheus.Registerer) *FeedMetrics {
	m := &FeedMetrics{
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "fetches_total",
				Help:      "Total number of snapshot fetch attempts",
			},
			[]string{"resource", "outcome"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of snapshot fetches",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"resource"},
		),
		SnapshotSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "snapshot_items",
				Help:      "Item count of the current snapshot",
			},
			[]string{"resource"},
		),
		SnapshotAge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "snapshot_age_seconds",
				Help:      "Seconds since the current snapshot was applied",
			},
			[]string{"resource"},
		),
	}

	reg.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.SnapshotSize,
		m.SnapshotAge,
	)

	return m
}
