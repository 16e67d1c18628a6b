package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is the project's dedicated metrics registry, served by the hub's
// /metrics endpoint.
var Registry = prometheus.NewRegistry()

var (
	// ResolutionsTotal counts firmware resolutions by outcome.
	// outcome: resolved, up_to_date, error.
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notecard_firmware_resolutions_total",
			Help: "Total number of firmware resolutions by outcome.",
		},
		[]string{"outcome", "channel"},
	)

	// ListingFetchDuration observes how long a bucket listing fetch takes.
	ListingFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notecard_firmware_listing_fetch_duration_seconds",
			Help:    "Latency of bucket listing fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ActiveSessions gauges update sessions currently tracked by the hub.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notecard_firmware_active_update_sessions",
			Help: "Number of device update sessions currently tracked.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ResolutionsTotal,
		ListingFetchDuration,
		ActiveSessions,
	)
}

// ResolutionOutcome records one resolution outcome for a channel.
func ResolutionOutcome(outcome, channel string) {
	ResolutionsTotal.WithLabelValues(outcome, channel).Inc()
}
