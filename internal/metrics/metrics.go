package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Searches        prometheus.Counter
	SearchResults   prometheus.Histogram
	Normalizations  *prometheus.CounterVec
	PositionSamples prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Searches: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "floorguide_searches_total",
			Help: "Total number of location searches.",
		}),
		SearchResults: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "floorguide_search_results",
			Help:    "Number of entries returned by a location search.",
			Buckets: prometheus.LinearBuckets(0, 2, 6),
		}),
		Normalizations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "floorguide_normalizations_total",
			Help: "Total number of geographic points converted to floor positions.",
		}, []string{"floor", "status"}),
		PositionSamples: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "floorguide_position_samples_total",
			Help: "Total number of position samples received from the feed.",
		}),
		ActiveSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "floorguide_active_sessions",
			Help: "Current number of live wayfinding sessions.",
		}),
	}
}
