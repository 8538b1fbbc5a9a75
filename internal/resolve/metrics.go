package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "officesearch_resolutions_total",
		Help: "Location resolutions by match type",
	}, []string{"match_type"})

	resolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "officesearch_resolution_duration_seconds",
		Help:    "Location resolution latency by match type",
		Buckets: prometheus.DefBuckets,
	}, []string{"match_type"})
)
