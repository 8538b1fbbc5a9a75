package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "officesearch_ingest_runs_total",
		Help: "Ingestion runs by kind and outcome",
	}, []string{"kind", "outcome"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "officesearch_ingest_run_duration_seconds",
		Help:    "Ingestion run duration",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"kind"})

	rowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "officesearch_ingest_rows_dropped_total",
		Help: "Rows dropped or repaired as soft data-quality issues",
	}, []string{"source", "reason"})

	recordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "officesearch_ingest_records_written_total",
		Help: "Records written by ingestion, by entity",
	}, []string{"entity"})
)

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
