// Package metrics exposes Prometheus instrumentation for the ingestion
// engine. Collectors are registered on the default registry and served from
// the web layer's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsProcessed counts data rows handed to the reconciler, per file type.
	RowsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "revlog",
		Subsystem: "ingest",
		Name:      "rows_processed_total",
		Help:      "Data rows processed, by file type.",
	}, []string{"file_type"})

	// RowsDefaulted counts data-quality warnings: cells that were
	// unparsable and defaulted during row parsing.
	RowsDefaulted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "revlog",
		Subsystem: "ingest",
		Name:      "cells_defaulted_total",
		Help:      "Unparsable cells defaulted during parsing, by file type.",
	}, []string{"file_type"})

	// FilesIngested counts completed ingestions by outcome.
	FilesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "revlog",
		Subsystem: "ingest",
		Name:      "files_total",
		Help:      "Completed file ingestions, by file type and outcome.",
	}, []string{"file_type", "outcome"})

	// EventsAppended counts lifecycle events appended by the reconciler.
	EventsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "revlog",
		Subsystem: "reconcile",
		Name:      "events_appended_total",
		Help:      "Lifecycle events appended.",
	})

	// ActiveIngestions tracks ingestions currently running.
	ActiveIngestions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "revlog",
		Subsystem: "ingest",
		Name:      "active",
		Help:      "Ingestions currently in flight.",
	})

	// IngestDuration observes wall time per completed ingestion.
	IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "revlog",
		Subsystem: "ingest",
		Name:      "duration_seconds",
		Help:      "Ingestion duration by file type.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"file_type"})
)
