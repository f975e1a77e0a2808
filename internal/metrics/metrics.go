// Package metrics holds the prometheus collectors of the sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediabridge"

var (
	FilesDownloaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_downloaded_total",
			Help:      "Files transferred to local storage",
		},
		[]string{"root"},
	)

	BytesDownloaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_downloaded_total",
			Help:      "Bytes transferred to local storage",
		},
		[]string{"root"},
	)

	FilesExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_excluded_total",
			Help:      "Files skipped by an exclude pattern",
		},
		[]string{"root"},
	)

	FoldersDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folders_deleted_total",
			Help:      "Remote folders drained and deleted",
		},
		[]string{"root"},
	)

	NodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_errors_total",
			Help:      "Remote nodes left unprocessed because of an error",
		},
		[]string{"root", "kind"}, // "folder", "file", "path"
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of one root sync",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"root", "result"}, // "ok", "error"
	)

	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Polling passes over all roots",
		},
		[]string{"result"}, // "ok", "partial", "aborted"
	)

	NotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Failed media server refresh requests",
		},
	)

	NotifierBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifier_breaker_state",
			Help:      "Notifier circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultPartial = "partial"
	ResultAborted = "aborted"
)
