// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	// HTTPRequestsTotal counts requests by method, route pattern and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transferencias_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks handler latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transferencias_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)
)

// Record Metrics
var (
	// TransfersRegistered counts records written through the API
	TransfersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transferencias_registered_total",
			Help: "Transfer records registered",
		},
	)

	// TransfersDeleted counts records removed through the API
	TransfersDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transferencias_deleted_total",
			Help: "Transfer records deleted",
		},
	)

	// TransferRejections counts registrations refused by validation
	TransferRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transferencias_rejected_total",
			Help: "Transfer registrations rejected by validation",
		},
	)

	// StoreErrors counts storage failures by operation (save/list/delete)
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transferencias_store_errors_total",
			Help: "Record store failures by operation",
		},
		[]string{"operation"},
	)

	// StoredTransfers is the record count seen by the most recent listing
	StoredTransfers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transferencias_stored",
			Help: "Transfer records found by the most recent listing",
		},
	)

	// DirectoryChanges counts watcher events in the data directory by op (added/removed)
	DirectoryChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transferencias_directory_changes_total",
			Help: "Record files added or removed in the data directory",
		},
		[]string{"op"},
	)
)
