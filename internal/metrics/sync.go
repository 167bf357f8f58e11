// Package metrics provides Prometheus metrics for the sync engine.
// Label cardinality is bounded: media types and action types are fixed sets,
// no per-item labels.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal counts completed actions by type and outcome.
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nfosync_actions_total",
		Help: "Total number of completed actions, by action type and outcome.",
	}, []string{"type", "outcome"})

	// ExportsTotal counts sidecar exports by media type and outcome.
	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nfosync_exports_total",
		Help: "Total number of sidecar exports, by media type and outcome.",
	}, []string{"media_type", "outcome"})

	// ImportsTotal counts refresh requests issued to the host by media type.
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nfosync_imports_total",
		Help: "Total number of library refreshes requested, by media type.",
	}, []string{"media_type"})

	// RequestsTotal counts host RPC requests by outcome.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nfosync_host_requests_total",
		Help: "Total number of JSON-RPC requests to the host, by outcome.",
	}, []string{"outcome"})

	// QueueDepth tracks the number of queued actions per lane.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nfosync_queue_depth",
		Help: "Current number of queued actions, by lane (urgent/patient).",
	}, []string{"lane"})

	// SyncRunning is 1 while a bulk sync is the active action.
	SyncRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nfosync_sync_running",
		Help: "Whether a bulk sync is currently active (0 or 1).",
	})

	// LastSyncTimestamp is the watermark of the most recent completed sync.
	LastSyncTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nfosync_last_sync_timestamp_seconds",
		Help: "Unix timestamp of the last completed library sync.",
	})
)
