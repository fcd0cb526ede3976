// Package metrics exposes the runtime's Prometheus collectors. Grounded on
// EdgeComet-engine/internal/edge/metrics/prometheus_metrics.go, adapted from
// a per-instance collector struct to package-level collectors registered
// once against prometheus.DefaultRegisterer — this runtime has exactly one
// scheduler/session manager per process, unlike the teacher's multi-tenant
// render service, so there is nothing for a per-instance struct to
// parameterize.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pageruntime"

var (
	// SchedulerQueueDepth reports the number of pending tasks per
	// priority band ("high", "low").
	SchedulerQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Number of pending tasks in the scheduler, by priority band.",
		},
		[]string{"priority"},
	)

	// ScriptsExecutedTotal counts scripts run to completion, partitioned
	// by how they were queued.
	ScriptsExecutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scriptmgr",
			Name:      "scripts_executed_total",
			Help:      "Total scripts executed, by ordering class.",
		},
		[]string{"class"}, // normal, defer, async, module, inline
	)

	// ScriptFetchDuration times external script fetches.
	ScriptFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scriptmgr",
			Name:      "fetch_duration_seconds",
			Help:      "Time to fetch an external script body.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"class"},
	)

	// EventsDispatchedTotal counts dispatched DOM events by type.
	EventsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "domevent",
			Name:      "dispatched_total",
			Help:      "Total DOM events dispatched, by event type.",
		},
		[]string{"type"},
	)

	// ActivePages reports the number of live pages across all sessions.
	ActivePages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active_pages",
			Help:      "Number of pages currently attached to a session.",
		},
	)

	// NavigationsTotal counts navigations by outcome.
	NavigationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "navigations_total",
			Help:      "Total navigations, by outcome.",
		},
		[]string{"outcome"}, // committed, queued, aborted
	)

	// FetchRequestsTotal counts outgoing HTTP requests by method and
	// final status class.
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "httpfetch",
			Name:      "requests_total",
			Help:      "Total outgoing requests, by method and status class.",
		},
		[]string{"method", "status_class"},
	)

	// FactoryLiveAllocations reports the number of live node slabs.
	FactoryLiveAllocations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "factory",
			Name:      "live_allocations",
			Help:      "Number of currently-live element slab allocations.",
		},
	)
)
