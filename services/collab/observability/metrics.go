// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the collab
// service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring collaborative
// editing sessions. Metrics include:
//   - Session and participant gauges
//   - Operation counters (by type and accept/reject status)
//   - Chat, checkpoint, and event fan-out counters
//   - WebSocket connection gauges
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for collab metrics
const collabSubsystem = "collab"

// CollabMetrics holds all Prometheus metrics for collaborative sessions.
//
// # Description
//
// Provides counters and gauges for monitoring session activity and resource
// usage. Initialize once at startup via InitMetrics(), or construct an
// isolated instance with NewCollabMetrics for tests.
//
// # Fields
//
//   - SessionsActive: Gauge of sessions currently registered and not ended
//   - ParticipantsActive: Gauge of participants across all live sessions
//   - OperationsTotal: Counter of document operations by type and status
//   - ChatMessagesTotal: Counter of chat messages accepted
//   - CheckpointsTotal: Counter of checkpoint actions (create, restore)
//   - EventsPublishedTotal: Counter of events delivered to subscribers
//   - EventsDroppedTotal: Counter of events dropped for slow subscribers
//   - WSConnectionsActive: Gauge of open WebSocket connections
//   - SessionsArchivedTotal: Counter of ended sessions written to the archive
//
// # Thread Safety
//
// All operations are thread-safe.
type CollabMetrics struct {
	// SessionsActive tracks sessions registered and not yet ended.
	SessionsActive prometheus.Gauge

	// ParticipantsActive tracks participants across all live sessions.
	ParticipantsActive prometheus.Gauge

	// OperationsTotal counts document operations.
	// Labels: type (insert, delete, replace), status (applied, rejected)
	OperationsTotal *prometheus.CounterVec

	// ChatMessagesTotal counts chat messages accepted into session history.
	ChatMessagesTotal prometheus.Counter

	// CheckpointsTotal counts checkpoint actions.
	// Labels: action (create, restore)
	CheckpointsTotal *prometheus.CounterVec

	// EventsPublishedTotal counts events delivered to subscriber channels.
	// Labels: kind (operationApplied, chatMessage, etc.)
	EventsPublishedTotal *prometheus.CounterVec

	// EventsDroppedTotal counts events dropped because a subscriber's
	// buffer was full.
	EventsDroppedTotal prometheus.Counter

	// WSConnectionsActive tracks currently open WebSocket connections.
	WSConnectionsActive prometheus.Gauge

	// SessionsArchivedTotal counts ended sessions persisted by the reaper.
	SessionsArchivedTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of CollabMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *CollabMetrics

var initOnce sync.Once

// InitMetrics initializes the default metrics instance on the default
// Prometheus registry.
//
// # Description
//
// Creates and registers all Prometheus metrics. Safe to call more than
// once; registration happens exactly once.
//
// # Outputs
//
//   - *CollabMetrics: The initialized metrics instance.
func InitMetrics() *CollabMetrics {
	initOnce.Do(func() {
		DefaultMetrics = NewCollabMetrics(prometheus.DefaultRegisterer)
	})
	return DefaultMetrics
}

// NewCollabMetrics creates and registers a metrics instance on the given
// registerer. Tests pass a fresh prometheus.NewRegistry() to stay isolated
// from the default registry.
func NewCollabMetrics(reg prometheus.Registerer) *CollabMetrics {
	factory := promauto.With(reg)
	return &CollabMetrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: collabSubsystem,
			Name:      "sessions_active",
			Help:      "Number of sessions currently registered and not ended",
		}),

		ParticipantsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: collabSubsystem,
			Name:      "participants_active",
			Help:      "Number of participants across all live sessions",
		}),

		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: collabSubsystem,
				Name:      "operations_total",
				Help:      "Total document operations by type and status",
			},
			[]string{"type", "status"},
		),

		ChatMessagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: collabSubsystem,
			Name:      "chat_messages_total",
			Help:      "Total chat messages accepted into session history",
		}),

		CheckpointsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: collabSubsystem,
				Name:      "checkpoints_total",
				Help:      "Total checkpoint actions by kind",
			},
			[]string{"action"},
		),

		EventsPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: collabSubsystem,
				Name:      "events_published_total",
				Help:      "Total events delivered to subscriber channels",
			},
			[]string{"kind"},
		),

		EventsDroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: collabSubsystem,
			Name:      "events_dropped_total",
			Help:      "Total events dropped for slow subscribers",
		}),

		WSConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: collabSubsystem,
			Name:      "ws_connections_active",
			Help:      "Number of currently open WebSocket connections",
		}),

		SessionsArchivedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: collabSubsystem,
			Name:      "sessions_archived_total",
			Help:      "Total ended sessions persisted to the archive",
		}),
	}
}
