// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollabMetricsRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCollabMetrics(reg)

	m.SessionsActive.Add(2)
	m.SessionsActive.Add(-1)
	m.ParticipantsActive.Add(3)
	m.OperationsTotal.WithLabelValues("insert", "applied").Inc()
	m.OperationsTotal.WithLabelValues("insert", "applied").Inc()
	m.OperationsTotal.WithLabelValues("delete", "rejected").Inc()
	m.ChatMessagesTotal.Inc()
	m.CheckpointsTotal.WithLabelValues("create").Inc()
	m.EventsPublishedTotal.WithLabelValues("chatMessage").Inc()
	m.EventsDroppedTotal.Inc()
	m.WSConnectionsActive.Inc()
	m.SessionsArchivedTotal.Inc()

	if got := testutil.ToFloat64(m.SessionsActive); got != 1 {
		t.Errorf("SessionsActive = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ParticipantsActive); got != 3 {
		t.Errorf("ParticipantsActive = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("insert", "applied")); got != 2 {
		t.Errorf("OperationsTotal{insert,applied} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("delete", "rejected")); got != 1 {
		t.Errorf("OperationsTotal{delete,rejected} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CheckpointsTotal.WithLabelValues("create")); got != 1 {
		t.Errorf("CheckpointsTotal{create} = %v, want 1", got)
	}
}

func TestNewCollabMetricsIsolatedRegistries(t *testing.T) {
	// Two instances on separate registries must not collide.
	a := NewCollabMetrics(prometheus.NewRegistry())
	b := NewCollabMetrics(prometheus.NewRegistry())

	a.ChatMessagesTotal.Inc()
	if got := testutil.ToFloat64(b.ChatMessagesTotal); got != 0 {
		t.Errorf("second instance ChatMessagesTotal = %v, want 0", got)
	}
}

func TestInitMetricsIdempotent(t *testing.T) {
	first := InitMetrics()
	second := InitMetrics()
	if first == nil || first != second {
		t.Errorf("InitMetrics() returned distinct instances: %p vs %p", first, second)
	}
}
