// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ttl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianCollab/pkg/extensions"
	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
	"github.com/AleutianAI/AleutianCollab/services/collab/observability"
)

// =============================================================================
// Interfaces
// =============================================================================

// Registry is the hub surface the reaper sweeps. Implemented by hub.Hub.
type Registry interface {
	// EndedSessions returns snapshots of every session in the terminal
	// ended state.
	EndedSessions() []*datatypes.Session

	// Evict removes an ended session from the registry. Returns false if
	// the session no longer exists or is not ended.
	Evict(sessionID string) bool
}

// Archiver persists ended sessions. Implemented by archive.Store.
type Archiver interface {
	ArchiveSession(ctx context.Context, session *datatypes.Session) error
}

// =============================================================================
// Configuration
// =============================================================================

// ReaperConfig holds configuration for the background session reaper.
//
// # Fields
//
//   - Interval: How often to run sweep cycles. Default: 1 minute.
//   - BatchSize: Maximum sessions to archive per cycle. Default: 100.
type ReaperConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultReaperConfig returns sensible default reaper configuration.
//
//	config := DefaultReaperConfig()
//	config.Interval = 30 * time.Second // Override just the interval
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		Interval:  1 * time.Minute,
		BatchSize: 100,
	}
}

// =============================================================================
// Sweep Result
// =============================================================================

// SweepError records one session that failed to archive during a sweep.
// The session stays registered and is retried on the next cycle.
type SweepError struct {
	SessionID string
	Err       error
}

// SweepResult summarizes one reaper cycle.
type SweepResult struct {
	StartTime time.Time
	EndTime   time.Time

	// Found is the number of ended sessions observed.
	Found int

	// Archived is the number successfully written to storage.
	Archived int

	// Evicted is the number removed from hub memory.
	Evicted int

	Errors []SweepError
}

// DurationMs returns the sweep duration in milliseconds.
func (r SweepResult) DurationMs() int64 {
	return r.EndTime.Sub(r.StartTime).Milliseconds()
}

// =============================================================================
// Reaper
// =============================================================================

// Reaper periodically archives and evicts ended sessions.
//
// # Description
//
// Manages the lifecycle of a background goroutine that sweeps the hub at
// a fixed interval. Uses the ticker + done channel pattern for graceful
// shutdown. Archive failures are per-session: a failed session is left
// in the hub for the next cycle, successful ones are evicted.
//
// # Thread Safety
//
// All public methods are thread-safe. The reaper uses a mutex to protect
// state transitions.
type Reaper struct {
	registry Registry
	archiver Archiver
	clock    ClockChecker
	audit    extensions.AuditLogger
	metrics  *observability.CollabMetrics
	config   ReaperConfig

	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// ReaperOption configures a Reaper at construction time.
type ReaperOption func(*Reaper)

// WithClockChecker replaces the default clock sanity checker.
func WithClockChecker(c ClockChecker) ReaperOption {
	return func(r *Reaper) { r.clock = c }
}

// WithAuditLogger wires compliance audit logging into the reaper.
func WithAuditLogger(l extensions.AuditLogger) ReaperOption {
	return func(r *Reaper) { r.audit = l }
}

// WithMetrics wires prometheus metrics into the reaper.
func WithMetrics(m *observability.CollabMetrics) ReaperOption {
	return func(r *Reaper) { r.metrics = m }
}

// NewReaper creates a session reaper. It is not started until Start().
//
// # Inputs
//
//   - registry: Hub surface to sweep. Must not be nil.
//   - archiver: Destination store for ended sessions. Must not be nil.
//   - config: Reaper configuration; zero fields fall back to defaults.
func NewReaper(registry Registry, archiver Archiver, config ReaperConfig, opts ...ReaperOption) *Reaper {
	if config.Interval <= 0 {
		config.Interval = DefaultReaperConfig().Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultReaperConfig().BatchSize
	}
	r := &Reaper{
		registry: registry,
		archiver: archiver,
		clock:    NewClockChecker(),
		audit:    &extensions.NopAuditLogger{},
		config:   config,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins the background sweep loop.
//
// The reaper runs until Stop() is called or the context is cancelled.
// Returns an error if already running.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reaper is already running")
	}
	r.running = true
	r.done = make(chan struct{})
	r.mu.Unlock()

	slog.Info("collab.ttl: session reaper starting",
		"interval", r.config.Interval.String(),
		"batch_size", r.config.BatchSize,
	)

	go r.runLoop(ctx)
	return nil
}

// Stop gracefully stops the reaper. Safe to call multiple times. Does
// not interrupt an in-progress sweep.
func (r *Reaper) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}

	slog.Info("collab.ttl: session reaper stopping")
	close(r.done)
	r.running = false
	return nil
}

// RunNow triggers an immediate sweep cycle without waiting for the next
// scheduled interval. Useful for manual invocation or testing.
func (r *Reaper) RunNow(ctx context.Context) (SweepResult, error) {
	return r.sweep(ctx)
}

// =============================================================================
// Internal Methods
// =============================================================================

// runLoop is the main reaper goroutine.
func (r *Reaper) runLoop(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	// Run an initial sweep immediately on start
	r.executeSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("collab.ttl: session reaper stopped (context cancelled)")
			return
		case <-r.done:
			slog.Info("collab.ttl: session reaper stopped (stop requested)")
			return
		case <-ticker.C:
			r.executeSweep(ctx)
		}
	}
}

// executeSweep runs a single sweep with error handling so a failing
// cycle never crashes the loop.
func (r *Reaper) executeSweep(ctx context.Context) {
	result, err := r.sweep(ctx)
	if err != nil {
		slog.Error("collab.ttl: sweep failed", "error", err)
		return
	}

	if result.Found > 0 {
		slog.Info("collab.ttl: sweep completed",
			"found", result.Found,
			"archived", result.Archived,
			"evicted", result.Evicted,
			"errors", len(result.Errors),
			"duration_ms", result.DurationMs(),
		)
	} else {
		slog.Debug("collab.ttl: sweep completed (no ended sessions)")
	}
}

// sweep archives up to BatchSize ended sessions and evicts the ones
// that were durably stored.
func (r *Reaper) sweep(ctx context.Context) (SweepResult, error) {
	result := SweepResult{
		StartTime: time.Now(),
		Errors:    make([]SweepError, 0),
	}

	if err := r.clock.CheckClockSanity(); err != nil {
		result.EndTime = time.Now()
		return result, fmt.Errorf("sweep skipped: %w", err)
	}

	ended := r.registry.EndedSessions()
	result.Found = len(ended)
	if len(ended) > r.config.BatchSize {
		ended = ended[:r.config.BatchSize]
	}

	for _, session := range ended {
		if err := ctx.Err(); err != nil {
			result.EndTime = time.Now()
			return result, fmt.Errorf("sweep interrupted: %w", err)
		}

		if err := r.archiver.ArchiveSession(ctx, session); err != nil {
			slog.Warn("collab.ttl: archive failed, will retry next sweep",
				"session_id", session.ID, "error", err)
			result.Errors = append(result.Errors, SweepError{SessionID: session.ID, Err: err})
			continue
		}
		result.Archived++
		if r.metrics != nil {
			r.metrics.SessionsArchivedTotal.Inc()
		}
		_ = r.audit.Log(ctx, extensions.AuditEvent{
			EventType:    "session.archive",
			UserID:       datatypes.SystemUserID,
			ResourceType: "session",
			ResourceID:   session.ID,
			Outcome:      "success",
			Metadata: map[string]any{
				"participants": len(session.Participants),
				"version":      session.Document.Version,
			},
		})

		if r.registry.Evict(session.ID) {
			result.Evicted++
		}
	}

	result.EndTime = time.Now()
	return result, nil
}
