// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hub implements the real-time collaboration core: a registry of
// editing sessions, membership management, the operation engine that
// mutates document content, checkpoints, chat, and typed event fan-out.
//
// # Concurrency Model
//
// Each session owns one exclusive lock; every public hub method acquires
// it for the full duration of the call, including content mutation, so
// operations on one session are strictly serialized and the document
// version advances by exactly 1 per accepted mutation. Operations on
// different sessions proceed in parallel. The registry and the
// participant index are guarded by a separate hub-level RWMutex.
//
// No method blocks on I/O; everything is in-memory computation and
// returns synchronously. Events are published after the mutation commits
// and are delivered on buffered per-subscriber channels; a full channel
// drops the event rather than blocking the hub.
//
// Publication happens after the session lock is released, so events from
// two calls racing on the same session may arrive in either order.
// Events that describe document state carry the post-mutation Version;
// subscribers order by it, and resynchronize from a snapshot when they
// detect a gap. Events from calls that do not overlap arrive in call
// order.
//
// # Conflict Resolution
//
// There is none: operations splice content at their literal line/column
// position under the session lock. Two edits computed against the same
// base version apply in arrival order without transformation, which can
// diverge from user intent under concurrency. Replacing the content
// string with a CRDT text type is the known follow-up if true concurrent
// multi-cursor editing is ever required.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
	"github.com/AleutianAI/AleutianCollab/services/collab/observability"
)

// =============================================================================
// Hub
// =============================================================================

// liveSession pairs session state with its exclusive lock. The lock is
// the unit of mutual exclusion for everything the session owns: document,
// roster, cursors, and chat.
type liveSession struct {
	mu   sync.Mutex
	data *datatypes.Session
}

// Hub owns the session registry and dispatches all public operations.
//
// Construct one Hub per process with New and inject it into the transport
// adapter; tests construct isolated instances. There is deliberately no
// package-level singleton.
type Hub struct {
	metrics *observability.CollabMetrics

	mu            sync.RWMutex
	sessions      map[string]*liveSession
	byParticipant map[string]string
	subs          map[string]map[int]chan Event
	nextSub       int
}

// Option configures a Hub at construction time.
type Option func(*Hub)

// WithMetrics wires prometheus metrics into the hub. Without this option
// the hub records nothing, which keeps unit tests registry-free.
func WithMetrics(m *observability.CollabMetrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// New creates an empty hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		sessions:      make(map[string]*liveSession),
		byParticipant: make(map[string]string),
		subs:          make(map[string]map[int]chan Event),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// =============================================================================
// Session Lifecycle
// =============================================================================

// CreateSessionParams carries everything needed to open a session. The
// host identity arrives already authenticated from the transport layer.
type CreateSessionParams struct {
	Name         string
	HostID       string
	HostName     string
	DocumentPath string
	Content      string
	Language     string
	Settings     *datatypes.SessionSettings
}

// CreateSession opens a new session with the host as its first
// participant and a version-1 document carrying its initial checkpoint.
// It always succeeds.
func (h *Hub) CreateSession(ctx context.Context, params CreateSessionParams) (*datatypes.Session, error) {
	settings := datatypes.DefaultSettings()
	if params.Settings != nil {
		settings = *params.Settings
	}

	host := datatypes.NewParticipant(params.HostID, params.HostName, datatypes.RoleHost, 0)
	doc := datatypes.NewDocument(params.DocumentPath, params.Content, params.Language, params.HostID)
	session := datatypes.NewSession(params.Name, host, doc, settings)

	h.mu.Lock()
	h.sessions[session.ID] = &liveSession{data: session}
	h.byParticipant[params.HostID] = session.ID
	h.mu.Unlock()

	slog.Info("collab.hub: session created",
		"session_id", session.ID,
		"host_id", params.HostID,
		"document_path", params.DocumentPath,
	)
	h.gaugeSessions(1)
	h.gaugeParticipants(1)

	snapshot := session.Clone()
	h.publish(session.ID, SessionCreatedEvent{SessionID: session.ID, Session: snapshot})
	return snapshot, nil
}

// EndSession transitions the session to its terminal ended state and
// clears the participant index for all members. The roster, document,
// and chat are retained for archiving until the reaper evicts them.
func (h *Hub) EndSession(ctx context.Context, sessionID string) error {
	ls, err := h.live(sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	s := ls.data
	if s.Status == datatypes.SessionEnded {
		ls.mu.Unlock()
		return fmt.Errorf("end session %s: %w", sessionID, ErrSessionNotActive)
	}
	s.Status = datatypes.SessionEnded
	members := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		members = append(members, p.ID)
	}
	ls.mu.Unlock()

	h.mu.Lock()
	for _, id := range members {
		if h.byParticipant[id] == sessionID {
			delete(h.byParticipant, id)
		}
	}
	h.mu.Unlock()

	slog.Info("collab.hub: session ended", "session_id", sessionID, "participants", len(members))
	h.gaugeSessions(-1)
	h.gaugeParticipants(-len(members))
	h.publish(sessionID, SessionEndedEvent{SessionID: sessionID})
	return nil
}

// SetSessionStatus pauses or resumes a session. Only the current host may
// call it; ended sessions reject the transition.
func (h *Hub) SetSessionStatus(ctx context.Context, sessionID, callerID string, status datatypes.SessionStatus) error {
	if status != datatypes.SessionActive && status != datatypes.SessionPaused {
		return fmt.Errorf("set status %q: %w", status, ErrForbidden)
	}
	ls, err := h.live(sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	s := ls.data
	if s.Status == datatypes.SessionEnded {
		ls.mu.Unlock()
		return fmt.Errorf("set status on session %s: %w", sessionID, ErrSessionNotActive)
	}
	if s.HostID != callerID {
		ls.mu.Unlock()
		return fmt.Errorf("set status by non-host %s: %w", callerID, ErrForbidden)
	}
	changed := s.Status != status
	s.Status = status
	ls.mu.Unlock()

	if changed {
		slog.Info("collab.hub: session status changed", "session_id", sessionID, "status", status)
		h.publish(sessionID, SessionStatusChangedEvent{SessionID: sessionID, Status: status})
	}
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// GetSession returns a deep copy of the session state.
func (h *Hub) GetSession(sessionID string) (*datatypes.Session, error) {
	ls, err := h.live(sessionID)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.data.Clone(), nil
}

// ListSessions returns deep copies of every registered session.
func (h *Hub) ListSessions() []*datatypes.Session {
	h.mu.RLock()
	live := make([]*liveSession, 0, len(h.sessions))
	for _, ls := range h.sessions {
		live = append(live, ls)
	}
	h.mu.RUnlock()

	out := make([]*datatypes.Session, 0, len(live))
	for _, ls := range live {
		ls.mu.Lock()
		out = append(out, ls.data.Clone())
		ls.mu.Unlock()
	}
	return out
}

// SessionForParticipant returns the session id a participant currently
// belongs to.
func (h *Hub) SessionForParticipant(userID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.byParticipant[userID]
	return id, ok
}

// EndedSessions returns deep copies of every session in the terminal
// ended state, for the reaper to archive.
func (h *Hub) EndedSessions() []*datatypes.Session {
	out := make([]*datatypes.Session, 0)
	for _, s := range h.ListSessions() {
		if s.Status == datatypes.SessionEnded {
			out = append(out, s)
		}
	}
	return out
}

// Evict removes an ended session from the registry and closes its event
// subscriptions. Returns false if the session does not exist or has not
// ended.
func (h *Hub) Evict(sessionID string) bool {
	h.mu.Lock()
	ls, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	ls.mu.Lock()
	ended := ls.data.Status == datatypes.SessionEnded
	ls.mu.Unlock()
	if !ended {
		h.mu.Unlock()
		return false
	}
	delete(h.sessions, sessionID)
	for id, ch := range h.subs[sessionID] {
		close(ch)
		delete(h.subs[sessionID], id)
	}
	delete(h.subs, sessionID)
	h.mu.Unlock()

	slog.Info("collab.hub: session evicted", "session_id", sessionID)
	return true
}

// =============================================================================
// Event Subscriptions
// =============================================================================

// Subscribe registers for a session's events. The returned cancel
// function is idempotent and safe to call after eviction. Events are
// dropped, not queued, when the subscriber's buffer is full.
func (h *Hub) Subscribe(sessionID string) (<-chan Event, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[sessionID]; !ok {
		return nil, nil, fmt.Errorf("subscribe to session %s: %w", sessionID, ErrSessionNotFound)
	}

	ch := make(chan Event, eventBufferSize)
	id := h.nextSub
	h.nextSub++
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[int]chan Event)
	}
	h.subs[sessionID][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if chans, ok := h.subs[sessionID]; ok {
			if c, ok := chans[id]; ok {
				close(c)
				delete(chans, id)
			}
		}
	}
	return ch, cancel, nil
}

// publish fans an event out to every subscriber of the session. Called
// after the originating mutation has committed and the session lock is
// released, which keeps lock ordering simple (Evict holds the registry
// lock before the session lock) at the cost of cross-call ordering: two
// racing mutations can publish in either order. Versioned events are the
// ordering contract for subscribers.
func (h *Hub) publish(sessionID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[sessionID] {
		select {
		case ch <- ev:
			h.countEvent(ev.Kind())
		default:
			h.countDropped()
			slog.Warn("collab.hub: event dropped for slow subscriber",
				"session_id", sessionID, "kind", ev.Kind())
		}
	}
}

// =============================================================================
// Internal Helpers
// =============================================================================

// live resolves a session id to its lockable registry entry.
func (h *Hub) live(sessionID string) (*liveSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ls, ok := h.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return ls, nil
}

// requireActive rejects mutation on paused or ended sessions. Must be
// called with the session lock held.
func requireActive(s *datatypes.Session) error {
	if s.Status != datatypes.SessionActive {
		return fmt.Errorf("session %s is %s: %w", s.ID, s.Status, ErrSessionNotActive)
	}
	return nil
}

// Metrics helpers. All are nil-safe so tests can run without a registry.

func (h *Hub) gaugeSessions(delta int) {
	if h.metrics != nil {
		h.metrics.SessionsActive.Add(float64(delta))
	}
}

func (h *Hub) gaugeParticipants(delta int) {
	if h.metrics != nil {
		h.metrics.ParticipantsActive.Add(float64(delta))
	}
}

func (h *Hub) countOperation(opType, status string) {
	if h.metrics != nil {
		h.metrics.OperationsTotal.WithLabelValues(opType, status).Inc()
	}
}

func (h *Hub) countChat() {
	if h.metrics != nil {
		h.metrics.ChatMessagesTotal.Inc()
	}
}

func (h *Hub) countCheckpoint(action string) {
	if h.metrics != nil {
		h.metrics.CheckpointsTotal.WithLabelValues(action).Inc()
	}
}

func (h *Hub) countEvent(kind string) {
	if h.metrics != nil {
		h.metrics.EventsPublishedTotal.WithLabelValues(kind).Inc()
	}
}

func (h *Hub) countDropped() {
	if h.metrics != nil {
		h.metrics.EventsDroppedTotal.Inc()
	}
}
