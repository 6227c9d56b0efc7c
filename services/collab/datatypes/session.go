// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the collab service.
//
// This file contains the Session aggregate: one collaboratively edited
// document plus its roster, cursor map, chat history, and settings.
// Sessions are plain data; all mutation and locking is owned by the hub
// package.
package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Session Status
// =============================================================================

// SessionStatus is the lifecycle state of a session.
//
// Valid transitions: active <-> paused, active -> ended, paused -> ended.
// Ended is terminal; an ended session accepts no further mutation and is
// eligible for eviction by the reaper.
type SessionStatus string

const (
	// SessionActive accepts all operations.
	SessionActive SessionStatus = "active"

	// SessionPaused rejects mutating operations until resumed by the host.
	SessionPaused SessionStatus = "paused"

	// SessionEnded is terminal. The session is immutable once ended.
	SessionEnded SessionStatus = "ended"
)

// =============================================================================
// Session Settings
// =============================================================================

// SessionSettings holds per-session configuration chosen at creation time.
//
// # Fields
//
//   - MaxParticipants: Roster capacity; joins beyond this fail.
//   - AllowAnonymous: Whether participants without a registered account
//     may join. Enforcement belongs to the identity provider, not the hub.
//   - AutoSave: Whether the transport should checkpoint periodically.
//   - AutoSaveIntervalSec: Auto-save period in seconds.
//   - RequireApproval: Whether joins need host approval (reserved; the
//     open source hub admits immediately).
//   - AllowChat: Gates SendChat. When false, chat returns a nil message
//     rather than an error (configuration choice, not a fault).
//   - AllowVoice: Advisory flag for the transport layer.
//   - SyntaxHighlighting: Advisory flag for clients.
type SessionSettings struct {
	MaxParticipants     int  `json:"max_participants" validate:"gte=1,lte=100"`
	AllowAnonymous      bool `json:"allow_anonymous"`
	AutoSave            bool `json:"auto_save"`
	AutoSaveIntervalSec int  `json:"auto_save_interval_sec" validate:"gte=0"`
	RequireApproval     bool `json:"require_approval"`
	AllowChat           bool `json:"allow_chat"`
	AllowVoice          bool `json:"allow_voice"`
	SyntaxHighlighting  bool `json:"syntax_highlighting"`
}

// DefaultSettings returns the settings applied when a create request
// does not supply its own.
func DefaultSettings() SessionSettings {
	return SessionSettings{
		MaxParticipants:     10,
		AllowAnonymous:      true,
		AutoSave:            true,
		AutoSaveIntervalSec: 30,
		AllowChat:           true,
		SyntaxHighlighting:  true,
	}
}

// =============================================================================
// Session
// =============================================================================

// Session aggregates one Document, its roster, live cursors, and chat.
//
// # Invariants
//
//   - Exactly one participant has RoleHost while Status != SessionEnded.
//   - Status == SessionEnded implies no further mutation of Document,
//     Participants, Cursors, or Chat.
//   - Participants is ordered by join time; host succession picks index 0
//     after removal of the departing host.
//
// # Thread Safety
//
// Session carries no lock of its own. The hub serializes all access with
// one exclusive lock per session and hands out deep copies via Clone.
type Session struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name"`
	HostID       string                    `json:"host_id"`
	Status       SessionStatus             `json:"status"`
	CreatedAt    time.Time                 `json:"created_at"`
	Settings     SessionSettings           `json:"settings"`
	Document     *Document                 `json:"document"`
	Participants []*Participant            `json:"participants"`
	Cursors      map[string]CursorPosition `json:"cursors"`
	Chat         []*ChatMessage            `json:"chat"`
}

// NewSession creates an active session with the given host already on the
// roster and a version-1 document with its initial checkpoint.
func NewSession(name string, host *Participant, doc *Document, settings SessionSettings) *Session {
	return &Session{
		ID:           uuid.NewString(),
		Name:         name,
		HostID:       host.ID,
		Status:       SessionActive,
		CreatedAt:    time.Now().UTC(),
		Settings:     settings,
		Document:     doc,
		Participants: []*Participant{host},
		Cursors:      make(map[string]CursorPosition),
		Chat:         make([]*ChatMessage, 0),
	}
}

// FindParticipant returns the participant with the given id, or nil.
func (s *Session) FindParticipant(userID string) *Participant {
	for _, p := range s.Participants {
		if p.ID == userID {
			return p
		}
	}
	return nil
}

// Clone returns a deep copy of the session. The hub returns clones from
// every query and embeds clones in events so callers never observe
// concurrent mutation.
func (s *Session) Clone() *Session {
	out := *s
	out.Document = s.Document.Clone()
	out.Participants = make([]*Participant, len(s.Participants))
	for i, p := range s.Participants {
		out.Participants[i] = p.Clone()
	}
	out.Cursors = make(map[string]CursorPosition, len(s.Cursors))
	for id, cur := range s.Cursors {
		out.Cursors[id] = cur
	}
	out.Chat = make([]*ChatMessage, len(s.Chat))
	for i, m := range s.Chat {
		out.Chat[i] = m.Clone()
	}
	return &out
}
