// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hub

import (
	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
)

// eventBufferSize is the per-subscriber channel capacity. A subscriber
// that falls this far behind loses events rather than blocking hub
// operations; the transport should resynchronize from GetSession.
const eventBufferSize = 64

// Event is one statically typed notification emitted after a mutating hub
// call commits. Events are the sole notification mechanism; there is no
// polling API. Payloads embed deep copies, never live session state.
type Event interface {
	// Kind returns the stable event name used on the wire.
	Kind() string
}

// Event kind names, as serialized by the transport adapter.
const (
	KindSessionCreated       = "sessionCreated"
	KindParticipantJoined    = "participantJoined"
	KindParticipantLeft      = "participantLeft"
	KindHostChanged          = "hostChanged"
	KindOperationApplied     = "operationApplied"
	KindCursorMoved          = "cursorMoved"
	KindChatMessage          = "chatMessage"
	KindReactionAdded        = "reactionAdded"
	KindCheckpointCreated    = "checkpointCreated"
	KindCheckpointRestored   = "checkpointRestored"
	KindRoleChanged          = "roleChanged"
	KindPresenceChanged      = "presenceChanged"
	KindSessionStatusChanged = "sessionStatusChanged"
	KindSessionEnded         = "sessionEnded"
)

// SessionCreatedEvent carries the full initial session snapshot.
type SessionCreatedEvent struct {
	SessionID string             `json:"session_id"`
	Session   *datatypes.Session `json:"session"`
}

func (SessionCreatedEvent) Kind() string { return KindSessionCreated }

// ParticipantJoinedEvent announces a new roster member.
type ParticipantJoinedEvent struct {
	SessionID   string                 `json:"session_id"`
	Participant *datatypes.Participant `json:"participant"`
}

func (ParticipantJoinedEvent) Kind() string { return KindParticipantJoined }

// ParticipantLeftEvent announces a roster removal.
type ParticipantLeftEvent struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
}

func (ParticipantLeftEvent) Kind() string { return KindParticipantLeft }

// HostChangedEvent announces leave-driven host succession.
type HostChangedEvent struct {
	SessionID string `json:"session_id"`
	NewHostID string `json:"new_host_id"`
	HostName  string `json:"host_name"`
}

func (HostChangedEvent) Kind() string { return KindHostChanged }

// OperationAppliedEvent announces one accepted content mutation and the
// document version it produced. Version is the subscriber's ordering key:
// delivery order is not guaranteed across racing operations, and a gap in
// versions means a dropped event.
type OperationAppliedEvent struct {
	SessionID string              `json:"session_id"`
	Operation datatypes.Operation `json:"operation"`
	Version   int                 `json:"version"`
}

func (OperationAppliedEvent) Kind() string { return KindOperationApplied }

// CursorMovedEvent carries a participant's latest cursor position.
type CursorMovedEvent struct {
	SessionID string                   `json:"session_id"`
	UserID    string                   `json:"user_id"`
	Cursor    datatypes.CursorPosition `json:"cursor"`
}

func (CursorMovedEvent) Kind() string { return KindCursorMoved }

// ChatMessageEvent carries one chat message, including hub-synthesized
// system announcements.
type ChatMessageEvent struct {
	SessionID string                 `json:"session_id"`
	Message   *datatypes.ChatMessage `json:"message"`
}

func (ChatMessageEvent) Kind() string { return KindChatMessage }

// ReactionAddedEvent announces a new emoji reaction on a message.
type ReactionAddedEvent struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

func (ReactionAddedEvent) Kind() string { return KindReactionAdded }

// CheckpointCreatedEvent announces a new named snapshot.
type CheckpointCreatedEvent struct {
	SessionID  string               `json:"session_id"`
	Checkpoint datatypes.Checkpoint `json:"checkpoint"`
}

func (CheckpointCreatedEvent) Kind() string { return KindCheckpointCreated }

// CheckpointRestoredEvent announces a restore. Content is the full
// restored text so clients can resynchronize without a follow-up query.
type CheckpointRestoredEvent struct {
	SessionID    string `json:"session_id"`
	CheckpointID string `json:"checkpoint_id"`
	Version      int    `json:"version"`
	Content      string `json:"content"`
}

func (CheckpointRestoredEvent) Kind() string { return KindCheckpointRestored }

// RoleChangedEvent announces a host-driven role change.
type RoleChangedEvent struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Role      datatypes.Role `json:"role"`
}

func (RoleChangedEvent) Kind() string { return KindRoleChanged }

// PresenceChangedEvent announces a presence status update.
type PresenceChangedEvent struct {
	SessionID string                   `json:"session_id"`
	UserID    string                   `json:"user_id"`
	Status    datatypes.PresenceStatus `json:"status"`
}

func (PresenceChangedEvent) Kind() string { return KindPresenceChanged }

// SessionStatusChangedEvent announces a pause or resume.
type SessionStatusChangedEvent struct {
	SessionID string                  `json:"session_id"`
	Status    datatypes.SessionStatus `json:"status"`
}

func (SessionStatusChangedEvent) Kind() string { return KindSessionStatusChanged }

// SessionEndedEvent announces the terminal transition. After this event
// the session accepts no mutation and will eventually be evicted.
type SessionEndedEvent struct {
	SessionID string `json:"session_id"`
}

func (SessionEndedEvent) Kind() string { return KindSessionEnded }
