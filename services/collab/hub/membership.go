// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Membership management: join/leave, role changes, presence, cursor
// updates, and leave-driven host succession.
package hub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
)

// JoinSession adds a participant to an active session with the next
// palette color by join order. Joining an already-joined participant is
// idempotent and returns the current snapshot without mutation.
//
// Fails with ErrSessionNotActive when the session is paused or ended,
// and ErrSessionFull when the roster is at capacity.
func (h *Hub) JoinSession(ctx context.Context, sessionID, userID, userName string, asViewer bool) (*datatypes.Session, error) {
	ls, err := h.live(sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	s := ls.data
	if existing := s.FindParticipant(userID); existing != nil {
		snapshot := s.Clone()
		ls.mu.Unlock()
		return snapshot, nil
	}
	if err := requireActive(s); err != nil {
		ls.mu.Unlock()
		return nil, err
	}
	if len(s.Participants) >= s.Settings.MaxParticipants {
		ls.mu.Unlock()
		return nil, fmt.Errorf("session %s at capacity %d: %w",
			sessionID, s.Settings.MaxParticipants, ErrSessionFull)
	}

	role := datatypes.RoleEditor
	if asViewer {
		role = datatypes.RoleViewer
	}
	p := datatypes.NewParticipant(userID, userName, role, len(s.Participants))
	s.Participants = append(s.Participants, p)

	announce := datatypes.NewSystemMessage(userName + " joined the session")
	s.Chat = append(s.Chat, announce)

	joined := p.Clone()
	msg := announce.Clone()
	snapshot := s.Clone()
	ls.mu.Unlock()

	h.mu.Lock()
	h.byParticipant[userID] = sessionID
	h.mu.Unlock()

	slog.Info("collab.hub: participant joined",
		"session_id", sessionID, "user_id", userID, "role", role)
	h.gaugeParticipants(1)
	h.publish(sessionID, ParticipantJoinedEvent{SessionID: sessionID, Participant: joined})
	h.publish(sessionID, ChatMessageEvent{SessionID: sessionID, Message: msg})
	return snapshot, nil
}

// LeaveSession removes a participant and their cursor. If the host
// leaves and others remain, the participant at roster index 0 after
// removal becomes the new host (insertion-order successor) and the
// change is announced. If the roster empties, the session ends.
func (h *Hub) LeaveSession(ctx context.Context, sessionID, userID string) error {
	ls, err := h.live(sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	s := ls.data
	if s.Status == datatypes.SessionEnded {
		ls.mu.Unlock()
		return fmt.Errorf("leave ended session %s: %w", sessionID, ErrSessionNotActive)
	}
	idx := -1
	for i, p := range s.Participants {
		if p.ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		ls.mu.Unlock()
		return fmt.Errorf("participant %s in session %s: %w",
			userID, sessionID, ErrParticipantNotFound)
	}

	leaving := s.Participants[idx]
	wasHost := leaving.Role == datatypes.RoleHost
	leftName := leaving.Name
	s.Participants = append(s.Participants[:idx], s.Participants[idx+1:]...)
	delete(s.Cursors, userID)

	events := make([]Event, 0, 4)
	events = append(events, ParticipantLeftEvent{SessionID: sessionID, UserID: userID, UserName: leftName})

	announce := datatypes.NewSystemMessage(leftName + " left the session")
	s.Chat = append(s.Chat, announce)
	events = append(events, ChatMessageEvent{SessionID: sessionID, Message: announce.Clone()})

	ended := false
	if len(s.Participants) == 0 {
		s.Status = datatypes.SessionEnded
		ended = true
		events = append(events, SessionEndedEvent{SessionID: sessionID})
	} else if wasHost {
		// Succession tie-break is deliberately roster index 0 after
		// removal, matching the original behavior.
		successor := s.Participants[0]
		successor.Role = datatypes.RoleHost
		s.HostID = successor.ID

		handoff := datatypes.NewSystemMessage(successor.Name + " is now the host")
		s.Chat = append(s.Chat, handoff)
		events = append(events,
			HostChangedEvent{SessionID: sessionID, NewHostID: successor.ID, HostName: successor.Name},
			ChatMessageEvent{SessionID: sessionID, Message: handoff.Clone()},
		)
	}
	ls.mu.Unlock()

	h.mu.Lock()
	if h.byParticipant[userID] == sessionID {
		delete(h.byParticipant, userID)
	}
	h.mu.Unlock()

	slog.Info("collab.hub: participant left",
		"session_id", sessionID, "user_id", userID, "was_host", wasHost, "session_ended", ended)
	h.gaugeParticipants(-1)
	if ended {
		h.gaugeSessions(-1)
	}
	for _, ev := range events {
		h.publish(sessionID, ev)
	}
	return nil
}

// ChangeRole sets another participant's role to editor or viewer. Only
// the current host may call it; the host role is never assignable here
// (host transfer happens exclusively through leave-driven succession),
// and the host cannot change their own role.
func (h *Hub) ChangeRole(ctx context.Context, sessionID, callerID, targetID string, role datatypes.Role) error {
	if role != datatypes.RoleEditor && role != datatypes.RoleViewer {
		return fmt.Errorf("role %q is not assignable: %w", role, ErrForbidden)
	}
	ls, err := h.live(sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	s := ls.data
	if err := requireActive(s); err != nil {
		ls.mu.Unlock()
		return err
	}
	if s.HostID != callerID {
		ls.mu.Unlock()
		return fmt.Errorf("role change by non-host %s: %w", callerID, ErrForbidden)
	}
	if targetID == callerID {
		ls.mu.Unlock()
		return fmt.Errorf("host cannot demote themself: %w", ErrForbidden)
	}
	target := s.FindParticipant(targetID)
	if target == nil {
		ls.mu.Unlock()
		return fmt.Errorf("participant %s: %w", targetID, ErrParticipantNotFound)
	}
	target.Role = role
	ls.mu.Unlock()

	slog.Info("collab.hub: role changed",
		"session_id", sessionID, "user_id", targetID, "role", role)
	h.publish(sessionID, RoleChangedEvent{SessionID: sessionID, UserID: targetID, Role: role})
	return nil
}

// SetParticipantStatus updates a participant's presence indicator.
func (h *Hub) SetParticipantStatus(ctx context.Context, sessionID, userID string, status datatypes.PresenceStatus) error {
	ls, err := h.live(sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	s := ls.data
	if err := requireActive(s); err != nil {
		ls.mu.Unlock()
		return err
	}
	p := s.FindParticipant(userID)
	if p == nil {
		ls.mu.Unlock()
		return fmt.Errorf("participant %s: %w", userID, ErrParticipantNotFound)
	}
	p.Status = status
	ls.mu.Unlock()

	h.publish(sessionID, PresenceChangedEvent{SessionID: sessionID, UserID: userID, Status: status})
	return nil
}

// UpdateCursor records a participant's latest cursor position and
// broadcasts it for remote cursor rendering.
func (h *Hub) UpdateCursor(ctx context.Context, sessionID, userID string, cursor datatypes.CursorPosition) error {
	ls, err := h.live(sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	s := ls.data
	if err := requireActive(s); err != nil {
		ls.mu.Unlock()
		return err
	}
	p := s.FindParticipant(userID)
	if p == nil {
		ls.mu.Unlock()
		return fmt.Errorf("participant %s: %w", userID, ErrParticipantNotFound)
	}
	cur := cursor
	p.Cursor = &cur
	s.Cursors[userID] = cursor
	ls.mu.Unlock()

	h.publish(sessionID, CursorMovedEvent{SessionID: sessionID, UserID: userID, Cursor: cursor})
	return nil
}
