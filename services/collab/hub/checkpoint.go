// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Checkpoint capture and restore. Checkpoints are write-once snapshots;
// restore is modeled as a new synthetic replace operation so the
// append-only operation log is never rewritten.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
)

// CreateCheckpoint captures the current document content and version as
// a named snapshot. Any roster member may checkpoint, viewers included:
// a checkpoint reads state, it does not mutate content.
func (h *Hub) CreateCheckpoint(ctx context.Context, sessionID, userID, description string) (*datatypes.Checkpoint, error) {
	ls, err := h.live(sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	s := ls.data
	if err := requireActive(s); err != nil {
		ls.mu.Unlock()
		return nil, err
	}
	if s.FindParticipant(userID) == nil {
		ls.mu.Unlock()
		return nil, fmt.Errorf("participant %s in session %s: %w",
			userID, sessionID, ErrParticipantNotFound)
	}

	cp := datatypes.Checkpoint{
		ID:          uuid.NewString(),
		Version:     s.Document.Version,
		Content:     s.Document.Content,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   userID,
		Description: description,
	}
	s.Document.Checkpoints = append(s.Document.Checkpoints, cp)
	ls.mu.Unlock()

	slog.Info("collab.hub: checkpoint created",
		"session_id", sessionID, "checkpoint_id", cp.ID, "version", cp.Version)
	h.countCheckpoint("create")
	h.publish(sessionID, CheckpointCreatedEvent{SessionID: sessionID, Checkpoint: cp})
	return &cp, nil
}

// RestoreCheckpoint replaces document content with the checkpoint's
// snapshot and advances the version by recording a synthetic
// system-authored replace operation. Later checkpoints and operations
// are untouched: restore changes current content, never history.
func (h *Hub) RestoreCheckpoint(ctx context.Context, sessionID, checkpointID string) error {
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
	cp := s.Document.FindCheckpoint(checkpointID)
	if cp == nil {
		ls.mu.Unlock()
		return fmt.Errorf("checkpoint %s in session %s: %w",
			checkpointID, sessionID, ErrCheckpointNotFound)
	}

	restore := datatypes.NewOperation(
		datatypes.OpReplace,
		datatypes.SystemUserID,
		datatypes.CursorPosition{},
		cp.Content,
		len(s.Document.Content),
	)
	s.Document.Content = cp.Content
	s.Document.Operations = append(s.Document.Operations, restore)
	s.Document.Version++
	version := s.Document.Version
	content := s.Document.Content
	ls.mu.Unlock()

	slog.Info("collab.hub: checkpoint restored",
		"session_id", sessionID, "checkpoint_id", checkpointID, "version", version)
	h.countCheckpoint("restore")
	h.publish(sessionID, CheckpointRestoredEvent{
		SessionID:    sessionID,
		CheckpointID: checkpointID,
		Version:      version,
		Content:      content,
	})
	return nil
}
