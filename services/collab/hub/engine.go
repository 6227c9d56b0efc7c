// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Operation engine: validates and applies insert/delete/replace
// operations against session documents.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
)

// ApplyResult reports the outcome of ApplyOperation. Version is the
// document version after the call: incremented on success, unchanged on
// failure.
type ApplyResult struct {
	Version int `json:"version"`
}

// ApplyOperation validates the caller's edit rights, splices the
// operation into document content, appends it to the append-only log,
// and advances the version by exactly 1.
//
// Fails with ErrParticipantNotFound for unknown callers and ErrForbidden
// for viewers; in both cases content and version are untouched.
func (h *Hub) ApplyOperation(ctx context.Context, sessionID, userID string, op datatypes.Operation) (ApplyResult, error) {
	ls, err := h.live(sessionID)
	if err != nil {
		return ApplyResult{}, err
	}

	ls.mu.Lock()
	s := ls.data
	result := ApplyResult{Version: s.Document.Version}
	if err := requireActive(s); err != nil {
		ls.mu.Unlock()
		h.countOperation(string(op.Type), "rejected")
		return result, err
	}
	p := s.FindParticipant(userID)
	if p == nil {
		ls.mu.Unlock()
		h.countOperation(string(op.Type), "rejected")
		return result, fmt.Errorf("participant %s in session %s: %w",
			userID, sessionID, ErrParticipantNotFound)
	}
	if p.Role == datatypes.RoleViewer {
		ls.mu.Unlock()
		h.countOperation(string(op.Type), "rejected")
		return result, fmt.Errorf("viewer %s cannot edit: %w", userID, ErrForbidden)
	}

	recorded := op
	if recorded.ID == "" {
		recorded = datatypes.NewOperation(op.Type, userID, op.Position, op.Content, op.Length)
	}
	recorded.UserID = userID

	s.Document.Content = applyToContent(s.Document.Content, recorded)
	s.Document.Operations = append(s.Document.Operations, recorded)
	s.Document.Version++
	result.Version = s.Document.Version
	ls.mu.Unlock()

	slog.Debug("collab.hub: operation applied",
		"session_id", sessionID, "user_id", userID,
		"type", recorded.Type, "version", result.Version)
	h.countOperation(string(recorded.Type), "applied")
	h.publish(sessionID, OperationAppliedEvent{
		SessionID: sessionID,
		Operation: recorded,
		Version:   result.Version,
	})
	return result, nil
}

// applyToContent splices one operation into content, treated as an
// ordered sequence of lines. Operations addressing a line beyond the
// current content are a no-op for that line, columns are clamped to the
// line length, and a negative length is treated as zero: malformed
// positions degrade gracefully instead of corrupting or crashing the
// session. The transport validates lengths too, but the engine holds the
// session lock and must never rely on its callers for safety.
func applyToContent(content string, op datatypes.Operation) string {
	lines := strings.Split(content, "\n")
	if op.Position.Line < 0 || op.Position.Line >= len(lines) {
		return content
	}

	line := lines[op.Position.Line]
	col := op.Position.Column
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}

	switch op.Type {
	case datatypes.OpInsert:
		lines[op.Position.Line] = line[:col] + op.Content + line[col:]
	case datatypes.OpDelete:
		end := clampSpan(col, op.Length, len(line))
		lines[op.Position.Line] = line[:col] + line[end:]
	case datatypes.OpReplace:
		end := clampSpan(col, op.Length, len(line))
		lines[op.Position.Line] = line[:col] + op.Content + line[end:]
	default:
		return content
	}
	return strings.Join(lines, "\n")
}

// clampSpan bounds the end of a delete/replace span to [col, lineLen].
// A negative length would otherwise slice backwards, which either panics
// or duplicates characters.
func clampSpan(col, length, lineLen int) int {
	end := col + length
	if end < col {
		return col
	}
	if end > lineLen {
		return lineLen
	}
	return end
}
