// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// SystemUserID is the author recorded on synthetic operations the hub
// generates itself (e.g. checkpoint restores).
const SystemUserID = "system"

// =============================================================================
// Operation Types
// =============================================================================

// OperationType identifies the kind of content mutation.
type OperationType string

const (
	// OpInsert splices Content into the target line at Column.
	OpInsert OperationType = "insert"

	// OpDelete removes Length characters from the target line at Column.
	OpDelete OperationType = "delete"

	// OpReplace removes Length characters at Column and splices in Content.
	OpReplace OperationType = "replace"
)

// =============================================================================
// Operation
// =============================================================================

// Operation is one atomic content mutation recorded against a document.
// Operations are immutable once recorded: the log is append-only.
type Operation struct {
	ID        string         `json:"id"`
	Type      OperationType  `json:"type"`
	UserID    string         `json:"user_id"`
	Position  CursorPosition `json:"position"`
	Content   string         `json:"content,omitempty"`
	Length    int            `json:"length,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewOperation builds an operation with a fresh id and timestamp.
func NewOperation(opType OperationType, userID string, pos CursorPosition, content string, length int) Operation {
	return Operation{
		ID:        uuid.NewString(),
		Type:      opType,
		UserID:    userID,
		Position:  pos,
		Content:   content,
		Length:    length,
		Timestamp: time.Now().UTC(),
	}
}
