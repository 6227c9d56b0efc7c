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

// InitialCheckpointDescription labels the checkpoint captured when a
// document is created.
const InitialCheckpointDescription = "Initial version"

// =============================================================================
// Document
// =============================================================================

// Document is the authoritative, versioned copy of a session's text.
//
// # Invariants
//
//   - Version starts at 1 and increases by exactly 1 per accepted
//     operation or checkpoint restore; Version == 1 + len(Operations).
//   - Operations is append-only; entries are never rewritten.
//   - Checkpoints is append-only; the first entry is captured at creation.
type Document struct {
	ID          string       `json:"id"`
	Path        string       `json:"path"`
	Language    string       `json:"language"`
	Content     string       `json:"content"`
	Version     int          `json:"version"`
	Operations  []Operation  `json:"operations"`
	Checkpoints []Checkpoint `json:"checkpoints"`
}

// NewDocument creates a version-1 document with its initial checkpoint
// already recorded.
func NewDocument(path, content, language, createdBy string) *Document {
	doc := &Document{
		ID:         uuid.NewString(),
		Path:       path,
		Language:   language,
		Content:    content,
		Version:    1,
		Operations: make([]Operation, 0),
	}
	doc.Checkpoints = []Checkpoint{{
		ID:          uuid.NewString(),
		Version:     1,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   createdBy,
		Description: InitialCheckpointDescription,
	}}
	return doc
}

// FindCheckpoint returns the checkpoint with the given id, or nil.
func (d *Document) FindCheckpoint(checkpointID string) *Checkpoint {
	for i := range d.Checkpoints {
		if d.Checkpoints[i].ID == checkpointID {
			return &d.Checkpoints[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := *d
	out.Operations = make([]Operation, len(d.Operations))
	copy(out.Operations, d.Operations)
	out.Checkpoints = make([]Checkpoint, len(d.Checkpoints))
	copy(out.Checkpoints, d.Checkpoints)
	return &out
}

// =============================================================================
// Checkpoint
// =============================================================================

// Checkpoint is a named, immutable full-content snapshot at a version.
//
// Restoring a checkpoint records a synthetic replace operation and
// advances the version; it never rewrites the operation log or removes
// later checkpoints.
type Checkpoint struct {
	ID          string    `json:"id"`
	Version     int       `json:"version"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
	Description string    `json:"description,omitempty"`
}
