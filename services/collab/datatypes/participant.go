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

import "time"

// =============================================================================
// Roles and Presence
// =============================================================================

// Role is a participant's permission level within a session.
type Role string

const (
	// RoleHost has session-administration rights: role changes, pause and
	// resume, ending the session. Exactly one host exists per live session.
	RoleHost Role = "host"

	// RoleEditor may mutate document content.
	RoleEditor Role = "editor"

	// RoleViewer observes only; applyOperation is rejected for viewers.
	RoleViewer Role = "viewer"
)

// PresenceStatus is a participant's live presence indicator.
type PresenceStatus string

const (
	PresenceOnline PresenceStatus = "online"
	PresenceAway   PresenceStatus = "away"
	PresenceTyping PresenceStatus = "typing"
)

// =============================================================================
// Cursor
// =============================================================================

// CursorPosition is a zero-based line/column location in document content.
type CursorPosition struct {
	Line   int `json:"line" validate:"gte=0"`
	Column int `json:"column" validate:"gte=0"`
}

// =============================================================================
// Participant
// =============================================================================

// Participant is one connected user within a session.
type Participant struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Color    string          `json:"color"`
	Role     Role            `json:"role"`
	Status   PresenceStatus  `json:"status"`
	JoinedAt time.Time       `json:"joined_at"`
	Cursor   *CursorPosition `json:"cursor,omitempty"`
}

// NewParticipant creates an online participant with a palette color chosen
// by roster size at join time.
func NewParticipant(userID, userName string, role Role, rosterSizeAtJoin int) *Participant {
	return &Participant{
		ID:       userID,
		Name:     userName,
		Color:    AssignColor(rosterSizeAtJoin),
		Role:     role,
		Status:   PresenceOnline,
		JoinedAt: time.Now().UTC(),
	}
}

// Clone returns a copy of the participant.
func (p *Participant) Clone() *Participant {
	out := *p
	if p.Cursor != nil {
		cur := *p.Cursor
		out.Cursor = &cur
	}
	return &out
}

// =============================================================================
// Color Palette
// =============================================================================

// colorPalette is the fixed round-robin palette for participant colors.
var colorPalette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
}

// AssignColor returns the palette color for a participant joining a roster
// of the given size. Deterministic and pure so join-order color assignment
// is independently testable.
func AssignColor(rosterSizeAtJoin int) string {
	if rosterSizeAtJoin < 0 {
		rosterSizeAtJoin = 0
	}
	return colorPalette[rosterSizeAtJoin%len(colorPalette)]
}

// PaletteSize returns the number of colors in the fixed palette.
func PaletteSize() int {
	return len(colorPalette)
}
