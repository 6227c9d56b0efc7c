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

import "errors"

// Sentinel errors for expected failure conditions. The hub never panics
// for these; callers check with errors.Is and the transport adapter maps
// them to protocol responses.
//
// A disabled feature (chat with allow_chat=false) is not an error: the
// call returns a nil result with a nil error, since it is a configuration
// choice rather than a fault.
var (
	// ErrSessionNotFound is returned when the referenced session id is not
	// registered (never created, or already evicted).
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotActive is returned by mutating calls when the session
	// exists but is paused or ended.
	ErrSessionNotActive = errors.New("session not active")

	// ErrSessionFull is returned when a join would exceed the configured
	// participant capacity.
	ErrSessionFull = errors.New("session full")

	// ErrForbidden is returned when the caller lacks the required role,
	// e.g. a viewer applying an operation or a non-host changing roles.
	ErrForbidden = errors.New("forbidden")

	// ErrParticipantNotFound is returned when the referenced participant
	// is not on the session roster.
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrCheckpointNotFound is returned when the referenced checkpoint id
	// does not exist on the session's document.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrMessageNotFound is returned when the referenced chat message id
	// does not exist in the session's history.
	ErrMessageNotFound = errors.New("chat message not found")
)
