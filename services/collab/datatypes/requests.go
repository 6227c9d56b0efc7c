// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Request and response types for the collab transport adapter. All inbound
// payloads are validated here before they reach the hub.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants for Security Compliance
// =============================================================================

const (
	// MaxDocumentContentBytes is the maximum size of an initial document
	// body. Checks byte length, not rune count, to bound memory.
	MaxDocumentContentBytes = 1024 * 1024 // 1MB

	// MaxChatMessageBytes is the maximum size of a single chat message.
	MaxChatMessageBytes = 32 * 1024 // 32KB

	// MaxOperationContentBytes is the maximum payload of one edit
	// operation. Larger edits must be split by the client.
	MaxOperationContentBytes = 4 * 1024 // 4KB

	// MaxSessionNameLength is the maximum session name length in bytes.
	MaxSessionNameLength = 128
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// collabValidate is the validator instance for collab request types.
// Initialized in init() with custom validators.
var collabValidate *validator.Validate

func init() {
	collabValidate = validator.New()

	_ = collabValidate.RegisterValidation("docbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxDocumentContentBytes
	})
	_ = collabValidate.RegisterValidation("chatbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxChatMessageBytes
	})
	_ = collabValidate.RegisterValidation("opbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxOperationContentBytes
	})
}

// =============================================================================
// Session Requests
// =============================================================================

// CreateSessionRequest is the body for POST /v1/sessions.
//
// The host identity (id and display name) comes from the identity
// middleware, not the body. Settings are optional; DefaultSettings() is
// applied when absent.
type CreateSessionRequest struct {
	Name         string           `json:"name" validate:"required,max=128"`
	DocumentPath string           `json:"document_path" validate:"required,max=512"`
	Content      string           `json:"content" validate:"docbytes"`
	Language     string           `json:"language,omitempty" validate:"max=64"`
	Settings     *SessionSettings `json:"settings,omitempty"`
}

// Validate validates the CreateSessionRequest fields.
func (r *CreateSessionRequest) Validate() error {
	if err := collabValidate.Struct(r); err != nil {
		return err
	}
	if r.Settings != nil {
		return collabValidate.Struct(r.Settings)
	}
	return nil
}

// EffectiveSettings returns the request settings or the defaults.
func (r *CreateSessionRequest) EffectiveSettings() SessionSettings {
	if r.Settings != nil {
		return *r.Settings
	}
	return DefaultSettings()
}

// JoinSessionRequest is the body for joining a session.
type JoinSessionRequest struct {
	AsViewer bool `json:"as_viewer"`
}

// SessionStatusRequest pauses or resumes a session (host only). Ended is
// terminal and cannot be set through this request; use the end endpoint.
type SessionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active paused"`
}

// Validate validates the SessionStatusRequest fields.
func (r *SessionStatusRequest) Validate() error {
	return collabValidate.Struct(r)
}

// =============================================================================
// Editing Requests
// =============================================================================

// OperationRequest is one inbound edit. Position bounds are intentionally
// not validated against document size: out-of-range operations degrade to
// no-ops in the engine rather than failing the request.
type OperationRequest struct {
	Type    string `json:"type" validate:"required,oneof=insert delete replace"`
	Line    int    `json:"line" validate:"gte=0"`
	Column  int    `json:"column" validate:"gte=0"`
	Content string `json:"content,omitempty" validate:"opbytes"`
	Length  int    `json:"length,omitempty" validate:"gte=0"`
}

// Validate validates the OperationRequest fields.
func (r *OperationRequest) Validate() error {
	return collabValidate.Struct(r)
}

// ToOperation converts the request into a recorded Operation authored by
// the given user.
func (r *OperationRequest) ToOperation(userID string) Operation {
	return NewOperation(
		OperationType(r.Type),
		userID,
		CursorPosition{Line: r.Line, Column: r.Column},
		r.Content,
		r.Length,
	)
}

// CursorRequest updates the caller's cursor position.
type CursorRequest struct {
	Line   int `json:"line" validate:"gte=0"`
	Column int `json:"column" validate:"gte=0"`
}

// Validate validates the CursorRequest fields.
func (r *CursorRequest) Validate() error {
	return collabValidate.Struct(r)
}

// =============================================================================
// Chat Requests
// =============================================================================

// ChatMessageRequest is one inbound chat message. The system type is
// reserved for hub-synthesized announcements and rejected here.
type ChatMessageRequest struct {
	Content string `json:"content" validate:"required,chatbytes"`
	Type    string `json:"type,omitempty" validate:"omitempty,oneof=text code suggestion"`
}

// Validate validates the ChatMessageRequest fields.
func (r *ChatMessageRequest) Validate() error {
	return collabValidate.Struct(r)
}

// MessageType returns the requested type, defaulting to text.
func (r *ChatMessageRequest) MessageType() MessageType {
	if r.Type == "" {
		return MessageText
	}
	return MessageType(r.Type)
}

// ReactionRequest adds an emoji reaction to a chat message.
type ReactionRequest struct {
	MessageID string `json:"message_id" validate:"required"`
	Emoji     string `json:"emoji" validate:"required,max=16"`
}

// Validate validates the ReactionRequest fields.
func (r *ReactionRequest) Validate() error {
	return collabValidate.Struct(r)
}

// =============================================================================
// Membership Requests
// =============================================================================

// RoleChangeRequest changes another participant's role (host only).
// Host is not assignable here: host transfer happens exclusively through
// leave-driven succession.
type RoleChangeRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=editor viewer"`
}

// Validate validates the RoleChangeRequest fields.
func (r *RoleChangeRequest) Validate() error {
	return collabValidate.Struct(r)
}

// PresenceRequest updates the caller's presence status.
type PresenceRequest struct {
	Status string `json:"status" validate:"required,oneof=online away typing"`
}

// Validate validates the PresenceRequest fields.
func (r *PresenceRequest) Validate() error {
	return collabValidate.Struct(r)
}

// =============================================================================
// Checkpoint Requests
// =============================================================================

// CheckpointRequest captures a named snapshot of the current document.
type CheckpointRequest struct {
	Description string `json:"description,omitempty" validate:"max=256"`
}

// Validate validates the CheckpointRequest fields.
func (r *CheckpointRequest) Validate() error {
	return collabValidate.Struct(r)
}
