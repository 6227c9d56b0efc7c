// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianCollab/pkg/extensions"
	"github.com/AleutianAI/AleutianCollab/services/collab/archive"
	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
	"github.com/AleutianAI/AleutianCollab/services/collab/hub"
	"github.com/AleutianAI/AleutianCollab/services/collab/middleware"
)

// =============================================================================
// Error Mapping
// =============================================================================

// statusForHubError maps hub sentinel errors to HTTP status codes.
// Unknown errors fall through to 500.
func statusForHubError(err error) int {
	switch {
	case errors.Is(err, hub.ErrSessionNotFound),
		errors.Is(err, hub.ErrParticipantNotFound),
		errors.Is(err, hub.ErrCheckpointNotFound),
		errors.Is(err, hub.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, hub.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, hub.ErrSessionNotActive):
		return http.StatusConflict
	case errors.Is(err, hub.ErrSessionFull):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortHubError(c *gin.Context, err error) {
	c.JSON(statusForHubError(err), gin.H{"error": err.Error()})
}

// identity resolves the authenticated caller, aborting with 401 when the
// middleware did not run.
func identity(c *gin.Context) (*extensions.AuthInfo, bool) {
	info := middleware.GetAuthInfo(c)
	if info == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil, false
	}
	return info, true
}

// =============================================================================
// Session Lifecycle
// =============================================================================

// HandleCreateSession creates a session with the caller as host.
//
// POST /v1/sessions
func HandleCreateSession(h *hub.Hub, audit extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := identity(c)
		if !ok {
			return
		}

		var req datatypes.CreateSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		settings := req.EffectiveSettings()
		session, err := h.CreateSession(c.Request.Context(), hub.CreateSessionParams{
			Name:         req.Name,
			HostID:       caller.UserID,
			HostName:     caller.DisplayName,
			DocumentPath: req.DocumentPath,
			Content:      req.Content,
			Language:     req.Language,
			Settings:     &settings,
		})
		if err != nil {
			abortHubError(c, err)
			return
		}

		_ = audit.Log(c.Request.Context(), extensions.AuditEvent{
			EventType:    "session.create",
			UserID:       caller.UserID,
			ResourceType: "session",
			ResourceID:   session.ID,
			Outcome:      "success",
			Metadata:     map[string]any{"document_path": req.DocumentPath},
		})
		c.JSON(http.StatusCreated, session)
	}
}

// HandleListSessions returns every registered session.
//
// GET /v1/sessions
func HandleListSessions(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": h.ListSessions()})
	}
}

// HandleGetSession returns one session snapshot.
//
// GET /v1/sessions/:sessionId
func HandleGetSession(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := h.GetSession(c.Param("sessionId"))
		if err != nil {
			abortHubError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

// HandleEndSession ends a session. Host only; the session record is
// retained for the reaper to archive.
//
// DELETE /v1/sessions/:sessionId
func HandleEndSession(h *hub.Hub, audit extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := identity(c)
		if !ok {
			return
		}
		sessionID := c.Param("sessionId")

		session, err := h.GetSession(sessionID)
		if err != nil {
			abortHubError(c, err)
			return
		}
		if session.HostID != caller.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the host can end the session"})
			return
		}

		if err := h.EndSession(c.Request.Context(), sessionID); err != nil {
			abortHubError(c, err)
			return
		}

		_ = audit.Log(c.Request.Context(), extensions.AuditEvent{
			EventType:    "session.end",
			UserID:       caller.UserID,
			ResourceType: "session",
			ResourceID:   sessionID,
			Outcome:      "success",
		})
		c.JSON(http.StatusOK, gin.H{"status": "ended", "session_id": sessionID})
	}
}

// HandleSessionStatus pauses or resumes a session. Host only.
//
// PUT /v1/sessions/:sessionId/status
func HandleSessionStatus(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := identity(c)
		if !ok {
			return
		}

		var req datatypes.SessionStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sessionID := c.Param("sessionId")
		err := h.SetSessionStatus(c.Request.Context(), sessionID, caller.UserID,
			datatypes.SessionStatus(req.Status))
		if err != nil {
			abortHubError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "status": req.Status})
	}
}

// HandleChangeRole changes another participant's role. Host only.
//
// PUT /v1/sessions/:sessionId/role
func HandleChangeRole(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := identity(c)
		if !ok {
			return
		}

		var req datatypes.RoleChangeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sessionID := c.Param("sessionId")
		err := h.ChangeRole(c.Request.Context(), sessionID, caller.UserID,
			req.UserID, datatypes.Role(req.Role))
		if err != nil {
			abortHubError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "user_id": req.UserID, "role": req.Role})
	}
}

// =============================================================================
// Checkpoints
// =============================================================================

// HandleCreateCheckpoint captures a named document snapshot.
//
// POST /v1/sessions/:sessionId/checkpoints
func HandleCreateCheckpoint(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := identity(c)
		if !ok {
			return
		}

		var req datatypes.CheckpointRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cp, err := h.CreateCheckpoint(c.Request.Context(), c.Param("sessionId"),
			caller.UserID, req.Description)
		if err != nil {
			abortHubError(c, err)
			return
		}
		c.JSON(http.StatusCreated, cp)
	}
}

// HandleRestoreCheckpoint restores document content from a checkpoint.
//
// POST /v1/sessions/:sessionId/checkpoints/:checkpointId/restore
func HandleRestoreCheckpoint(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		checkpointID := c.Param("checkpointId")

		if err := h.RestoreCheckpoint(c.Request.Context(), sessionID, checkpointID); err != nil {
			abortHubError(c, err)
			return
		}

		session, err := h.GetSession(sessionID)
		if err != nil {
			abortHubError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id":    sessionID,
			"checkpoint_id": checkpointID,
			"version":       session.Document.Version,
		})
	}
}

// =============================================================================
// Archive Queries
// =============================================================================

// ArchiveReader is the read surface of the session archive.
// Implemented by archive.Store.
type ArchiveReader interface {
	GetSession(ctx context.Context, sessionID string) (*datatypes.Session, error)
	ListSessionIDs(ctx context.Context) ([]string, error)
}

// HandleListArchivedSessions returns the ids of archived sessions.
//
// GET /v1/archive/sessions
func HandleListArchivedSessions(store ArchiveReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, err := store.ListSessionIDs(c.Request.Context())
		if err != nil {
			slog.Error("collab.handlers: list archived sessions failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "archive query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_ids": ids})
	}
}

// HandleGetArchivedSession returns one archived session record.
//
// GET /v1/archive/sessions/:sessionId
func HandleGetArchivedSession(store ArchiveReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := store.GetSession(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			if errors.Is(err, archive.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			slog.Error("collab.handlers: get archived session failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "archive query failed"})
			return
		}
		c.JSON(http.StatusOK, session)
	}
}
