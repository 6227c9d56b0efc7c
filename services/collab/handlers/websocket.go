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
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
	"github.com/AleutianAI/AleutianCollab/services/collab/hub"
	"github.com/AleutianAI/AleutianCollab/services/collab/observability"
)

// =============================================================================
// Wire Types
// =============================================================================

// WSRequest is one inbound client frame, routed by Action.
type WSRequest struct {
	// Action selects the operation: "operation", "cursor", "chat",
	// "reaction", "checkpoint", "restore", "status", "presence", "role",
	// or "leave".
	Action string `json:"action"`

	Operation    *datatypes.OperationRequest   `json:"operation,omitempty"`
	Cursor       *datatypes.CursorRequest      `json:"cursor,omitempty"`
	Chat         *datatypes.ChatMessageRequest `json:"chat,omitempty"`
	Reaction     *datatypes.ReactionRequest    `json:"reaction,omitempty"`
	Checkpoint   *datatypes.CheckpointRequest  `json:"checkpoint,omitempty"`
	CheckpointID string                        `json:"checkpoint_id,omitempty"`
	Status       string                        `json:"status,omitempty"`
	Presence     string                        `json:"presence,omitempty"`
	Role         *datatypes.RoleChangeRequest  `json:"role,omitempty"`
}

// WSEvent is one outbound hub event frame.
type WSEvent struct {
	Event string    `json:"event"`
	Data  hub.Event `json:"data"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// wsConn serializes writes from the read loop and the event pump.
// gorilla/websocket allows at most one concurrent writer per connection.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *wsConn) sendError(message string) {
	if err := c.writeJSON(gin.H{"action": "error", "error": message}); err != nil {
		slog.Warn("collab.handlers: failed to write websocket error", "error", err)
	}
}

// =============================================================================
// WebSocket Handler
// =============================================================================

// HandleSessionWebSocket is the realtime transport for one session.
//
// # Description
//
// Upgrades the connection, joins the caller to the session (as viewer
// when the "as_viewer" query parameter is "true"), and then runs two
// loops: an event pump forwarding hub events to the client and a read
// loop routing client frames into hub calls. Disconnecting, or sending
// the "leave" action, removes the caller from the session roster.
//
// The first outbound frame is always {"action": "joined"} carrying the
// full session snapshot, so clients can render before any event arrives.
//
// # Limitations
//
//   - A slow client loses events instead of stalling the hub; clients
//     should resynchronize from the REST snapshot when they detect gaps.
//   - Event frames from operations racing on one session may arrive out
//     of order; the version carried on operation events is the ordering
//     key.
func HandleSessionWebSocket(h *hub.Hub, metrics *observability.CollabMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := identity(c)
		if !ok {
			return
		}
		sessionID := c.Param("sessionId")
		asViewer := c.Query("as_viewer") == "true"

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("collab.handlers: websocket upgrade failed", "error", err)
			return
		}
		defer ws.Close()
		conn := &wsConn{ws: ws}

		if metrics != nil {
			metrics.WSConnectionsActive.Inc()
			defer metrics.WSConnectionsActive.Dec()
		}

		// The hub outlives the request; session work is not cancelled by
		// the HTTP request context once the socket is established.
		ctx := context.Background()

		snapshot, err := h.JoinSession(ctx, sessionID, caller.UserID, caller.DisplayName, asViewer)
		if err != nil {
			conn.sendError(err.Error())
			return
		}
		slog.Info("collab.handlers: websocket client joined",
			"session_id", sessionID, "user_id", caller.UserID)

		if err := conn.writeJSON(gin.H{"action": "joined", "session": snapshot}); err != nil {
			slog.Warn("collab.handlers: failed to send join snapshot", "error", err)
			leaveQuietly(ctx, h, sessionID, caller.UserID)
			return
		}

		events, cancelSub, err := h.Subscribe(sessionID)
		if err != nil {
			conn.sendError(err.Error())
			leaveQuietly(ctx, h, sessionID, caller.UserID)
			return
		}
		defer cancelSub()

		// Event pump: hub events to the client until the subscription
		// closes or a write fails.
		pumpDone := make(chan struct{})
		go func() {
			defer close(pumpDone)
			for ev := range events {
				if err := conn.writeJSON(WSEvent{Event: ev.Kind(), Data: ev}); err != nil {
					slog.Debug("collab.handlers: event write failed, dropping pump",
						"session_id", sessionID, "error", err)
					return
				}
			}
		}()

		for {
			var req WSRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("collab.handlers: websocket client disconnected",
					"session_id", sessionID, "user_id", caller.UserID)
				break
			}
			if req.Action == "leave" {
				break
			}
			routeFrame(ctx, h, conn, sessionID, caller.UserID, caller.DisplayName, req)
		}

		leaveQuietly(ctx, h, sessionID, caller.UserID)
		cancelSub()
		<-pumpDone
	}
}

// leaveQuietly removes the participant on disconnect. The session may
// already be ended or evicted by then; those outcomes are expected and
// not worth surfacing.
func leaveQuietly(ctx context.Context, h *hub.Hub, sessionID, userID string) {
	err := h.LeaveSession(ctx, sessionID, userID)
	if err == nil ||
		errors.Is(err, hub.ErrSessionNotFound) ||
		errors.Is(err, hub.ErrSessionNotActive) ||
		errors.Is(err, hub.ErrParticipantNotFound) {
		return
	}
	slog.Warn("collab.handlers: leave on disconnect failed",
		"session_id", sessionID, "user_id", userID, "error", err)
}

// routeFrame dispatches one client frame to the hub and reports failures
// back on the socket. Hub errors never terminate the connection; the
// client decides whether to retry or resynchronize.
func routeFrame(ctx context.Context, h *hub.Hub, conn *wsConn, sessionID, userID, userName string, req WSRequest) {
	switch req.Action {
	case "operation":
		if req.Operation == nil {
			conn.sendError("operation payload is required")
			return
		}
		if err := req.Operation.Validate(); err != nil {
			conn.sendError(err.Error())
			return
		}
		result, err := h.ApplyOperation(ctx, sessionID, userID, req.Operation.ToOperation(userID))
		if err != nil {
			conn.sendError(err.Error())
			return
		}
		if err := conn.writeJSON(gin.H{"action": "operation_ack", "version": result.Version}); err != nil {
			slog.Warn("collab.handlers: failed to ack operation", "error", err)
		}

	case "cursor":
		if req.Cursor == nil {
			conn.sendError("cursor payload is required")
			return
		}
		if err := req.Cursor.Validate(); err != nil {
			conn.sendError(err.Error())
			return
		}
		pos := datatypes.CursorPosition{Line: req.Cursor.Line, Column: req.Cursor.Column}
		if err := h.UpdateCursor(ctx, sessionID, userID, pos); err != nil {
			conn.sendError(err.Error())
		}

	case "chat":
		if req.Chat == nil {
			conn.sendError("chat payload is required")
			return
		}
		if err := req.Chat.Validate(); err != nil {
			conn.sendError(err.Error())
			return
		}
		msg, err := h.SendChat(ctx, sessionID, userID, userName, req.Chat.Content, req.Chat.MessageType())
		if err != nil {
			conn.sendError(err.Error())
			return
		}
		if msg == nil {
			conn.sendError("chat is disabled for this session")
		}

	case "reaction":
		if req.Reaction == nil {
			conn.sendError("reaction payload is required")
			return
		}
		if err := req.Reaction.Validate(); err != nil {
			conn.sendError(err.Error())
			return
		}
		if err := h.AddReaction(ctx, sessionID, req.Reaction.MessageID, userID, req.Reaction.Emoji); err != nil {
			conn.sendError(err.Error())
		}

	case "checkpoint":
		description := ""
		if req.Checkpoint != nil {
			if err := req.Checkpoint.Validate(); err != nil {
				conn.sendError(err.Error())
				return
			}
			description = req.Checkpoint.Description
		}
		if _, err := h.CreateCheckpoint(ctx, sessionID, userID, description); err != nil {
			conn.sendError(err.Error())
		}

	case "restore":
		if req.CheckpointID == "" {
			conn.sendError("checkpoint_id is required")
			return
		}
		if err := h.RestoreCheckpoint(ctx, sessionID, req.CheckpointID); err != nil {
			conn.sendError(err.Error())
		}

	case "status":
		statusReq := datatypes.SessionStatusRequest{Status: req.Status}
		if err := statusReq.Validate(); err != nil {
			conn.sendError(err.Error())
			return
		}
		if err := h.SetSessionStatus(ctx, sessionID, userID, datatypes.SessionStatus(req.Status)); err != nil {
			conn.sendError(err.Error())
		}

	case "presence":
		presenceReq := datatypes.PresenceRequest{Status: req.Presence}
		if err := presenceReq.Validate(); err != nil {
			conn.sendError(err.Error())
			return
		}
		if err := h.SetParticipantStatus(ctx, sessionID, userID, datatypes.PresenceStatus(req.Presence)); err != nil {
			conn.sendError(err.Error())
		}

	case "role":
		if req.Role == nil {
			conn.sendError("role payload is required")
			return
		}
		if err := req.Role.Validate(); err != nil {
			conn.sendError(err.Error())
			return
		}
		if err := h.ChangeRole(ctx, sessionID, userID, req.Role.UserID, datatypes.Role(req.Role.Role)); err != nil {
			conn.sendError(err.Error())
		}

	default:
		conn.sendError("unknown action: " + req.Action)
	}
}
