// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes wires the collab service's HTTP surface onto a Gin engine.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianCollab/pkg/extensions"
	"github.com/AleutianAI/AleutianCollab/services/collab/handlers"
	"github.com/AleutianAI/AleutianCollab/services/collab/hub"
	"github.com/AleutianAI/AleutianCollab/services/collab/middleware"
	"github.com/AleutianAI/AleutianCollab/services/collab/observability"
)

// SetupRoutes registers every route of the collab service.
//
// # Description
//
// Health and metrics are unauthenticated. Everything under /v1 runs behind
// the configured AuthProvider, including the WebSocket endpoint, which
// authenticates during the HTTP handshake before the upgrade.
//
// # Inputs
//
//   - router: Gin engine to register routes on
//   - h: Session hub (required)
//   - store: Archive read surface; nil disables the archive endpoints
//   - opts: Extension options (auth, audit)
//   - metrics: Metrics instance; may be nil when metrics are disabled
func SetupRoutes(
	router *gin.Engine,
	h *hub.Hub,
	store handlers.ArchiveReader,
	opts extensions.ServiceOptions,
	metrics *observability.CollabMetrics,
) {
	router.GET("/health", handlers.HandleHealthCheck())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(opts.AuthProvider))
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.HandleCreateSession(h, opts.AuditLogger))
			sessions.GET("", handlers.HandleListSessions(h))
			sessions.GET("/:sessionId", handlers.HandleGetSession(h))
			sessions.DELETE("/:sessionId", handlers.HandleEndSession(h, opts.AuditLogger))
			sessions.PUT("/:sessionId/status", handlers.HandleSessionStatus(h))
			sessions.PUT("/:sessionId/role", handlers.HandleChangeRole(h))

			sessions.POST("/:sessionId/checkpoints", handlers.HandleCreateCheckpoint(h))
			sessions.POST("/:sessionId/checkpoints/:checkpointId/restore",
				handlers.HandleRestoreCheckpoint(h))

			sessions.GET("/:sessionId/ws", handlers.HandleSessionWebSocket(h, metrics))
		}

		if store != nil {
			archived := v1.Group("/archive")
			{
				archived.GET("/sessions", handlers.HandleListArchivedSessions(store))
				archived.GET("/sessions/:sessionId", handlers.HandleGetArchivedSession(store))
			}
		}
	}
}
