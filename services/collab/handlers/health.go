// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP and WebSocket transport for the
// collab service. Handlers validate and decode requests, resolve the
// caller's identity, delegate to the hub, and map hub sentinel errors to
// HTTP status codes. All session semantics live in the hub; nothing in
// this package mutates session state directly.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleHealthCheck reports service liveness.
func HandleHealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "collab"})
	}
}
