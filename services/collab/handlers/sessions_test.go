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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianCollab/pkg/extensions"
	"github.com/AleutianAI/AleutianCollab/services/collab/archive"
	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
	"github.com/AleutianAI/AleutianCollab/services/collab/hub"
	"github.com/AleutianAI/AleutianCollab/services/collab/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memArchive is a map-backed ArchiveReader for handler tests.
type memArchive struct {
	sessions map[string]*datatypes.Session
}

func (m *memArchive) GetSession(_ context.Context, sessionID string) (*datatypes.Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, archive.ErrNotFound
	}
	return s, nil
}

func (m *memArchive) ListSessionIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

// newSessionRouter wires the REST handlers behind the nop auth provider,
// mirroring the production route layout.
func newSessionRouter(h *hub.Hub, store ArchiveReader) *gin.Engine {
	opts := extensions.DefaultOptions()
	router := gin.New()
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(opts.AuthProvider))

	sessions := v1.Group("/sessions")
	sessions.POST("", HandleCreateSession(h, opts.AuditLogger))
	sessions.GET("", HandleListSessions(h))
	sessions.GET("/:sessionId", HandleGetSession(h))
	sessions.DELETE("/:sessionId", HandleEndSession(h, opts.AuditLogger))
	sessions.PUT("/:sessionId/status", HandleSessionStatus(h))
	sessions.PUT("/:sessionId/role", HandleChangeRole(h))
	sessions.POST("/:sessionId/checkpoints", HandleCreateCheckpoint(h))
	sessions.POST("/:sessionId/checkpoints/:checkpointId/restore", HandleRestoreCheckpoint(h))

	if store != nil {
		archived := v1.Group("/archive")
		archived.GET("/sessions", HandleListArchivedSessions(store))
		archived.GET("/sessions/:sessionId", HandleGetArchivedSession(store))
	}
	return router
}

// do issues a request as the given user and decodes the JSON response.
func do(t *testing.T, router *gin.Engine, method, path, userID string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+userID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if out != nil && w.Code < 300 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w
}

func createTestSession(t *testing.T, router *gin.Engine) *datatypes.Session {
	t.Helper()
	var session datatypes.Session
	w := do(t, router, http.MethodPost, "/v1/sessions", "u-host", datatypes.CreateSessionRequest{
		Name:         "review",
		DocumentPath: "main.go",
		Content:      "package main\n",
		Language:     "go",
	}, &session)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, body = %s", w.Code, w.Body.String())
	}
	return &session
}

func TestHandleCreateSession(t *testing.T) {
	router := newSessionRouter(hub.New(), nil)
	session := createTestSession(t, router)

	if session.HostID != "u-host" {
		t.Errorf("host id = %q, want caller identity", session.HostID)
	}
	if session.Document == nil || session.Document.Version != 1 {
		t.Error("new session document should start at version 1")
	}
	if len(session.Participants) != 1 {
		t.Errorf("participants = %d, want 1 (the host)", len(session.Participants))
	}
}

func TestHandleCreateSessionRejectsInvalidBody(t *testing.T) {
	router := newSessionRouter(hub.New(), nil)

	w := do(t, router, http.MethodPost, "/v1/sessions", "u-host",
		map[string]string{"name": "no document path"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleGetSessionNotFound(t *testing.T) {
	router := newSessionRouter(hub.New(), nil)

	w := do(t, router, http.MethodGet, "/v1/sessions/nope", "u-host", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleListSessions(t *testing.T) {
	router := newSessionRouter(hub.New(), nil)
	createTestSession(t, router)

	var resp struct {
		Sessions []*datatypes.Session `json:"sessions"`
	}
	w := do(t, router, http.MethodGet, "/v1/sessions", "u-host", nil, &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(resp.Sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(resp.Sessions))
	}
}

func TestHandleEndSessionHostOnly(t *testing.T) {
	h := hub.New()
	router := newSessionRouter(h, nil)
	session := createTestSession(t, router)

	w := do(t, router, http.MethodDelete, "/v1/sessions/"+session.ID, "u-other", nil, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("non-host end status = %d, want %d", w.Code, http.StatusForbidden)
	}

	w = do(t, router, http.MethodDelete, "/v1/sessions/"+session.ID, "u-host", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("host end status = %d, body = %s", w.Code, w.Body.String())
	}

	got, err := h.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession() after end error = %v", err)
	}
	if got.Status != datatypes.SessionEnded {
		t.Errorf("status = %q, want ended", got.Status)
	}
}

func TestHandleSessionStatus(t *testing.T) {
	router := newSessionRouter(hub.New(), nil)
	session := createTestSession(t, router)

	w := do(t, router, http.MethodPut, "/v1/sessions/"+session.ID+"/status", "u-host",
		datatypes.SessionStatusRequest{Status: "paused"}, nil)
	if w.Code != http.StatusOK {
		t.Errorf("pause status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPut, "/v1/sessions/"+session.ID+"/status", "u-host",
		datatypes.SessionStatusRequest{Status: "ended"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("ending via status update = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleChangeRole(t *testing.T) {
	h := hub.New()
	router := newSessionRouter(h, nil)
	session := createTestSession(t, router)

	if _, err := h.JoinSession(context.Background(), session.ID, "u-1", "Ben", false); err != nil {
		t.Fatalf("JoinSession() error = %v", err)
	}

	w := do(t, router, http.MethodPut, "/v1/sessions/"+session.ID+"/role", "u-host",
		datatypes.RoleChangeRequest{UserID: "u-1", Role: "viewer"}, nil)
	if w.Code != http.StatusOK {
		t.Errorf("role change status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPut, "/v1/sessions/"+session.ID+"/role", "u-1",
		datatypes.RoleChangeRequest{UserID: "u-host", Role: "viewer"}, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("non-host role change status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestHandleCheckpointRoundTrip(t *testing.T) {
	router := newSessionRouter(hub.New(), nil)
	session := createTestSession(t, router)

	var cp datatypes.Checkpoint
	w := do(t, router, http.MethodPost, "/v1/sessions/"+session.ID+"/checkpoints", "u-host",
		datatypes.CheckpointRequest{Description: "before refactor"}, &cp)
	if w.Code != http.StatusCreated {
		t.Fatalf("create checkpoint status = %d, body = %s", w.Code, w.Body.String())
	}
	if cp.ID == "" {
		t.Fatal("checkpoint id is empty")
	}

	var restored struct {
		Version int `json:"version"`
	}
	w = do(t, router, http.MethodPost,
		"/v1/sessions/"+session.ID+"/checkpoints/"+cp.ID+"/restore", "u-host", nil, &restored)
	if w.Code != http.StatusOK {
		t.Fatalf("restore status = %d, body = %s", w.Code, w.Body.String())
	}
	if restored.Version != 2 {
		t.Errorf("version after restore = %d, want 2", restored.Version)
	}
}

func TestHandleRestoreUnknownCheckpoint(t *testing.T) {
	router := newSessionRouter(hub.New(), nil)
	session := createTestSession(t, router)

	w := do(t, router, http.MethodPost,
		"/v1/sessions/"+session.ID+"/checkpoints/nope/restore", "u-host", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleArchivedSessions(t *testing.T) {
	host := datatypes.NewParticipant("u-host", "Hana", datatypes.RoleHost, 0)
	doc := datatypes.NewDocument("main.go", "package main\n", "go", "u-host")
	archived := datatypes.NewSession("old", host, doc, datatypes.DefaultSettings())
	store := &memArchive{sessions: map[string]*datatypes.Session{archived.ID: archived}}

	router := newSessionRouter(hub.New(), store)

	var listResp struct {
		SessionIDs []string `json:"session_ids"`
	}
	w := do(t, router, http.MethodGet, "/v1/archive/sessions", "u-host", nil, &listResp)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if len(listResp.SessionIDs) != 1 || listResp.SessionIDs[0] != archived.ID {
		t.Errorf("session ids = %v, want [%s]", listResp.SessionIDs, archived.ID)
	}

	var got datatypes.Session
	w = do(t, router, http.MethodGet, "/v1/archive/sessions/"+archived.ID, "u-host", nil, &got)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if got.ID != archived.ID {
		t.Errorf("id = %q, want %q", got.ID, archived.ID)
	}

	w = do(t, router, http.MethodGet, "/v1/archive/sessions/missing", "u-host", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing archive status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
