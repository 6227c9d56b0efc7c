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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AleutianCollab/pkg/extensions"
	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
	"github.com/AleutianAI/AleutianCollab/services/collab/hub"
	"github.com/AleutianAI/AleutianCollab/services/collab/middleware"
)

// wsFrame is the loose shape of any outbound frame, covering both action
// replies and event frames.
type wsFrame struct {
	Action  string          `json:"action"`
	Event   string          `json:"event"`
	Error   string          `json:"error"`
	Version int             `json:"version"`
	Session json.RawMessage `json:"session"`
	Data    json.RawMessage `json:"data"`
}

func newWSServer(t *testing.T, h *hub.Hub) *httptest.Server {
	t.Helper()
	opts := extensions.DefaultOptions()
	router := gin.New()
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(opts.AuthProvider))
	v1.GET("/sessions/:sessionId/ws", HandleSessionWebSocket(h, nil))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server, sessionID, userID, userName string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/sessions/" + sessionID + "/ws"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+userID)
	header.Set("X-Collab-User-Name", userName)

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	var frame wsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

// readEvent skips action replies until an event frame of the given kind
// arrives. Frames for unrelated events fail the test so ordering bugs
// surface instead of hiding.
func readEventOfKind(t *testing.T, conn *websocket.Conn, kind string) wsFrame {
	t.Helper()
	for i := 0; i < 10; i++ {
		frame := readFrame(t, conn)
		if frame.Event == kind {
			return frame
		}
		if frame.Error != "" {
			t.Fatalf("unexpected error frame: %s", frame.Error)
		}
	}
	t.Fatalf("no %q event within 10 frames", kind)
	return wsFrame{}
}

func createWSSession(t *testing.T, h *hub.Hub) *datatypes.Session {
	t.Helper()
	session, err := h.CreateSession(context.Background(), hub.CreateSessionParams{
		Name:         "review",
		HostID:       "u-host",
		HostName:     "Hana",
		DocumentPath: "main.go",
		Content:      "package main\n",
		Language:     "go",
	})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return session
}

func TestWebSocketJoinSendsSnapshot(t *testing.T) {
	h := hub.New()
	session := createWSSession(t, h)
	server := newWSServer(t, h)

	conn := dialWS(t, server, session.ID, "u-1", "Ben")
	frame := readFrame(t, conn)

	if frame.Action != "joined" {
		t.Fatalf("first frame action = %q, want joined", frame.Action)
	}
	var snapshot datatypes.Session
	if err := json.Unmarshal(frame.Session, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.ID != session.ID {
		t.Errorf("snapshot id = %q, want %q", snapshot.ID, session.ID)
	}
	if len(snapshot.Participants) != 2 {
		t.Errorf("participants = %d, want host plus joiner", len(snapshot.Participants))
	}
}

func TestWebSocketJoinUnknownSession(t *testing.T) {
	h := hub.New()
	server := newWSServer(t, h)

	conn := dialWS(t, server, "nope", "u-1", "Ben")
	frame := readFrame(t, conn)
	if frame.Action != "error" || frame.Error == "" {
		t.Errorf("frame = %+v, want error frame for unknown session", frame)
	}
}

func TestWebSocketOperationAck(t *testing.T) {
	h := hub.New()
	session := createWSSession(t, h)
	server := newWSServer(t, h)

	conn := dialWS(t, server, session.ID, "u-1", "Ben")
	readFrame(t, conn) // joined

	err := conn.WriteJSON(WSRequest{
		Action: "operation",
		Operation: &datatypes.OperationRequest{
			Type:    "insert",
			Line:    0,
			Column:  0,
			Content: "// edited\n",
		},
	})
	if err != nil {
		t.Fatalf("write operation: %v", err)
	}

	for i := 0; i < 10; i++ {
		frame := readFrame(t, conn)
		if frame.Action == "operation_ack" {
			if frame.Version != 2 {
				t.Errorf("ack version = %d, want 2", frame.Version)
			}
			return
		}
		if frame.Error != "" {
			t.Fatalf("unexpected error frame: %s", frame.Error)
		}
	}
	t.Fatal("no operation_ack within 10 frames")
}

func TestWebSocketBroadcastBetweenClients(t *testing.T) {
	h := hub.New()
	session := createWSSession(t, h)
	server := newWSServer(t, h)

	alice := dialWS(t, server, session.ID, "u-alice", "Alice")
	readFrame(t, alice) // joined

	bob := dialWS(t, server, session.ID, "u-bob", "Bob")
	readFrame(t, bob) // joined

	// Alice sees Bob arrive.
	joined := readEventOfKind(t, alice, "participantJoined")
	if !strings.Contains(string(joined.Data), "u-bob") {
		t.Errorf("join event data = %s, want it to name u-bob", joined.Data)
	}

	if err := bob.WriteJSON(WSRequest{
		Action: "chat",
		Chat:   &datatypes.ChatMessageRequest{Content: "hello"},
	}); err != nil {
		t.Fatalf("write chat: %v", err)
	}

	chat := readEventOfKind(t, alice, "chatMessage")
	if !strings.Contains(string(chat.Data), "hello") {
		t.Errorf("chat event data = %s, want message content", chat.Data)
	}
}

func TestWebSocketUnknownAction(t *testing.T) {
	h := hub.New()
	session := createWSSession(t, h)
	server := newWSServer(t, h)

	conn := dialWS(t, server, session.ID, "u-1", "Ben")
	readFrame(t, conn) // joined

	if err := conn.WriteJSON(WSRequest{Action: "teleport"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	frame := readFrame(t, conn)
	if frame.Action != "error" || !strings.Contains(frame.Error, "teleport") {
		t.Errorf("frame = %+v, want unknown action error", frame)
	}
}

func TestWebSocketLeaveRemovesParticipant(t *testing.T) {
	h := hub.New()
	session := createWSSession(t, h)
	server := newWSServer(t, h)

	conn := dialWS(t, server, session.ID, "u-1", "Ben")
	readFrame(t, conn) // joined

	if err := conn.WriteJSON(WSRequest{Action: "leave"}); err != nil {
		t.Fatalf("write leave: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		got, err := h.GetSession(session.ID)
		if err != nil {
			t.Fatalf("GetSession() error = %v", err)
		}
		if len(got.Participants) == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("participant still present after leave: %d", len(got.Participants))
		case <-time.After(10 * time.Millisecond):
		}
	}
}
