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

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
)

func TestSendChatAppendsAndBroadcasts(t *testing.T) {
	h := New()
	ctx := context.Background()
	s := mustCreateSession(t, h, nil)

	ch, cancel, err := h.Subscribe(s.ID)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	msg, err := h.SendChat(ctx, s.ID, hostID, hostName, "ship it", datatypes.MessageText)
	if err != nil {
		t.Fatalf("SendChat() error = %v", err)
	}
	if msg == nil || msg.Content != "ship it" || msg.UserID != hostID {
		t.Fatalf("SendChat() message = %+v", msg)
	}

	got, _ := h.GetSession(s.ID)
	if len(got.Chat) != 1 || got.Chat[0].ID != msg.ID {
		t.Errorf("chat history = %+v, want the sent message", got.Chat)
	}

	events := drain(ch)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ce, ok := events[0].(ChatMessageEvent)
	if !ok || ce.Message.ID != msg.ID {
		t.Errorf("event = %+v, want ChatMessageEvent for %s", events[0], msg.ID)
	}
}

func TestSendChatDisabledReturnsNil(t *testing.T) {
	h := New()
	settings := datatypes.DefaultSettings()
	settings.AllowChat = false
	s := mustCreateSession(t, h, &settings)

	msg, err := h.SendChat(context.Background(), s.ID, hostID, hostName, "anyone?", datatypes.MessageText)
	if err != nil {
		t.Fatalf("SendChat() error = %v, want nil", err)
	}
	if msg != nil {
		t.Errorf("SendChat() = %+v, want nil message when chat is disabled", msg)
	}

	got, _ := h.GetSession(s.ID)
	if len(got.Chat) != 0 {
		t.Errorf("chat history = %d messages, want 0", len(got.Chat))
	}
}

func TestAddReaction(t *testing.T) {
	h := New()
	ctx := context.Background()
	s := mustCreateSession(t, h, nil)

	msg, err := h.SendChat(ctx, s.ID, hostID, hostName, "lgtm", datatypes.MessageText)
	if err != nil {
		t.Fatalf("SendChat() error = %v", err)
	}

	ch, cancel, err := h.Subscribe(s.ID)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	if err := h.AddReaction(ctx, s.ID, msg.ID, hostID, "👍"); err != nil {
		t.Fatalf("AddReaction() error = %v", err)
	}
	// Duplicate reaction: silent no-op, no second event.
	if err := h.AddReaction(ctx, s.ID, msg.ID, hostID, "👍"); err != nil {
		t.Fatalf("duplicate AddReaction() error = %v", err)
	}

	got, _ := h.GetSession(s.ID)
	reactions := got.Chat[0].Reactions
	if len(reactions) != 1 || len(reactions[0].UserIDs) != 1 {
		t.Errorf("reactions = %+v, want one user under one emoji", reactions)
	}

	events := drain(ch)
	if len(events) != 1 {
		t.Errorf("reaction events = %d, want 1", len(events))
	}
}

func TestAddReactionUnknownMessage(t *testing.T) {
	h := New()
	s := mustCreateSession(t, h, nil)
	err := h.AddReaction(context.Background(), s.ID, "no-such-message", hostID, "👀")
	if !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("AddReaction() error = %v, want ErrMessageNotFound", err)
	}
}
