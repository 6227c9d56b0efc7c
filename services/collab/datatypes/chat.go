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

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Message Types
// =============================================================================

// MessageType classifies a chat message.
type MessageType string

const (
	MessageText       MessageType = "text"
	MessageCode       MessageType = "code"
	MessageSystem     MessageType = "system"
	MessageSuggestion MessageType = "suggestion"
)

// =============================================================================
// Chat
// =============================================================================

// Reaction is one emoji with the set of users who added it. UserIDs has
// set semantics; adding the same reaction twice is a no-op.
type Reaction struct {
	Emoji   string   `json:"emoji"`
	UserIDs []string `json:"user_ids"`
}

// ChatMessage is one entry in a session's append-only chat history.
type ChatMessage struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	UserName  string      `json:"user_name"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Reactions []Reaction  `json:"reactions"`
}

// NewChatMessage builds a chat message with a fresh id and timestamp.
func NewChatMessage(userID, userName, content string, msgType MessageType) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserName:  userName,
		Content:   content,
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Reactions: make([]Reaction, 0),
	}
}

// NewSystemMessage builds a membership announcement (join/leave/host
// transfer). System messages carry the system user id.
func NewSystemMessage(content string) *ChatMessage {
	return NewChatMessage(SystemUserID, "System", content, MessageSystem)
}

// AddReaction records the user under the given emoji. Returns false if the
// user had already reacted with that emoji.
func (m *ChatMessage) AddReaction(emoji, userID string) bool {
	for i := range m.Reactions {
		if m.Reactions[i].Emoji != emoji {
			continue
		}
		for _, id := range m.Reactions[i].UserIDs {
			if id == userID {
				return false
			}
		}
		m.Reactions[i].UserIDs = append(m.Reactions[i].UserIDs, userID)
		return true
	}
	m.Reactions = append(m.Reactions, Reaction{Emoji: emoji, UserIDs: []string{userID}})
	return true
}

// Clone returns a deep copy of the message.
func (m *ChatMessage) Clone() *ChatMessage {
	out := *m
	out.Reactions = make([]Reaction, len(m.Reactions))
	for i, r := range m.Reactions {
		ids := make([]string, len(r.UserIDs))
		copy(ids, r.UserIDs)
		out.Reactions[i] = Reaction{Emoji: r.Emoji, UserIDs: ids}
	}
	return &out
}
