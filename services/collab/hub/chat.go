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
	"fmt"

	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
)

// SendChat appends a message to the session's chat history and
// broadcasts it. When the session's settings disable chat the call
// returns (nil, nil): a disabled feature is a configuration choice, not
// a fault.
func (h *Hub) SendChat(ctx context.Context, sessionID, userID, userName, content string, msgType datatypes.MessageType) (*datatypes.ChatMessage, error) {
	ls, err := h.live(sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	s := ls.data
	if err := requireActive(s); err != nil {
		ls.mu.Unlock()
		return nil, err
	}
	if !s.Settings.AllowChat {
		ls.mu.Unlock()
		return nil, nil
	}
	msg := datatypes.NewChatMessage(userID, userName, content, msgType)
	s.Chat = append(s.Chat, msg)
	out := msg.Clone()
	ls.mu.Unlock()

	h.countChat()
	h.publish(sessionID, ChatMessageEvent{SessionID: sessionID, Message: out.Clone()})
	return out, nil
}

// AddReaction records an emoji reaction on a chat message. Reacting
// twice with the same emoji is a silent no-op; only first-time reactions
// are broadcast.
func (h *Hub) AddReaction(ctx context.Context, sessionID, messageID, userID, emoji string) error {
	ls, err := h.live(sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	s := ls.data
	if err := requireActive(s); err != nil {
		ls.mu.Unlock()
		return err
	}
	var target *datatypes.ChatMessage
	for _, m := range s.Chat {
		if m.ID == messageID {
			target = m
			break
		}
	}
	if target == nil {
		ls.mu.Unlock()
		return fmt.Errorf("message %s in session %s: %w", messageID, sessionID, ErrMessageNotFound)
	}
	added := target.AddReaction(emoji, userID)
	ls.mu.Unlock()

	if added {
		h.publish(sessionID, ReactionAddedEvent{
			SessionID: sessionID,
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
		})
	}
	return nil
}
