// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the append-only transcript of settled messages.
// Insertion order is display order and chronological order. There is no way
// to remove, edit or reorder an entry once it has been added.
//
// Conversation is not safe for concurrent use; the owning session serializes
// access to it.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time

	messages []Message
}

// NewConversation creates a new conversation with a generated ID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        generateConversationID(),
		CreatedAt: now,
		UpdatedAt: now,
		messages:  make([]Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddUserMessage creates and appends a user message.
func (c *Conversation) AddUserMessage(content string) Message {
	msg := NewUserMessage(content)
	c.add(msg)
	return msg
}

// AddAssistantMessage creates and appends a settled assistant message.
func (c *Conversation) AddAssistantMessage(content string) Message {
	msg := NewAssistantMessage(content)
	c.add(msg)
	return msg
}

func (c *Conversation) add(msg Message) {
	c.messages = append(c.messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
}

// Messages returns a copy of the transcript. Callers may keep and modify the
// returned slice without affecting the conversation.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of settled messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}


// =============================================================================
// REQUEST CONVERSION
// =============================================================================

// ToRequest builds the message list sent to a completion service: a freshly
// synthesized system message followed by the whole transcript in order.
// The system message is not stored in the conversation.
func (c *Conversation) ToRequest(systemPrompt string) []Message {
	out := make([]Message, 0, len(c.messages)+1)
	out = append(out, NewSystemMessage(systemPrompt))
	out = append(out, c.messages...)
	return out
}

// =============================================================================
// TOKEN TRACKING
// =============================================================================

// EstimateTokens estimates the total token count of the conversation.
func (c *Conversation) EstimateTokens() int {
	total := 0
	for _, msg := range c.messages {
		total += msg.EstimateTokens()
		// ~4 tokens of overhead per message
		total += 4
	}
	return total
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user message if not set.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.messages {
		if msg.Role == RoleUser {
			c.Title = msg.Preview(50)
			return
		}
	}
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	return "conv_" + uuid.NewString()
}
