// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// MODEL REFERENCE
// =============================================================================

// ModelRef identifies a chat model by provider and name.
type ModelRef struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
}

// DefaultModelRef returns the model used before the user picks one.
func DefaultModelRef() ModelRef {
	return ModelRef{Provider: "openai", Name: "gpt-3.5-turbo"}
}

// IsZero returns true if the reference names no model.
func (r ModelRef) IsZero() bool {
	return r.Provider == "" && r.Name == ""
}

// String returns "provider/name" for display.
func (r ModelRef) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Provider + "/" + r.Name
}

// CatalogModel is one entry of the model catalog service's listing.
type CatalogModel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider,omitempty"`
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a server-identified chat thread with its messages.
//
// The model binding (ModelProvider/ModelName) is fixed at creation and
// must never change once the conversation has at least one message.
type Conversation struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ModelProvider string    `json:"modelProvider"`
	ModelName     string    `json:"modelName"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Messages      []Message `json:"messages,omitempty"`
}

// ModelRef returns the conversation's bound model.
func (c *Conversation) ModelRef() ModelRef {
	return ModelRef{Provider: c.ModelProvider, Name: c.ModelName}
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// Preview returns a short preview from the first user message.
func (c *Conversation) Preview(maxLen int) string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return msg.Preview(maxLen)
		}
	}
	return ""
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Messages = make([]Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	return &clone
}

// =============================================================================
// CONVERSATION SUMMARY
// =============================================================================

// ConversationSummary is the lightweight listing entry returned by the
// chat service's list endpoint (no message bodies).
type ConversationSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ModelProvider string    `json:"modelProvider"`
	ModelName     string    `json:"modelName"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// GetTitle returns the summary title or a default.
func (s ConversationSummary) GetTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return "New Conversation"
}
