// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %v, want %v", msg.Role, RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID should start with 'msg_', got %q", msg.ID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("this is a fairly long message body")

	preview := msg.Preview(10)
	if len([]rune(preview)) > 10 {
		t.Errorf("Preview too long: %q", preview)
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("Preview should end with ellipsis, got %q", preview)
	}

	short := NewUserMessage("hi")
	if short.Preview(10) != "hi" {
		t.Errorf("short Preview = %q, want %q", short.Preview(10), "hi")
	}
}

func TestRole_DisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("RoleUser.DisplayName() = %q", RoleUser.DisplayName())
	}
	if RoleAssistant.DisplayName() != "Assistant" {
		t.Errorf("RoleAssistant.DisplayName() = %q", RoleAssistant.DisplayName())
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_ModelRef(t *testing.T) {
	conv := &Conversation{ModelProvider: "anthropic", ModelName: "claude-3-haiku"}

	ref := conv.ModelRef()
	if ref.Provider != "anthropic" || ref.Name != "claude-3-haiku" {
		t.Errorf("ModelRef = %v", ref)
	}
	if ref.String() != "anthropic/claude-3-haiku" {
		t.Errorf("ModelRef.String() = %q", ref.String())
	}
}

func TestConversation_Clone(t *testing.T) {
	conv := &Conversation{
		ID:        "c1",
		Title:     "test",
		UpdatedAt: time.Now(),
		Messages:  []Message{NewUserMessage("a"), NewAssistantMessage("b")},
	}

	clone := conv.Clone()
	clone.Messages[0].Content = "mutated"

	if conv.Messages[0].Content != "a" {
		t.Error("Clone should not share message storage with the original")
	}
}

func TestConversation_GetTitle(t *testing.T) {
	conv := &Conversation{}
	if conv.GetTitle() != "New Conversation" {
		t.Errorf("GetTitle = %q", conv.GetTitle())
	}

	conv.Title = "greetings"
	if conv.GetTitle() != "greetings" {
		t.Errorf("GetTitle = %q", conv.GetTitle())
	}
}

func TestConversation_Preview(t *testing.T) {
	conv := &Conversation{
		Messages: []Message{
			NewAssistantMessage("welcome"),
			NewUserMessage("what is the weather"),
		},
	}

	if got := conv.Preview(50); got != "what is the weather" {
		t.Errorf("Preview = %q, want first user message", got)
	}
}

// =============================================================================
// MODEL REF TESTS
// =============================================================================

func TestDefaultModelRef(t *testing.T) {
	ref := DefaultModelRef()
	if ref.Provider != "openai" || ref.Name != "gpt-3.5-turbo" {
		t.Errorf("DefaultModelRef = %v", ref)
	}
	if ref.IsZero() {
		t.Error("DefaultModelRef should not be zero")
	}
}

func TestModelRef_IsZero(t *testing.T) {
	var ref ModelRef
	if !ref.IsZero() {
		t.Error("zero ModelRef should report IsZero")
	}
	if ref.String() != "" {
		t.Errorf("zero ModelRef String = %q", ref.String())
	}
}
