// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jeranaias/polychat-tui/internal/api"
	"github.com/jeranaias/polychat-tui/internal/model"
	"github.com/jeranaias/polychat-tui/internal/notify"
)

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// ChatService is the chat backend as the manager sees it. Satisfied by
// *api.ChatClient; tests inject fakes.
type ChatService interface {
	ListConversations(ctx context.Context) ([]model.ConversationSummary, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	SendMessage(ctx context.Context, req api.SendRequest) (*api.SendResult, error)
	DeleteConversation(ctx context.Context, id string) error
}

// =============================================================================
// CONVERSATION MANAGER
// =============================================================================

// Manager owns conversation state. All operations are safe for
// concurrent use. Two generation tokens fence out-of-order responses:
// listGen covers the conversation list, focusGen covers the active
// conversation and its messages. A response mutates state only if it
// still holds the latest generation for its slot.
type Manager struct {
	mu sync.Mutex

	// Conversation state
	conversations []model.ConversationSummary
	current       *model.Conversation
	messages      []model.Message
	selectedModel model.ModelRef
	isLoading     bool
	isSending     bool

	// Generation tokens, one per logical slot.
	listGen  uint64
	focusGen uint64

	// Collaborators
	svc      ChatService
	notifier notify.Notifier
}

// NewManager creates a conversation manager with the default model
// selected and no conversation active.
func NewManager(svc ChatService, notifier notify.Notifier) *Manager {
	return &Manager{
		selectedModel: model.DefaultModelRef(),
		svc:           svc,
		notifier:      notifier,
	}
}

// =============================================================================
// STATE ACCESS
// =============================================================================

// State is a read-only snapshot of conversation state.
type State struct {
	Conversations []model.ConversationSummary
	Current       *model.Conversation
	Messages      []model.Message
	SelectedModel model.ModelRef
	IsLoading     bool
	IsSending     bool
}

// Snapshot returns a consistent copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Conversations: append([]model.ConversationSummary(nil), m.conversations...),
		Current:       m.current.Clone(),
		Messages:      append([]model.Message(nil), m.messages...),
		SelectedModel: m.selectedModel,
		IsLoading:     m.isLoading,
		IsSending:     m.isSending,
	}
}

// Conversations returns a copy of the conversation list.
func (m *Manager) Conversations() []model.ConversationSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ConversationSummary(nil), m.conversations...)
}

// Current returns a copy of the active conversation, or nil.
func (m *Manager) Current() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

// Messages returns a copy of the active message sequence.
func (m *Manager) Messages() []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Message(nil), m.messages...)
}

// SelectedModel returns the model the next new conversation will use.
func (m *Manager) SelectedModel() model.ModelRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedModel
}

// IsLoading reports whether a list or conversation fetch is in flight.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isLoading
}

// IsSending reports whether a send is in flight.
func (m *Manager) IsSending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isSending
}

// =============================================================================
// MODEL SELECTION
// =============================================================================

// SetSelectedModel changes the model for the NEXT new conversation.
// While a conversation is active its model binding is fixed, so the
// call is a silent no-op; callers switch models by starting a new
// conversation first.
func (m *Manager) SetSelectedModel(ref model.ModelRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return
	}
	m.selectedModel = ref
}

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// LoadConversations fetches the conversation list and replaces the
// whole collection with the response. On failure the prior list is left
// in place: stale-but-present beats empty.
func (m *Manager) LoadConversations(ctx context.Context) error {
	m.mu.Lock()
	m.listGen++
	gen := m.listGen
	m.isLoading = true
	m.mu.Unlock()

	summaries, err := m.svc.ListConversations(ctx)

	m.mu.Lock()
	if m.listGen != gen {
		// A newer list fetch owns the slot; drop this response.
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.isLoading = false
		m.mu.Unlock()
		message := api.UserMessage(err, "Failed to load conversations")
		m.notifier.Error(message)
		return errors.New(message)
	}
	m.conversations = summaries
	m.isLoading = false
	m.mu.Unlock()
	return nil
}

// =============================================================================
// ACTIVE CONVERSATION
// =============================================================================

// LoadConversation fetches one conversation and makes it active,
// replacing the message sequence and synchronizing the selected model
// to the conversation's bound model. Loading the already-active
// conversation is a silent no-op.
func (m *Manager) LoadConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.current != nil && m.current.ID == id {
		m.mu.Unlock()
		return nil
	}
	m.focusGen++
	gen := m.focusGen
	m.isLoading = true
	m.mu.Unlock()

	conv, err := m.svc.GetConversation(ctx, id)

	m.mu.Lock()
	if m.focusGen != gen {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.isLoading = false
		m.mu.Unlock()
		message := api.UserMessage(err, "Failed to load conversation")
		m.notifier.Error(message)
		return errors.New(message)
	}
	m.current = conv
	m.messages = append([]model.Message(nil), conv.Messages...)
	// Model selection follows the loaded conversation, never the other
	// way around.
	m.selectedModel = conv.ModelRef()
	m.isLoading = false
	m.mu.Unlock()
	return nil
}

// StartNewConversation clears the active conversation and its messages
// synchronously. The selected model is untouched so the next send uses
// whatever was last chosen. Never calls the backend: a conversation
// with no messages does not exist server-side.
func (m *Manager) StartNewConversation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focusGen++ // discard any in-flight load or send for the old focus
	m.current = nil
	m.messages = nil
}

// ClearMessages resets the message sequence without touching the
// active conversation. Used for UI transitions.
func (m *Manager) ClearMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// =============================================================================
// SEND PROTOCOL
// =============================================================================

// SendMessage runs one optimistic chat turn:
//
//  1. The user message is appended locally and isSending is raised
//     BEFORE the network call, so the user sees their message at once.
//  2. On success the active conversation is replaced with the server's
//     authoritative copy and the assistant reply is appended.
//  3. On failure the optimistic append is rolled back by removing the
//     last message. The non-reentrancy guard is what makes
//     remove-the-last correct: at most one optimistic message can be
//     pending.
//
// Empty content and calls made while a send is already in flight are
// silent no-ops, not errors. A send with no active conversation creates
// one server-side; the conversation list is refreshed afterwards so the
// new entry appears.
func (m *Manager) SendMessage(ctx context.Context, content string) error {
	m.mu.Lock()
	if content == "" || m.isSending {
		m.mu.Unlock()
		return nil
	}
	m.focusGen++
	gen := m.focusGen
	wasNew := m.current == nil
	req := api.SendRequest{
		Message:       content,
		ModelProvider: m.selectedModel.Provider,
		ModelName:     m.selectedModel.Name,
	}
	if m.current != nil {
		req.ConversationID = m.current.ID
	}
	m.messages = append(m.messages, model.NewUserMessage(content))
	m.isSending = true
	m.mu.Unlock()

	result, err := m.svc.SendMessage(ctx, req)

	m.mu.Lock()
	if err != nil {
		if m.focusGen == gen && len(m.messages) > 0 {
			// Roll back the optimistic append. If the focus changed
			// while we were in flight the optimistic message is
			// already gone, so there is nothing to remove.
			m.messages = m.messages[:len(m.messages)-1]
		}
		m.isSending = false
		m.mu.Unlock()
		message := api.UserMessage(err, "Failed to send message")
		m.notifier.Error(message)
		return errors.New(message)
	}

	applied := false
	if m.focusGen == gen {
		reply := result.Message
		// Stamp arrival with the client clock so ordering in the view
		// matches what the user experienced.
		reply.Timestamp = time.Now()
		m.current = result.Conversation
		m.messages = append(m.messages, reply)
		applied = true
	}
	m.isSending = false
	m.mu.Unlock()

	if applied && wasNew {
		// First turn of a new conversation: the server just created it,
		// so pull the list again to pick up the new entry. Failures
		// here notify on their own; the send itself succeeded.
		_ = m.LoadConversations(ctx)
	}
	return nil
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteConversation removes a conversation server-side, then applies
// the removal locally. Delete is never optimistic: a wrongly removed
// conversation is much harder for the user to recover from than a
// wrongly appended message. If the deleted conversation was active the
// focus is cleared too, leaving the user on an empty new-chat state.
func (m *Manager) DeleteConversation(ctx context.Context, id string) error {
	if err := m.svc.DeleteConversation(ctx, id); err != nil {
		message := api.UserMessage(err, "Failed to delete conversation")
		m.notifier.Error(message)
		return errors.New(message)
	}

	m.mu.Lock()
	kept := make([]model.ConversationSummary, 0, len(m.conversations))
	for _, summary := range m.conversations {
		if summary.ID != id {
			kept = append(kept, summary)
		}
	}
	m.conversations = kept
	if m.current != nil && m.current.ID == id {
		m.focusGen++ // discard in-flight responses for the dead focus
		m.current = nil
		m.messages = nil
	}
	m.mu.Unlock()

	m.notifier.Success("Conversation deleted")
	return nil
}
