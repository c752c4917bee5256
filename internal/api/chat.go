// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jeranaias/polychat-tui/internal/model"
)

// =============================================================================
// CHAT SERVICE SHAPES
// =============================================================================

// SendRequest is the payload for sending one chat message. An empty
// ConversationID signals "create a new conversation from this turn".
type SendRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message"`
	ModelProvider  string `json:"modelProvider"`
	ModelName      string `json:"modelName"`
}

// SendResult is the authoritative outcome of a send: the (possibly
// newly created) conversation and the assistant's reply.
type SendResult struct {
	Conversation *model.Conversation `json:"conversation"`
	Message      model.Message       `json:"message"`
}

// The chat service wraps payloads in a {"data": ...} envelope.
type listEnvelope struct {
	Data []model.ConversationSummary `json:"data"`
}

type conversationEnvelope struct {
	Data *model.Conversation `json:"data"`
}

type sendEnvelope struct {
	Data *SendResult `json:"data"`
}

// =============================================================================
// CHAT CLIENT
// =============================================================================

// ChatClient talks to the backend's chat service.
type ChatClient struct {
	client *Client
}

// NewChatClient creates a chat client on top of the shared plumbing.
func NewChatClient(client *Client) *ChatClient {
	return &ChatClient{client: client}
}

// ListConversations fetches the full conversation list, most recent
// first, without message bodies.
func (c *ChatClient) ListConversations(ctx context.Context) ([]model.ConversationSummary, error) {
	var env listEnvelope
	if err := c.client.doWithRetry(ctx, http.MethodGet, "/chat/conversations", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// GetConversation fetches one conversation including its full message
// sequence.
func (c *ChatClient) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var env conversationEnvelope
	path := "/chat/conversations/" + url.PathEscape(id)
	if err := c.client.doWithRetry(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, ErrNotFound
	}
	return env.Data, nil
}

// SendMessage submits one chat turn. Never retried at the transport
// level: the client cannot know whether the backend partially processed
// the turn, so a retry could double-apply it.
func (c *ChatClient) SendMessage(ctx context.Context, req SendRequest) (*SendResult, error) {
	var env sendEnvelope
	if err := c.client.do(ctx, http.MethodPost, "/chat/message", req, &env); err != nil {
		return nil, err
	}
	if env.Data == nil || env.Data.Conversation == nil {
		return nil, &APIError{Message: "malformed send response", Status: http.StatusOK}
	}
	return env.Data, nil
}

// DeleteConversation removes a conversation server-side.
func (c *ChatClient) DeleteConversation(ctx context.Context, id string) error {
	path := "/chat/conversations/" + url.PathEscape(id)
	return c.client.do(ctx, http.MethodDelete, path, nil, nil)
}
