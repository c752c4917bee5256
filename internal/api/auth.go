// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/jeranaias/polychat-tui/internal/model"
)

// =============================================================================
// AUTH SERVICE SHAPES
// =============================================================================

// Credentials is the login request payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the account creation request payload.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is the payload of a successful authenticate or register
// call: the identity record plus the opaque bearer credential.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// meResponse is the "who am I" response body.
type meResponse struct {
	User *model.User `json:"user"`
}

// =============================================================================
// AUTH CLIENT
// =============================================================================

// AuthClient talks to the backend's auth service.
type AuthClient struct {
	client *Client
}

// NewAuthClient creates an auth client on top of the shared plumbing.
func NewAuthClient(client *Client) *AuthClient {
	return &AuthClient{client: client}
}

// Login authenticates with username/password and returns the user and
// credential. Auth calls are never retried: a second attempt with bad
// credentials just burns a lockout strike server-side.
func (a *AuthClient) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	var result AuthResult
	if err := a.client.do(ctx, http.MethodPost, "/auth/login", creds, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register creates a new account. A successful registration is
// immediately an authenticated session; there is no separate
// verification step.
func (a *AuthClient) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	var result AuthResult
	if err := a.client.do(ctx, http.MethodPost, "/auth/register", reg, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Me validates the stored credential and returns the current user.
func (a *AuthClient) Me(ctx context.Context) (*model.User, error) {
	var resp meResponse
	if err := a.client.doWithRetry(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// UpdatePreferences sends a preference update and returns the server's
// merged copy of the user. The server is authoritative for the merge.
func (a *AuthClient) UpdatePreferences(ctx context.Context, prefs model.Preferences) (*model.User, error) {
	var resp meResponse
	if err := a.client.do(ctx, http.MethodPut, "/auth/preferences", prefs, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}
