// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"

	"github.com/jeranaias/polychat-tui/internal/api"
	"github.com/jeranaias/polychat-tui/internal/model"
	"github.com/jeranaias/polychat-tui/internal/notify"
	"github.com/jeranaias/polychat-tui/internal/storage"
)

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// AuthService is the auth backend as the manager sees it. Satisfied by
// *api.AuthClient; tests inject fakes.
type AuthService interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error)
	Register(ctx context.Context, reg api.Registration) (*api.AuthResult, error)
	Me(ctx context.Context) (*model.User, error)
	UpdatePreferences(ctx context.Context, prefs model.Preferences) (*model.User, error)
}

// Store is the durable session slot. Satisfied by *storage.SessionStore.
type Store interface {
	Load() (storage.SessionRecord, error)
	Save(record storage.SessionRecord) error
	Clear() error
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns session state. All operations are safe for concurrent
// use; state is applied under one mutex, and a per-call generation
// token discards responses that resolve after a newer operation has
// superseded them.
type Manager struct {
	mu sync.Mutex

	// Session state
	user            *model.User
	credential      string
	isAuthenticated bool
	isLoading       bool

	// gen is bumped whenever an operation takes ownership of the
	// session slot. A response is applied only if it still holds the
	// latest generation, so a slow login can never overwrite the state
	// a later logout or validate produced.
	gen uint64

	// Collaborators
	auth     AuthService
	store    Store
	notifier notify.Notifier
}

// NewManager creates a session manager, restoring any persisted session
// from the store. The loading flag always starts false: it is never
// persisted.
func NewManager(auth AuthService, store Store, notifier notify.Notifier) *Manager {
	m := &Manager{
		auth:     auth,
		store:    store,
		notifier: notifier,
	}

	if store != nil {
		if record, err := store.Load(); err == nil {
			m.user = record.User
			m.credential = record.Credential
			m.isAuthenticated = record.IsAuthenticated
		}
		// A corrupt slot starts the process unauthenticated; the user
		// just logs in again.
	}

	return m
}

// =============================================================================
// STATE ACCESS
// =============================================================================

// State is a read-only snapshot of session state.
type State struct {
	User            *model.User
	IsAuthenticated bool
	IsLoading       bool
}

// Snapshot returns a consistent copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		User:            m.user.Clone(),
		IsAuthenticated: m.isAuthenticated,
		IsLoading:       m.isLoading,
	}
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.Clone()
}

// IsAuthenticated reports whether the session has been validated
// against the backend since the credential was last set.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isAuthenticated
}

// IsLoading reports whether a login/register/validate call is in flight.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isLoading
}

// Credential returns the current bearer token, or "". The API layer
// uses this as its CredentialSource so each request carries whatever
// the session holds at that moment.
func (m *Manager) Credential() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential
}

// =============================================================================
// LOGIN / REGISTER
// =============================================================================

// Login authenticates with the backend. On success the user,
// credential, and authentication flag are set atomically and persisted.
// On failure any prior session is left untouched except the loading
// flag, and the returned error carries a user-displayable message.
// The outcome is also surfaced as a one-shot notification.
func (m *Manager) Login(ctx context.Context, creds api.Credentials) error {
	gen := m.beginLoading()

	result, err := m.auth.Login(ctx, creds)
	if err != nil {
		m.finishLoading(gen)
		message := api.UserMessage(err, "Login failed")
		m.notifier.Error(message)
		return errors.New(message)
	}

	if m.applyAuthResult(gen, result) {
		m.notifier.Success("Welcome back, " + result.User.DisplayName() + "!")
	}
	return nil
}

// Register creates an account. A successful registration is treated as
// an authenticated session immediately; the contract otherwise matches
// Login.
func (m *Manager) Register(ctx context.Context, reg api.Registration) error {
	gen := m.beginLoading()

	result, err := m.auth.Register(ctx, reg)
	if err != nil {
		m.finishLoading(gen)
		message := api.UserMessage(err, "Registration failed")
		m.notifier.Error(message)
		return errors.New(message)
	}

	if m.applyAuthResult(gen, result) {
		m.notifier.Success("Welcome, " + result.User.DisplayName() + "!")
	}
	return nil
}

// applyAuthResult installs a successful auth payload if the call still
// owns the latest generation. Returns whether the state was applied.
func (m *Manager) applyAuthResult(gen uint64, result *api.AuthResult) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		// Superseded by a newer login/logout/validate; drop the stale
		// response rather than resurrecting an old session.
		return false
	}

	m.user = result.User
	m.credential = result.Token
	m.isAuthenticated = true
	m.isLoading = false
	m.persistLocked()
	return true
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateSession checks the stored credential against the backend's
// "who am I" operation. With no stored credential it only clears the
// loading flag. On success the user record is refreshed. On ANY failure
// the whole session is cleared: a stale credential must not keep the
// client looking authenticated, so validation failure always means
// "session is gone", never "retry later".
func (m *Manager) ValidateSession(ctx context.Context) {
	m.mu.Lock()
	if m.credential == "" {
		m.isLoading = false
		m.mu.Unlock()
		return
	}
	m.gen++
	gen := m.gen
	m.isLoading = true
	m.mu.Unlock()

	user, err := m.auth.Me(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}

	if err != nil {
		m.user = nil
		m.credential = ""
		m.isAuthenticated = false
		m.isLoading = false
		m.persistLocked()
		return
	}

	m.user = user
	m.isAuthenticated = true
	m.isLoading = false
	m.persistLocked()
}

// =============================================================================
// LOGOUT
// =============================================================================

// Logout clears the session synchronously. It never calls the backend:
// the credential simply stops being sent. Idempotent.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.gen++ // discard any in-flight login/validate response
	wasEmpty := m.user == nil && m.credential == "" && !m.isAuthenticated
	m.user = nil
	m.credential = ""
	m.isAuthenticated = false
	m.isLoading = false
	m.persistLocked()
	m.mu.Unlock()

	if !wasEmpty {
		m.notifier.Success("Logged out successfully")
	}
}

// =============================================================================
// PREFERENCES
// =============================================================================

// UpdatePreferences sends a preference update. On success the user is
// replaced with the server's returned copy (the server is authoritative
// for the merged preferences) and persisted. On failure state is
// untouched and the error carries a user-displayable message.
func (m *Manager) UpdatePreferences(ctx context.Context, prefs model.Preferences) error {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	user, err := m.auth.UpdatePreferences(ctx, prefs)
	if err != nil {
		message := api.UserMessage(err, "Failed to update preferences")
		m.notifier.Error(message)
		return errors.New(message)
	}

	m.mu.Lock()
	if m.gen == gen {
		m.user = user
		m.persistLocked()
	}
	m.mu.Unlock()

	m.notifier.Success("Preferences updated successfully")
	return nil
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

// beginLoading takes ownership of the session slot and raises the
// loading flag, returning the generation the caller must present when
// applying its result.
func (m *Manager) beginLoading() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.isLoading = true
	return m.gen
}

// finishLoading lowers the loading flag if the caller still owns the
// latest generation.
func (m *Manager) finishLoading(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == gen {
		m.isLoading = false
	}
}

// persistLocked rewrites the durable slot with the persisted subset of
// session state. Callers hold m.mu. The loading flag is never written.
func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	record := storage.SessionRecord{
		User:            m.user,
		Credential:      m.credential,
		IsAuthenticated: m.isAuthenticated,
	}
	// Persistence failure must not fail the operation itself: the
	// in-memory session stays valid for this process either way.
	_ = m.store.Save(record)
}
