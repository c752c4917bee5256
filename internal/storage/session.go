// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable local persistence for the polychat
// client. The only durable state is the session slot: one JSON record
// under a fixed name holding {user, credential, isAuthenticated}. It is
// read once at process start and rewritten on every session mutation of
// those fields. Loading flags are never persisted.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/jeranaias/polychat-tui/internal/model"
	"github.com/jeranaias/polychat-tui/internal/util"
)

// sessionFileName is the fixed name of the durable session slot.
const sessionFileName = "session.json"

// ErrCorruptSession is returned when the session slot exists but cannot
// be decoded. Callers treat it the same as an empty slot after
// surfacing the problem.
var ErrCorruptSession = errors.New("session record is corrupt")

// =============================================================================
// SESSION RECORD
// =============================================================================

// SessionRecord is the persisted subset of session state.
type SessionRecord struct {
	User            *model.User `json:"user"`
	Credential      string      `json:"credential"`
	IsAuthenticated bool        `json:"isAuthenticated"`
}

// IsEmpty returns true when the record holds no session.
func (r SessionRecord) IsEmpty() bool {
	return r.User == nil && r.Credential == "" && !r.IsAuthenticated
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore reads and writes the durable session slot.
type SessionStore struct {
	// BaseDir is the directory holding the slot.
	// Default: ~/.polychat/
	BaseDir string
}

// NewSessionStore creates a store under the user's home directory.
func NewSessionStore() (*SessionStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Join(homeDir, ".polychat")
	return NewSessionStoreWithDir(baseDir)
}

// NewSessionStoreWithDir creates a store with a custom directory.
func NewSessionStoreWithDir(baseDir string) (*SessionStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}
	return &SessionStore{BaseDir: baseDir}, nil
}

// Load reads the session slot. A missing slot is not an error: it
// returns an empty record, the same state as after logout.
func (s *SessionStore) Load() (SessionRecord, error) {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return SessionRecord{}, nil
		}
		return SessionRecord{}, err
	}

	var record SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return SessionRecord{}, ErrCorruptSession
	}
	return record, nil
}

// Save persists the record, replacing whatever slot existed.
// The credential is a bearer token: the file is owner-read/write only.
func (s *SessionStore) Save(record SessionRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	// RELIABILITY: Atomic write with fsync prevents a torn session file.
	return util.WriteFileAtomic(s.filePath(), data, 0600)
}

// Clear removes the slot entirely. Missing slot is not an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.filePath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// filePath returns the fixed path of the session slot.
func (s *SessionStore) filePath() string {
	return filepath.Join(s.BaseDir, sessionFileName)
}
