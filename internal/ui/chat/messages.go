// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Bubble Tea message types for the chat view. Each message reports
// the completion of one manager operation; the payload carries only
// the error because the view re-reads manager state on arrival.

package chat

import (
	"github.com/jeranaias/polychat-tui/internal/model"
)

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// ConversationsRefreshedMsg signals that a list refresh finished.
type ConversationsRefreshedMsg struct {
	Err error
}

// ConversationOpenedMsg signals that a conversation load finished.
type ConversationOpenedMsg struct {
	ID  string
	Err error
}

// ConversationDeletedMsg signals that a delete finished.
type ConversationDeletedMsg struct {
	ID  string
	Err error
}

// =============================================================================
// SEND MESSAGES
// =============================================================================

// SendCompleteMsg signals that a send finished, success or failure.
// The optimistic append already happened before the command ran.
type SendCompleteMsg struct {
	Err error
}

// =============================================================================
// CATALOG MESSAGES
// =============================================================================

// ModelsLoadedMsg delivers the flattened model catalog.
type ModelsLoadedMsg struct {
	Models []model.CatalogModel
	Err    error
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// LogoutMsg asks the root model to log out and return to the auth
// screen. Emitted by the chat view, handled above it.
type LogoutMsg struct{}

// PreferencesSavedMsg signals that a preferences update finished.
type PreferencesSavedMsg struct {
	Err error
}
