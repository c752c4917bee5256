// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view: the conversation sidebar,
// the message viewport, the input line, and the model selector popup.
//
// The view owns no conversation state. Every mutation goes through the
// conversation manager, and every command resolves into a message that
// re-reads the manager's snapshot. The view is a projection, so an
// out-of-order command resolution can never corrupt what the user
// sees.
package chat
