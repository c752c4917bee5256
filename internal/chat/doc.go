// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns conversation state: the conversation list, the
// active conversation and its messages, the selected model, and the
// optimistic send protocol.
//
// The manager applies a user message locally before the network call
// confirms it and rolls the append back if the send fails. The
// isSending guard makes the rollback safe: with at most one send in
// flight, "remove the last element" always removes the optimistic
// message.
//
// Manager operations never panic for expected failures. They return an
// error whose message is user-displayable, and every failure is also
// surfaced exactly once through the notifier.
package chat
