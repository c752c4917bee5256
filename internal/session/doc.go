// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the authenticated-session state: current user,
// bearer credential, authentication flag, and loading flag.
//
// One Manager is constructed per process and handed by reference to
// every consumer. It never talks to the conversation side; the only
// coupling is that the transport layer reads the credential through an
// accessor on every request.
package session
