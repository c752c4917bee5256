// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP clients for the polychat backend:
// the auth service, the chat service, and the model catalog service.
//
// The state managers treat every call here as an opaque asynchronous
// operation that either resolves with a value or fails with a reason.
// Transport-level concerns (connection pooling, TLS, response limits,
// retry for idempotent reads) live in this package and nowhere else.
package api
