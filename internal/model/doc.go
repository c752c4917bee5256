// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the polychat
// client: users, messages, conversations, and model references.
//
// JSON tags follow the chat service's wire format (lowerCamelCase) so the
// same types serve both the API layer and local persistence.
package model
