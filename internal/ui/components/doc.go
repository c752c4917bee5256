// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable UI components for the polychat
// TUI: toast notifications, the conversation sidebar, the model
// selector, and the status bar.
package components
