// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify provides the one-shot notification bus used by the state
// managers to surface transient success/failure toasts to the UI.
//
// Managers publish exactly one notification per user-visible outcome; the
// UI drains the bus and renders each entry once. Publishing never blocks:
// when the buffer is full the oldest entry is dropped so a stalled UI
// cannot wedge a manager operation.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// NOTIFICATION TYPE
// =============================================================================

// Level indicates how a notification should be rendered.
type Level int

const (
	// LevelInfo is a neutral informational notice.
	LevelInfo Level = iota

	// LevelSuccess confirms a completed operation.
	LevelSuccess

	// LevelError reports a failed operation.
	LevelError
)

// String returns the level name for display and logs.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a single transient, user-facing notice.
type Notification struct {
	ID      string
	Level   Level
	Message string
	Time    time.Time
}

// =============================================================================
// NOTIFIER INTERFACE
// =============================================================================

// Notifier is the facility managers publish notifications through.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// =============================================================================
// BUS
// =============================================================================

// DefaultCapacity is the buffer size used by NewBus.
const DefaultCapacity = 16

// Bus is a bounded, non-blocking Notifier with a drainable channel.
type Bus struct {
	mu sync.Mutex
	ch chan Notification
}

// NewBus creates a bus with the default capacity.
func NewBus() *Bus {
	return NewBusWithCapacity(DefaultCapacity)
}

// NewBusWithCapacity creates a bus with a custom buffer capacity.
func NewBusWithCapacity(capacity int) *Bus {
	if capacity < 1 {
		capacity = 1
	}
	return &Bus{ch: make(chan Notification, capacity)}
}

// Success publishes a success notification.
func (b *Bus) Success(message string) {
	b.publish(LevelSuccess, message)
}

// Error publishes an error notification.
func (b *Bus) Error(message string) {
	b.publish(LevelError, message)
}

// Info publishes an informational notification.
func (b *Bus) Info(message string) {
	b.publish(LevelInfo, message)
}

// C returns the channel the UI drains notifications from.
func (b *Bus) C() <-chan Notification {
	return b.ch
}

// TryNext returns the next pending notification without blocking.
func (b *Bus) TryNext() (Notification, bool) {
	select {
	case n := <-b.ch:
		return n, true
	default:
		return Notification{}, false
	}
}

// publish enqueues a notification, evicting the oldest entry when full.
func (b *Bus) publish(level Level, message string) {
	n := Notification{
		ID:      "ntf_" + uuid.NewString(),
		Level:   level,
		Message: message,
		Time:    time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		select {
		case b.ch <- n:
			return
		default:
		}
		// Buffer full: drop the oldest and retry.
		select {
		case <-b.ch:
		default:
		}
	}
}

// =============================================================================
// DISCARD NOTIFIER
// =============================================================================

// Discard is a Notifier that drops everything. Useful in tests that do
// not assert on notifications.
type Discard struct{}

// Success implements Notifier.
func (Discard) Success(string) {}

// Error implements Notifier.
func (Discard) Error(string) {}
