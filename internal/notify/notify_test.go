// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"strings"
	"sync"
	"testing"
)

func TestBus_PublishAndDrain(t *testing.T) {
	bus := NewBus()

	bus.Success("saved")
	bus.Error("boom")

	n1, ok := bus.TryNext()
	if !ok {
		t.Fatal("expected a pending notification")
	}
	if n1.Level != LevelSuccess || n1.Message != "saved" {
		t.Errorf("first notification = %v %q", n1.Level, n1.Message)
	}
	if !strings.HasPrefix(n1.ID, "ntf_") {
		t.Errorf("ID should start with 'ntf_', got %q", n1.ID)
	}

	n2, ok := bus.TryNext()
	if !ok {
		t.Fatal("expected a second notification")
	}
	if n2.Level != LevelError || n2.Message != "boom" {
		t.Errorf("second notification = %v %q", n2.Level, n2.Message)
	}

	if _, ok := bus.TryNext(); ok {
		t.Error("bus should be empty after draining")
	}
}

func TestBus_OverflowDropsOldest(t *testing.T) {
	bus := NewBusWithCapacity(2)

	bus.Info("one")
	bus.Info("two")
	bus.Info("three") // evicts "one"

	n, _ := bus.TryNext()
	if n.Message != "two" {
		t.Errorf("oldest surviving notification = %q, want %q", n.Message, "two")
	}
	n, _ = bus.TryNext()
	if n.Message != "three" {
		t.Errorf("next notification = %q, want %q", n.Message, "three")
	}
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBusWithCapacity(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Error("x")
		}
		close(done)
	}()

	<-done // would hang forever if publish blocked
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBusWithCapacity(4)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Success("s")
				bus.TryNext()
			}
		}()
	}
	wg.Wait()
}

func TestLevel_String(t *testing.T) {
	if LevelSuccess.String() != "success" || LevelError.String() != "error" || LevelInfo.String() != "info" {
		t.Error("Level.String mismatch")
	}
}
