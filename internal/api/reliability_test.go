// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Reliability tests for the transport internals: backoff shape,
// retryability classification, and credential hygiene.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, calculateBackoff(0))
	assert.Equal(t, 1*time.Second, calculateBackoff(1))
	assert.Equal(t, 2*time.Second, calculateBackoff(2))

	// Capped: a long outage must not grow delays without bound.
	assert.Equal(t, retryMaxDelay, calculateBackoff(10))
	assert.Equal(t, retryMaxDelay, calculateBackoff(30))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(ErrRateLimited))
	assert.True(t, isRetryable(ErrServerError))

	// Wrapped sentinels still classify.
	assert.True(t, isRetryable(fmt.Errorf("%w: overloaded", ErrServerError)))

	// Caller-initiated aborts and plain failures never retry.
	assert.False(t, isRetryable(context.Canceled))
	assert.False(t, isRetryable(context.DeadlineExceeded))
	assert.False(t, isRetryable(ErrUnauthorized))
	assert.False(t, isRetryable(errors.New("boom")))
}

func TestCredentialReadPerRequest(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	credential := "first"
	client := NewClient(server.URL, func() string { return credential })

	require.NoError(t, client.do(context.Background(), http.MethodGet, "/x", nil, nil))
	credential = "second"
	require.NoError(t, client.do(context.Background(), http.MethodGet, "/x", nil, nil))

	// The source is consulted on every request, so a re-login is
	// picked up without rebuilding the client.
	require.Len(t, seen, 2)
	assert.Equal(t, "Bearer first", seen[0])
	assert.Equal(t, "Bearer second", seen[1])
}

func TestCredentialDroppedWhenCleared(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, func() string { return "" })
	require.NoError(t, client.do(context.Background(), http.MethodGet, "/x", nil, nil))
}
