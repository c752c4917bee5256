// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Configuration constants for the polychat backend API.
const (
	// DefaultBaseURL is the base URL for the backend API.
	DefaultBaseURL = "http://localhost:5000/api"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors on idempotent requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client with connection pooling for all backend requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// Error variables for common API failures.
var (
	// ErrUnauthorized indicates the credential is missing, invalid, or
	// expired.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrServerError indicates a 5xx response from the backend.
	ErrServerError = errors.New("server error")
)

// APIError represents an error response from the backend. When the
// status maps to one of the sentinel errors above, the sentinel is the
// APIError's cause, so errors.Is checks and message extraction both
// work on the same value.
type APIError struct {
	Message string
	Status  int
	cause   error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d)", e.Status)
}

// Unwrap exposes the sentinel cause, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// UserMessage extracts a user-displayable message from a service error,
// falling back to the provided default. Managers use this to build the
// text for failure notifications without leaking transport details.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsAuthFailure reports whether err is an authentication failure (an
// expired or invalid credential) as opposed to a transient remote
// failure.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// errorResponse is the backend's error body shape: {"error": "..."}.
type errorResponse struct {
	Error string `json:"error"`
}

// CredentialSource supplies the bearer token attached to authenticated
// requests. It is read per request so the transport always sends the
// session's current credential without the managers talking to each
// other.
type CredentialSource func() string

// =============================================================================
// CLIENT
// =============================================================================

// Client is the shared HTTP plumbing for all backend services.
type Client struct {
	baseURL    string
	credential CredentialSource
	httpClient *http.Client
	maxRetries int
	userAgent  string
}

// NewClient creates a client for the given base URL. The credential
// source may be nil for services that never authenticate.
func NewClient(baseURL string, credential CredentialSource) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		credential: credential,
		httpClient: sharedHTTPClient,
		maxRetries: DefaultMaxRetries,
		userAgent:  "polychat/0.1.0",
	}
}

// WithTimeout sets the request timeout. A dedicated http.Client is
// created so the shared pooled client's timeout is left alone.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient = &http.Client{
		Transport: sharedHTTPClient.Transport,
		Timeout:   timeout,
	}
	return c
}

// WithMaxRetries sets the maximum number of retry attempts for
// idempotent requests.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	c.maxRetries = maxRetries
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUEST / RESPONSE PLUMBING
// =============================================================================

// setHeaders sets the standard headers, attaching the bearer credential
// when one is available.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.credential != nil {
		if token := c.credential(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// logRequest logs an API request without exposing sensitive data.
// Headers (credential) and bodies (message content) are never logged.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs an API response with duration, never the body.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API response: %d (%v)", resp.StatusCode, duration)
}

// readResponse reads the response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to Go errors,
// extracting the server's {"error": "..."} message when present.
func handleErrorResponse(statusCode int, body []byte) error {
	message := ""
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message = errResp.Error
	}

	apiErr := &APIError{Message: message, Status: statusCode}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		apiErr.cause = ErrUnauthorized
		apiErr.Message = nonEmpty(message, "invalid or expired credential")
	case statusCode == http.StatusNotFound:
		apiErr.cause = ErrNotFound
	case statusCode == http.StatusTooManyRequests:
		apiErr.cause = ErrRateLimited
		apiErr.Message = nonEmpty(message, "too many requests")
	case statusCode >= 500:
		apiErr.cause = ErrServerError
		apiErr.Message = nonEmpty(message, http.StatusText(statusCode))
	}
	return apiErr
}

// nonEmpty returns s, or fallback when s is empty.
func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServerError) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return false
}

// calculateBackoff returns the delay before the next retry attempt.
func calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: 500ms, 1000ms, 2000ms, ...
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// do performs a single JSON request and decodes the response into out
// (which may be nil for calls that only need an ack).
func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	c.logRequest(req)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)

	// SECURITY: Clear Authorization header after the request so a retained
	// request object can never leak the credential into logs.
	req.Header.Del("Authorization")

	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(startTime))

	body, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// doWithRetry wraps do with exponential backoff for transient errors.
// Only idempotent requests go through this path: a retried send could
// double-apply a chat turn server-side.
func (c *Client) doWithRetry(ctx context.Context, method, path string, reqBody, out any) error {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(attempt - 1)):
			}
		}

		err := c.do(ctx, method, path, reqBody, out)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
