// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/devroot-tui/internal/model"
)

const testKey = "gsk_test_abcdefghijklmnopqrstuvwxyz0123456789"

func testMessages() []model.Message {
	return []model.Message{
		model.NewSystemMessage("You are DevRoot AI, a helpful assistant."),
		model.NewUserMessage("Hello"),
	}
}

func newTestClient(url string) *Client {
	return NewClient(testKey).WithBaseURL(url).WithMaxRetries(1)
}

// =============================================================================
// SUCCESS PATH
// =============================================================================

func TestComplete_Success(t *testing.T) {
	var got ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "llama3-70b-8192",
			"choices": [{"message": {"role": "assistant", "content": "Hi there!"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	reply, err := newTestClient(server.URL).Complete(context.Background(), testMessages())
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", reply)

	assert.Equal(t, DefaultModel, got.Model)
	assert.False(t, got.Stream)
	assert.InDelta(t, DefaultTemperature, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, ChatMessage{Role: "system", Content: "You are DevRoot AI, a helpful assistant."}, got.Messages[0])
	assert.Equal(t, ChatMessage{Role: "user", Content: "Hello"}, got.Messages[1])
}

func TestComplete_NoChoicesYieldsEmpty(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices": []}`},
		{"missing choices", `{}`},
		{"empty content", `{"choices": [{"message": {"role": "assistant", "content": ""}}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			reply, err := newTestClient(server.URL).Complete(context.Background(), testMessages())
			require.NoError(t, err)
			assert.Empty(t, reply)
		})
	}
}

// =============================================================================
// FAILURE PATHS
// =============================================================================

func TestComplete_NotConfigured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	_, err := NewClient("   ").WithBaseURL(server.URL).Complete(context.Background(), testMessages())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, calls.Load(), "no request without a key")
}

func TestComplete_ServerErrorIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), testMessages())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "upstream exploded", apiErr.Body)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestComplete_ParsesErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Invalid API Key", "code": "invalid_api_key"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), testMessages())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_api_key", apiErr.Code)
	assert.Equal(t, "Invalid API Key", apiErr.Message)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestComplete_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), testMessages())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestComplete_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Complete(context.Background(), testMessages())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestComplete_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server.URL).Complete(ctx, testMessages())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// =============================================================================
// RETRIES
// =============================================================================

func TestChat_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "second time"}}]}`))
	}))
	defer server.Close()

	client := NewClient(testKey).WithBaseURL(server.URL).WithMaxRetries(2)
	reply, err := client.Complete(context.Background(), testMessages())
	require.NoError(t, err)
	assert.Equal(t, "second time", reply)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChat_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(testKey).WithBaseURL(server.URL).WithMaxRetries(3)
	_, err := client.Complete(context.Background(), testMessages())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestChat_RetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testKey).WithBaseURL(server.URL).WithMaxRetries(2)
	_, err := client.Complete(context.Background(), testMessages())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"500", &APIError{Status: 500}, true},
		{"503", &APIError{Status: 503}, true},
		{"429", &APIError{Status: 429}, true},
		{"400", &APIError{Status: 400}, false},
		{"401", &APIError{Status: 401}, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isRetryable(tc.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, calculateBackoff(1))
	assert.Equal(t, time.Second, calculateBackoff(2))
	assert.Equal(t, 2*time.Second, calculateBackoff(3))
	assert.Equal(t, retryMaxDelay, calculateBackoff(10))
}

// =============================================================================
// LIMITS AND KEY HANDLING
// =============================================================================

func TestReadResponse_SizeLimit(t *testing.T) {
	resp := &http.Response{Body: http.NoBody}
	body, err := readResponse(resp)
	require.NoError(t, err)
	assert.Empty(t, body)

	big := strings.NewReader(strings.Repeat("x", MaxResponseSize+1))
	resp = &http.Response{Body: io.NopCloser(big)}
	_, err = readResponse(resp)
	assert.ErrorContains(t, err, "maximum size")
}

func TestRateLimit_SpacesAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL).WithRateLimit(20)
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Complete(context.Background(), testMessages())
		require.NoError(t, err)
	}
	// Burst of one at 20/s: the second and third call wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestAPIKeyMasked(t *testing.T) {
	assert.Equal(t, "[not set]", NewClient("").APIKeyMasked())
	assert.Equal(t, "none", NewClient("").KeyFingerprint())

	c := NewClient(testKey)
	masked := c.APIKeyMasked()
	assert.NotContains(t, masked, testKey[:8])
	assert.Contains(t, masked, c.KeyFingerprint())
	assert.Len(t, c.KeyFingerprint(), 8)
}

func TestBuilders(t *testing.T) {
	c := NewClient(testKey).
		WithBaseURL("https://example.test/v1/").
		WithModel("mixtral-8x7b-32768").
		WithModel("").
		WithMaxRetries(0).
		WithTimeout(5 * time.Second)

	assert.Equal(t, "https://example.test/v1", c.baseURL)
	assert.Equal(t, "mixtral-8x7b-32768", c.Model())
	assert.Equal(t, 1, c.maxRetries)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.Equal(t, DefaultTimeout, sharedHTTPClient.Timeout, "shared client untouched")
}

func TestComplete_RejectsUnknownRole(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	msgs := append(testMessages(), model.Message{Role: "tool", Content: "result"})

	_, err := NewClient(testKey).WithBaseURL(server.URL).Complete(context.Background(), msgs)
	assert.ErrorIs(t, err, ErrInvalidRole)

	sdk := NewSDKClient(SDKConfig{BaseURL: server.URL, APIKey: testKey, MaxRetries: 1})
	_, err = sdk.Complete(context.Background(), msgs)
	assert.ErrorIs(t, err, ErrInvalidRole)

	assert.Zero(t, hits, "nothing is sent")
}
