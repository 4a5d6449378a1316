// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDKClient_Complete(t *testing.T) {
	var got struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama3-70b-8192",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Hi there!"}}]
		}`))
	}))
	defer server.Close()

	client := NewSDKClient(SDKConfig{BaseURL: server.URL, APIKey: testKey, MaxRetries: 1})
	reply, err := client.Complete(context.Background(), testMessages())
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", reply)

	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "Hello", got.Messages[1].Content)
}

func TestSDKClient_NotConfigured(t *testing.T) {
	client := NewSDKClient(SDKConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := client.Complete(context.Background(), testMessages())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSDKClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "boom"}}`))
	}))
	defer server.Close()

	client := NewSDKClient(SDKConfig{BaseURL: server.URL, APIKey: testKey, MaxRetries: 1})
	_, err := client.Complete(context.Background(), testMessages())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sdk completion")
}

func TestSDKClient_Defaults(t *testing.T) {
	client := NewSDKClient(SDKConfig{APIKey: testKey})
	assert.Equal(t, DefaultModel, client.Model())
}
