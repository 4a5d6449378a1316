// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud talks to OpenAI-compatible chat completion services.
//
// Groq is the default endpoint, but any service exposing
// POST {base}/chat/completions works. Both clients satisfy
// session.Completer.
//
// # Key Types
//
//   - Client: net/http client with retries, rate limiting and size limits
//   - SDKClient: the same contract through the official openai-go SDK
//   - APIError: a non-2xx reply, with status and body
//
// # Usage
//
//	client := cloud.NewClient(apiKey).
//	    WithModel("llama3-70b-8192").
//	    WithRateLimit(2)
//	reply, err := client.Complete(ctx, messages)
//
// # Security
//
// API keys are never logged. Only a short SHA-256 fingerprint is shown, and
// request logging records method, path, status and duration only.
package cloud
