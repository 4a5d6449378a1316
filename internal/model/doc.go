// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: append-only transcript of settled messages
//   - Message: immutable entry with role, content and timestamp
//   - Role: user, assistant, and the request-only system role
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("Hello!")
//	req := conv.ToRequest("You are DevRoot AI, a helpful assistant.")
package model
