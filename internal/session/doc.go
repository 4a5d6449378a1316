// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the conversation state machine of a single chat.
//
// A Session is either Idle or AwaitingResponse. Submit appends the user
// message, dispatches a completion request in the background and returns at
// once. The reply (or a fixed fallback text when the request fails) is handed
// to a reveal.Scheduler, and the scheduler's commit callback appends the
// assistant message and returns the session to Idle.
//
// # Key Types
//
//   - Session: transcript, state and the episode lifecycle
//   - Completer: the completion service boundary
//   - Event: notifications for renderers (submitted, frame, settled)
//
// # Usage
//
//	s := session.New(client, session.DefaultConfig(),
//	    session.WithEventHandler(func(ev session.Event) { ... }))
//	defer s.Close()
//
//	if !s.Submit(input) {
//	    // blank input, or a reply is still pending
//	}
package session
