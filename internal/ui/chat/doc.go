// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat view for the DevRoot TUI.

The view is a Bubble Tea model layered over a session.Session. The session
owns the transcript and the request/reveal lifecycle; this package only
renders what the session reports and forwards submissions to it.

# Key Components

## Model (model.go)

The Model struct holds the Bubble Tea components:
  - textinput for the message box ("Message DevRoot AI")
  - viewport for the scrolling transcript
  - spinner shown while the service is being asked

## View Rendering (view.go)

  - Header with assistant name, conversation title and model
  - Welcome screen while the transcript is empty
  - User and assistant bubbles, settled replies rendered as markdown
  - The revealed prefix of the pending reply followed by a blinking caret
  - Input box, dimmed while a reply is pending
  - Status bar

## Bridge (bridge.go)

Session events arrive on session goroutines. Bridge forwards them into the
running tea.Program as SessionEventMsg values:

	bridge := chat.NewBridge()
	sess := session.New(completer, cfg, session.WithEventHandler(bridge.Handle))
	p := tea.NewProgram(chat.New(sess, opts), tea.WithAltScreen())
	bridge.Attach(p)
	_, err := p.Run()

# Key Bindings

  - Enter: submit (ignored while a reply is pending)
  - PgUp/PgDn, Ctrl+U/Ctrl+D: scroll
  - Ctrl+Home/Ctrl+End: top / bottom
  - Ctrl+C, Esc: quit
*/
package chat
