// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/devroot-tui/internal/session"
)

// =============================================================================
// MESSAGES
// =============================================================================

// SessionEventMsg wraps a session.Event delivered into the Bubble Tea loop.
type SessionEventMsg struct {
	Event session.Event
}

// ConfigReloadedMsg reports that the config file was reloaded.
type ConfigReloadedMsg struct {
	Model string
}

type caretBlinkMsg struct{}

// =============================================================================
// BRIDGE
// =============================================================================

// Sender is the part of tea.Program the bridge needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge forwards session events to a running program, in order.
//
// Handle never blocks: Submit emits its event on the goroutine running
// Update, and tea.Program.Send would wait on that same loop. Messages are
// queued and delivered by a pump goroutine started in Attach. Events that
// arrive before Attach are dropped; the model re-reads session state on
// every message.
type Bridge struct {
	mu     sync.Mutex
	sender Sender
	queue  []tea.Msg
	wake   chan struct{}
	done   chan struct{}
	exited chan struct{}
	closed bool
}

// NewBridge creates an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Attach sets the program that receives events and starts delivery. Only
// the first call has an effect.
func (b *Bridge) Attach(s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sender != nil || b.closed {
		return
	}
	b.sender = s
	b.exited = make(chan struct{})
	go b.pump(s, b.exited)
}

// Handle is a session event handler (see session.WithEventHandler).
func (b *Bridge) Handle(ev session.Event) {
	b.Send(SessionEventMsg{Event: ev})
}

// Send queues an arbitrary message, e.g. ConfigReloadedMsg.
func (b *Bridge) Send(msg tea.Msg) {
	b.mu.Lock()
	if b.sender == nil || b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Close stops delivery and waits for the pump to exit. Queued messages are
// discarded.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.queue = nil
	exited := b.exited
	close(b.done)
	b.mu.Unlock()

	if exited != nil {
		<-exited
	}
}

func (b *Bridge) pump(s Sender, exited chan struct{}) {
	defer close(exited)
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}

		b.mu.Lock()
		batch := b.queue
		b.queue = nil
		b.mu.Unlock()

		for _, msg := range batch {
			select {
			case <-b.done:
				return
			default:
			}
			s.Send(msg)
		}
	}
}
