// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/devroot-tui/internal/model"
	"github.com/jeranaias/devroot-tui/internal/reveal"
)

// Default texts and limits.
const (
	DefaultSystemPrompt   = "You are DevRoot AI, a helpful assistant."
	DefaultNoResponseText = "No response from AI."
	DefaultErrorText      = "Oops! Something went wrong."

	// DefaultRequestTimeout bounds one completion request.
	DefaultRequestTimeout = 60 * time.Second
)

// =============================================================================
// STATE
// =============================================================================

// State is the position of the session in its episode cycle.
type State int

const (
	// StateIdle accepts a new submission.
	StateIdle State = iota
	// StateAwaitingResponse covers both the pending request and the reveal.
	StateAwaitingResponse
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Completer produces the assistant reply for a request. The first message is
// the system instruction, followed by the stored transcript.
//
// Implementations must return when ctx is done.
type Completer interface {
	Complete(ctx context.Context, messages []model.Message) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, messages []model.Message) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, messages []model.Message) (string, error) {
	return f(ctx, messages)
}

// EventKind identifies an Event.
type EventKind int

const (
	// EventSubmitted follows an accepted Submit. Message is the user message.
	EventSubmitted EventKind = iota
	// EventFrame carries a reveal frame. Frame is set.
	EventFrame
	// EventSettled follows the commit of the assistant message.
	EventSettled
)

// Event notifies a renderer of a change. Handlers run on session or reveal
// goroutines without any session lock held; they may call read accessors.
type Event struct {
	Kind    EventKind
	Episode uint64
	Message model.Message
	Frame   reveal.Frame
}

// =============================================================================
// CONFIG
// =============================================================================

// Config holds the tunable behaviour of a session.
type Config struct {
	// SystemPrompt is prepended to every request and never stored.
	SystemPrompt string

	// NoResponseText replaces an empty reply.
	NoResponseText string

	// ErrorText replaces the reply when the request fails.
	ErrorText string

	// RequestTimeout bounds each completion request.
	RequestTimeout time.Duration

	// Cadence is the reveal tick interval.
	Cadence time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		SystemPrompt:   DefaultSystemPrompt,
		NoResponseText: DefaultNoResponseText,
		ErrorText:      DefaultErrorText,
		RequestTimeout: DefaultRequestTimeout,
		Cadence:        reveal.DefaultCadence,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.NoResponseText == "" {
		c.NoResponseText = def.NoResponseText
	}
	if c.ErrorText == "" {
		c.ErrorText = def.ErrorText
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.Cadence <= 0 {
		c.Cadence = def.Cadence
	}
	return c
}

// Option customizes a Session.
type Option func(*Session)

// WithClock sets the reveal clock.
func WithClock(clock reveal.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventHandler registers the event callback.
func WithEventHandler(fn func(Event)) Option {
	return func(s *Session) { s.onEvent = fn }
}

// =============================================================================
// SESSION
// =============================================================================

// Session is a single chat conversation with at most one episode in flight.
type Session struct {
	mu sync.Mutex

	id      string
	conv    *model.Conversation
	state   State
	episode uint64
	closed  bool
	cfg     Config

	completer Completer
	scheduler *reveal.Scheduler
	clock     reveal.Clock
	logger    *slog.Logger
	onEvent   func(Event)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an idle session with an empty transcript.
func New(completer Completer, cfg Config, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        "sess_" + uuid.NewString(),
		conv:      model.NewConversation(),
		state:     StateIdle,
		cfg:       cfg.withDefaults(),
		completer: completer,
		logger:    slog.Default(),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.id)
	s.scheduler = reveal.New(reveal.Options{
		Cadence: s.cfg.Cadence,
		Clock:   s.clock,
		OnFrame: s.onFrame,
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Submit starts an episode for text. It returns false, changing nothing, when
// text is blank, a reply is still pending, or the session is closed.
func (s *Session) Submit(text string) bool {
	if strings.TrimSpace(text) == "" {
		s.logger.Debug("submission ignored", "reason", "blank")
		return false
	}

	s.mu.Lock()
	if s.closed || s.state != StateIdle {
		reason := "busy"
		if s.closed {
			reason = "closed"
		}
		s.mu.Unlock()
		s.logger.Debug("submission ignored", "reason", reason)
		return false
	}

	msg := s.conv.AddUserMessage(text)
	s.state = StateAwaitingResponse
	s.episode++
	ep := s.episode
	cfg := s.cfg
	request := s.conv.ToRequest(cfg.SystemPrompt)
	count, tokens := s.conv.Len(), s.conv.EstimateTokens()
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug("submission accepted", "episode", ep, "messages", count, "est_tokens", tokens)
	s.emit(Event{Kind: EventSubmitted, Episode: ep, Message: msg})
	go s.request(ep, request, cfg)
	return true
}

// Transcript returns a snapshot of the settled messages.
func (s *Session) Transcript() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Messages()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AwaitingResponse reports whether an episode is in flight.
func (s *Session) AwaitingResponse() bool {
	return s.State() == StateAwaitingResponse
}

// RevealedPrefix returns the visible part of the reply being revealed.
func (s *Session) RevealedPrefix() (string, bool) {
	return s.scheduler.Prefix()
}

// Title returns the conversation title derived from the first user message.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.GetTitle()
}

// Reconfigure replaces the session configuration. Changes apply from the
// next episode on.
func (s *Session) Reconfigure(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.scheduler.SetCadence(cfg.Cadence)
}

// Close cancels the pending request, stops the reveal and waits for the
// session goroutines. Late replies are discarded. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancel()
	s.mu.Unlock()

	s.scheduler.Close()
	s.wg.Wait()
	s.logger.Debug("session closed")
}

// =============================================================================
// EPISODE
// =============================================================================

func (s *Session) request(ep uint64, messages []model.Message, cfg Config) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.complete(ctx, messages)
	duration := time.Since(start)

	switch {
	case err != nil && s.ctx.Err() != nil:
		s.logger.Debug("completion cancelled", "episode", ep)
		return
	case err != nil:
		s.logger.Error("completion failed", "episode", ep, "duration", duration, "error", err)
		reply = cfg.ErrorText
	case reply == "":
		s.logger.Warn("completion returned no content", "episode", ep, "duration", duration)
		reply = cfg.NoResponseText
	default:
		s.logger.Debug("completion received", "episode", ep, "duration", duration, "chars", len(reply))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ep != s.episode {
		s.logger.Debug("late reply discarded", "episode", ep)
		return
	}
	if err := s.scheduler.Start(reply, func(text string) { s.commit(ep, text) }); err != nil {
		panic(fmt.Sprintf("session: reveal for episode %d: %v", ep, err))
	}
}

// complete calls the completer, turning a panic into an error.
func (s *Session) complete(ctx context.Context, messages []model.Message) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completer panic: %v", r)
		}
	}()
	if s.completer == nil {
		return "", fmt.Errorf("no completer configured")
	}
	return s.completer.Complete(ctx, messages)
}

// commit is the reveal commit callback. It appends the assistant message and
// ends the episode.
func (s *Session) commit(ep uint64, text string) {
	s.mu.Lock()
	if s.closed || ep != s.episode {
		s.mu.Unlock()
		return
	}
	if s.state != StateAwaitingResponse {
		s.mu.Unlock()
		panic(fmt.Sprintf("session: commit for episode %d while %s", ep, StateIdle))
	}
	msg := s.conv.AddAssistantMessage(text)
	s.state = StateIdle
	s.mu.Unlock()

	s.emit(Event{Kind: EventSettled, Episode: ep, Message: msg})
}

func (s *Session) onFrame(f reveal.Frame) {
	s.emit(Event{Kind: EventFrame, Frame: f})
}

func (s *Session) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
