// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal implements the typewriter-style disclosure of a response
// that has already been received in full.
//
// A Scheduler owns one Cursor per episode. It publishes a Frame with the
// current prefix on every tick of a fixed cadence and, once the whole text is
// visible, hands the text to a commit callback exactly once.
package reveal

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultCadence is the delay between two revealed characters.
const DefaultCadence = 30 * time.Millisecond

var (
	// ErrRevealInProgress is returned by Start while another episode is active.
	ErrRevealInProgress = errors.New("reveal already in progress")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("reveal scheduler closed")
)

// =============================================================================
// FRAME
// =============================================================================

// Frame is one published snapshot of a reveal.
type Frame struct {
	Prefix   string
	Revealed int
	Total    int
	Final    bool
}

// =============================================================================
// SCHEDULER
// =============================================================================

// Options configures a Scheduler.
type Options struct {
	// Cadence is the tick interval. Zero means DefaultCadence.
	Cadence time.Duration

	// Clock supplies tickers. Nil means SystemClock.
	Clock Clock

	// OnFrame receives every frame, in order, from the scheduler goroutine.
	OnFrame func(Frame)
}

// Scheduler runs at most one reveal episode at a time.
//
// Thread-safety: all methods may be called from any goroutine. Callbacks
// (OnFrame and commit) run on the episode goroutine without the scheduler
// lock held; they must not call Stop or Close.
type Scheduler struct {
	mu      sync.Mutex
	clock   Clock
	cadence time.Duration
	onFrame func(Frame)

	cursor *Cursor
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// New creates an inactive scheduler.
func New(opts Options) *Scheduler {
	if opts.Cadence <= 0 {
		opts.Cadence = DefaultCadence
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	return &Scheduler{
		clock:   opts.Clock,
		cadence: opts.Cadence,
		onFrame: opts.OnFrame,
	}
}

// SetCadence changes the tick interval for episodes started afterwards.
func (s *Scheduler) SetCadence(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cadence = d
}

// Cadence returns the tick interval used for the next episode.
func (s *Scheduler) Cadence() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cadence
}

// Start begins revealing fullText. The first frame (one character) is published
// immediately, then one more character per tick. When the last character is visible the
// ticker stops and commit is called with the full text.
//
// An empty text publishes no frame and commits the empty string at once.
// commit is always invoked from the episode goroutine, never from Start.
func (s *Scheduler) Start(fullText string, commit func(string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.cursor != nil {
		return ErrRevealInProgress
	}

	cur := NewCursor(fullText)
	cur.Advance()

	var ticker Ticker
	if !cur.Done() {
		ticker = s.clock.NewTicker(s.cadence)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.cursor = cur
	s.cancel = cancel
	s.done = done

	go s.run(ctx, cancel, cur, ticker, commit, done)
	return nil
}

// Stop cancels the active episode, if any. When Stop returns no further frame
// or commit will happen for that episode.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cursor = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Close stops the active episode and rejects all future ones.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Stop()
}

// Active reports whether an episode is revealing.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor != nil
}

// Prefix returns the currently revealed text while an episode is active.
func (s *Scheduler) Prefix() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return "", false
	}
	return s.cursor.Prefix(), true
}

// =============================================================================
// EPISODE LOOP
// =============================================================================

func (s *Scheduler) run(ctx context.Context, cancel context.CancelFunc, cur *Cursor, ticker Ticker, commit func(string), done chan struct{}) {
	defer close(done)
	defer cancel()
	if ticker != nil {
		defer ticker.Stop()
	}

	if !s.publish(ctx, cur, commit, false) || ticker == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !s.publish(ctx, cur, commit, true) {
				return
			}
		}
	}
}

// publish optionally advances the cursor, emits the frame and commits on the
// final one. It returns false once the episode is over or was cancelled.
func (s *Scheduler) publish(ctx context.Context, cur *Cursor, commit func(string), advance bool) bool {
	s.mu.Lock()
	if ctx.Err() != nil || s.cursor != cur {
		s.mu.Unlock()
		return false
	}
	if advance {
		cur.Advance()
	}
	finished := cur.Done()
	frame := Frame{
		Prefix:   cur.Prefix(),
		Revealed: cur.Revealed(),
		Total:    cur.Len(),
		Final:    finished,
	}
	if finished {
		s.cursor = nil
		s.cancel = nil
	}
	onFrame := s.onFrame
	s.mu.Unlock()

	if frame.Total > 0 && onFrame != nil {
		onFrame(frame)
	}
	if finished {
		commit(cur.FullText())
		return false
	}
	return true
}
