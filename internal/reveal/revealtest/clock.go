// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package revealtest provides a manually driven clock for reveal tests.
package revealtest

import (
	"sync"
	"time"

	"github.com/jeranaias/devroot-tui/internal/reveal"
)

// ManualClock hands out tickers that only fire when Tick is called.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*Ticker
}

// NewManualClock creates a clock starting at an arbitrary fixed time.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// NewTicker implements reveal.Clock.
func (c *ManualClock) NewTicker(d time.Duration) reveal.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &Ticker{
		ch:       make(chan time.Time),
		stopped:  make(chan struct{}),
		interval: d,
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Tick advances time by one interval of each live ticker and delivers the
// tick. It blocks until the receiving goroutine takes it or the ticker is
// stopped, and reports whether any ticker received a tick.
func (c *ManualClock) Tick() bool {
	c.mu.Lock()
	live := make([]*Ticker, 0, len(c.tickers))
	for _, t := range c.tickers {
		if !t.isStopped() {
			live = append(live, t)
		}
	}
	c.mu.Unlock()

	delivered := false
	for _, t := range live {
		c.mu.Lock()
		c.now = c.now.Add(t.interval)
		now := c.now
		c.mu.Unlock()

		select {
		case t.ch <- now:
			delivered = true
		case <-t.stopped:
		}
	}
	return delivered
}

// Live returns the number of tickers that have not been stopped.
func (c *ManualClock) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// Created returns how many tickers were ever handed out.
func (c *ManualClock) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

// LastInterval returns the interval of the most recent ticker, or zero.
func (c *ManualClock) LastInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return 0
	}
	return c.tickers[len(c.tickers)-1].interval
}

// Ticker is the reveal.Ticker handed out by ManualClock.
type Ticker struct {
	ch       chan time.Time
	stopped  chan struct{}
	once     sync.Once
	interval time.Duration
}

// C implements reveal.Ticker.
func (t *Ticker) C() <-chan time.Time { return t.ch }

// Stop implements reveal.Ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

func (t *Ticker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}
