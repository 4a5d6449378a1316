// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/devroot-tui/internal/reveal"
	"github.com/jeranaias/devroot-tui/internal/reveal/revealtest"
)

const waitTimeout = 2 * time.Second

// recorder collects frames and commits from a scheduler.
type recorder struct {
	frames  chan reveal.Frame
	commits chan string
}

func newRecorder() *recorder {
	return &recorder{
		frames:  make(chan reveal.Frame, 256),
		commits: make(chan string, 8),
	}
}

func (r *recorder) onFrame(f reveal.Frame) { r.frames <- f }
func (r *recorder) commit(text string)     { r.commits <- text }

func (r *recorder) nextFrame(t *testing.T) reveal.Frame {
	t.Helper()
	select {
	case f := <-r.frames:
		return f
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for frame")
		return reveal.Frame{}
	}
}

func (r *recorder) nextCommit(t *testing.T) string {
	t.Helper()
	select {
	case text := <-r.commits:
		return text
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for commit")
		return ""
	}
}

func (r *recorder) assertNoCommit(t *testing.T) {
	t.Helper()
	select {
	case text := <-r.commits:
		t.Fatalf("commit %q before the final frame", text)
	default:
	}
}

func (r *recorder) assertQuiet(t *testing.T) {
	t.Helper()
	select {
	case f := <-r.frames:
		t.Fatalf("unexpected frame %+v", f)
	case text := <-r.commits:
		t.Fatalf("unexpected commit %q", text)
	case <-time.After(20 * time.Millisecond):
	}
}

func newManualScheduler(rec *recorder) (*reveal.Scheduler, *revealtest.ManualClock) {
	clk := revealtest.NewManualClock()
	s := reveal.New(reveal.Options{
		Cadence: 30 * time.Millisecond,
		Clock:   clk,
		OnFrame: rec.onFrame,
	})
	return s, clk
}

// =============================================================================
// CURSOR TESTS
// =============================================================================

func TestCursor_Basics(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantLen  int
		prefixes []string
	}{
		{"ascii", "abc", 3, []string{"", "a", "ab", "abc"}},
		{"multibyte", "héé", 3, []string{"", "h", "hé", "héé"}},
		{"emoji", "a🙂b", 3, []string{"", "a", "a🙂", "a🙂b"}},
		{"empty", "", 0, []string{""}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := reveal.NewCursor(tc.text)
			require.Equal(t, tc.wantLen, c.Len())

			for i, want := range tc.prefixes {
				assert.Equal(t, i, c.Revealed())
				assert.Equal(t, want, c.Prefix())
				if i < len(tc.prefixes)-1 {
					require.True(t, c.Advance())
				}
			}
			assert.True(t, c.Done())
			assert.False(t, c.Advance(), "advance past end")
			assert.Equal(t, tc.wantLen, c.Revealed())
		})
	}
}

func TestCursor_KeepsTextAsReceived(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantLen  int
		firstOne string
	}{
		{"decomposed accent", "e\u0301x", 2, "e\u0301"},
		{"angstrom sign", "\u212Bngstrom", 8, "\u212B"},
		{"cjk compatibility", "\uF900 cjk", 5, "\uF900"},
		{"ohm sign", "5\u2126", 2, "5"},
		{"flag", "\U0001F1EB\U0001F1F7!", 2, "\U0001F1EB\U0001F1F7"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := reveal.NewCursor(tc.text)
			assert.Equal(t, tc.wantLen, c.Len())
			assert.Equal(t, []byte(tc.text), []byte(c.FullText()))

			require.True(t, c.Advance())
			assert.Equal(t, tc.firstOne, c.Prefix())
			for c.Advance() {
			}
			assert.Equal(t, []byte(tc.text), []byte(c.Prefix()))
		})
	}
}

// =============================================================================
// SCHEDULER TESTS
// =============================================================================

func TestScheduler_RevealsMonotonicallyAndCommitsOnce(t *testing.T) {
	rec := newRecorder()
	s, clk := newManualScheduler(rec)
	defer s.Close()

	const text = "Hi there!"
	require.NoError(t, s.Start(text, rec.commit))
	assert.True(t, s.Active())

	first := rec.nextFrame(t)
	assert.Equal(t, 1, first.Revealed)
	assert.Equal(t, "H", first.Prefix)
	assert.Equal(t, len(text), first.Total)
	assert.False(t, first.Final)

	last := first.Revealed
	for {
		require.True(t, clk.Tick(), "ticker should be live until the final frame")
		f := rec.nextFrame(t)
		require.Equal(t, last+1, f.Revealed, "prefix length must grow by one per tick")
		assert.Equal(t, string([]rune(text)[:f.Revealed]), f.Prefix)
		last = f.Revealed
		if f.Final {
			break
		}
		rec.assertNoCommit(t)
	}

	assert.Equal(t, len(text), last)
	assert.Equal(t, text, rec.nextCommit(t))
	assert.False(t, s.Active())

	// The ticker is released and nothing else fires.
	require.Eventually(t, func() bool { return clk.Live() == 0 }, waitTimeout, time.Millisecond)
	assert.False(t, clk.Tick())
	rec.assertQuiet(t)
}

func TestScheduler_EmptyTextCommitsImmediately(t *testing.T) {
	rec := newRecorder()
	s, clk := newManualScheduler(rec)
	defer s.Close()

	require.NoError(t, s.Start("", rec.commit))

	assert.Equal(t, "", rec.nextCommit(t))
	assert.Equal(t, 0, clk.Created(), "no ticker for an empty reveal")
	rec.assertQuiet(t)
}

func TestScheduler_SingleRuneCommitsWithFirstFrame(t *testing.T) {
	rec := newRecorder()
	s, clk := newManualScheduler(rec)
	defer s.Close()

	require.NoError(t, s.Start("!", rec.commit))

	f := rec.nextFrame(t)
	assert.Equal(t, "!", f.Prefix)
	assert.True(t, f.Final)
	assert.Equal(t, "!", rec.nextCommit(t))
	assert.Equal(t, 0, clk.Created())
}

func TestScheduler_RejectsOverlappingStart(t *testing.T) {
	rec := newRecorder()
	s, _ := newManualScheduler(rec)
	defer s.Close()

	require.NoError(t, s.Start("first", rec.commit))
	rec.nextFrame(t)

	err := s.Start("second", rec.commit)
	assert.ErrorIs(t, err, reveal.ErrRevealInProgress)

	prefix, ok := s.Prefix()
	require.True(t, ok)
	assert.Equal(t, "f", prefix)
}

func TestScheduler_StopCancelsPendingCommit(t *testing.T) {
	rec := newRecorder()
	s, clk := newManualScheduler(rec)
	defer s.Close()

	require.NoError(t, s.Start("abcdef", rec.commit))
	rec.nextFrame(t)
	require.True(t, clk.Tick())
	rec.nextFrame(t)

	s.Stop()

	assert.False(t, s.Active())
	_, ok := s.Prefix()
	assert.False(t, ok)
	assert.False(t, clk.Tick(), "ticker must be stopped after Stop")
	rec.assertQuiet(t)

	// A new episode may start after Stop.
	require.NoError(t, s.Start("z", rec.commit))
	assert.Equal(t, "z", rec.nextCommit(t))
}

func TestScheduler_CloseRejectsStart(t *testing.T) {
	rec := newRecorder()
	s, clk := newManualScheduler(rec)

	require.NoError(t, s.Start("abc", rec.commit))
	rec.nextFrame(t)
	s.Close()

	assert.ErrorIs(t, s.Start("again", rec.commit), reveal.ErrClosed)
	assert.False(t, clk.Tick())
	rec.assertQuiet(t)

	// Close is idempotent.
	s.Close()
}

func TestScheduler_CadenceAppliesToNextEpisode(t *testing.T) {
	rec := newRecorder()
	s, clk := newManualScheduler(rec)
	defer s.Close()

	require.NoError(t, s.Start("ab", rec.commit))
	rec.nextFrame(t)
	assert.Equal(t, 30*time.Millisecond, clk.LastInterval())

	s.SetCadence(5 * time.Millisecond)
	assert.Equal(t, 30*time.Millisecond, clk.LastInterval(), "running episode keeps its cadence")

	require.True(t, clk.Tick())
	rec.nextFrame(t)
	rec.nextCommit(t)

	require.NoError(t, s.Start("cd", rec.commit))
	rec.nextFrame(t)
	assert.Equal(t, 5*time.Millisecond, clk.LastInterval())

	s.SetCadence(0)
	assert.Equal(t, 5*time.Millisecond, s.Cadence(), "non-positive cadence is ignored")
}

func TestScheduler_SystemClock(t *testing.T) {
	rec := newRecorder()
	s := reveal.New(reveal.Options{Cadence: time.Millisecond, OnFrame: rec.onFrame})
	defer s.Close()

	require.NoError(t, s.Start("hello", rec.commit))
	assert.Equal(t, "hello", rec.nextCommit(t))

	var lengths []int
	for len(rec.frames) > 0 {
		lengths = append(lengths, (<-rec.frames).Revealed)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, lengths)
}

func TestNew_Defaults(t *testing.T) {
	s := reveal.New(reveal.Options{})
	defer s.Close()
	assert.Equal(t, reveal.DefaultCadence, s.Cadence())
	assert.False(t, s.Active())
}
