// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import "github.com/rivo/uniseg"

// Cursor tracks how much of a fully received response has been disclosed.
// Lengths are counted in characters (grapheme clusters), so a prefix never
// splits a UTF-8 sequence or separates a letter from its combining marks.
// The text itself is never rewritten.
//
// Invariant: 0 <= Revealed() <= Len().
type Cursor struct {
	text     string
	offsets  []int // offsets[i] is the byte length of the first i characters
	revealed int
}

// NewCursor creates a cursor over fullText with nothing revealed yet.
func NewCursor(fullText string) *Cursor {
	offsets := []int{0}
	rest, state, end := fullText, -1, 0
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		end += len(cluster)
		offsets = append(offsets, end)
	}
	return &Cursor{text: fullText, offsets: offsets}
}

// FullText returns the complete response exactly as received.
func (c *Cursor) FullText() string {
	return c.text
}

// Len returns the total length in characters.
func (c *Cursor) Len() int {
	return len(c.offsets) - 1
}

// Revealed returns the number of characters disclosed so far.
func (c *Cursor) Revealed() int {
	return c.revealed
}

// Prefix returns the disclosed part of the text.
func (c *Cursor) Prefix() string {
	return c.text[:c.offsets[c.revealed]]
}

// Advance discloses one more character. It returns false when the cursor was
// already at the end.
func (c *Cursor) Advance() bool {
	if c.Done() {
		return false
	}
	c.revealed++
	return true
}

// Done reports whether the whole text has been disclosed.
func (c *Cursor) Done() bool {
	return c.revealed >= c.Len()
}
