// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the DevRoot chat.

# Color System (colors.go)

Accents (Purple, Cyan, Emerald, Rose, Amber), text tones and the two message
bubble palettes. Every color is a lipgloss.AdaptiveColor so light and dark
terminals both read well. Status helpers (RenderError, RenderInfo, ...) pair
each color with an ASCII indicator.

# Theme (theme.go)

NewTheme builds every lipgloss.Style the chat view uses. The mode comes from
the [ui] theme setting:

	theme := styles.NewTheme("auto")
	theme.SetSize(width, height)
	fmt.Println(theme.UserBubble.Width(theme.BubbleWidth()).Render(text))

NO_COLOR and dumb terminals are honored through termenv.

# Animations (animations.go)

Spinner frame sets for bubbles/spinner and the blinking caret shown after
the revealed prefix.
*/
package styles
