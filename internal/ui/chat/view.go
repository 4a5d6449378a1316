// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/devroot-tui/internal/model"
	"github.com/jeranaias/devroot-tui/internal/ui/styles"
	"github.com/jeranaias/devroot-tui/internal/util"
)

// Welcome screen lines, shown while the transcript is empty.
const (
	welcomeTitle    = "Hi, I'm DevRoot AI."
	welcomeSubtitle = "How can I help you today?"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	width := m.width - 2
	name := m.theme.HeaderTitle.Render(m.assistantName)
	sub := util.TruncateWidth(m.modelName, max(width-lipgloss.Width(name)-3, 0))
	right := m.theme.HeaderSubtitle.Render(sub)

	// The conversation title fills whatever room is left between the two.
	room := width - lipgloss.Width(name) - lipgloss.Width(right) - 4
	left := name
	if room > 3 {
		left += m.theme.HeaderSubtitle.Render("  " + util.TruncateWidth(m.sess.Title(), room))
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// CONVERSATION
// =============================================================================

// renderConversation builds the viewport content from the session.
func (m Model) renderConversation() string {
	msgs := m.sess.Transcript()
	awaiting := m.sess.AwaitingResponse()
	if len(msgs) == 0 && !awaiting {
		return m.renderWelcome()
	}

	parts := make([]string, 0, len(msgs)+1)
	for _, msg := range msgs {
		parts = append(parts, m.renderMessage(msg))
	}
	if awaiting {
		parts = append(parts, m.renderPending())
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderWelcome() string {
	block := lipgloss.JoinVertical(lipgloss.Center,
		m.theme.WelcomeTitle.Render(welcomeTitle),
		m.theme.WelcomeSubtitle.Render(welcomeSubtitle),
	)
	return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, block)
}

// roleLabel names the sender of a message. The assistant goes by its
// configured name.
func (m Model) roleLabel(role model.Role) string {
	if role == model.RoleAssistant {
		return m.assistantName
	}
	return role.DisplayName()
}

func (m Model) renderMessage(msg model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return m.renderUserMessage(msg.Content)
	default:
		return m.renderAssistantMessage(msg.Content)
	}
}

func (m Model) renderUserMessage(content string) string {
	width := m.theme.BubbleWidth()
	label := m.theme.UserLabel.Render(m.roleLabel(model.RoleUser))
	bubble := m.theme.UserBubble.Width(width).Render(content)
	block := lipgloss.JoinVertical(lipgloss.Right, label, bubble)
	return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, block)
}

func (m Model) renderAssistantMessage(content string) string {
	width := m.theme.BubbleWidth()
	body := content
	if m.markdown != nil {
		// Border and padding take four columns.
		body = m.markdown.Render(content, max(width-4, 10))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.AssistantLabel.Render(m.roleLabel(model.RoleAssistant)),
		m.theme.AssistantBubble.Width(width).Render(body),
	)
}

// renderPending shows either the thinking spinner or the revealed prefix
// followed by the caret. The prefix is plain text until it settles.
func (m Model) renderPending() string {
	label := m.theme.AssistantLabel.Render(m.roleLabel(model.RoleAssistant))
	prefix, ok := m.sess.RevealedPrefix()
	if !ok {
		prefix = m.prefix
	}
	if prefix == "" {
		return lipgloss.JoinVertical(lipgloss.Left,
			label,
			m.spinner.View()+" "+m.theme.StatusMuted.Render("thinking"),
		)
	}
	caret := m.theme.Caret.Render(styles.CaretFrame(m.caret))
	return lipgloss.JoinVertical(lipgloss.Left,
		label,
		m.theme.AssistantBubble.Width(m.theme.BubbleWidth()).Render(prefix+caret),
	)
}

// =============================================================================
// INPUT
// =============================================================================

func (m Model) renderInput() string {
	width := max(m.width-2, 10)
	if m.sess.AwaitingResponse() {
		hint := util.TruncateWidth(m.assistantName+" is replying...", width-2)
		return m.theme.InputDisabled.Width(width).Render(hint)
	}
	return m.theme.InputContainer.Width(width).Render(m.input.View())
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	var state string
	switch {
	case m.revealing:
		state = m.theme.StatusWaiting.Render("revealing")
	case m.sess.AwaitingResponse():
		state = m.theme.StatusWaiting.Render("waiting")
	default:
		state = m.theme.StatusReady.Render("ready")
	}

	info := fmt.Sprintf("%d messages", len(m.sess.Transcript()))
	if m.statusMsg != "" {
		info += " | " + m.statusMsg
	}
	help := m.keys.helpLine()

	left := state + "  " + m.theme.StatusMuted.Render(info)
	avail := m.width - 2 - lipgloss.Width(left) - 2
	right := ""
	if avail > 0 {
		right = util.PadWidth(util.TruncateWidth(help, avail), avail)
	}
	return m.theme.StatusBar.Render(left + "  " + m.theme.StatusMuted.Render(right))
}
