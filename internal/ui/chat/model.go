// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/devroot-tui/internal/model"
	"github.com/jeranaias/devroot-tui/internal/session"
	"github.com/jeranaias/devroot-tui/internal/ui/styles"
)

// DefaultAssistantName is shown when Options.AssistantName is empty.
const DefaultAssistantName = "DevRoot AI"

// Layout heights, kept in sync with view.go.
const (
	headerHeight = 2
	inputHeight  = 3
	statusHeight = 1
)

// Session is the part of session.Session the view needs.
type Session interface {
	Submit(text string) bool
	Transcript() []model.Message
	AwaitingResponse() bool
	RevealedPrefix() (string, bool)
	Title() string
}

// Options configures a chat Model.
type Options struct {
	AssistantName string
	ModelName     string
	Theme         *styles.Theme
	Markdown      bool
	Keys          *KeyMap
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	sess  Session
	theme *styles.Theme
	keys  KeyMap

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	markdown *markdownRenderer

	width  int
	height int
	ready  bool

	assistantName string
	modelName     string
	statusMsg     string

	// Reveal state, refreshed from frames
	prefix    string
	revealing bool
	caret     int
	blinking  bool
	spinning  bool
}

// New creates a chat model over sess.
func New(sess Session, opts Options) Model {
	if opts.AssistantName == "" {
		opts.AssistantName = DefaultAssistantName
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ModeDark)
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}

	ti := textinput.New()
	ti.Placeholder = "Message " + opts.AssistantName
	ti.Prompt = "> "
	ti.PromptStyle = opts.Theme.InputPrompt
	ti.PlaceholderStyle = opts.Theme.InputPlaceholder
	ti.Focus()

	sp := spinner.New(
		spinner.WithSpinner(styles.DotsSpinner.Bubbles()),
		spinner.WithStyle(opts.Theme.Spinner),
	)

	m := Model{
		sess:          sess,
		theme:         opts.Theme,
		keys:          keys,
		viewport:      viewport.New(80, 20),
		input:         ti,
		spinner:       sp,
		assistantName: opts.AssistantName,
		modelName:     opts.ModelName,
	}
	if opts.Markdown {
		m.markdown = newMarkdownRenderer(opts.Theme.GlamourStyle())
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionEventMsg:
		return m.handleSessionEvent(msg.Event)

	case ConfigReloadedMsg:
		if msg.Model != "" {
			m.modelName = msg.Model
		}
		m.statusMsg = "config reloaded"
		return m, nil

	case caretBlinkMsg:
		if !m.revealing {
			m.blinking = false
			return m, nil
		}
		m.caret++
		m.refresh()
		return m, caretBlinkCmd()

	case spinner.TickMsg:
		if !m.sess.AwaitingResponse() || m.revealing {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	vpHeight := msg.Height - headerHeight - inputHeight - statusHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight
	m.input.Width = max(msg.Width-8, 10)
	m.ready = true
	m.refresh()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	// The input box is read-only while a reply is pending.
	if m.sess.AwaitingResponse() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit hands the input to the session. The box is cleared only when the
// session accepts the text.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.sess.AwaitingResponse() {
		return m, nil
	}
	if !m.sess.Submit(m.input.Value()) {
		return m, nil
	}
	m.input.Reset()
	m.input.Blur()
	m.statusMsg = ""
	m.refresh()
	return m, m.startSpinner()
}

func (m Model) handleSessionEvent(ev session.Event) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch ev.Kind {
	case session.EventSubmitted:
		cmd = m.startSpinner()

	case session.EventFrame:
		m.prefix = ev.Frame.Prefix
		m.revealing = !ev.Frame.Final
		if m.revealing && !m.blinking {
			m.blinking = true
			m.caret = 0
			cmd = caretBlinkCmd()
		}

	case session.EventSettled:
		m.prefix = ""
		m.revealing = false
		cmd = m.input.Focus()
	}
	m.refresh()
	return m, cmd
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func caretBlinkCmd() tea.Cmd {
	return tea.Tick(styles.CaretBlinkRate, func(time.Time) tea.Msg {
		return caretBlinkMsg{}
	})
}

// refresh re-renders the transcript into the viewport and keeps it pinned to
// the bottom when it already was.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if atBottom || m.sess.AwaitingResponse() {
		m.viewport.GotoBottom()
	}
}
