// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Line mode chat for devroot.
//
// Used when stdin or stdout is not a terminal, or with --plain.
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /history            Show the conversation so far
//   /quit, /q, exit     Exit chat
//   Ctrl+C, Ctrl+D      Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/jeranaias/devroot-tui/internal/config"
	"github.com/jeranaias/devroot-tui/internal/model"
	"github.com/jeranaias/devroot-tui/internal/session"
	"github.com/jeranaias/devroot-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineReader reads one line of input.
type LineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// LinerReader provides input history and line editing on top of liner.
type LinerReader struct {
	line        *liner.State
	historyFile string
}

// NewLinerReader creates a reader with history kept in ~/.devroot.
func NewLinerReader() *LinerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	r := &LinerReader{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Prompt reads a line. Non-blank lines are added to the history.
func (r *LinerReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (r *LinerReader) Close() error {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	return r.line.Close()
}

// =============================================================================
// PRINTER
// =============================================================================

// Printer writes reveal frames as they arrive. Its Handle method is a
// session event handler.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	name    string
	printed int
	settled chan struct{}
}

// NewPrinter creates a printer labelling replies with assistantName.
func NewPrinter(out io.Writer, assistantName string) *Printer {
	if assistantName == "" {
		assistantName = "DevRoot AI"
	}
	return &Printer{
		out:     out,
		name:    assistantName,
		settled: make(chan struct{}, 1),
	}
}

// Handle prints the newly revealed runes of each frame and ends the line
// when the reply settles.
func (p *Printer) Handle(ev session.Event) {
	switch ev.Kind {
	case session.EventFrame:
		p.mu.Lock()
		runes := []rune(ev.Frame.Prefix)
		if p.printed == 0 && len(runes) > 0 {
			fmt.Fprint(p.out, Render(AssistantStyle, p.name+":")+" ")
		}
		if len(runes) > p.printed {
			fmt.Fprint(p.out, string(runes[p.printed:]))
			p.printed = len(runes)
		}
		p.mu.Unlock()

	case session.EventSettled:
		p.mu.Lock()
		if p.printed == 0 {
			fmt.Fprint(p.out, Render(AssistantStyle, p.name+":")+" "+ev.Message.Content)
		}
		fmt.Fprintln(p.out)
		p.printed = 0
		p.mu.Unlock()

		select {
		case p.settled <- struct{}{}:
		default:
		}
	}
}

// Settled signals once per settled reply.
func (p *Printer) Settled() <-chan struct{} {
	return p.settled
}

// Printf writes under the printer lock.
func (p *Printer) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// =============================================================================
// CHAT LOOP
// =============================================================================

// Session is the part of session.Session line mode needs.
type Session interface {
	Submit(text string) bool
	Transcript() []model.Message
}

// Options configures a ChatCLI.
type Options struct {
	AssistantName string
	Markdown      bool
	GlamourStyle  string
	Width         int
}

// ChatCLI runs the line mode conversation.
type ChatCLI struct {
	sess    Session
	printer *Printer
	input   LineReader
	opts    Options
}

// NewChatCLI wires a session, its printer and an input source. The printer
// must be the session's event handler.
func NewChatCLI(sess Session, printer *Printer, input LineReader, opts Options) *ChatCLI {
	if opts.AssistantName == "" {
		opts.AssistantName = "DevRoot AI"
	}
	if opts.Width <= 0 {
		opts.Width = DefaultTerminalWidth
	}
	if opts.GlamourStyle == "" {
		opts.GlamourStyle = "notty"
	}
	return &ChatCLI{sess: sess, printer: printer, input: input, opts: opts}
}

// Run reads lines until EOF, Ctrl+C or an exit command. It returns
// ctx.Err() when ctx ends while a reply is pending.
func (c *ChatCLI) Run(ctx context.Context) error {
	c.printWelcome()
	prompt := Render(PromptStyle, "you>") + " "

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := c.input.Prompt(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				c.printer.Printf("\n")
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "/quit", "/q", "/exit", "exit", "quit":
			return nil
		case "/help", "/h":
			c.printHelp()
			continue
		case "/history":
			c.printHistory()
			continue
		}

		if !c.sess.Submit(line) {
			continue
		}
		select {
		case <-c.printer.Settled():
		case <-ctx.Done():
			c.printer.Printf("\n")
			return ctx.Err()
		}
	}
}

func (c *ChatCLI) printWelcome() {
	c.printer.Printf("%s\n%s\n%s\n",
		Render(WelcomeStyle, "Hi, I'm "+c.opts.AssistantName+"."),
		"How can I help you today?",
		Render(DimStyle, "Type /help for commands, Ctrl+D to exit."),
	)
}

func (c *ChatCLI) printHelp() {
	c.printer.Printf("%s\n", Render(DimStyle, strings.Join([]string{
		"/help      Show this help",
		"/history   Show the conversation so far",
		"/quit      Exit",
	}, "\n")))
}

// printHistory prints the transcript, assistant replies as markdown.
func (c *ChatCLI) printHistory() {
	msgs := c.sess.Transcript()
	if len(msgs) == 0 {
		c.printer.Printf("%s\n", Render(DimStyle, "No messages yet."))
		return
	}

	var renderer *glamour.TermRenderer
	if c.opts.Markdown {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStandardStyle(c.opts.GlamourStyle),
			glamour.WithWordWrap(c.opts.Width-4),
		)
	}

	var sb strings.Builder
	sb.WriteString(RenderSeparator(c.opts.Width) + "\n")
	for _, msg := range msgs {
		if msg.Role == model.RoleUser {
			sb.WriteString(Render(PromptStyle, msg.Role.DisplayName()+":") + " " + msg.Content + "\n")
			continue
		}
		sb.WriteString(Render(AssistantStyle, c.opts.AssistantName+":") + "\n")
		body := msg.Content
		if renderer != nil {
			if out, err := renderer.Render(msg.Content); err == nil {
				body = strings.Trim(out, "\n")
			}
		}
		sb.WriteString(body + "\n")
	}
	sb.WriteString(RenderSeparator(c.opts.Width) + "\n")
	sb.WriteString(Render(DimStyle, util.TruncateWidth(
		fmt.Sprintf("%d messages", len(msgs)), c.opts.Width)) + "\n")
	c.printer.Printf("%s", sb.String())
}
