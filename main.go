// devroot - A terminal chat client for DevRoot AI.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/devroot-tui/internal/cli"
	"github.com/jeranaias/devroot-tui/internal/cloud"
	"github.com/jeranaias/devroot-tui/internal/config"
	"github.com/jeranaias/devroot-tui/internal/logging"
	"github.com/jeranaias/devroot-tui/internal/model"
	"github.com/jeranaias/devroot-tui/internal/session"
	"github.com/jeranaias/devroot-tui/internal/ui/chat"
	"github.com/jeranaias/devroot-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is main without the exit, returning the process status.
func run(argv []string) int {
	args, err := cli.Parse(argv)
	if err != nil {
		printError(err)
		fmt.Fprintln(os.Stderr)
		cli.PrintUsage(os.Stderr)
		return 2
	}
	if args.Help {
		cli.PrintUsage(os.Stdout)
		return 0
	}
	if args.Version {
		cli.PrintVersion(os.Stdout)
		return 0
	}

	if err := config.LoadDotEnv(); err != nil {
		printWarning(err.Error())
	}
	cfg, err := loadConfig(args)
	if err != nil {
		printError(err)
		return 1
	}

	if args.Get != "" {
		value, err := cfg.Get(args.Get)
		if err != nil {
			printError(err)
			return 1
		}
		fmt.Fprintln(os.Stdout, value)
		return 0
	}
	if args.InitConfig {
		path, err := writeConfig(cfg, args.ConfigPath)
		if err != nil {
			printError(err)
			return 1
		}
		fmt.Fprintln(os.Stdout, styles.RenderSuccess("Wrote "+path))
		fmt.Fprintln(os.Stdout, styles.RenderInfo("The API key is not written. Set DEVROOT_API_KEY or GROQ_API_KEY."))
		return 0
	}

	interactive := !cfg.UI.Plain && cli.Interactive()
	logger, logCloser, err := setupLogging(cfg, interactive)
	if err != nil {
		printError(err)
		return 1
	}
	defer logCloser.Close()

	if cfg.Service.APIKey == "" {
		logger.Warn("no API key configured, replies will fall back to the error text",
			"hint", "set DEVROOT_API_KEY or GROQ_API_KEY")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if interactive {
		err = runTUI(ctx, cfg, args, logger)
	} else {
		err = runREPL(ctx, cfg, args, logger)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("devroot exited with error", "error", err)
		printError(err)
		return 1
	}
	return 0
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, styles.RenderError("Error: "+err.Error()))
}

func printWarning(msg string) {
	fmt.Fprintln(os.Stderr, styles.RenderWarning("Warning: "+msg))
}

// =============================================================================
// SETUP
// =============================================================================

// loadConfig reads the config file named by --config, or the default one,
// and applies command line overrides.
func loadConfig(args cli.Args) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil {
			printWarning("using default config: " + err.Error())
		}
	}
	if err := cli.ApplyOverrides(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeConfig saves cfg to path, or to the default location when path is
// empty. The format follows the file extension. The API key is left out so
// it stays in the environment.
func writeConfig(cfg *config.Config, path string) (string, error) {
	out := cfg.Clone()
	out.Service.APIKey = ""

	var err error
	switch {
	case path == "":
		if err = config.EnsureConfigDir(); err != nil {
			return "", err
		}
		if path, err = config.ConfigPathTOML(); err != nil {
			return "", err
		}
		err = config.Save(out)
	case strings.HasSuffix(path, ".json"):
		err = config.SaveJSON(out, path)
	default:
		err = config.SaveTOML(out, path)
	}
	return path, err
}

// setupLogging sends logs to a file while the TUI owns the terminal, and to
// stderr otherwise.
func setupLogging(cfg *config.Config, tui bool) (*slog.Logger, io.Closer, error) {
	opts := logging.Options{Level: cfg.Log.Level, File: cfg.Log.File}
	if tui && opts.File == "" {
		path, err := config.DefaultLogPath()
		if err != nil {
			return nil, nil, err
		}
		opts.File = path
	}
	return logging.Setup(opts)
}

// sessionConfig maps the file config onto a session config.
func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		SystemPrompt:   cfg.Chat.SystemPrompt,
		NoResponseText: cfg.Chat.NoResponseText,
		ErrorText:      cfg.Chat.ErrorText,
		RequestTimeout: cfg.Service.Timeout(),
		Cadence:        cfg.Reveal.Cadence(),
	}
}

// newCompleter builds the client selected by service.provider.
func newCompleter(cfg *config.Config, logger *slog.Logger) session.Completer {
	svc := cfg.Service
	if strings.EqualFold(svc.Provider, config.ProviderSDK) {
		c := cloud.NewSDKClient(cloud.SDKConfig{
			BaseURL:     svc.BaseURL,
			APIKey:      svc.APIKey,
			Model:       svc.Model,
			Temperature: svc.Temperature,
			MaxRetries:  svc.MaxRetries,
			Timeout:     svc.Timeout(),
			Logger:      logger,
		})
		logger.Info("completion client ready", "provider", config.ProviderSDK, "model", c.Model(), "base_url", svc.BaseURL)
		return c
	}

	c := cloud.NewClient(svc.APIKey).
		WithBaseURL(svc.BaseURL).
		WithModel(svc.Model).
		WithTemperature(svc.Temperature).
		WithMaxRetries(svc.MaxRetries).
		WithTimeout(svc.Timeout()).
		WithRateLimit(svc.RequestsPerSecond).
		WithLogger(logger)
	logger.Info("completion client ready", "provider", config.ProviderHTTP, "model", c.Model(),
		"base_url", svc.BaseURL, "api_key", c.APIKeyMasked())
	return c
}

// swappableCompleter forwards to a completer that a config reload can
// replace. A request in flight keeps the client it started with.
type swappableCompleter struct {
	current atomic.Pointer[session.Completer]
}

func newSwappableCompleter(c session.Completer) *swappableCompleter {
	s := &swappableCompleter{}
	s.Swap(c)
	return s
}

func (s *swappableCompleter) Swap(c session.Completer) {
	s.current.Store(&c)
}

func (s *swappableCompleter) Complete(ctx context.Context, messages []model.Message) (string, error) {
	return (*s.current.Load()).Complete(ctx, messages)
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

// watchPath returns the file a running session follows for changes.
func watchPath(args cli.Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	if err := config.EnsureConfigDir(); err != nil {
		return "", err
	}
	return config.ConfigPathTOML()
}

// reloader returns the watcher callback. Command line overrides are applied
// again so they survive a reload.
func reloader(args cli.Args, sess *session.Session, completer *swappableCompleter,
	logger *slog.Logger, notify func(*config.Config)) func(*config.Config) {
	return func(cfg *config.Config) {
		if err := cli.ApplyOverrides(cfg, args); err != nil {
			logger.Warn("reloaded config rejected", "error", err)
			return
		}
		completer.Swap(newCompleter(cfg, logger))
		sess.Reconfigure(sessionConfig(cfg))
		if notify != nil {
			notify(cfg)
		}
	}
}

// startWatcher follows the config file. Failure to watch is not fatal.
func startWatcher(args cli.Args, onChange func(*config.Config), logger *slog.Logger) io.Closer {
	path, err := watchPath(args)
	if err == nil {
		var w *config.Watcher
		if w, err = config.Watch(path, onChange, logger); err == nil {
			return w
		}
	}
	logger.Warn("config hot reload disabled", "error", err)
	return closerFunc(func() error { return nil })
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// =============================================================================
// FRONT ENDS
// =============================================================================

// runTUI runs the full-screen chat.
func runTUI(ctx context.Context, cfg *config.Config, args cli.Args, logger *slog.Logger) error {
	bridge := chat.NewBridge()
	defer bridge.Close()

	completer := newSwappableCompleter(newCompleter(cfg, logger))
	sess := session.New(completer, sessionConfig(cfg),
		session.WithLogger(logger),
		session.WithEventHandler(bridge.Handle),
	)
	defer sess.Close()
	logger.Info("session started", "session", sess.ID(), "model", cfg.Service.Model, "mode", "tui")

	theme := styles.NewTheme(cfg.UI.Theme)
	m := chat.New(sess, chat.Options{
		AssistantName: cfg.Chat.AssistantName,
		ModelName:     cfg.Service.Model,
		Theme:         theme,
		Markdown:      cfg.UI.Markdown,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)

	watcher := startWatcher(args, reloader(args, sess, completer, logger, func(c *config.Config) {
		bridge.Send(chat.ConfigReloadedMsg{Model: c.Service.Model})
	}), logger)
	defer watcher.Close()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runREPL runs line mode.
func runREPL(ctx context.Context, cfg *config.Config, args cli.Args, logger *slog.Logger) error {
	printer := cli.NewPrinter(os.Stdout, cfg.Chat.AssistantName)
	completer := newSwappableCompleter(newCompleter(cfg, logger))
	sess := session.New(completer, sessionConfig(cfg),
		session.WithLogger(logger),
		session.WithEventHandler(printer.Handle),
	)
	defer sess.Close()
	logger.Info("session started", "session", sess.ID(), "model", cfg.Service.Model, "mode", "repl")

	watcher := startWatcher(args, reloader(args, sess, completer, logger, nil), logger)
	defer watcher.Close()

	reader := cli.NewLinerReader()
	defer reader.Close()

	theme := styles.NewTheme(cfg.UI.Theme)
	// NO_COLOR and FORCE_COLOR decide for line mode.
	lipgloss.SetColorProfile(cli.GetColorProfile())
	repl := cli.NewChatCLI(sess, printer, reader, cli.Options{
		AssistantName: cfg.Chat.AssistantName,
		Markdown:      cfg.UI.Markdown,
		GlamourStyle:  theme.GlamourStyle(),
		Width:         cli.GetTerminalWidth(),
	})
	return repl.Run(ctx)
}
