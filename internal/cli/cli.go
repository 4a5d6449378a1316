// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Flag parsing and the line-mode front end for devroot.
package cli

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"sort"
	"strings"

	"github.com/jeranaias/devroot-tui/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ErrUnknownFlag is returned by Parse for flags it does not understand.
var ErrUnknownFlag = errors.New("unknown flag")

// Args holds parsed CLI arguments.
type Args struct {
	ConfigPath string
	Model      string
	Plain      bool
	Version    bool
	Help       bool

	// Get names a config key to print instead of starting a chat.
	Get string

	// InitConfig writes the effective config to disk and exits.
	InitConfig bool

	// Sets holds --set key=value overrides in order of appearance.
	Sets []string
}

const usageText = `devroot - chat with DevRoot AI in your terminal

Usage:
  devroot [flags]

Flags:
  -c, --config PATH     Config file (default ~/.devroot/config.toml)
  -m, --model NAME      Model to use (overrides service.model)
      --set KEY=VALUE   Override any config key, may be repeated
      --plain           Line mode instead of the full-screen UI
      --get KEY         Print one config value and exit
      --init-config     Write the effective config (without the API key) and exit
  -v, --version         Show version
  -h, --help            Show this help

Environment:
  DEVROOT_API_KEY, GROQ_API_KEY   API key for the completion service
  DEVROOT_BASE_URL, DEVROOT_MODEL, DEVROOT_PROVIDER, DEVROOT_LOG_LEVEL
  NO_COLOR                        Disable colors

Config keys (for --set):
`

var boolFlags = []string{"plain", "init-config", "version", "v", "help", "h"}

var valueFlags = map[string]bool{
	"config": true, "c": true,
	"model": true, "m": true,
	"set": true,
	"get": true,
}

// Parse reads command line flags (without the program name).
func Parse(argv []string) (Args, error) {
	p := NewArgParser(argv, boolFlags...)

	for _, name := range p.Names() {
		if !valueFlags[name] && !slices.Contains(boolFlags, name) {
			return Args{}, fmt.Errorf("%w: --%s", ErrUnknownFlag, name)
		}
	}
	for _, name := range []string{"config", "c", "model", "m", "set", "get"} {
		if p.HasFlag(name) && p.Flag(name) == "" {
			return Args{}, fmt.Errorf("flag --%s needs a value", name)
		}
	}
	if pos := p.Positional(); len(pos) > 0 {
		return Args{}, fmt.Errorf("unexpected argument %q", pos[0])
	}

	args := Args{
		ConfigPath: p.FlagOrDefault("config", p.Flag("c")),
		Model:      p.FlagOrDefault("model", p.Flag("m")),
		Plain:      p.BoolFlag("plain"),
		Version:    p.AnyBool("version", "v"),
		Help:       p.AnyBool("help", "h"),
		Sets:       p.Flags("set"),
		Get:        p.Flag("get"),
		InitConfig: p.BoolFlag("init-config"),
	}
	for _, s := range args.Sets {
		if _, _, err := ParseAssignment(s); err != nil {
			return Args{}, err
		}
	}
	return args, nil
}

// ApplyOverrides applies --model, --plain and --set to cfg and validates
// the result.
func ApplyOverrides(cfg *config.Config, args Args) error {
	if args.Model != "" {
		cfg.Service.Model = args.Model
	}
	if args.Plain {
		cfg.UI.Plain = true
	}
	for _, s := range args.Sets {
		key, value, err := ParseAssignment(s)
		if err != nil {
			return err
		}
		if err := cfg.Set(key, value); err != nil {
			return fmt.Errorf("--set %s: %w", key, err)
		}
	}
	return cfg.Validate()
}

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
	keys := config.GetAllKeys()
	sort.Strings(keys)
	fmt.Fprintf(w, "  %s\n", strings.Join(keys, "\n  "))
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "devroot %s\n", Version)
	fmt.Fprintf(w, "  commit:  %s\n", GitCommit)
	fmt.Fprintf(w, "  built:   %s\n", BuildDate)
	fmt.Fprintf(w, "  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
