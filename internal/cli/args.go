// args.go - Argument parsing for the devroot command line.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser handles multiple flag formats consistently:
//   - Long flags: --flag value or --flag=value
//   - Short flags: -f value
//   - Boolean flags: --flag (no value needed)
//   - Repeated flags: --set a=1 --set b=2
//   - Positional arguments: arguments without flags
type ArgParser struct {
	flags      map[string][]string // String flags, in order of appearance
	boolFlags  map[string]bool     // Boolean flags (--plain)
	known      map[string]bool     // Names that never take a value
	positional []string
}

// NewArgParser creates a parser from raw arguments. Names listed in
// boolNames are always boolean, so "--plain hello" keeps "hello" positional.
//
// Example:
//
//	args := NewArgParser([]string{"--model", "llama3", "--set=ui.theme=light", "--plain"}, "plain")
//	args.Flag("model")      // "llama3"
//	args.Flags("set")       // []string{"ui.theme=light"}
//	args.BoolFlag("plain")  // true
func NewArgParser(raw []string, boolNames ...string) *ArgParser {
	parser := &ArgParser{
		flags:      make(map[string][]string),
		boolFlags:  make(map[string]bool),
		known:      make(map[string]bool, len(boolNames)),
		positional: make([]string, 0),
	}
	for _, n := range boolNames {
		parser.known[n] = true
	}

	i := 0
	for i < len(raw) {
		arg := raw[i]

		// A lone "--" ends flag parsing
		if arg == "--" {
			parser.positional = append(parser.positional, raw[i+1:]...)
			break
		}

		if !strings.HasPrefix(arg, "-") || arg == "-" {
			parser.positional = append(parser.positional, arg)
			i++
			continue
		}

		// Handle --flag=value format
		if name, value, ok := strings.Cut(arg, "="); ok {
			flagName := strings.TrimLeft(name, "-")
			if parser.known[flagName] || value == "true" || value == "false" {
				parser.boolFlags[flagName] = value != "false"
			} else {
				parser.flags[flagName] = append(parser.flags[flagName], value)
			}
			i++
			continue
		}

		flagName := strings.TrimLeft(arg, "-")
		if !parser.known[flagName] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			parser.flags[flagName] = append(parser.flags[flagName], raw[i+1])
			i += 2
			continue
		}
		parser.boolFlags[flagName] = true
		i++
	}

	return parser
}

// Flag returns the last value of a string flag, or "" if it is absent.
func (p *ArgParser) Flag(name string) string {
	vals := p.Flags(name)
	if len(vals) == 0 {
		return ""
	}
	return vals[len(vals)-1]
}

// Flags returns every value given for a repeated flag.
func (p *ArgParser) Flags(name string) []string {
	return p.flags[strings.TrimLeft(name, "-")]
}

// FlagOrDefault returns the flag value or a default if not found.
func (p *ArgParser) FlagOrDefault(name, defaultValue string) string {
	if val := p.Flag(name); val != "" {
		return val
	}
	return defaultValue
}

// BoolFlag returns the value of a boolean flag. Returns false if not found.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[strings.TrimLeft(name, "-")]
}

// AnyBool reports whether any of the named boolean flags is set, for
// short/long pairs such as "h" and "help".
func (p *ArgParser) AnyBool(names ...string) bool {
	for _, n := range names {
		if p.BoolFlag(n) {
			return true
		}
	}
	return false
}

// HasFlag returns true if the flag exists (either as string or bool flag).
func (p *ArgParser) HasFlag(name string) bool {
	name = strings.TrimLeft(name, "-")
	_, hasString := p.flags[name]
	_, hasBool := p.boolFlags[name]
	return hasString || hasBool
}

// Positional returns all positional arguments.
func (p *ArgParser) Positional() []string {
	return p.positional
}

// Names returns every flag name seen, string and boolean.
func (p *ArgParser) Names() []string {
	names := make([]string, 0, len(p.flags)+len(p.boolFlags))
	for n := range p.flags {
		names = append(names, n)
	}
	for n := range p.boolFlags {
		names = append(names, n)
	}
	return names
}

// =============================================================================
// HELPERS
// =============================================================================

// ParseAssignment splits "key=value". The key must be non-empty.
func ParseAssignment(s string) (key, value string, err error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", s)
	}
	return key, value, nil
}
