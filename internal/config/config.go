// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for devroot.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.devroot/config.toml
//   - ~/.devroot/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/devroot-tui/internal/util"
)

// Provider names accepted in service.provider.
const (
	ProviderHTTP = "openai-compatible"
	ProviderSDK  = "openai-sdk"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete devroot configuration.
type Config struct {
	// Version of the config file layout
	Version string `toml:"version" json:"version"`

	// Completion service
	Service ServiceConfig `toml:"service" json:"service"`

	// Conversation texts
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Typewriter reveal
	Reveal RevealConfig `toml:"reveal" json:"reveal"`

	// Terminal UI
	UI UIConfig `toml:"ui" json:"ui"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`
}

// ServiceConfig describes the completion service.
type ServiceConfig struct {
	// Provider selects the client: "openai-compatible" or "openai-sdk"
	Provider string `toml:"provider" json:"provider"`
	// BaseURL of the OpenAI-compatible API
	BaseURL string `toml:"base_url" json:"base_url"`
	// APIKey for the service (prefer DEVROOT_API_KEY or GROQ_API_KEY)
	APIKey string `toml:"api_key" json:"api_key"`
	// Model to request
	Model string `toml:"model" json:"model"`
	// Temperature for sampling (0.0-2.0)
	Temperature float64 `toml:"temperature" json:"temperature"`
	// MaxRetries is the number of attempts for transient failures
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// TimeoutSecs bounds one request, retries included
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RequestsPerSecond caps outgoing attempts (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// ChatConfig holds the conversation texts.
type ChatConfig struct {
	SystemPrompt   string `toml:"system_prompt" json:"system_prompt"`
	AssistantName  string `toml:"assistant_name" json:"assistant_name"`
	NoResponseText string `toml:"no_response_text" json:"no_response_text"`
	ErrorText      string `toml:"error_text" json:"error_text"`
}

// RevealConfig controls the typewriter effect.
type RevealConfig struct {
	// CadenceMs is the delay between two revealed characters
	CadenceMs int `toml:"cadence_ms" json:"cadence_ms"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders settled replies as markdown
	Markdown bool `toml:"markdown" json:"markdown"`
	// Plain forces the line-mode REPL
	Plain bool `toml:"plain" json:"plain"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// File receives logs while the TUI owns the terminal
	File string `toml:"file" json:"file"`
}

// Timeout returns the request timeout.
func (s ServiceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// Cadence returns the reveal tick interval.
func (r RevealConfig) Cadence() time.Duration {
	return time.Duration(r.CadenceMs) * time.Millisecond
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Service: ServiceConfig{
			Provider:          ProviderHTTP,
			BaseURL:           "https://api.groq.com/openai/v1",
			Model:             "llama3-70b-8192",
			Temperature:       0.7,
			MaxRetries:        3,
			TimeoutSecs:       60,
			RequestsPerSecond: 0,
		},

		Chat: ChatConfig{
			SystemPrompt:   "You are DevRoot AI, a helpful assistant.",
			AssistantName:  "DevRoot AI",
			NoResponseText: "No response from AI.",
			ErrorText:      "Oops! Something went wrong.",
		},

		Reveal: RevealConfig{
			CadenceMs: 30,
		},

		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
			Plain:    false,
		},

		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the devroot configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".devroot"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultLogPath returns ~/.devroot/devroot.log.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "devroot.log"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=VALUE pairs from .env in the working directory and
// from ~/.devroot/.env. Variables already set in the environment win, and
// missing files are skipped.
func LoadDotEnv() error {
	var files []string
	if _, err := os.Stat(".env"); err == nil {
		files = append(files, ".env")
	}
	if dir, err := ConfigDir(); err == nil {
		p := filepath.Join(dir, ".env")
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	var loadErr error

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			cfg, err := LoadFromPath(tomlPath)
			if err == nil {
				return cfg, nil
			}
			loadErr = err
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			cfg, err := LoadFromPath(jsonPath)
			if err == nil {
				return cfg, nil
			}
			loadErr = err
		}
	}

	// Defaults, with any load error for informational purposes
	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Service
	if cfg.Service.Provider == "" {
		cfg.Service.Provider = defaults.Service.Provider
	}
	if cfg.Service.BaseURL == "" {
		cfg.Service.BaseURL = defaults.Service.BaseURL
	}
	if cfg.Service.Model == "" {
		cfg.Service.Model = defaults.Service.Model
	}
	if cfg.Service.MaxRetries == 0 {
		cfg.Service.MaxRetries = defaults.Service.MaxRetries
	}
	if cfg.Service.TimeoutSecs == 0 {
		cfg.Service.TimeoutSecs = defaults.Service.TimeoutSecs
	}

	// Chat
	if cfg.Chat.SystemPrompt == "" {
		cfg.Chat.SystemPrompt = defaults.Chat.SystemPrompt
	}
	if cfg.Chat.AssistantName == "" {
		cfg.Chat.AssistantName = defaults.Chat.AssistantName
	}
	if cfg.Chat.NoResponseText == "" {
		cfg.Chat.NoResponseText = defaults.Chat.NoResponseText
	}
	if cfg.Chat.ErrorText == "" {
		cfg.Chat.ErrorText = defaults.Chat.ErrorText
	}

	// Reveal
	if cfg.Reveal.CadenceMs == 0 {
		cfg.Reveal.CadenceMs = defaults.Reveal.CadenceMs
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# devroot configuration file\n")
	buf.WriteString("# Generated by devroot - edit with care\n")
	buf.WriteString("\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Service
	switch strings.ToLower(c.Service.Provider) {
	case ProviderHTTP, ProviderSDK:
	default:
		errs = append(errs, ValidationError{
			Field:   "service.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: %s, %s", c.Service.Provider, ProviderHTTP, ProviderSDK),
		})
	}

	if u, err := url.Parse(c.Service.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "service.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be an absolute http(s) URL", c.Service.BaseURL),
		})
	}

	if strings.TrimSpace(c.Service.Model) == "" {
		errs = append(errs, ValidationError{Field: "service.model", Message: "must not be empty"})
	}

	if c.Service.Temperature < 0 || c.Service.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "service.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %g", c.Service.Temperature),
		})
	}

	if c.Service.MaxRetries < 1 || c.Service.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "service.max_retries",
			Message: fmt.Sprintf("must be between 1 and 10, got %d", c.Service.MaxRetries),
		})
	}

	if c.Service.TimeoutSecs < 1 || c.Service.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "service.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Service.TimeoutSecs),
		})
	}

	if c.Service.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "service.requests_per_second",
			Message: "must not be negative",
		})
	}

	// Reveal
	if c.Reveal.CadenceMs < 1 || c.Reveal.CadenceMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "reveal.cadence_ms",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.Reveal.CadenceMs),
		})
	}

	// UI
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	// Log
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - DEVROOT_API_KEY: overrides service.api_key
//   - GROQ_API_KEY: used for service.api_key when DEVROOT_API_KEY is unset
//   - DEVROOT_BASE_URL: overrides service.base_url
//   - DEVROOT_MODEL: overrides service.model
//   - DEVROOT_PROVIDER: overrides service.provider
//   - DEVROOT_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("DEVROOT_API_KEY"); key != "" {
		c.Service.APIKey = key
	} else if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Service.APIKey = key
	}

	if baseURL := os.Getenv("DEVROOT_BASE_URL"); baseURL != "" {
		c.Service.BaseURL = baseURL
	}

	if model := os.Getenv("DEVROOT_MODEL"); model != "" {
		c.Service.Model = model
	}

	if provider := os.Getenv("DEVROOT_PROVIDER"); provider != "" {
		c.Service.Provider = provider
	}

	if level := os.Getenv("DEVROOT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "service.model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "reveal.cadence_ms").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks key through the nested config sections.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
			}
			return field, nil
		}

		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"service.provider",
		"service.base_url",
		"service.api_key",
		"service.model",
		"service.temperature",
		"service.max_retries",
		"service.timeout_secs",
		"service.requests_per_second",
		"chat.system_prompt",
		"chat.assistant_name",
		"chat.no_response_text",
		"chat.error_text",
		"reveal.cadence_ms",
		"ui.theme",
		"ui.markdown",
		"ui.plain",
		"log.level",
		"log.file",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the API key so it never reaches logs or the screen.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Service.APIKey != "" {
		safe.Service.APIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
