// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and clears the override variables.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"DEVROOT_API_KEY", "GROQ_API_KEY", "DEVROOT_BASE_URL", "DEVROOT_MODEL", "DEVROOT_PROVIDER", "DEVROOT_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ProviderHTTP, cfg.Service.Provider)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Service.BaseURL)
	assert.Equal(t, "llama3-70b-8192", cfg.Service.Model)
	assert.InDelta(t, 0.7, cfg.Service.Temperature, 1e-9)
	assert.Equal(t, 60*time.Second, cfg.Service.Timeout())
	assert.Equal(t, "You are DevRoot AI, a helpful assistant.", cfg.Chat.SystemPrompt)
	assert.Equal(t, "No response from AI.", cfg.Chat.NoResponseText)
	assert.Equal(t, "Oops! Something went wrong.", cfg.Chat.ErrorText)
	assert.Equal(t, 30*time.Millisecond, cfg.Reveal.Cadence())
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Service, cfg.Service)
}

func TestLoad_TOMLWithPartialSections(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".devroot", "config.toml")
	writeFile(t, path, `
[service]
model = "mixtral-8x7b-32768"
requests_per_second = 2.5

[reveal]
cadence_ms = 10
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mixtral-8x7b-32768", cfg.Service.Model)
	assert.InDelta(t, 2.5, cfg.Service.RequestsPerSecond, 1e-9)
	assert.Equal(t, 10*time.Millisecond, cfg.Reveal.Cadence())
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Service.BaseURL, "missing keys keep defaults")
	assert.Equal(t, "Oops! Something went wrong.", cfg.Chat.ErrorText)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "permissions tightened on load")
}

func TestLoad_JSONFallback(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".devroot", "config.json"), `{"chat": {"system_prompt": "Be brief."}}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", cfg.Chat.SystemPrompt)
}

func TestLoad_BrokenFileReturnsDefaultsAndError(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".devroot", "config.toml"), "[service\nmodel=")

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default().Service.Model, cfg.Service.Model)
}

func TestLoadFromPath_InvalidValues(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, path, `
[service]
provider = "carrier-pigeon"
temperature = 3.0

[reveal]
cadence_ms = -5
`)

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, len(verrs))
	for i, v := range verrs {
		fields[i] = v.Field
	}
	assert.ElementsMatch(t, []string{"service.provider", "service.temperature", "reveal.cadence_ms"}, fields)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("GROQ_API_KEY", "gsk_from_groq")
	t.Setenv("DEVROOT_MODEL", "llama3-8b-8192")
	t.Setenv("DEVROOT_PROVIDER", ProviderSDK)
	t.Setenv("DEVROOT_LOG_LEVEL", "debug")
	t.Setenv("DEVROOT_BASE_URL", "http://localhost:8080/v1")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "gsk_from_groq", cfg.Service.APIKey)
	assert.Equal(t, "llama3-8b-8192", cfg.Service.Model)
	assert.Equal(t, ProviderSDK, cfg.Service.Provider)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://localhost:8080/v1", cfg.Service.BaseURL)

	t.Setenv("DEVROOT_API_KEY", "dr_primary")
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "dr_primary", cfg.Service.APIKey, "DEVROOT_API_KEY wins over GROQ_API_KEY")
}

func TestLoadDotEnv(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".devroot", ".env"), "GROQ_API_KEY=gsk_dotenv\n")
	os.Unsetenv("GROQ_API_KEY")
	t.Cleanup(func() { os.Unsetenv("GROQ_API_KEY") })

	t.Chdir(t.TempDir())

	require.NoError(t, LoadDotEnv())
	assert.Equal(t, "gsk_dotenv", os.Getenv("GROQ_API_KEY"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gsk_dotenv", cfg.Service.APIKey)
}

// =============================================================================
// SAVE / GET / SET
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Chat.SystemPrompt = "Answer in haiku."
	cfg.Reveal.CadenceMs = 5
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# devroot configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "Answer in haiku.", loaded.Chat.SystemPrompt)
	assert.Equal(t, 5, loaded.Reveal.CadenceMs)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("service.model", "gemma-7b-it"))
	require.NoError(t, cfg.Set("reveal.cadence_ms", "12"))
	require.NoError(t, cfg.Set("service.temperature", "0.2"))
	require.NoError(t, cfg.Set("ui.markdown", "no"))
	require.NoError(t, cfg.Set("service.base_url", "https://example.test/v1"))

	v, err := cfg.Get("service.model")
	require.NoError(t, err)
	assert.Equal(t, "gemma-7b-it", v)
	assert.Equal(t, 12, cfg.Reveal.CadenceMs)
	assert.InDelta(t, 0.2, cfg.Service.Temperature, 1e-9)
	assert.False(t, cfg.UI.Markdown)
	assert.Equal(t, "https://example.test/v1", cfg.Service.BaseURL)

	_, err = cfg.Get("service.nope")
	assert.ErrorContains(t, err, "unknown field")
	assert.Error(t, cfg.Set("service", "x"))
	assert.Error(t, cfg.Set("reveal.cadence_ms", "fast"))
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestString_RedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Service.APIKey = "gsk_super_secret"

	out := cfg.String()
	assert.NotContains(t, out, "gsk_super_secret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "gsk_super_secret", cfg.Service.APIKey, "original untouched")
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_ReloadsOnChange(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[chat]\nsystem_prompt = \"first\"\n")

	changes := make(chan *Config, 4)
	w, err := Watch(path, func(c *Config) { changes <- c }, nil)
	require.NoError(t, err)
	defer w.Close()

	cfg := Default()
	cfg.Chat.SystemPrompt = "second"
	require.NoError(t, SaveTOML(cfg, path))

	select {
	case c := <-changes:
		assert.Equal(t, "second", c.Chat.SystemPrompt)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatch_IgnoresInvalidFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "")

	changes := make(chan *Config, 4)
	w, err := Watch(path, func(c *Config) { changes <- c }, nil)
	require.NoError(t, err)

	writeFile(t, path, "[reveal]\ncadence_ms = 99999\n")

	select {
	case c := <-changes:
		t.Fatalf("invalid config delivered: %+v", c.Reveal)
	case <-time.After(500 * time.Millisecond):
	}
	require.NoError(t, w.Close())
}
