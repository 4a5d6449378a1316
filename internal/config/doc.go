// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServiceConfig: Completion service endpoint, model and limits
//   - ChatConfig: System prompt and fallback texts
//   - Watcher: fsnotify based hot reload
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (DEVROOT_*, GROQ_API_KEY), including .env files
//   - ~/.devroot/config.toml
//   - ~/.devroot/config.json
//   - Built-in defaults
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cadence := cfg.Reveal.Cadence()
package config
