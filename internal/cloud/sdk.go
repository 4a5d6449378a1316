// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jeranaias/devroot-tui/internal/model"
)

// =============================================================================
// SDK CLIENT
// =============================================================================

// SDKConfig configures an SDKClient.
type SDKConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxRetries  int
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// SDKClient sends completions through the openai-go SDK. It accepts the same
// transcript and returns the same values as Client.
type SDKClient struct {
	llm         *openai.Client
	apiKey      string
	model       string
	temperature float64
	logger      *slog.Logger
}

// NewSDKClient creates an SDK backed completer. Empty fields fall back to the
// package defaults.
func NewSDKClient(cfg SDKConfig) *SDKClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/") + "/"),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.MaxRetries - 1),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &SDKClient{
		llm:         openai.NewClient(opts...),
		apiKey:      apiKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
}

// Model returns the requested model.
func (c *SDKClient) Model() string {
	return c.model
}

// Complete implements session.Completer.
func (c *SDKClient) Complete(ctx context.Context, messages []model.Message) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	sdkMessages, err := toSDKMessages(messages)
	if err != nil {
		return "", err
	}
	params := openai.ChatCompletionNewParams{
		Messages:    openai.F(sdkMessages),
		Model:       openai.F(c.model),
		Temperature: openai.F(c.temperature),
	}

	start := time.Now()
	completion, err := c.llm.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("sdk completion: %w", err)
	}
	c.logger.Debug("sdk completion", "model", c.model, "duration", time.Since(start), "key", keyFingerprint(c.apiKey))

	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func toSDKMessages(messages []model.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case model.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
		}
	}
	return out, nil
}
