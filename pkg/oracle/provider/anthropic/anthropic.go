// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package anthropic implements oracle.Provider directly against the
// Anthropic Messages API using the official SDK.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "claude-sonnet-4-5-20250929"

// DefaultMaxTokens bounds a single Decide response.
const DefaultMaxTokens = 1024

// Config configures a Client.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// Client adapts the Anthropic SDK to oracle.Provider.
type Client struct {
	sdk       anthropic.Client
	model     string
	maxTokens int64
}

// New builds a Client. It returns an error if APIKey is empty.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	sdk := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{sdk: sdk, model: cfg.Model, maxTokens: cfg.MaxTokens}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Complete sends a single-turn request and concatenates the response's
// text blocks.
func (c *Client) Complete(ctx context.Context, system string, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: messages.new failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
