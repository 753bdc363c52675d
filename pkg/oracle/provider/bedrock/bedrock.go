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

// Package bedrock implements oracle.Provider against Claude models hosted
// on Amazon Bedrock, via the Anthropic SDK's Bedrock transport.
package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// DefaultModelID uses Claude Sonnet 4.5 via a cross-region inference
// profile.
const DefaultModelID = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-west-2"

// DefaultMaxTokens bounds a single Decide response.
const DefaultMaxTokens = 1024

// Config configures a Client.
type Config struct {
	Region    string
	Profile   string
	ModelID   string
	MaxTokens int64
}

// Client adapts the Anthropic SDK's Bedrock transport to oracle.Provider.
type Client struct {
	sdk       anthropic.Client
	modelID   string
	maxTokens int64
}

// New builds a Client, resolving AWS credentials via the named profile if
// given, or the default credential chain otherwise.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	var awsCfg aws.Config
	var err error
	if cfg.Profile != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithSharedConfigProfile(cfg.Profile),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	sdk := anthropic.NewClient(bedrock.WithConfig(awsCfg))
	return &Client{sdk: sdk, modelID: cfg.ModelID, maxTokens: cfg.MaxTokens}, nil
}

// Model returns the configured Bedrock model id.
func (c *Client) Model() string { return c.modelID }

// Complete sends a single-turn request through Bedrock and concatenates
// the response's text blocks.
func (c *Client) Complete(ctx context.Context, system string, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelID),
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
		return "", fmt.Errorf("bedrock: messages.new failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
