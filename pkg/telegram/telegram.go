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

// Package telegram implements the operator-chat transport (spec §6.4)
// against the Telegram Bot API: long-polling for incoming operator
// instructions and a notify call for outbound side-channel messages. No
// Telegram SDK exists anywhere in the retrieved corpus, so this talks to
// the HTTP API directly, in the manner of the teacher's raw-HTTP LLM
// clients.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"

	"github.com/teradata-labs/paneward/internal/model"
)

// DefaultAPIBase is the Telegram Bot API's public base URL. Config.APIBase
// overrides it, mirroring the teacher's ANTHROPIC_API_ENDPOINT-style
// override (and doubling as the test seam for a local fake server).
const DefaultAPIBase = "https://api.telegram.org"

// keyringService namespaces this module's secrets in the system keyring.
const keyringService = "paneward-telegram"

const (
	longPollTimeoutSec = 30
	httpClientTimeout  = 35 * time.Second
	pollErrorBackoff   = 2 * time.Second
)

// InstructionHandler receives the text of an incoming operator message.
// The daemon wires this to its ESM's HandleInstruction.
type InstructionHandler func(ctx context.Context, text string)

// Config configures a Client.
type Config struct {
	// BotToken is the plaintext bot token, used if KeyringAccount is
	// empty or the keyring lookup fails.
	BotToken string
	// KeyringAccount, if set, is looked up in the system keyring before
	// BotToken is used.
	KeyringAccount string
	// ChatID is the single operator chat this client notifies and
	// accepts instructions from; messages from any other chat are
	// ignored.
	ChatID string
	// APIBase overrides DefaultAPIBase.
	APIBase string
}

// Client is the Telegram long-polling operator-chat transport. It
// satisfies daemon.Transport (Start/Stop/Notify) by structural typing.
type Client struct {
	httpClient *http.Client
	baseURL    string
	chatID     string
	handler    InstructionHandler
	logger     *zap.Logger

	offset  int64
	running atomic.Bool
	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New resolves the bot token (keyring first, plaintext fallback) and
// builds a Client. handler may be nil if this agent only sends
// notifications and never accepts instructions.
func New(cfg Config, handler InstructionHandler, logger *zap.Logger) (*Client, error) {
	if cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram: chat id is required")
	}
	token, err := resolveToken(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.APIBase
	if base == "" {
		base = DefaultAPIBase
	}

	return &Client{
		httpClient: &http.Client{Timeout: httpClientTimeout},
		baseURL:    fmt.Sprintf("%s/bot%s", base, token),
		chatID:     cfg.ChatID,
		handler:    handler,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}, nil
}

func resolveToken(cfg Config) (string, error) {
	if cfg.KeyringAccount != "" {
		if token, err := keyring.Get(keyringService, cfg.KeyringAccount); err == nil && token != "" {
			return token, nil
		}
	}
	if cfg.BotToken == "" {
		return "", fmt.Errorf("telegram: bot token not configured")
	}
	return cfg.BotToken, nil
}

// IsRunning reports whether the long-poll loop is active.
func (c *Client) IsRunning() bool { return c.running.Load() }

// Start begins the long-polling receive loop. It is idempotent: calling
// Start while already running is a no-op.
func (c *Client) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	c.wg.Add(1)
	go c.pollLoop(ctx, stopCh)
	return nil
}

// Stop halts the receive loop and waits for it to exit.
func (c *Client) Stop() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	c.mu.Lock()
	close(c.stopCh)
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

func (c *Client) pollLoop(ctx context.Context, stopCh chan struct{}) {
	defer c.wg.Done()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		updates, err := c.getUpdates(ctx)
		if err != nil {
			c.logger.Debug("telegram getUpdates failed", zap.Error(err))
			select {
			case <-time.After(pollErrorBackoff):
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= c.offset {
				c.offset = u.UpdateID + 1
			}
			c.dispatchUpdate(ctx, u)
		}
	}
}

func (c *Client) dispatchUpdate(ctx context.Context, u update) {
	if u.Message == nil || u.Message.Text == "" {
		return
	}
	if strconv.FormatInt(u.Message.Chat.ID, 10) != c.chatID {
		return
	}
	if c.handler != nil {
		c.handler(ctx, u.Message.Text)
	}
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message,omitempty"`
}

type message struct {
	Chat chat   `json:"chat"`
	Text string `json:"text"`
}

type chat struct {
	ID int64 `json:"id"`
}

type getUpdatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

func (c *Client) getUpdates(ctx context.Context) ([]update, error) {
	url := fmt.Sprintf("%s/getUpdates?offset=%d&timeout=%d", c.baseURL, c.offset, longPollTimeoutSec)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: building getUpdates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: getUpdates request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram: reading getUpdates response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram: getUpdates returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed getUpdatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("telegram: parsing getUpdates response: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram: getUpdates reported ok=false")
	}
	return parsed.Result, nil
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Notify sends a formatted notification to the configured chat.
func (c *Client) Notify(ctx context.Context, level model.NotificationLevel, message string) error {
	text := fmt.Sprintf("[%s] %s", strings.ToUpper(string(level)), message)
	payload, err := json.Marshal(sendMessageRequest{ChatID: c.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("telegram: marshaling sendMessage body: %w", err)
	}

	url := fmt.Sprintf("%s/sendMessage", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: building sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram: sendMessage returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
