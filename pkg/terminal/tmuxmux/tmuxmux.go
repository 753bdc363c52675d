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

// Package tmuxmux implements terminal.Mux against a real tmux binary on
// PATH via os/exec.
package tmuxmux

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/teradata-labs/paneward/pkg/terminal"
)

// captureTimeout bounds how long a single tmux invocation may run before
// it is treated as a hung session.
const captureTimeout = 2 * time.Second

// keyNames maps terminal.Mux's canonical key names to the literal keys
// tmux send-keys expects.
var keyNames = map[string]string{
	"enter":   "Enter",
	"escape":  "Escape",
	"approve": "y",
	"reject":  "n",
	"compact": "",
	"clear":   "",
}

// keyCommands maps canonical keys that are actually slash-commands typed
// into the assistant's own prompt, rather than terminal keystrokes.
var keyCommands = map[string]string{
	"compact": "/compact",
	"clear":   "/clear",
}

// Mux implements terminal.Mux by shelling out to the tmux CLI.
type Mux struct {
	binary string
}

// New builds a Mux that invokes "tmux" found on PATH.
func New() *Mux {
	return &Mux{binary: "tmux"}
}

func (m *Mux) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, m.binary, args...)
	return cmd.Output()
}

// HasSession reports whether paneID (a tmux target, e.g. "session:0.0" or
// a session name) still refers to a live session.
func (m *Mux) HasSession(paneID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	sessionName := strings.SplitN(paneID, ":", 2)[0]
	_, err := m.run(ctx, "has-session", "-t", sessionName)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return false, fmt.Errorf("has-session: timeout after %s", captureTimeout)
	}
	return false, fmt.Errorf("has-session: %w", err)
}

// CapturePane returns the last maxLines lines of paneID's visible and
// scrollback text.
func (m *Mux) CapturePane(paneID string, maxLines int) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	startLine := fmt.Sprintf("-%d", maxLines)
	out, err := m.run(ctx, "capture-pane", "-p", "-e", "-J", "-S", startLine, "-t", paneID)
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("capture-pane: timeout after %s", captureTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("capture-pane: %w: %w", terminal.ErrPaneGone, err)
		}
		return "", fmt.Errorf("capture-pane: %w", err)
	}
	return string(out), nil
}

// SendLiteral writes text into paneID without submitting it.
func (m *Mux) SendLiteral(paneID string, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	_, err := m.run(ctx, "send-keys", "-t", paneID, "-l", "--", text)
	if err != nil {
		return fmt.Errorf("send-keys literal: %w", err)
	}
	return nil
}

// SendKey emits a canonical key or, for slash-command actions like
// compact/clear, types the command followed by Enter.
func (m *Mux) SendKey(paneID string, name string) error {
	if cmdText, ok := keyCommands[name]; ok && cmdText != "" {
		if err := m.SendLiteral(paneID, cmdText); err != nil {
			return err
		}
		return m.sendRaw(paneID, "Enter")
	}

	key, ok := keyNames[name]
	if !ok || key == "" {
		return fmt.Errorf("tmuxmux: unknown key %q", name)
	}
	return m.sendRaw(paneID, key)
}

func (m *Mux) sendRaw(paneID string, key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	_, err := m.run(ctx, "send-keys", "-t", paneID, key)
	if err != nil {
		return fmt.Errorf("send-keys %s: %w", key, err)
	}
	return nil
}
