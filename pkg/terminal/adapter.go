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
package terminal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/internal/perrors"
)

// defaultCaptureLines bounds how much scrollback Capture pulls by default.
const defaultCaptureLines = 200

// literalSettleDelay is how long SendLiteralThenEnter waits after writing
// the literal text before emitting Enter, giving the pane's input widget
// time to absorb a pasted block.
const literalSettleDelay = 50 * time.Millisecond

// Adapter is the TerminalAdapter: it captures and parses a pane's state
// and translates canonical actions into Mux keystrokes.
type Adapter struct {
	mux   Mux
	sleep func(time.Duration)
}

// NewAdapter builds an Adapter around mux.
func NewAdapter(mux Mux) *Adapter {
	return &Adapter{mux: mux, sleep: time.Sleep}
}

// Capture reads the pane's visible text and wraps it as a TerminalSnapshot.
// It returns an ErrTerminalUnavailable-wrapped error if the pane no longer
// exists or the read otherwise fails.
func (a *Adapter) Capture(paneID string, sessionID string) (*model.TerminalSnapshot, error) {
	ok, err := a.mux.HasSession(paneID)
	if err != nil {
		return nil, fmt.Errorf("%w: checking pane %s: %v", perrors.ErrTerminalUnavailable, paneID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: pane %s: %v", perrors.ErrTerminalUnavailable, paneID, ErrPaneGone)
	}

	text, err := a.mux.CapturePane(paneID, defaultCaptureLines)
	if err != nil {
		if errors.Is(err, ErrPaneGone) {
			return nil, fmt.Errorf("%w: pane %s: %v", perrors.ErrTerminalUnavailable, paneID, err)
		}
		return nil, fmt.Errorf("%w: capturing pane %s: %v", perrors.ErrTerminalUnavailable, paneID, err)
	}

	lines := strings.Split(text, "\n")
	return &model.TerminalSnapshot{
		PaneID:     paneID,
		SessionID:  sessionID,
		Text:       text,
		CapturedAt: time.Now(),
		LineCount:  len(lines),
	}, nil
}

// Parse is a thin forwarding wrapper so callers need only depend on
// *Adapter rather than the package-level function.
func (a *Adapter) Parse(snapshot *model.TerminalSnapshot) *model.TerminalState {
	return Parse(snapshot)
}

// SendLiteralThenEnter writes text into the pane, waits for the input
// widget to settle, then submits it with Enter.
func (a *Adapter) SendLiteralThenEnter(paneID string, text string) error {
	if err := a.mux.SendLiteral(paneID, text); err != nil {
		return fmt.Errorf("%w: sending literal to pane %s: %v", perrors.ErrTerminalUnavailable, paneID, err)
	}
	a.sleep(literalSettleDelay)
	return a.sendKey(paneID, "enter")
}

// SendApprove emits the canonical permission-approval keystroke.
func (a *Adapter) SendApprove(paneID string) error { return a.sendKey(paneID, "approve") }

// SendReject emits the canonical permission-rejection keystroke.
func (a *Adapter) SendReject(paneID string) error { return a.sendKey(paneID, "reject") }

// SendEscape interrupts whatever the assistant is currently doing.
func (a *Adapter) SendEscape(paneID string) error { return a.sendKey(paneID, "escape") }

// SendCompact issues the assistant's context-compaction command.
func (a *Adapter) SendCompact(paneID string) error { return a.sendKey(paneID, "compact") }

// SendClear issues the assistant's context-clear command.
func (a *Adapter) SendClear(paneID string) error { return a.sendKey(paneID, "clear") }

func (a *Adapter) sendKey(paneID string, name string) error {
	if err := a.mux.SendKey(paneID, name); err != nil {
		return fmt.Errorf("%w: sending %s to pane %s: %v", perrors.ErrTerminalUnavailable, name, paneID, err)
	}
	return nil
}
