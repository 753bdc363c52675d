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

// Package terminal captures and interprets the state of a supervised
// coding-assistant session running inside a terminal-multiplexer pane,
// and issues canonical keystrokes back into it.
package terminal

import "errors"

// ErrPaneGone is returned by a Mux when the addressed pane no longer
// exists (the session ended, the window was closed, etc.).
var ErrPaneGone = errors.New("terminal: pane not found")

// Mux is the minimal pane-addressable primitive the TerminalAdapter
// requires of its injected terminal multiplexer. It is the adapter's
// only collaborator — concrete multiplexers (tmux, a remote backend)
// implement it.
type Mux interface {
	// HasSession reports whether paneID still refers to a live pane.
	HasSession(paneID string) (bool, error)

	// CapturePane returns the last maxLines lines of visible+scrollback
	// text for paneID.
	CapturePane(paneID string, maxLines int) (string, error)

	// SendLiteral writes raw text into the pane without a trailing
	// Enter.
	SendLiteral(paneID string, text string) error

	// SendKey emits a named canonical key: "enter", "escape",
	// "approve", "reject", "compact", "clear".
	SendKey(paneID string, name string) error
}
