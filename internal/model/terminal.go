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
package model

import "time"

// TerminalSnapshot is the raw text captured from a pane, plus capture
// metadata.
type TerminalSnapshot struct {
	PaneID     string    `json:"paneId"`
	SessionID  string    `json:"sessionId"`
	Text       string    `json:"text"`
	CapturedAt time.Time `json:"capturedAt"`
	LineCount  int       `json:"lineCount"`
}

// PermissionType classifies a detected permission prompt.
type PermissionType string

const (
	PermissionBash  PermissionType = "bash"
	PermissionEdit  PermissionType = "edit"
	PermissionWrite PermissionType = "write"
	PermissionOther PermissionType = "other"
)

// TerminalState is the parsed interpretation of a TerminalSnapshot.
type TerminalState struct {
	IsProcessing      bool
	IsWaitingForInput bool
	HasPermissionPrompt bool
	PermissionType    PermissionType
	HasContextLimit   bool
	LastError         string
}
