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

// TypeSpecificData carries the fields of the wire hook payload that are
// specific to a subset of event types (spec §6.1).
type TypeSpecificData struct {
	Trigger   string `json:"trigger,omitempty"`   // PreCompact: manual|auto
	Source    string `json:"source,omitempty"`    // SessionStart: startup|resume|clear|compact
	Reason    string `json:"reason,omitempty"`     // SessionEnd
	ToolName  string `json:"toolName,omitempty"`   // PreToolUse/PostToolUse
	ToolInput any    `json:"toolInput,omitempty"`  // PreToolUse/PostToolUse
}

// HookEvent is the normalized, in-process representation of one inbound
// hook notification.
type HookEvent struct {
	AgentID             string            `json:"agentId"`
	EventType           EventType         `json:"eventType"`
	OccurredAt          time.Time         `json:"occurredAt"`
	AssistantSessionID  string            `json:"assistantSessionId,omitempty"`
	ProjectPath         string            `json:"projectPath,omitempty"`
	ReceivedAt          time.Time         `json:"receivedAt"`
	TypeSpecificData    *TypeSpecificData `json:"typeSpecificData,omitempty"`
}

// Source returns the SessionStart source classifier, or "" if this event
// is not a SessionStart or carries no source field.
func (e *HookEvent) Source() SessionStartSource {
	if e.TypeSpecificData == nil {
		return ""
	}
	return SessionStartSource(e.TypeSpecificData.Source)
}
