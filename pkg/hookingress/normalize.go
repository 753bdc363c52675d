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
package hookingress

import (
	"encoding/json"
	"io"
	"time"

	"github.com/teradata-labs/paneward/internal/model"
)

// defaultEventType is used when a payload carries no recognizable event
// name, or names one outside the enumeration.
const defaultEventType = model.EventStop

var recognizedEventTypes = map[model.EventType]struct{}{
	model.EventStop:               {},
	model.EventNotification:       {},
	model.EventSubagentStop:       {},
	model.EventPreCompact:         {},
	model.EventSessionStart:       {},
	model.EventSessionEnd:         {},
	model.EventPreToolUse:         {},
	model.EventPostToolUse:        {},
	model.EventPostToolUseFailure: {},
	model.EventPermissionRequest:  {},
	model.EventUserPromptSubmit:   {},
	model.EventSubagentStart:      {},
	model.EventTeammateIdle:       {},
	model.EventTaskCompleted:      {},
}

// wirePayload is the recognized subset of a hook's JSON body (spec §6.1).
type wirePayload struct {
	HookEventName string `json:"hook_event_name"`
	EventType     string `json:"event_type"`
	SessionID     string `json:"session_id"`
	Cwd           string `json:"cwd"`
	Trigger       string `json:"trigger"`
	Source        string `json:"source"`
	Reason        string `json:"reason"`
	ToolName      string `json:"tool_name"`
	ToolInput     any    `json:"tool_input"`
}

// normalizeEvent reads body (JSON, falling back to treating unparsable
// bodies as an empty payload) and builds a normalized HookEvent for
// agentID.
func normalizeEvent(body io.Reader, agentID string) (*model.HookEvent, error) {
	raw, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return nil, err
	}

	var payload wirePayload
	if len(raw) > 0 {
		// Raw-text fallback: a body that isn't valid JSON is treated as an
		// empty payload rather than rejected, so a hook misconfigured to
		// send plain text still registers as a bare Stop event.
		_ = json.Unmarshal(raw, &payload)
	}

	eventType := model.EventType(payload.HookEventName)
	if eventType == "" {
		eventType = model.EventType(payload.EventType)
	}
	if _, ok := recognizedEventTypes[eventType]; !ok {
		eventType = defaultEventType
	}

	now := time.Now()
	event := &model.HookEvent{
		AgentID:            agentID,
		EventType:          eventType,
		OccurredAt:         now,
		AssistantSessionID: payload.SessionID,
		ProjectPath:        payload.Cwd,
		ReceivedAt:         now,
	}

	if payload.Trigger != "" || payload.Source != "" || payload.Reason != "" || payload.ToolName != "" {
		event.TypeSpecificData = &model.TypeSpecificData{
			Trigger:   payload.Trigger,
			Source:    payload.Source,
			Reason:    payload.Reason,
			ToolName:  payload.ToolName,
			ToolInput: payload.ToolInput,
		}
	}

	return event, nil
}
