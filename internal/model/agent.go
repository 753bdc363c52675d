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

// Package model holds the durable and transient data types shared across
// the supervision core: Agent, AgentStoreState, HookEvent,
// TerminalSnapshot, TerminalState, Decision, and ProcessingGuard.
package model

import "time"

// Status is the lifecycle status of an Agent.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusActive Status = "active"
	StatusError  Status = "error"
)

// EventType enumerates the recognized hook event kinds. Unrecognized wire
// values default to Stop at ingress.
type EventType string

const (
	EventStop               EventType = "Stop"
	EventNotification       EventType = "Notification"
	EventSubagentStop       EventType = "SubagentStop"
	EventPreCompact         EventType = "PreCompact"
	EventSessionStart       EventType = "SessionStart"
	EventSessionEnd         EventType = "SessionEnd"
	EventPreToolUse         EventType = "PreToolUse"
	EventPostToolUse        EventType = "PostToolUse"
	EventPostToolUseFailure EventType = "PostToolUseFailure"
	EventPermissionRequest  EventType = "PermissionRequest"
	EventUserPromptSubmit   EventType = "UserPromptSubmit"
	EventSubagentStart      EventType = "SubagentStart"
	EventTeammateIdle       EventType = "TeammateIdle"
	EventTaskCompleted      EventType = "TaskCompleted"
)

// SessionStartSource classifies how a SessionStart event arose.
type SessionStartSource string

const (
	SourceStartup SessionStartSource = "startup"
	SourceResume  SessionStartSource = "resume"
	SourceClear   SessionStartSource = "clear"
	SourceCompact SessionStartSource = "compact"
)

// TelegramConfig is the optional operator-chat configuration for an agent.
type TelegramConfig struct {
	BotToken string `json:"botToken,omitempty"`
	ChatID   string `json:"chatId,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// WatchdogConfig is the optional per-agent watchdog tuning.
type WatchdogConfig struct {
	PollIntervalSec   int  `json:"pollIntervalSec"`
	ActionCooldownSec int  `json:"actionCooldownSec"`
	AttentionThreshold int `json:"attentionThreshold"`
	Enabled           bool `json:"enabled"`
}

// DefaultWatchdogConfig returns the spec's default tuning: a 30s poll
// interval, enabled, with the minimums for cooldown/threshold.
func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		PollIntervalSec:    30,
		ActionCooldownSec:  60,
		AttentionThreshold: 1,
		Enabled:            true,
	}
}

// Connection describes an agent's binding to a live supervised session.
type Connection struct {
	ProjectPath         string    `json:"projectPath"`
	SessionID           string    `json:"sessionId"`
	PaneID              string    `json:"paneId"`
	AssistantSessionID  string    `json:"assistantSessionId,omitempty"`
	BranchID            string    `json:"branchId,omitempty"`
	ConnectedAt         time.Time `json:"connectedAt"`
}

// Agent is the durable supervisory record for one Master Agent.
type Agent struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	MasterPrompt  string          `json:"masterPrompt"`
	HookEvents    []EventType     `json:"hookEvents"`
	AutoApprove   bool            `json:"autoApprove"`
	Telegram      *TelegramConfig `json:"telegram,omitempty"`
	Watchdog      *WatchdogConfig `json:"watchdog,omitempty"`
	Status        Status          `json:"status"`
	Connection    *Connection     `json:"connection,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastActivity  time.Time       `json:"lastActivity"`
	LastError     string          `json:"lastError,omitempty"`
}

// HasHookEvent reports whether et is in the agent's subscribed set.
func (a *Agent) HasHookEvent(et EventType) bool {
	for _, e := range a.HookEvents {
		if e == et {
			return true
		}
	}
	return false
}

// WithSessionStartImplicit returns events with EventSessionStart appended
// if it was not already present. Every agent's hookEvents invariantly
// includes SessionStart.
func WithSessionStartImplicit(events []EventType) []EventType {
	for _, e := range events {
		if e == EventSessionStart {
			return events
		}
	}
	return append(append([]EventType{}, events...), EventSessionStart)
}

// Clone returns a deep-enough copy of the agent for safe concurrent
// mutation by callers (store callers must not alias the store's memory).
func (a *Agent) Clone() *Agent {
	cp := *a
	cp.HookEvents = append([]EventType{}, a.HookEvents...)
	if a.Telegram != nil {
		t := *a.Telegram
		cp.Telegram = &t
	}
	if a.Watchdog != nil {
		w := *a.Watchdog
		cp.Watchdog = &w
	}
	if a.Connection != nil {
		c := *a.Connection
		cp.Connection = &c
	}
	return &cp
}
