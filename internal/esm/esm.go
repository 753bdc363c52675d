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

// Package esm implements the EventStateMachine (C5): the per-agent
// reactive loop that turns an inbound hook event into zero or one
// keystroke sequence sent back into the supervised pane.
//
// The node graph is expressed as a straight-line function with explicit
// branches rather than a dynamic, string-keyed node map, per the
// re-architecture notes: guard -> route_event -> {log_only,
// handle_session_restart, capture_terminal} -> parse_terminal ->
// fast_path -> {handle_context_limit, handle_permission, handle_waiting,
// end} -> handle_ambiguous -> execute -> end.
package esm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/internal/perrors"
	"github.com/teradata-labs/paneward/pkg/oracle"
	"github.com/teradata-labs/paneward/pkg/terminal"
)

// sessionRestartPollTimeout and sessionRestartPollInterval bound the
// handle_session_restart node's poll loop (spec §4.5): poll every second
// for up to fifteen seconds.
const (
	sessionRestartPollTimeout  = 15 * time.Second
	sessionRestartPollInterval = 1 * time.Second

	// instructionAcquireTimeout and instructionPollInterval bound
	// HandleInstruction's wait for the guard (spec §4.5, Human-instruction
	// entry).
	instructionAcquireTimeout = 10 * time.Second
	instructionPollInterval   = 50 * time.Millisecond

	// requestHelpContextLines is how many trailing terminal lines
	// accompany a request_help notification.
	requestHelpContextLines = 20
)

// Notifier is the capability interface the ESM uses to reach the
// operator-chat transport. It is deliberately minimal: the ESM only ever
// needs to emit a leveled message, never to read chat state.
type Notifier interface {
	Notify(ctx context.Context, level model.NotificationLevel, message string) error
}

// Machine is one agent's EventStateMachine: a ProcessingGuard plus the
// collaborators (TerminalAdapter, DecisionOracle, optional Notifier) it
// threads an event cycle through. A Machine is long-lived for the life
// of its AgentDaemon; the Agent record itself is passed in fresh on every
// call so that store edits take effect on the next cycle.
type Machine struct {
	guard    *model.ProcessingGuard
	terminal *terminal.Adapter
	oracle   *oracle.Oracle
	notifier Notifier
	sleep    func(time.Duration)
}

// New builds a Machine around its collaborators. notifier may be nil if
// the agent has no operator-chat transport configured.
func New(term *terminal.Adapter, orc *oracle.Oracle, notifier Notifier) *Machine {
	return &Machine{
		guard:    model.NewProcessingGuard(),
		terminal: term,
		oracle:   orc,
		notifier: notifier,
		sleep:    time.Sleep,
	}
}

// Guard exposes the ProcessingGuard read-only collaborator the Watchdog
// needs to honor the same busy/cooldown semantics as the ESM.
func (m *Machine) Guard() *model.ProcessingGuard {
	return m.guard
}

// RecordExternalAction is the cross-component sync hook: the Watchdog
// calls it immediately after taking an action on this agent's pane, so
// the ESM's own cooldown tracking stays accurate.
func (m *Machine) RecordExternalAction() {
	m.guard.RecordResponse(time.Now())
}

// HandleEvent runs one full event cycle for event against agent. It never
// returns an error: every failure mode the node graph can hit (busy
// guard, cooldown, missing pane, oracle unavailability) is handled inline
// as the spec directs, and surfaced only via logger.
func (m *Machine) HandleEvent(ctx context.Context, agent *model.Agent, event *model.HookEvent, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	accepted, forced := m.acquireGuard(time.Now(), event.EventType)
	if forced {
		logger.Warn("processing guard force-reset past max processing time",
			zap.String("agentId", agent.ID))
		m.notify(ctx, model.LevelWarn, "assistant session force-reset after exceeding max processing time")
	}
	if !accepted {
		logger.Debug("dropping event: guard busy or cooldown active",
			zap.String("agentId", agent.ID), zap.String("eventType", string(event.EventType)))
		return
	}
	defer m.guard.Release()

	m.runCycle(ctx, agent, event, logger)
}

// acquireGuard implements the guard node: the isProcessing busy check
// (with force-reset past MaxProcessingTime) followed by the cooldown
// check, in that order. If the cooldown blocks, the lock acquired for
// the busy check is released again so the event is cleanly dropped.
func (m *Machine) acquireGuard(now time.Time, eventType model.EventType) (accepted bool, forced bool) {
	acquired, wasForced := m.guard.TryAcquire(now, eventType)
	if !acquired {
		return false, false
	}
	if !m.guard.CooldownClear(now, eventType) {
		m.guard.Release()
		return false, wasForced
	}
	return true, wasForced
}

// routeTarget names the route_event node's possible destinations.
type routeTarget int

const (
	nodeLogOnly routeTarget = iota
	nodeHandleSessionRestart
	nodeCaptureTerminal
)

// routeEvent implements the route_event node.
func routeEvent(event *model.HookEvent) routeTarget {
	switch event.EventType {
	case model.EventPreCompact, model.EventSessionEnd, model.EventPostToolUseFailure:
		return nodeLogOnly
	case model.EventSessionStart:
		if src := event.Source(); src == model.SourceClear || src == model.SourceCompact {
			return nodeHandleSessionRestart
		}
	}
	return nodeCaptureTerminal
}

func (m *Machine) runCycle(ctx context.Context, agent *model.Agent, event *model.HookEvent, logger *zap.Logger) {
	switch routeEvent(event) {
	case nodeLogOnly:
		logger.Info("log-only event", zap.String("eventType", string(event.EventType)))
	case nodeHandleSessionRestart:
		m.handleSessionRestart(ctx, agent, logger)
	case nodeCaptureTerminal:
		m.captureAndDispatch(ctx, agent, logger)
	}
}

// captureAndDispatch implements capture_terminal -> parse_terminal ->
// fast_path.
func (m *Machine) captureAndDispatch(ctx context.Context, agent *model.Agent, logger *zap.Logger) {
	paneID, sessionID, ok := connectionOf(agent)
	if !ok {
		logger.Debug("no connection, ending cycle", zap.String("agentId", agent.ID))
		return
	}

	snap, err := m.terminal.Capture(paneID, sessionID)
	if err != nil {
		logger.Debug("pane unavailable, ending cycle", zap.String("agentId", agent.ID), zap.Error(err))
		return
	}
	state := m.terminal.Parse(snap)
	m.fastPath(ctx, agent, snap, state, logger)
}

// fastPath implements the fast_path node's deterministic routing.
func (m *Machine) fastPath(ctx context.Context, agent *model.Agent, snap *model.TerminalSnapshot, state *model.TerminalState, logger *zap.Logger) {
	switch {
	case state.HasContextLimit:
		m.handleContextLimit(agent, snap, logger)
	case state.IsProcessing:
		logger.Debug("assistant still processing, ending cycle", zap.String("agentId", agent.ID))
	case state.HasPermissionPrompt:
		m.handlePermission(ctx, agent, snap, logger)
	case state.IsWaitingForInput:
		m.handleWaiting(ctx, agent, snap, state, logger)
	}
}

// handleContextLimit implements the handle_context_limit node.
func (m *Machine) handleContextLimit(agent *model.Agent, snap *model.TerminalSnapshot, logger *zap.Logger) {
	paneID, _, ok := connectionOf(agent)
	if !ok {
		return
	}

	var err error
	if terminal.IndicatesClearOverCompact(snap.Text) {
		err = m.terminal.SendClear(paneID)
	} else {
		err = m.terminal.SendCompact(paneID)
	}
	if err != nil {
		logger.Warn("failed to issue context-limit recovery command", zap.String("agentId", agent.ID), zap.Error(err))
	}
	m.guard.SetPendingFollowUp(true)
	m.guard.RecordResponse(time.Now())
}

// handlePermission implements the handle_permission node: the baseline
// policy always approves (Open Question decision, spec §9).
func (m *Machine) handlePermission(ctx context.Context, agent *model.Agent, snap *model.TerminalSnapshot, logger *zap.Logger) {
	decision := &model.Decision{
		Action: model.ActionApprove,
		Reason: "permission prompt detected; baseline policy always approves",
	}
	m.execute(ctx, agent, decision, snap, logger)
}

// handleWaiting hands off to handle_ambiguous, then execute.
func (m *Machine) handleWaiting(ctx context.Context, agent *model.Agent, snap *model.TerminalSnapshot, state *model.TerminalState, logger *zap.Logger) {
	decision := m.handleAmbiguous(ctx, agent, "Assistant waiting for input", "", snap, state, logger)
	m.execute(ctx, agent, decision, snap, logger)
}

// handleSessionRestart implements the handle_session_restart node: poll
// the pane for up to fifteen seconds, one second apart, until it settles
// into a waiting state, then hand off to handle_ambiguous.
func (m *Machine) handleSessionRestart(ctx context.Context, agent *model.Agent, logger *zap.Logger) {
	paneID, sessionID, ok := connectionOf(agent)
	if !ok {
		return
	}

	deadline := time.Now().Add(sessionRestartPollTimeout)
	for {
		snap, err := m.terminal.Capture(paneID, sessionID)
		if err == nil {
			state := m.terminal.Parse(snap)
			if state.IsWaitingForInput && !state.IsProcessing {
				decision := m.handleAmbiguous(ctx, agent, "Session restart (clear/compact)", "", snap, state, logger)
				m.execute(ctx, agent, decision, snap, logger)
				return
			}
		}
		if time.Now().After(deadline) {
			return
		}
		m.sleep(sessionRestartPollInterval)
	}
}

// handleAmbiguous implements the handle_ambiguous node: consult the
// oracle, falling back to a fixed "continue" decision when it is
// unavailable.
func (m *Machine) handleAmbiguous(ctx context.Context, agent *model.Agent, triggerLabel string, humanInstruction string, snap *model.TerminalSnapshot, state *model.TerminalState, logger *zap.Logger) *model.Decision {
	decision, err := m.oracle.Decide(ctx, oracle.Input{
		MasterPrompt:     agent.MasterPrompt,
		TerminalText:     snap.Text,
		TerminalState:    state,
		TriggerLabel:     triggerLabel,
		HumanInstruction: humanInstruction,
	})
	if err != nil {
		logger.Warn("decision oracle unavailable, falling back to continue",
			zap.String("agentId", agent.ID), zap.Error(err))
		return &model.Decision{
			Action:   model.ActionRespond,
			Response: "continue",
			Reason:   "fallback: decision oracle unavailable",
		}
	}
	return decision
}

// execute implements the execute node.
func (m *Machine) execute(ctx context.Context, agent *model.Agent, decision *model.Decision, snap *model.TerminalSnapshot, logger *zap.Logger) {
	if decision.Action == model.ActionWait {
		if decision.Notification != nil {
			m.notify(ctx, decision.Notification.Level, decision.Notification.Message)
		}
		return
	}

	paneID, _, ok := connectionOf(agent)
	if !ok {
		logger.Warn("cannot execute decision without a connection", zap.String("agentId", agent.ID))
		return
	}

	var err error
	switch decision.Action {
	case model.ActionRespond:
		err = m.terminal.SendLiteralThenEnter(paneID, decision.Response)
	case model.ActionApprove:
		err = m.terminal.SendApprove(paneID)
	case model.ActionReject:
		err = m.terminal.SendReject(paneID)
	case model.ActionCompact:
		err = m.terminal.SendCompact(paneID)
	case model.ActionClear:
		err = m.terminal.SendClear(paneID)
	case model.ActionEscape:
		err = m.terminal.SendEscape(paneID)
	case model.ActionRequestHelp:
		m.notify(ctx, model.LevelWarn, requestHelpMessage(decision, snap))
	}
	if err != nil {
		logger.Warn("failed to execute decision", zap.String("agentId", agent.ID),
			zap.String("action", string(decision.Action)), zap.Error(err))
	}
	if decision.Notification != nil {
		m.notify(ctx, decision.Notification.Level, decision.Notification.Message)
	}
	m.guard.RecordResponse(time.Now())
}

// HandleInstruction is the human-instruction entry point: it wait-
// acquires the guard, captures the pane, consults the oracle with the
// given human instruction, executes the resulting decision, and returns
// it. A failed oracle call surfaces directly to the caller rather than
// falling back (Open Question decision, spec §9) — this is the one place
// in the ESM where OracleUnavailable is not absorbed.
func (m *Machine) HandleInstruction(ctx context.Context, agent *model.Agent, text string, logger *zap.Logger) (*model.Decision, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !m.guard.TryAcquireWait(instructionAcquireTimeout, instructionPollInterval, model.EventUserPromptSubmit) {
		return nil, perrors.ErrGuardWaitTimeout
	}
	defer m.guard.Release()

	paneID, sessionID, ok := connectionOf(agent)
	if !ok {
		return nil, perrors.ErrConnectionMissing
	}

	snap, err := m.terminal.Capture(paneID, sessionID)
	if err != nil {
		return nil, err
	}
	state := m.terminal.Parse(snap)

	decision, err := m.oracle.Decide(ctx, oracle.Input{
		MasterPrompt:     agent.MasterPrompt,
		TerminalText:     snap.Text,
		TerminalState:    state,
		TriggerLabel:     "Human instruction",
		HumanInstruction: text,
	})
	if err != nil {
		return nil, err
	}

	m.execute(ctx, agent, decision, snap, logger)
	return decision, nil
}

func (m *Machine) notify(ctx context.Context, level model.NotificationLevel, message string) {
	if m.notifier == nil {
		return
	}
	_ = m.notifier.Notify(ctx, level, message)
}

// connectionOf extracts the pane/session pair an event cycle needs,
// reporting ok=false when the agent has no live connection.
func connectionOf(agent *model.Agent) (paneID string, sessionID string, ok bool) {
	if agent.Connection == nil || agent.Connection.PaneID == "" {
		return "", "", false
	}
	return agent.Connection.PaneID, agent.Connection.SessionID, true
}

// requestHelpMessage builds the request_help notification body: the
// decision's reason plus the last requestHelpContextLines terminal lines.
func requestHelpMessage(decision *model.Decision, snap *model.TerminalSnapshot) string {
	reason := decision.Reason
	if reason == "" {
		reason = "assistant requested help"
	}
	lines := strings.Split(snap.Text, "\n")
	if len(lines) > requestHelpContextLines {
		lines = lines[len(lines)-requestHelpContextLines:]
	}
	return reason + "\n\n" + strings.Join(lines, "\n")
}
