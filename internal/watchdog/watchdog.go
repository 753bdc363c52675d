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

// Package watchdog implements the Watchdog (C6): a per-agent periodic
// timer that nudges a stalled assistant session on its own schedule,
// independent of the hook-driven EventStateMachine. It never mutates
// agent state, the AgentStore, or any durable storage; its only side
// effects are keystrokes through the TerminalAdapter and messages through
// the operator-chat transport.
package watchdog

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/pkg/oracle"
	"github.com/teradata-labs/paneward/pkg/terminal"
)

// defaultPollInterval matches spec §4.6's default when an agent carries
// no explicit WatchdogConfig.
const defaultPollInterval = 30 * time.Second

// defaultActionCooldown is used when an agent's WatchdogConfig leaves
// ActionCooldownSec unset (0); an unset cooldown must not degenerate to
// "always clear".
const defaultActionCooldown = 60 * time.Second

// watchdogTriggerLabel is passed to the DecisionOracle so its prompt can
// distinguish a periodic nudge from an event-driven or human-instruction
// consultation.
const watchdogTriggerLabel = "Watchdog (periodic check)"

// AgentProvider is the capability the Watchdog uses to read the current
// Agent record on every tick, so that edits applied via daemon.refresh()
// take effect on the next poll. It replaces the original's closure-based
// getter per the re-architecture notes.
type AgentProvider interface {
	CurrentAgent() *model.Agent
}

// GuardReader is the read-only view of the ESM's ProcessingGuard the
// Watchdog needs to honor the same busy/cooldown invariants without
// itself holding or mutating the lock.
type GuardReader interface {
	Snapshot() model.ProcessingGuardSnapshot
}

// ActionRecorder is the ESM's cross-component sync hook: the Watchdog
// calls it immediately after taking an action so the ESM's own cooldown
// tracking stays accurate.
type ActionRecorder interface {
	RecordExternalAction()
}

// Notifier is the operator-chat transport capability, mirroring the
// ESM's own Notifier shape so a single concrete transport can satisfy
// both by structural typing.
type Notifier interface {
	Notify(ctx context.Context, level model.NotificationLevel, message string) error
}

// Watchdog is one agent's periodic-poll collaborator.
type Watchdog struct {
	agents   AgentProvider
	guard    GuardReader
	recorder ActionRecorder
	terminal *terminal.Adapter
	oracle   *oracle.Oracle
	notifier Notifier
	logger   *zap.Logger

	pollInterval       time.Duration
	actionCooldown     time.Duration
	attentionThreshold int

	running atomic.Bool // overlap guard: a tick in flight

	mu                        sync.Mutex
	consecutiveAttentionPolls int
	lastActionAt              time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Watchdog for one agent. cfg supplies the poll interval,
// action cooldown, and attention threshold; a zero-value PollIntervalSec
// falls back to defaultPollInterval.
func New(agents AgentProvider, guard GuardReader, recorder ActionRecorder, term *terminal.Adapter, orc *oracle.Oracle, notifier Notifier, cfg model.WatchdogConfig, logger *zap.Logger) *Watchdog {
	if logger == nil {
		logger = zap.NewNop()
	}
	poll := time.Duration(cfg.PollIntervalSec) * time.Second
	if poll <= 0 {
		poll = defaultPollInterval
	}
	cooldown := time.Duration(cfg.ActionCooldownSec) * time.Second
	if cooldown <= 0 {
		cooldown = defaultActionCooldown
	}
	threshold := cfg.AttentionThreshold
	if threshold <= 0 {
		threshold = 1
	}

	return &Watchdog{
		agents:             agents,
		guard:              guard,
		recorder:           recorder,
		terminal:           term,
		oracle:             orc,
		notifier:           notifier,
		logger:             logger,
		pollInterval:       poll,
		actionCooldown:     cooldown,
		attentionThreshold: threshold,
		stopCh:             make(chan struct{}),
	}
}

// Start begins the polling loop in a background goroutine. It does not
// consult the agent's enabled flag; the owning daemon decides whether to
// call it.
func (w *Watchdog) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop halts the polling loop and waits for any in-flight tick to finish.
func (w *Watchdog) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Watchdog) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.maybeTick(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// maybeTick enforces the overlap guard (step 1) before dispatching a tick
// onto its own goroutine, so a slow oracle call never stalls the ticker.
func (w *Watchdog) maybeTick(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Debug("watchdog tick skipped: previous tick still running")
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.running.Store(false)
		w.tick(ctx)
	}()
}

func (w *Watchdog) resetCounter() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.consecutiveAttentionPolls = 0
}

// tick implements steps 2-7 of spec §4.6.
func (w *Watchdog) tick(ctx context.Context) {
	agent := w.agents.CurrentAgent()
	if agent == nil || agent.Connection == nil || agent.Connection.PaneID == "" {
		w.resetCounter()
		return
	}

	if w.guard.Snapshot().IsProcessing {
		w.resetCounter()
		return
	}

	snap, err := w.terminal.Capture(agent.Connection.PaneID, agent.Connection.SessionID)
	if err != nil {
		w.logger.Debug("watchdog capture failed", zap.String("agentId", agent.ID), zap.Error(err))
		w.resetCounter()
		return
	}
	state := w.terminal.Parse(snap)
	if state.IsProcessing {
		w.resetCounter()
		return
	}

	decision, err := w.oracle.Decide(ctx, oracle.Input{
		MasterPrompt:  agent.MasterPrompt,
		TerminalText:  snap.Text,
		TerminalState: state,
		TriggerLabel:  watchdogTriggerLabel,
	})
	if err != nil {
		w.logger.Debug("watchdog oracle call failed, treating as wait", zap.String("agentId", agent.ID), zap.Error(err))
		w.resetCounter()
		return
	}
	if decision.Action == model.ActionWait {
		w.resetCounter()
		return
	}

	w.mu.Lock()
	w.consecutiveAttentionPolls++
	reached := w.consecutiveAttentionPolls >= w.attentionThreshold
	w.mu.Unlock()

	if !reached {
		return
	}
	if !w.cooldownClear() {
		return
	}

	w.executeDecision(ctx, agent, decision, snap)
	w.recorder.RecordExternalAction()

	w.mu.Lock()
	w.lastActionAt = time.Now()
	w.consecutiveAttentionPolls = 0
	w.mu.Unlock()
}

// cooldownClear implements spec §4.6's cooldown gate: both the
// Watchdog's own lastActionAt and the ESM's lastResponseTime must have
// cleared actionCooldown.
func (w *Watchdog) cooldownClear() bool {
	w.mu.Lock()
	lastActionAt := w.lastActionAt
	w.mu.Unlock()

	now := time.Now()
	if !lastActionAt.IsZero() && now.Sub(lastActionAt) < w.actionCooldown {
		return false
	}
	lastResponseTime := w.guard.Snapshot().LastResponseTime
	if !lastResponseTime.IsZero() && now.Sub(lastResponseTime) < w.actionCooldown {
		return false
	}
	return true
}

// executeDecision dispatches decision's keystrokes directly through the
// TerminalAdapter, mirroring the ESM's execute node but kept separate so
// the Watchdog never reaches back into ESM internals.
func (w *Watchdog) executeDecision(ctx context.Context, agent *model.Agent, decision *model.Decision, snap *model.TerminalSnapshot) {
	paneID := agent.Connection.PaneID

	var err error
	switch decision.Action {
	case model.ActionRespond:
		err = w.terminal.SendLiteralThenEnter(paneID, decision.Response)
	case model.ActionApprove:
		err = w.terminal.SendApprove(paneID)
	case model.ActionReject:
		err = w.terminal.SendReject(paneID)
	case model.ActionCompact:
		err = w.terminal.SendCompact(paneID)
	case model.ActionClear:
		err = w.terminal.SendClear(paneID)
	case model.ActionEscape:
		err = w.terminal.SendEscape(paneID)
	case model.ActionRequestHelp:
		w.notify(ctx, model.LevelWarn, requestHelpMessage(decision, snap))
	}
	if err != nil {
		w.logger.Warn("watchdog failed to execute decision", zap.String("agentId", agent.ID),
			zap.String("action", string(decision.Action)), zap.Error(err))
	}
	if decision.Notification != nil {
		w.notify(ctx, decision.Notification.Level, decision.Notification.Message)
	}
}

func (w *Watchdog) notify(ctx context.Context, level model.NotificationLevel, message string) {
	if w.notifier == nil {
		return
	}
	_ = w.notifier.Notify(ctx, level, message)
}

const requestHelpContextLines = 20

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
