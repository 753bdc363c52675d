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

// Package daemon implements the AgentDaemon (C7): the per-agent runtime
// that owns one EventStateMachine, one Watchdog, and an optional
// operator-chat transport, and exposes the lifecycle and capability
// accessors the Supervisor and Watchdog need.
package daemon

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/teradata-labs/paneward/internal/esm"
	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/internal/watchdog"
	"github.com/teradata-labs/paneward/pkg/oracle"
	"github.com/teradata-labs/paneward/pkg/terminal"
)

// StoreHandle is the slice of AgentStore the daemon needs: reloading the
// record on refresh and flipping status across start/stop. It is a
// capability interface rather than a direct `*store.AgentStore` field so
// the daemon never depends on the store package's persistence details.
type StoreHandle interface {
	Get(id string) (*model.Agent, error)
	UpdateStatus(id string, status model.Status, lastErr string) error
}

// Transport is the operator-chat capability: Start/Stop its own
// lifecycle, and Notify for ESM/Watchdog side-channel messages. Its
// method set is a superset of both esm.Notifier and watchdog.Notifier,
// so a single concrete transport (e.g. pkg/telegram.Client) satisfies
// both without an adapter.
type Transport interface {
	Start(ctx context.Context) error
	Stop() error
	Notify(ctx context.Context, level model.NotificationLevel, message string) error
}

// Daemon is one agent's AgentDaemon.
type Daemon struct {
	mu    sync.RWMutex
	agent *model.Agent

	store     StoreHandle
	esm       *esm.Machine
	watchdog  *watchdog.Watchdog
	transport Transport
	logger    *zap.Logger
}

// New builds a Daemon for agent, wiring a fresh ESM and Watchdog around
// the shared TerminalAdapter/DecisionOracle instances. transport may be
// nil if the agent has no operator-chat configuration.
func New(agent *model.Agent, store StoreHandle, term *terminal.Adapter, orc *oracle.Oracle, transport Transport, logger *zap.Logger) *Daemon {
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Daemon{
		agent:     agent.Clone(),
		store:     store,
		transport: transport,
		logger:    logger,
	}

	d.esm = esm.New(term, orc, transport)

	wdCfg := model.DefaultWatchdogConfig()
	if agent.Watchdog != nil {
		wdCfg = *agent.Watchdog
	}
	d.watchdog = watchdog.New(d, d.esm.Guard(), d.esm, term, orc, transport, wdCfg, logger)

	return d
}

// CurrentAgent satisfies watchdog.AgentProvider: it returns the daemon's
// current in-memory agent record, kept up to date by Refresh.
func (d *Daemon) CurrentAgent() *model.Agent {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.agent
}

// Guard exposes the ESM's ProcessingGuard as a read-only accessor, per
// spec §4.7 — the Watchdog already holds its own reference via
// GuardReader, but a Supervisor-level status view needs the same
// snapshot.
func (d *Daemon) Guard() *model.ProcessingGuard {
	return d.esm.Guard()
}

// TransportHandle exposes the daemon's operator-chat transport, or nil.
func (d *Daemon) TransportHandle() Transport {
	return d.transport
}

// Start marks the agent active in the store, starts the operator-chat
// transport (if configured), and starts the Watchdog (if enabled).
func (d *Daemon) Start(ctx context.Context) error {
	agent := d.CurrentAgent()

	if err := d.store.UpdateStatus(agent.ID, model.StatusActive, ""); err != nil {
		return err
	}

	if d.transport != nil {
		if err := d.transport.Start(ctx); err != nil {
			d.logger.Warn("operator-chat transport failed to start", zap.String("agentId", agent.ID), zap.Error(err))
		}
	}

	if agent.Watchdog == nil || agent.Watchdog.Enabled {
		d.watchdog.Start(ctx)
	}

	return nil
}

// Stop stops the Watchdog before the operator-chat transport (spec
// §4.7's ordering), then marks the agent idle in the store.
func (d *Daemon) Stop() error {
	d.watchdog.Stop()

	if d.transport != nil {
		if err := d.transport.Stop(); err != nil {
			d.logger.Warn("operator-chat transport failed to stop", zap.Error(err))
		}
	}

	agent := d.CurrentAgent()
	return d.store.UpdateStatus(agent.ID, model.StatusIdle, "")
}

// Refresh reloads the agent record from the store so edits made through
// the Supervisor's CRUD surface take effect on the daemon's next cycle.
func (d *Daemon) Refresh() error {
	agent, err := d.store.Get(d.CurrentAgent().ID)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.agent = agent
	d.mu.Unlock()
	return nil
}

// HandleHookEvent delegates to the ESM, injecting the daemon's logger.
func (d *Daemon) HandleHookEvent(ctx context.Context, event *model.HookEvent) {
	d.esm.HandleEvent(ctx, d.CurrentAgent(), event, d.logger)
}

// HandleInstruction delegates a human-issued instruction to the ESM's
// HandleInstruction entry point.
func (d *Daemon) HandleInstruction(ctx context.Context, text string) (*model.Decision, error) {
	return d.esm.HandleInstruction(ctx, d.CurrentAgent(), text, d.logger)
}
