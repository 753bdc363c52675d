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

// Package supervisor implements the Supervisor (C8): the singleton that
// owns the agent roster, routes inbound hook events to the right
// AgentDaemon, and exposes the CRUD façade the outer shell drives.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/paneward/internal/daemon"
	"github.com/teradata-labs/paneward/internal/hookinstall"
	"github.com/teradata-labs/paneward/internal/logring"
	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/internal/perrors"
	"github.com/teradata-labs/paneward/internal/pubsub"
	"github.com/teradata-labs/paneward/internal/sessionmgr"
	"github.com/teradata-labs/paneward/pkg/oracle"
	"github.com/teradata-labs/paneward/pkg/terminal"
)

// Drop reasons. HandleHookEvent writes ReasonUnknownAgent,
// ReasonNotInHookEvents and ReasonSessionMismatch into the log ring.
// ReasonProcessingBusy and ReasonCooldown are not written anywhere: the
// ESM drops busy and cooldown events with a debug-level zap log only, and
// those drops leave no log-ring entry.
const (
	ReasonUnknownAgent     = "unknown-agent"
	ReasonNotInHookEvents  = "not-in-hookEvents"
	ReasonSessionMismatch  = "session-mismatch"
	ReasonProcessingBusy   = "processing-busy"
	ReasonCooldown         = "cooldown"
)

// StoreHandle is the slice of AgentStore the Supervisor drives directly;
// a capability interface so tests can substitute an in-memory fake.
type StoreHandle interface {
	List() []*model.Agent
	Get(id string) (*model.Agent, error)
	Create(a *model.Agent) error
	Update(a *model.Agent) error
	UpdateStatus(id string, status model.Status, lastErr string) error
	Connect(id string, conn *model.Connection) error
	Disconnect(id string) error
	Delete(id string) error
	HookServerPort() int
}

// TransportFactory builds the operator-chat transport for an agent, or
// returns a nil Transport if the agent carries no such configuration.
// It is a factory rather than a field so each daemon gets its own
// transport instance wired to the agent's own chat configuration.
type TransportFactory func(agent *model.Agent) (daemon.Transport, error)

// Supervisor is the singleton orchestrator described in spec §4.8.
type Supervisor struct {
	store     StoreHandle
	terminal  *terminal.Adapter
	oracle    *oracle.Oracle
	transport TransportFactory
	sessions  sessionmgr.Manager
	logger    *zap.Logger

	logs   *logring.Store
	events *pubsub.Broker[*model.Agent]

	mu      sync.Mutex
	daemons map[string]*daemon.Daemon
}

// New builds a Supervisor. transport and sessions may be nil.
func New(store StoreHandle, term *terminal.Adapter, orc *oracle.Oracle, transport TransportFactory, sessions sessionmgr.Manager, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		store:     store,
		terminal:  term,
		oracle:    orc,
		transport: transport,
		sessions:  sessions,
		logger:    logger,
		logs:      logring.NewStore(),
		events:    pubsub.NewBroker[*model.Agent](),
		daemons:   make(map[string]*daemon.Daemon),
	}
}

// Subscribe registers for agent lifecycle events (create/update/delete).
func (s *Supervisor) Subscribe() (<-chan pubsub.Event[*model.Agent], func()) {
	return s.events.Subscribe()
}

// Logs returns the recent log-ring entries for an agent, oldest first.
func (s *Supervisor) Logs(agentID string) []logring.Entry {
	return s.logs.Recent(agentID)
}

func (s *Supervisor) log(agentID string, level logring.Level, format string, args ...any) {
	s.logs.Append(agentID, level, fmt.Sprintf(format, args...), time.Now())
}

// AgentSnapshot is the supplemented status-query result combining the
// durable record with its runtime log ring and processing state.
type AgentSnapshot struct {
	Agent      *model.Agent
	Logs       []logring.Entry
	Processing bool
}

// Snapshot returns the current status view for one agent.
func (s *Supervisor) Snapshot(id string) (*AgentSnapshot, error) {
	agent, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	snap := &AgentSnapshot{Agent: agent, Logs: s.logs.Recent(id)}

	s.mu.Lock()
	d, ok := s.daemons[id]
	s.mu.Unlock()
	if ok {
		snap.Processing = d.Guard().Snapshot().IsProcessing
	}
	return snap, nil
}

// HandleHookEvent implements hookingress.Dispatcher. It is the single
// callback the HookIngress invokes for every normalized inbound event.
func (s *Supervisor) HandleHookEvent(ctx context.Context, event *model.HookEvent) error {
	agent, err := s.store.Get(event.AgentID)
	if err != nil {
		s.log(event.AgentID, logring.LevelWarn, "hook dropped: %s", ReasonUnknownAgent)
		return perrors.ErrAgentNotFound
	}

	if event.EventType == model.EventSessionStart {
		s.applySessionStart(agent, event)
	}

	if !agent.HasHookEvent(event.EventType) {
		s.log(agent.ID, logring.LevelDebug, "hook filtered: %s (%s)", ReasonNotInHookEvents, event.EventType)
		return nil
	}

	if agent.Connection != nil && agent.Connection.AssistantSessionID != "" &&
		event.AssistantSessionID != "" && agent.Connection.AssistantSessionID != event.AssistantSessionID {
		s.log(agent.ID, logring.LevelInfo, "hook filtered: %s", ReasonSessionMismatch)
		return nil
	}

	if agent.Status == model.StatusError {
		s.log(agent.ID, logring.LevelWarn, "hook dropped: agent in terminal error state")
		return nil
	}

	d, err := s.daemonFor(ctx, agent)
	if err != nil {
		s.log(agent.ID, logring.LevelError, "failed to start daemon: %v", err)
		return nil
	}

	if err := d.Refresh(); err != nil {
		s.log(agent.ID, logring.LevelWarn, "daemon refresh failed: %v", err)
	}
	d.HandleHookEvent(ctx, event)
	return nil
}

// applySessionStart implements spec §4.8 step 2: refresh the connection's
// assistantSessionId and propagate it to the external session manager's
// fork record, before normal filtering runs.
func (s *Supervisor) applySessionStart(agent *model.Agent, event *model.HookEvent) {
	if agent.Connection == nil || event.AssistantSessionID == "" {
		return
	}
	if agent.Connection.AssistantSessionID == event.AssistantSessionID {
		return
	}

	agent.Connection.AssistantSessionID = event.AssistantSessionID
	if err := s.store.Update(agent); err != nil {
		s.log(agent.ID, logring.LevelError, "failed to persist assistantSessionId: %v", err)
		return
	}

	if s.sessions == nil || agent.Connection.SessionID == "" {
		return
	}
	session, err := s.sessions.GetSession(agent.Connection.SessionID)
	if err != nil {
		return
	}
	updated, ok := session.WithAssistantSessionID(agent.Connection.BranchID, event.AssistantSessionID)
	if !ok {
		return
	}
	if err := s.sessions.ReplaceSession(&updated); err != nil {
		s.log(agent.ID, logring.LevelWarn, "failed to update session manager record: %v", err)
	}
}

// daemonFor returns the running daemon for agent, starting one if none
// is tracked yet.
func (s *Supervisor) daemonFor(ctx context.Context, agent *model.Agent) (*daemon.Daemon, error) {
	s.mu.Lock()
	d, ok := s.daemons[agent.ID]
	s.mu.Unlock()
	if ok {
		return d, nil
	}
	return s.startDaemon(ctx, agent)
}

func (s *Supervisor) startDaemon(ctx context.Context, agent *model.Agent) (*daemon.Daemon, error) {
	var transport daemon.Transport
	if s.transport != nil {
		t, err := s.transport(agent)
		if err != nil {
			return nil, fmt.Errorf("building transport: %w", err)
		}
		transport = t
	}

	d := daemon.New(agent, s.store, s.terminal, s.oracle, transport, s.logger)
	if err := d.Start(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.daemons[agent.ID] = d
	s.mu.Unlock()
	return d, nil
}

// StopAll stops every currently running daemon. It is called once, from
// the outer shell's shutdown sequence, after the HookIngress has stopped
// accepting new events.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.daemons))
	for id := range s.daemons {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.stopDaemon(id)
	}
}

func (s *Supervisor) stopDaemon(id string) {
	s.mu.Lock()
	d, ok := s.daemons[id]
	if ok {
		delete(s.daemons, id)
	}
	s.mu.Unlock()
	if ok {
		if err := d.Stop(); err != nil {
			s.logger.Warn("daemon stop failed", zap.String("agentId", id), zap.Error(err))
		}
	}
}

// CreateAgent assigns an id if unset, persists the agent, and installs
// its hook configuration into projectPath.
func (s *Supervisor) CreateAgent(projectPath string, agent *model.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	agent.HookEvents = model.WithSessionStartImplicit(agent.HookEvents)

	if err := s.store.Create(agent); err != nil {
		return err
	}

	if projectPath != "" {
		if err := hookinstall.InstallHooks(projectPath, agent.ID, s.store.HookServerPort(), agent.HookEvents); err != nil {
			return err
		}
	}

	s.events.Publish(pubsub.NewCreatedEvent(agent))
	return nil
}

// DeleteAgent stops and disconnects the agent, uninstalls its hook
// configuration, and removes it from the roster.
func (s *Supervisor) DeleteAgent(id string) error {
	agent, err := s.store.Get(id)
	if err != nil {
		return err
	}

	s.stopDaemon(id)

	if agent.Connection != nil && agent.Connection.ProjectPath != "" {
		if err := hookinstall.UninstallHooks(agent.Connection.ProjectPath, id); err != nil {
			s.logger.Warn("hook uninstall failed during delete", zap.String("agentId", id), zap.Error(err))
		}
	}
	_ = s.store.Disconnect(id)

	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logs.Drop(id)
	s.events.Publish(pubsub.NewDeletedEvent(agent))
	return nil
}

// ConnectAgent binds agent id to conn, installing hook configuration at
// conn.ProjectPath and, if a session manager is configured, resolving the
// assistantSessionId and requesting the session restart so the new hook
// configuration takes effect.
func (s *Supervisor) ConnectAgent(ctx context.Context, id string, conn *model.Connection) error {
	agent, err := s.store.Get(id)
	if err != nil {
		return err
	}

	if s.sessions != nil && conn.AssistantSessionID == "" && conn.SessionID != "" {
		if session, err := s.sessions.GetSession(conn.SessionID); err == nil {
			if branch, ok := session.Branch(conn.BranchID); ok {
				conn.AssistantSessionID = branch.AssistantSessionID
			}
		}
	}

	if err := s.store.Connect(id, conn); err != nil {
		return err
	}

	if conn.ProjectPath != "" {
		if err := hookinstall.InstallHooks(conn.ProjectPath, id, s.store.HookServerPort(), agent.HookEvents); err != nil {
			return err
		}
	}

	if s.sessions != nil && conn.SessionID != "" {
		if err := s.sessions.ResumeSession(conn.SessionID, true); err != nil {
			s.logger.Debug("session manager resume failed", zap.String("agentId", id), zap.Error(err))
		}
	}

	agent, err = s.store.Get(id)
	if err != nil {
		return err
	}
	if _, err := s.daemonFor(ctx, agent); err != nil {
		return err
	}

	s.events.Publish(pubsub.NewUpdatedEvent(agent))
	return nil
}

// DisconnectAgent stops the agent's daemon, uninstalls its hook
// configuration, and clears its connection.
func (s *Supervisor) DisconnectAgent(id string) error {
	agent, err := s.store.Get(id)
	if err != nil {
		return err
	}

	s.stopDaemon(id)

	if agent.Connection != nil && agent.Connection.ProjectPath != "" {
		if err := hookinstall.UninstallHooks(agent.Connection.ProjectPath, id); err != nil {
			s.logger.Warn("hook uninstall failed during disconnect", zap.String("agentId", id), zap.Error(err))
		}
	}

	if err := s.store.Disconnect(id); err != nil {
		return err
	}

	agent, err = s.store.Get(id)
	if err == nil {
		s.events.Publish(pubsub.NewUpdatedEvent(agent))
	}
	return nil
}

// HandleInstruction routes a human-issued instruction to the named
// agent's daemon, auto-starting it if necessary.
func (s *Supervisor) HandleInstruction(ctx context.Context, id, text string) (*model.Decision, error) {
	agent, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	d, err := s.daemonFor(ctx, agent)
	if err != nil {
		return nil, err
	}
	return d.HandleInstruction(ctx, text)
}
