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

// Package store persists the Agent roster to a single JSON document,
// writing it atomically via a temp-file-plus-rename sequence so a crash
// mid-write never corrupts agents.json.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/internal/perrors"
)

// Mirror is the optional, best-effort audit sink an AgentStore may write
// to after every successful mutation. It must never sit on the load
// path: the error a Mirror returns is discarded without being logged.
type Mirror interface {
	RecordMutation(agent *model.Agent, op string, at time.Time) error
}

// AgentStore is the durable source of truth for the agent roster,
// backed by a single JSON file at Path.
type AgentStore struct {
	mu   sync.RWMutex
	path string

	state *model.AgentStoreState

	mirror Mirror
}

// NewAgentStore constructs a store over path, loading any existing
// document. A missing file is not an error: an empty, freshly
// versioned state is created in its place.
func NewAgentStore(path string, hookServerPort int, mirror Mirror) (*AgentStore, error) {
	s := &AgentStore{path: path, mirror: mirror}

	if err := s.load(hookServerPort); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AgentStore) load(hookServerPort int) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = model.NewAgentStoreState(hookServerPort)
			return nil
		}
		return fmt.Errorf("reading agent store %s: %w", s.path, err)
	}

	var state model.AgentStoreState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parsing agent store %s: %w", s.path, err)
	}
	if state.Agents == nil {
		state.Agents = []*model.Agent{}
	}
	s.state = &state
	return nil
}

// persist writes the current state to disk via temp-file-then-rename.
// Caller must hold s.mu for writing.
func (s *AgentStore) persist() error {
	s.state.LastUpdated = time.Now()

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling state: %v", perrors.ErrStoreWriteFailed, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: creating store directory: %v", perrors.ErrStoreWriteFailed, err)
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing temp file: %v", perrors.ErrStoreWriteFailed, err)
	}

	if err := os.Rename(tempFile, s.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("%w: renaming temp file: %v", perrors.ErrStoreWriteFailed, err)
	}

	return nil
}

func (s *AgentStore) mirrorMutation(agent *model.Agent, op string) {
	if s.mirror == nil || agent == nil {
		return
	}
	_ = s.mirror.RecordMutation(agent.Clone(), op, time.Now())
}

// List returns a snapshot of all agents.
func (s *AgentStore) List() []*model.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Agent, len(s.state.Agents))
	for i, a := range s.state.Agents {
		out[i] = a.Clone()
	}
	return out
}

// Get returns a copy of the agent with the given ID.
func (s *AgentStore) Get(id string) (*model.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.state.Agents {
		if a.ID == id {
			return a.Clone(), nil
		}
	}
	return nil, perrors.ErrAgentNotFound
}

// Create adds a new agent and persists the store.
func (s *AgentStore) Create(a *model.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.Agents {
		if existing.ID == a.ID {
			return fmt.Errorf("agent %s already exists", a.ID)
		}
	}

	a.CreatedAt = time.Now()
	a.LastActivity = a.CreatedAt
	if a.Status == "" {
		a.Status = model.StatusIdle
	}
	s.state.Agents = append(s.state.Agents, a.Clone())

	if err := s.persist(); err != nil {
		return err
	}
	s.mirrorMutation(a, "create")
	return nil
}

// Update replaces the stored agent with the same ID, bumping
// LastActivity, and persists the store.
func (s *AgentStore) Update(a *model.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.state.Agents {
		if existing.ID == a.ID {
			a.LastActivity = time.Now()
			s.state.Agents[i] = a.Clone()
			if err := s.persist(); err != nil {
				return err
			}
			s.mirrorMutation(a, "update")
			return nil
		}
	}
	return perrors.ErrAgentNotFound
}

// UpdateStatus sets status and, on error, lastError, then persists.
func (s *AgentStore) UpdateStatus(id string, status model.Status, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.state.Agents {
		if a.ID == id {
			a.Status = status
			a.LastError = lastErr
			a.LastActivity = time.Now()
			if err := s.persist(); err != nil {
				return err
			}
			s.mirrorMutation(a, "status:"+string(status))
			return nil
		}
	}
	return perrors.ErrAgentNotFound
}

// Connect records a Connection on the agent.
func (s *AgentStore) Connect(id string, conn *model.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.state.Agents {
		if a.ID == id {
			a.Connection = conn
			a.Status = model.StatusActive
			a.LastActivity = time.Now()
			if err := s.persist(); err != nil {
				return err
			}
			s.mirrorMutation(a, "connect")
			return nil
		}
	}
	return perrors.ErrAgentNotFound
}

// Disconnect clears the agent's Connection.
func (s *AgentStore) Disconnect(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.state.Agents {
		if a.ID == id {
			a.Connection = nil
			a.Status = model.StatusIdle
			a.LastActivity = time.Now()
			if err := s.persist(); err != nil {
				return err
			}
			s.mirrorMutation(a, "disconnect")
			return nil
		}
	}
	return perrors.ErrAgentNotFound
}

// Delete removes the agent from the roster and persists the store.
func (s *AgentStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.state.Agents {
		if a.ID == id {
			s.state.Agents = append(s.state.Agents[:i], s.state.Agents[i+1:]...)
			if err := s.persist(); err != nil {
				return err
			}
			s.mirrorMutation(a, "delete")
			return nil
		}
	}
	return perrors.ErrAgentNotFound
}

// HookServerPort returns the port recorded in the store state.
func (s *AgentStore) HookServerPort() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.HookServerPort
}

// Compact rewrites the store file, dropping no live agents but
// normalizing formatting and LastUpdated. It is the operation the
// daily maintenance job invokes.
func (s *AgentStore) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}
