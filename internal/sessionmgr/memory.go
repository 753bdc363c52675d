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
package sessionmgr

import "sync"

// InMemoryManager is a Manager backed by a plain map, useful for tests
// and for environments with no real external session manager wired in.
type InMemoryManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   map[string]bool
}

// NewInMemoryManager returns an empty InMemoryManager.
func NewInMemoryManager() *InMemoryManager {
	return &InMemoryManager{
		sessions: make(map[string]*Session),
		closed:   make(map[string]bool),
	}
}

// Put seeds (or replaces) a session, bypassing the Manager interface.
func (m *InMemoryManager) Put(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.ID] = &cp
}

func (m *InMemoryManager) GetSession(orkaSessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[orkaSessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *InMemoryManager) CloseSession(orkaSessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[orkaSessionID]; !ok {
		return ErrSessionNotFound
	}
	m.closed[orkaSessionID] = true
	return nil
}

func (m *InMemoryManager) ResumeSession(orkaSessionID string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[orkaSessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(m.closed, orkaSessionID)
	return nil
}

func (m *InMemoryManager) ReplaceSession(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}
