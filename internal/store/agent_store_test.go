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
package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/internal/perrors"
)

func newTestStore(t *testing.T) *AgentStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.json")
	s, err := NewAgentStore(path, 47621, nil)
	require.NoError(t, err)
	return s
}

func TestNewAgentStore_CreatesEmptyStateWhenFileMissing(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.List())
	assert.Equal(t, 47621, s.HookServerPort())
}

func TestAgentStore_CreateGetUpdateDelete(t *testing.T) {
	s := newTestStore(t)

	a := &model.Agent{ID: "a1", Name: "agent one", MasterPrompt: "be helpful"}
	require.NoError(t, s.Create(a))

	got, err := s.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, "agent one", got.Name)
	assert.Equal(t, model.StatusIdle, got.Status)
	assert.False(t, got.CreatedAt.IsZero())

	got.Name = "renamed"
	require.NoError(t, s.Update(got))

	got2, err := s.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got2.Name)

	require.NoError(t, s.Delete("a1"))
	_, err = s.Get("a1")
	assert.ErrorIs(t, err, perrors.ErrAgentNotFound)
}

func TestAgentStore_Create_DuplicateIDRejected(t *testing.T) {
	s := newTestStore(t)
	a := &model.Agent{ID: "a1", Name: "one"}
	require.NoError(t, s.Create(a))
	assert.Error(t, s.Create(&model.Agent{ID: "a1", Name: "two"}))
}

func TestAgentStore_ConnectDisconnect(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(&model.Agent{ID: "a1", Name: "one"}))

	conn := &model.Connection{ProjectPath: "/tmp/proj", SessionID: "sess-1", PaneID: "%1", ConnectedAt: time.Now()}
	require.NoError(t, s.Connect("a1", conn))

	got, err := s.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
	require.NotNil(t, got.Connection)
	assert.Equal(t, "sess-1", got.Connection.SessionID)

	require.NoError(t, s.Disconnect("a1"))
	got, err = s.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusIdle, got.Status)
	assert.Nil(t, got.Connection)
}

func TestAgentStore_UpdateStatus(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(&model.Agent{ID: "a1", Name: "one"}))

	require.NoError(t, s.UpdateStatus("a1", model.StatusError, "oracle timeout"))
	got, err := s.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, got.Status)
	assert.Equal(t, "oracle timeout", got.LastError)
}

func TestAgentStore_OperationsOnUnknownAgent(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.Update(&model.Agent{ID: "nope"}), perrors.ErrAgentNotFound)
	assert.ErrorIs(t, s.UpdateStatus("nope", model.StatusError, "x"), perrors.ErrAgentNotFound)
	assert.ErrorIs(t, s.Connect("nope", &model.Connection{}), perrors.ErrAgentNotFound)
	assert.ErrorIs(t, s.Disconnect("nope"), perrors.ErrAgentNotFound)
	assert.ErrorIs(t, s.Delete("nope"), perrors.ErrAgentNotFound)
}

func TestAgentStore_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.json")

	s1, err := NewAgentStore(path, 9000, nil)
	require.NoError(t, err)
	require.NoError(t, s1.Create(&model.Agent{ID: "a1", Name: "persisted"}))

	s2, err := NewAgentStore(path, 9000, nil)
	require.NoError(t, err)
	got, err := s2.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Name)
}

type recordingMirror struct {
	ops []string
}

func (m *recordingMirror) RecordMutation(agent *model.Agent, op string, at time.Time) error {
	m.ops = append(m.ops, op)
	return nil
}

func TestAgentStore_MirrorReceivesMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.json")
	mirror := &recordingMirror{}
	s, err := NewAgentStore(path, 9000, mirror)
	require.NoError(t, err)

	require.NoError(t, s.Create(&model.Agent{ID: "a1", Name: "one"}))
	require.NoError(t, s.UpdateStatus("a1", model.StatusActive, ""))
	require.NoError(t, s.Delete("a1"))

	assert.Equal(t, []string{"create", "status:active", "delete"}, mirror.ops)
}

func TestAgentStore_Compact(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(&model.Agent{ID: "a1", Name: "one"}))
	assert.NoError(t, s.Compact())
}
