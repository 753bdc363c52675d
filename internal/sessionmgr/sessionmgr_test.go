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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranch_ResolvesMainAndForks(t *testing.T) {
	s := &Session{
		ID:   "sx",
		Main: Branch{BranchID: "main", PaneID: "pane-main"},
		Forks: []Branch{
			{BranchID: "fork-1", PaneID: "pane-fork-1"},
		},
	}

	b, ok := s.Branch("")
	require.True(t, ok)
	assert.Equal(t, "pane-main", b.PaneID)

	b, ok = s.Branch("fork-1")
	require.True(t, ok)
	assert.Equal(t, "pane-fork-1", b.PaneID)

	_, ok = s.Branch("missing")
	assert.False(t, ok)
}

func TestWithAssistantSessionID_UpdatesMatchingBranch(t *testing.T) {
	s := &Session{
		ID:   "sx",
		Main: Branch{BranchID: "main"},
		Forks: []Branch{
			{BranchID: "fork-1"},
		},
	}

	updated, ok := s.WithAssistantSessionID("fork-1", "new-assistant-id")
	require.True(t, ok)
	assert.Equal(t, "new-assistant-id", updated.Forks[0].AssistantSessionID)
	assert.Empty(t, s.Forks[0].AssistantSessionID, "original session must be unmodified")

	_, ok = s.WithAssistantSessionID("no-such-branch", "x")
	assert.False(t, ok)
}

func TestInMemoryManager_RoundTrip(t *testing.T) {
	m := NewInMemoryManager()
	m.Put(&Session{ID: "sx", Main: Branch{BranchID: "main", PaneID: "pane-1"}})

	got, err := m.GetSession("sx")
	require.NoError(t, err)
	assert.Equal(t, "pane-1", got.Main.PaneID)

	updated, ok := got.WithAssistantSessionID("", "assist-1")
	require.True(t, ok)
	require.NoError(t, m.ReplaceSession(&updated))

	got, err = m.GetSession("sx")
	require.NoError(t, err)
	assert.Equal(t, "assist-1", got.Main.AssistantSessionID)
}

func TestInMemoryManager_UnknownSessionErrors(t *testing.T) {
	m := NewInMemoryManager()

	_, err := m.GetSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, m.CloseSession("missing"), ErrSessionNotFound)
	assert.ErrorIs(t, m.ResumeSession("missing", false), ErrSessionNotFound)
	assert.ErrorIs(t, m.ReplaceSession(&Session{ID: "missing"}), ErrSessionNotFound)
}

func TestInMemoryManager_CloseThenResume(t *testing.T) {
	m := NewInMemoryManager()
	m.Put(&Session{ID: "sx"})

	require.NoError(t, m.CloseSession("sx"))
	assert.True(t, m.closed["sx"])

	require.NoError(t, m.ResumeSession("sx", true))
	assert.False(t, m.closed["sx"])
}
