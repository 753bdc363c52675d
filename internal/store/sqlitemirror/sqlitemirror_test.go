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
package sqlitemirror

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/paneward/internal/model"
)

func TestOpen_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	var name string
	err = m.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='agent_mutations'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "agent_mutations", name)
}

func TestMirror_RecordMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	a := &model.Agent{ID: "a1", Name: "agent one", Status: model.StatusActive}
	require.NoError(t, m.RecordMutation(a, "create", time.Now()))
	require.NoError(t, m.RecordMutation(a, "status:active", time.Now()))

	var count int
	require.NoError(t, m.db.QueryRow("SELECT COUNT(*) FROM agent_mutations WHERE agent_id = ?", "a1").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestMirror_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	m1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, m1.RecordMutation(&model.Agent{ID: "a1"}, "create", time.Now()))
	require.NoError(t, m1.Close())

	m2, err := Open(path)
	require.NoError(t, err)
	defer m2.Close()

	var count int
	require.NoError(t, m2.db.QueryRow("SELECT COUNT(*) FROM agent_mutations").Scan(&count))
	assert.Equal(t, 1, count)
}
