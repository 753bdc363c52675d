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

// Package sqlitemirror is a best-effort audit sink for AgentStore
// mutations. It is never on the load path: AgentStore discards a write
// failure here without logging it, so it never reaches the operator.
package sqlitemirror

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver, pure Go, no cgo

	"github.com/teradata-labs/paneward/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS agent_mutations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id TEXT NOT NULL,
	op TEXT NOT NULL,
	occurred_at TEXT NOT NULL,
	agent_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agent_mutations_agent_id ON agent_mutations(agent_id);
`

// Mirror writes an append-only audit trail of AgentStore mutations to a
// SQLite database. It satisfies store.Mirror.
type Mirror struct {
	db *sql.DB
}

// Open creates (if needed) and opens the mirror database at path.
func Open(path string) (*Mirror, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite mirror %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting busy_timeout on %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema on %q: %w", path, err)
	}

	return &Mirror{db: db}, nil
}

// RecordMutation appends one row describing a store mutation.
func (m *Mirror) RecordMutation(agent *model.Agent, op string, at time.Time) error {
	payload, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("marshaling agent for mirror: %w", err)
	}

	_, err = m.db.Exec(
		"INSERT INTO agent_mutations (agent_id, op, occurred_at, agent_json) VALUES (?, ?, ?, ?)",
		agent.ID, op, at.UTC().Format(time.RFC3339Nano), string(payload),
	)
	if err != nil {
		return fmt.Errorf("inserting mirror row: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (m *Mirror) Close() error {
	return m.db.Close()
}
