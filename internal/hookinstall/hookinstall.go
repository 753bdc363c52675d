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

// Package hookinstall installs and removes the supervised project's
// assistant-configuration hooks that point back at the hook ingress.
package hookinstall

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/internal/perrors"
)

// settingsFileName is the path, relative to the project root, at which
// the assistant reads its hook configuration.
const settingsFileName = ".claude/settings.json"

// hookGroup is one entry in a settings.json event-type array.
type hookGroup struct {
	Hooks []hookCommand `json:"hooks"`
}

type hookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// settingsDoc is the subset of settings.json this package understands.
// Unknown top-level keys are preserved via Extra.
type settingsDoc struct {
	Hooks map[string][]hookGroup `json:"hooks,omitempty"`
	Extra map[string]json.RawMessage
}

func (d *settingsDoc) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Extra = raw
	if hooksRaw, ok := raw["hooks"]; ok {
		if err := json.Unmarshal(hooksRaw, &d.Hooks); err != nil {
			return err
		}
		delete(d.Extra, "hooks")
	}
	return nil
}

func (d *settingsDoc) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Extra)+1)
	for k, v := range d.Extra {
		out[k] = v
	}
	if len(d.Hooks) > 0 {
		hooksJSON, err := json.Marshal(d.Hooks)
		if err != nil {
			return nil, err
		}
		out["hooks"] = hooksJSON
	}
	return json.Marshal(out)
}

func settingsPath(projectPath string) string {
	return filepath.Join(projectPath, settingsFileName)
}

func hookCommandFor(port int, agentID string) string {
	return fmt.Sprintf("curl -s -X POST http://127.0.0.1:%d/api/hooks/%s -H 'Content-Type: application/json' -d @-", port, agentID)
}

func loadSettings(path string) (*settingsDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &settingsDoc{Extra: map[string]json.RawMessage{}}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", perrors.ErrHookInstallFailed, path, err)
	}

	var doc settingsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", perrors.ErrHookInstallFailed, path, err)
	}
	return &doc, nil
}

func writeSettings(path string, doc *settingsDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling %s: %v", perrors.ErrHookInstallFailed, path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: creating %s: %v", perrors.ErrHookInstallFailed, dir, err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing temp file for %s: %v", perrors.ErrHookInstallFailed, path, err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("%w: renaming temp file for %s: %v", perrors.ErrHookInstallFailed, path, err)
	}
	return nil
}

// removeAgentGroups strips any existing hook-group whose command
// references agentID from the given event's group list.
func removeAgentGroups(groups []hookGroup, agentID string) []hookGroup {
	needle := "/api/hooks/" + agentID
	out := make([]hookGroup, 0, len(groups))
	for _, g := range groups {
		keep := make([]hookCommand, 0, len(g.Hooks))
		for _, c := range g.Hooks {
			if !strings.Contains(c.Command, needle) {
				keep = append(keep, c)
			}
		}
		if len(keep) > 0 {
			out = append(out, hookGroup{Hooks: keep})
		}
	}
	return out
}

// InstallHooks adds (or replaces) this agent's hook-group entry for each
// event in events, plus SessionStart which is always implicitly added,
// then writes the settings file atomically.
func InstallHooks(projectPath string, agentID string, port int, events []model.EventType) error {
	events = model.WithSessionStartImplicit(events)

	path := settingsPath(projectPath)
	doc, err := loadSettings(path)
	if err != nil {
		return err
	}
	if doc.Hooks == nil {
		doc.Hooks = make(map[string][]hookGroup)
	}

	command := hookCommandFor(port, agentID)
	for _, et := range events {
		key := string(et)
		groups := removeAgentGroups(doc.Hooks[key], agentID)
		groups = append(groups, hookGroup{Hooks: []hookCommand{{Type: "command", Command: command}}})
		doc.Hooks[key] = groups
	}

	return writeSettings(path, doc)
}

// UninstallHooks removes every hook-group referencing agentID, then
// prunes empty event arrays and an empty hooks object.
func UninstallHooks(projectPath string, agentID string) error {
	path := settingsPath(projectPath)
	doc, err := loadSettings(path)
	if err != nil {
		return err
	}
	if doc.Hooks == nil {
		return nil
	}

	for key, groups := range doc.Hooks {
		remaining := removeAgentGroups(groups, agentID)
		if len(remaining) == 0 {
			delete(doc.Hooks, key)
		} else {
			doc.Hooks[key] = remaining
		}
	}
	if len(doc.Hooks) == 0 {
		doc.Hooks = nil
	}

	if doc.Hooks == nil && len(doc.Extra) == 0 {
		// Nothing left to persist: if the file only ever existed to carry
		// this agent's hooks, removing it restores the pre-install state
		// exactly instead of leaving an empty "{}" behind.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: removing %s: %v", perrors.ErrHookInstallFailed, path, err)
		}
		return nil
	}

	return writeSettings(path, doc)
}
