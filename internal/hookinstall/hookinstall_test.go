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
package hookinstall

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/paneward/internal/model"
)

func readRawSettings(t *testing.T, projectPath string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(settingsPath(projectPath))
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestInstallHooks_CreatesFileWithSessionStartImplicit(t *testing.T) {
	dir := t.TempDir()
	err := InstallHooks(dir, "agent-1", 47621, []model.EventType{model.EventStop})
	require.NoError(t, err)

	raw := readRawSettings(t, dir)
	hooks := raw["hooks"].(map[string]interface{})
	_, hasStop := hooks["Stop"]
	_, hasSessionStart := hooks["SessionStart"]
	assert.True(t, hasStop)
	assert.True(t, hasSessionStart, "SessionStart should be implicitly added")
}

func TestInstallHooks_Idempotent(t *testing.T) {
	dir := t.TempDir()
	events := []model.EventType{model.EventStop, model.EventNotification}

	require.NoError(t, InstallHooks(dir, "agent-1", 47621, events))
	first, err := os.ReadFile(settingsPath(dir))
	require.NoError(t, err)

	require.NoError(t, InstallHooks(dir, "agent-1", 47621, events))
	second, err := os.ReadFile(settingsPath(dir))
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}

func TestInstallHooks_PreservesOtherAgentsGroups(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InstallHooks(dir, "agent-1", 47621, []model.EventType{model.EventStop}))
	require.NoError(t, InstallHooks(dir, "agent-2", 47621, []model.EventType{model.EventStop}))

	raw := readRawSettings(t, dir)
	hooks := raw["hooks"].(map[string]interface{})
	stopGroups := hooks["Stop"].([]interface{})
	assert.Len(t, stopGroups, 2, "both agents' hook groups should coexist")
}

func TestUninstallHooks_RemovesOnlyTargetAgent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InstallHooks(dir, "agent-1", 47621, []model.EventType{model.EventStop}))
	require.NoError(t, InstallHooks(dir, "agent-2", 47621, []model.EventType{model.EventStop}))

	require.NoError(t, UninstallHooks(dir, "agent-1"))

	raw := readRawSettings(t, dir)
	hooks := raw["hooks"].(map[string]interface{})
	stopGroups := hooks["Stop"].([]interface{})
	require.Len(t, stopGroups, 1)
	group := stopGroups[0].(map[string]interface{})
	cmds := group["hooks"].([]interface{})
	cmd := cmds[0].(map[string]interface{})
	assert.Contains(t, cmd["command"], "agent-2")
}

func TestUninstallHooks_PrunesEmptyArraysAndHooksObject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".claude"), 0o750))
	require.NoError(t, os.WriteFile(settingsPath(dir), []byte(`{"theme": "dark"}`), 0o644))
	require.NoError(t, InstallHooks(dir, "agent-1", 47621, []model.EventType{model.EventStop}))

	require.NoError(t, UninstallHooks(dir, "agent-1"))

	raw := readRawSettings(t, dir)
	_, hasHooks := raw["hooks"]
	assert.False(t, hasHooks, "empty hooks object should be pruned entirely")
	assert.Equal(t, "dark", raw["theme"], "unrelated keys keep the file alive")
}

func TestUninstallHooks_OnMissingFileIsNoop(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, UninstallHooks(dir, "agent-1"))
}

func TestInstallThenUninstall_RoundTripsToNoFile(t *testing.T) {
	dir := t.TempDir()
	events := []model.EventType{model.EventStop, model.EventPreToolUse}

	require.NoError(t, InstallHooks(dir, "agent-1", 47621, events))
	require.NoError(t, UninstallHooks(dir, "agent-1"))

	_, err := os.Stat(settingsPath(dir))
	assert.True(t, os.IsNotExist(err), "a settings file created solely for this agent's hooks should be removed, not left as {}")
}

func TestInstallHooks_PreservesUnrelatedTopLevelKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".claude"), 0o750))
	require.NoError(t, os.WriteFile(settingsPath(dir), []byte(`{"theme": "dark"}`), 0o644))

	require.NoError(t, InstallHooks(dir, "agent-1", 47621, []model.EventType{model.EventStop}))

	raw := readRawSettings(t, dir)
	assert.Equal(t, "dark", raw["theme"])
}
