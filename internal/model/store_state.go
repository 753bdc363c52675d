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
package model

import "time"

// StoreVersion is the schema version written into every persisted
// AgentStoreState.
const StoreVersion = "1.0.0"

// AgentStoreState is the top-level persisted document at
// ${userConfigDir}/agents.json.
type AgentStoreState struct {
	Version        string    `json:"version"`
	Agents         []*Agent  `json:"agents"`
	HookServerPort int       `json:"hookServerPort"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// NewAgentStoreState returns an empty, correctly versioned store state.
func NewAgentStoreState(hookServerPort int) *AgentStoreState {
	return &AgentStoreState{
		Version:        StoreVersion,
		Agents:         []*Agent{},
		HookServerPort: hookServerPort,
		LastUpdated:    time.Now(),
	}
}
