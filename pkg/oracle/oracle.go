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

// Package oracle implements the DecisionOracle: it consults an LLM to turn
// a terminal snapshot and triggering event into a structured Decision.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/internal/perrors"
)

// maxTerminalLines bounds how much terminal text is included in the user
// message built for the model.
const maxTerminalLines = 200

// HardTimeout is the wall-clock ceiling imposed on every Decide call,
// regardless of provider-level timeouts.
const HardTimeout = 60 * time.Second

// Input is everything the oracle needs to reach a Decision.
type Input struct {
	MasterPrompt     string
	TerminalText     string
	TerminalState    *model.TerminalState
	TriggerLabel     string
	HumanInstruction string
}

// Provider is the minimal LLM collaborator the oracle requires: given a
// system instruction and a user message, produce raw assistant text.
type Provider interface {
	Complete(ctx context.Context, system string, user string) (string, error)
	Model() string
}

// Oracle is the DecisionOracle. It is stateless across calls.
type Oracle struct {
	provider Provider
}

// New builds an Oracle around provider.
func New(provider Provider) *Oracle {
	return &Oracle{provider: provider}
}

// Decide builds the system/user messages, calls the provider, and
// validates the result against the closed Decision schema. It returns
// ErrOracleUnavailable wrapping the underlying cause on any transport,
// schema, or validation failure, and enforces HardTimeout regardless of
// the caller's context deadline.
func (o *Oracle) Decide(ctx context.Context, input Input) (*model.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, HardTimeout)
	defer cancel()

	system := buildSystemInstruction(input.MasterPrompt)
	user := buildUserMessage(input)

	raw, err := o.provider.Complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("%w: provider call failed: %v", perrors.ErrOracleUnavailable, err)
	}

	decision, err := parseDecision(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrOracleUnavailable, err)
	}
	return decision, nil
}
