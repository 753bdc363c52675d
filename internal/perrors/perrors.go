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

// Package perrors holds the sentinel errors of the supervision core's
// error taxonomy. Call sites wrap these with fmt.Errorf("...: %w", ...)
// to attach context; callers match with errors.Is.
package perrors

import "errors"

var (
	// ErrAgentNotFound is raised when an agent id cannot be resolved.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrConnectionMissing is raised when an operation requires an
	// agent's connection but none is set.
	ErrConnectionMissing = errors.New("agent connection missing")

	// ErrTerminalUnavailable is raised when a pane cannot be read or
	// written. It ends an ESM/watchdog cycle but never escalates the
	// agent to status=error.
	ErrTerminalUnavailable = errors.New("terminal unavailable")

	// ErrOracleUnavailable is raised when the DecisionOracle cannot
	// produce a usable Decision (transport, schema, or validation
	// failure, or timeout).
	ErrOracleUnavailable = errors.New("decision oracle unavailable")

	// ErrStoreWriteFailed is raised when AgentStore cannot persist a
	// mutation. Callers must roll back their in-memory change and
	// escalate the agent to status=error.
	ErrStoreWriteFailed = errors.New("agent store write failed")

	// ErrHookInstallFailed is raised when installHooks/uninstallHooks
	// cannot write the target project's settings file.
	ErrHookInstallFailed = errors.New("hook install failed")

	// ErrProcessingStuck is raised internally when the ProcessingGuard
	// is force-released after exceeding MAX_PROCESSING_TIME.
	ErrProcessingStuck = errors.New("processing guard stuck")

	// ErrGuardBusy describes a guard whose cycle is already in flight
	// with MAX_PROCESSING_TIME not yet elapsed. ProcessingGuard.TryAcquire
	// reports that case through its boolean results and does not return
	// this error.
	ErrGuardBusy = errors.New("processing guard busy")

	// ErrGuardWaitTimeout is returned by handleInstruction when it could
	// not acquire the ProcessingGuard within its wait budget.
	ErrGuardWaitTimeout = errors.New("timed out waiting for processing guard")
)
