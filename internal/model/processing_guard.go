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

import (
	"sync"
	"time"
)

// MaxProcessingTime is the hard ceiling on how long a single ESM cycle may
// hold the ProcessingGuard before a subsequent event force-releases it.
const MaxProcessingTime = 120 * time.Second

// CooldownDuration is the minimum wall-clock interval between successive
// actions taken on the same pane by the ESM.
const CooldownDuration = 3 * time.Second

// ProcessingGuardSnapshot is a point-in-time, lock-free copy of guard
// state, safe to read by the Watchdog without holding the ESM's lock.
type ProcessingGuardSnapshot struct {
	IsProcessing       bool
	ProcessingStartedAt time.Time
	LastResponseTime   time.Time
	LastEventType      EventType
	PendingFollowUp    bool
}

// ProcessingGuard serializes ESM cycles, watchdog-driven actions (via
// cooldown), and human-instruction cycles on a single agent. It is the
// only mutex-like primitive in the ESM; per the re-architecture notes it
// replaces the original's closure-based provider injection with a small,
// directly ownable type.
type ProcessingGuard struct {
	mu sync.Mutex

	isProcessing        bool
	processingStartedAt time.Time
	lastResponseTime    time.Time
	lastEventType       EventType
	pendingFollowUp     bool
}

// NewProcessingGuard returns an unlocked guard.
func NewProcessingGuard() *ProcessingGuard {
	return &ProcessingGuard{}
}

// TryAcquire attempts to acquire the guard for eventType at time now. It
// returns (acquired=true) if the guard was free, or was held past
// MaxProcessingTime (force-reset, acquired=true, forced=true). Otherwise
// it returns acquired=false and the caller must drop the event.
func (g *ProcessingGuard) TryAcquire(now time.Time, eventType EventType) (acquired bool, forced bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.isProcessing {
		if now.Sub(g.processingStartedAt) < MaxProcessingTime {
			return false, false
		}
		forced = true
	}

	g.isProcessing = true
	g.processingStartedAt = now
	g.lastEventType = eventType
	return true, forced
}

// TryAcquireWait blocks up to timeout for the guard to become free (or
// force-releasable), polling at the given interval. Used by
// handleInstruction, which must wait rather than drop.
func (g *ProcessingGuard) TryAcquireWait(timeout, pollEvery time.Duration, eventType EventType) bool {
	deadline := time.Now().Add(timeout)
	for {
		if ok, _ := g.TryAcquire(time.Now(), eventType); ok {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollEvery)
	}
}

// Release clears the processing flag. It must be called exactly once per
// successful TryAcquire/TryAcquireWait, typically via defer.
func (g *ProcessingGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.isProcessing = false
}

// CooldownClear reports whether enough time has elapsed since the last
// response for a new action to proceed, honoring the SessionStart +
// pendingFollowUp bypass. It also clears pendingFollowUp when the bypass
// fires, per spec §4.5's guard node.
func (g *ProcessingGuard) CooldownClear(now time.Time, eventType EventType) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastResponseTime.IsZero() {
		return true
	}
	if now.Sub(g.lastResponseTime) >= CooldownDuration {
		return true
	}
	if eventType == EventSessionStart && g.pendingFollowUp {
		g.pendingFollowUp = false
		return true
	}
	return false
}

// RecordResponse sets lastResponseTime to t. Called by execute and by
// recordExternalAction (the Watchdog's cross-component sync hook).
func (g *ProcessingGuard) RecordResponse(t time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastResponseTime = t
}

// SetPendingFollowUp sets the transient flag that lets the next
// SessionStart bypass cooldown.
func (g *ProcessingGuard) SetPendingFollowUp(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pendingFollowUp = v
}

// Snapshot returns a consistent, lock-free copy of the guard's state.
func (g *ProcessingGuard) Snapshot() ProcessingGuardSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ProcessingGuardSnapshot{
		IsProcessing:        g.isProcessing,
		ProcessingStartedAt: g.processingStartedAt,
		LastResponseTime:    g.lastResponseTime,
		LastEventType:       g.lastEventType,
		PendingFollowUp:     g.pendingFollowUp,
	}
}
