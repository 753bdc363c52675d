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
package esm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/pkg/oracle"
	"github.com/teradata-labs/paneward/pkg/terminal"
)

// fakeMux is an in-memory terminal.Mux test double.
type fakeMux struct {
	mu           sync.Mutex
	hasSession   bool
	captureText  string
	sentLiterals []string
	sentKeys     []string
}

func (f *fakeMux) HasSession(string) (bool, error) { return f.hasSession, nil }
func (f *fakeMux) CapturePane(string, int) (string, error) {
	return f.captureText, nil
}
func (f *fakeMux) SendLiteral(_ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentLiterals = append(f.sentLiterals, text)
	return nil
}
func (f *fakeMux) SendKey(_ string, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentKeys = append(f.sentKeys, name)
	return nil
}

func (f *fakeMux) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.sentKeys...)
}

// fakeProvider is an in-memory oracle.Provider test double.
type fakeProvider struct {
	response string
	err      error
}

func (f *fakeProvider) Complete(context.Context, string, string) (string, error) {
	return f.response, f.err
}
func (f *fakeProvider) Model() string { return "fake-model" }

// fakeNotifier records dispatched notifications.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, _ model.NotificationLevel, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func testAgent(paneID string) *model.Agent {
	return &model.Agent{
		ID:           "agent-1",
		MasterPrompt: "you are a master agent",
		Connection: &model.Connection{
			PaneID:    paneID,
			SessionID: "sess-1",
		},
	}
}

func newMachine(mux *fakeMux, provider *fakeProvider, notifier Notifier) *Machine {
	m := New(terminal.NewAdapter(mux), oracle.New(provider), notifier)
	m.sleep = func(time.Duration) {} // no real sleeping in tests
	return m
}

func TestHandleEvent_PreCompactIsLogOnly(t *testing.T) {
	mux := &fakeMux{hasSession: true}
	m := newMachine(mux, &fakeProvider{}, nil)
	agent := testAgent("pane-1")

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventPreCompact}, nil)

	assert.Empty(t, mux.keys())
	assert.False(t, m.Guard().Snapshot().IsProcessing)
}

func TestHandleEvent_BusyGuardDropsEvent(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "ready >"}
	m := newMachine(mux, &fakeProvider{}, nil)
	agent := testAgent("pane-1")

	acquired, _ := m.guard.TryAcquire(time.Now(), model.EventStop)
	require.True(t, acquired)

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventStop}, nil)

	assert.Empty(t, mux.keys(), "busy guard must drop the event before any terminal interaction")
}

func TestHandleEvent_CooldownDropsEventExceptSessionStartPendingFollowUp(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "ready >"}
	m := newMachine(mux, &fakeProvider{response: `{"action":"wait","reason":"nothing to do"}`}, nil)
	agent := testAgent("pane-1")

	m.guard.RecordResponse(time.Now())

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventStop}, nil)
	assert.False(t, m.guard.Snapshot().IsProcessing)

	m.guard.SetPendingFollowUp(true)
	event := &model.HookEvent{
		EventType:        model.EventSessionStart,
		TypeSpecificData: &model.TypeSpecificData{Source: "startup"},
	}
	m.HandleEvent(context.Background(), agent, event, nil)
	assert.False(t, m.guard.Snapshot().PendingFollowUp, "bypass must clear pendingFollowUp")
}

func TestHandleEvent_NoConnectionEndsCycle(t *testing.T) {
	mux := &fakeMux{hasSession: true}
	m := newMachine(mux, &fakeProvider{}, nil)
	agent := &model.Agent{ID: "agent-1"}

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventStop}, nil)
	assert.Empty(t, mux.keys())
}

func TestHandleEvent_PaneGoneEndsCycle(t *testing.T) {
	mux := &fakeMux{hasSession: false}
	m := newMachine(mux, &fakeProvider{}, nil)
	agent := testAgent("pane-1")

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventStop}, nil)
	assert.Empty(t, mux.keys())
}

func TestHandleEvent_ProcessingEndsCycleWithoutOracleCall(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "Thinking...\n⠋ working"}
	provider := &fakeProvider{response: `{"action":"wait","reason":"n/a"}`}
	m := newMachine(mux, provider, nil)
	agent := testAgent("pane-1")

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventStop}, nil)
	assert.Empty(t, mux.keys())
}

func TestHandleEvent_PermissionPromptAlwaysApproves(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "Allow Bash to run `ls`? (y/n)"}
	m := newMachine(mux, &fakeProvider{}, nil)
	agent := testAgent("pane-1")

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventStop}, nil)
	assert.Equal(t, []string{"approve"}, mux.keys())
}

func TestHandleEvent_WaitingForInputConsultsOracleAndRespondsLiterally(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "some output\n> "}
	provider := &fakeProvider{response: `{"action":"respond","response":"go ahead","reason":"looks idle"}`}
	m := newMachine(mux, provider, nil)
	agent := testAgent("pane-1")

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventStop}, nil)

	require.Len(t, mux.sentLiterals, 1)
	assert.Equal(t, "go ahead", mux.sentLiterals[0])
	assert.Equal(t, []string{"enter"}, mux.keys())
	assert.False(t, m.guard.Snapshot().LastResponseTime.IsZero())
}

func TestHandleEvent_OracleFailureFallsBackToContinue(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "some output\n> "}
	provider := &fakeProvider{err: errors.New("boom")}
	m := newMachine(mux, provider, nil)
	agent := testAgent("pane-1")

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventStop}, nil)

	require.Len(t, mux.sentLiterals, 1)
	assert.Equal(t, "continue", mux.sentLiterals[0])
}

func TestHandleEvent_ContextLimitIssuesCompactByDefault(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "context limit reached, please compact soon"}
	m := newMachine(mux, &fakeProvider{}, nil)
	agent := testAgent("pane-1")

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventStop}, nil)

	assert.Equal(t, []string{"compact"}, mux.keys())
	assert.True(t, m.guard.Snapshot().PendingFollowUp)
}

func TestHandleEvent_ContextLimitIssuesClearAtZeroRemaining(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "context limit reached, 0% remaining"}
	m := newMachine(mux, &fakeProvider{}, nil)
	agent := testAgent("pane-1")

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventStop}, nil)

	assert.Equal(t, []string{"clear"}, mux.keys())
}

func TestHandleEvent_RequestHelpNotifiesWithTrailingLines(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "stuck output\n> "}
	provider := &fakeProvider{response: `{"action":"request_help","reason":"cannot proceed"}`}
	notifier := &fakeNotifier{}
	m := newMachine(mux, provider, notifier)
	agent := testAgent("pane-1")

	m.HandleEvent(context.Background(), agent, &model.HookEvent{EventType: model.EventStop}, nil)

	require.Equal(t, 1, notifier.count())
	assert.Contains(t, notifier.messages[0], "stuck output")
}

func TestHandleEvent_SessionRestartWaitsThenConsultsOracle(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "ready\n> "}
	provider := &fakeProvider{response: `{"action":"wait","reason":"nothing pending"}`}
	m := newMachine(mux, provider, nil)
	agent := testAgent("pane-1")

	event := &model.HookEvent{
		EventType:        model.EventSessionStart,
		TypeSpecificData: &model.TypeSpecificData{Source: "clear"},
	}
	m.HandleEvent(context.Background(), agent, event, nil)

	assert.Empty(t, mux.keys())
}

func TestRecordExternalAction_UpdatesLastResponseTime(t *testing.T) {
	m := newMachine(&fakeMux{}, &fakeProvider{}, nil)
	before := m.guard.Snapshot().LastResponseTime
	m.RecordExternalAction()
	assert.True(t, m.guard.Snapshot().LastResponseTime.After(before))
}

func TestHandleInstruction_SurfacesOracleFailure(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "> "}
	provider := &fakeProvider{err: errors.New("provider down")}
	m := newMachine(mux, provider, nil)
	agent := testAgent("pane-1")

	decision, err := m.HandleInstruction(context.Background(), agent, "do the thing", nil)
	require.Error(t, err)
	assert.Nil(t, decision)
}

func TestHandleInstruction_ExecutesDecisionOnSuccess(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "> "}
	provider := &fakeProvider{response: `{"action":"respond","response":"understood","reason":"instruction applied"}`}
	m := newMachine(mux, provider, nil)
	agent := testAgent("pane-1")

	decision, err := m.HandleInstruction(context.Background(), agent, "do the thing", nil)
	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.Equal(t, model.ActionRespond, decision.Action)
	assert.Equal(t, []string{"understood"}, mux.sentLiterals)
}

func TestHandleInstruction_TimesOutWhenGuardBusy(t *testing.T) {
	mux := &fakeMux{hasSession: true, captureText: "> "}
	m := newMachine(mux, &fakeProvider{}, nil)
	agent := testAgent("pane-1")

	acquired, _ := m.guard.TryAcquire(time.Now(), model.EventStop)
	require.True(t, acquired)

	start := time.Now()
	decision, err := m.HandleInstruction(context.Background(), agent, "do the thing", nil)
	require.Error(t, err)
	assert.Nil(t, decision)
	assert.GreaterOrEqual(t, time.Since(start), instructionAcquireTimeout)
}

func TestHandleInstruction_MissingConnectionErrors(t *testing.T) {
	m := newMachine(&fakeMux{}, &fakeProvider{}, nil)
	agent := &model.Agent{ID: "agent-1"}

	decision, err := m.HandleInstruction(context.Background(), agent, "do the thing", nil)
	require.Error(t, err)
	assert.Nil(t, decision)
}
