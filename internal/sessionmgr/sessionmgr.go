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

// Package sessionmgr defines the contract the Supervisor uses to talk to
// the external session manager that owns the supervised assistant
// sessions and their forks (spec §6.4). The core never implements this
// collaborator itself; it only consumes it through Manager.
package sessionmgr

import "errors"

// ErrSessionNotFound is returned by Manager implementations when the
// requested orkaSessionId has no known session.
var ErrSessionNotFound = errors.New("session not found")

// Branch is one addressable terminal within a session: either the main
// session or one of its forks. Both expose the same pane/assistant
// binding the Supervisor needs to resolve an agent's connection.
type Branch struct {
	BranchID           string
	AssistantSessionID string
	PaneID             string
}

// Session is the external session manager's view of one supervised
// session: a main branch plus zero or more forks.
type Session struct {
	ID    string
	Main  Branch
	Forks []Branch
}

// Branch returns the Main branch, or the fork whose BranchID matches
// branchID, plus whether it was found. An empty branchID always
// resolves to Main.
func (s *Session) Branch(branchID string) (Branch, bool) {
	if branchID == "" || branchID == s.Main.BranchID {
		return s.Main, true
	}
	for _, f := range s.Forks {
		if f.BranchID == branchID {
			return f, true
		}
	}
	return Branch{}, false
}

// WithAssistantSessionID returns a copy of s with the branch identified
// by branchID updated to carry the new assistant session id. It reports
// false if no branch matched.
func (s *Session) WithAssistantSessionID(branchID, assistantSessionID string) (Session, bool) {
	out := *s
	out.Forks = append([]Branch{}, s.Forks...)

	if branchID == "" || branchID == s.Main.BranchID {
		out.Main.AssistantSessionID = assistantSessionID
		return out, true
	}
	for i := range out.Forks {
		if out.Forks[i].BranchID == branchID {
			out.Forks[i].AssistantSessionID = assistantSessionID
			return out, true
		}
	}
	return out, false
}

// Manager is the external session manager's contract, consumed by the
// Supervisor to resolve a connecting agent's assistantSessionId and to
// keep it current across /clear and /compact.
type Manager interface {
	// GetSession returns the session with the given orkaSessionId.
	GetSession(orkaSessionID string) (*Session, error)
	// CloseSession tears down a session.
	CloseSession(orkaSessionID string) error
	// ResumeSession resumes a previously closed session, optionally
	// opening a terminal for it.
	ResumeSession(orkaSessionID string, openTerminal bool) error
	// ReplaceSession persists an updated view of session (e.g. after a
	// branch's assistantSessionId changed).
	ReplaceSession(session *Session) error
}
