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
package terminal

import (
	"regexp"
	"strings"

	"github.com/teradata-labs/paneward/internal/model"
)

// spinnerGlyphs are single-rune spinner frames commonly emitted by
// coding-assistant CLIs.
var spinnerGlyphs = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// progressWords are present-progressive status words the assistant
// prints at the start of a status line while it is busy.
var progressWords = []string{
	"Thinking", "Processing", "Reading", "Writing", "Searching", "Analyzing",
	"Running", "Editing", "Creating", "Installing", "Building", "Compiling",
	"Fetching", "Downloading", "Updating", "Compacting", "Resuming",
}

var heavyBarRun = regexp.MustCompile(`[█▓▒]{4,}`)

var promptGlyphs = []string{">", "❯"}

var idleIndicatorMarkers = []string{"Human:", "You:", "$"}

var permissionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)allow .* to `),
	regexp.MustCompile(`\(y/n\)`),
	regexp.MustCompile(`\[Y/n\]`),
	regexp.MustCompile(`\[y/N\]`),
	regexp.MustCompile(`(?i)press y to allow`),
	regexp.MustCompile(`(?i)allow .*\?`),
}

var contextLimitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)context limit reached`),
	regexp.MustCompile(`0% remaining`),
	regexp.MustCompile(`(?i)context\s+(limit|full|exhausted)`),
}

var errorPhrases = []string{
	"error:", "Error:", "fatal:", "panic:", "failed:", "Failed:",
}

func lastLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func splitNonEmptyTrailing(text string) []string {
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func classifyPermission(text string) model.PermissionType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "bash"):
		return model.PermissionBash
	case strings.Contains(lower, "edit"):
		return model.PermissionEdit
	case strings.Contains(lower, "write"):
		return model.PermissionWrite
	default:
		return model.PermissionOther
	}
}

// Parse derives a TerminalState from a captured snapshot per the tie-break
// rules: processing dominates waiting; waiting dominates permission only
// when the permission regex did not match.
func Parse(snapshot *model.TerminalSnapshot) *model.TerminalState {
	lines := splitNonEmptyTrailing(snapshot.Text)
	state := &model.TerminalState{}

	last10 := lastLines(lines, 10)
	last5 := lastLines(lines, 5)
	last8 := lastLines(lines, 8)
	last50 := lastLines(lines, 50)

	state.IsProcessing = isProcessing(last10, last5)

	permissionLine := ""
	hasPermission := false
	for _, line := range last50 {
		for _, p := range permissionPatterns {
			if p.MatchString(line) {
				hasPermission = true
				permissionLine = line
				break
			}
		}
		if hasPermission {
			break
		}
	}
	if !state.IsProcessing && hasPermission {
		state.HasPermissionPrompt = true
		state.PermissionType = classifyPermission(permissionLine)
	}

	if !state.IsProcessing {
		state.IsWaitingForInput = hasPromptGlyph(last8) || state.HasPermissionPrompt || hasIdleIndicator(last8)
	}

	state.HasContextLimit = hasContextLimit(snapshot.Text)
	state.LastError = extractLastError(last10)

	return state
}

func isProcessing(last10, last5 []string) bool {
	for _, line := range last10 {
		for _, g := range spinnerGlyphs {
			if strings.Contains(line, g) {
				return true
			}
		}
		if heavyBarRun.MatchString(line) {
			return true
		}
	}
	for _, line := range last5 {
		trimmed := strings.TrimSpace(line)
		for _, w := range progressWords {
			if strings.HasPrefix(trimmed, w) {
				return true
			}
		}
	}
	return false
}

func hasPromptGlyph(lines []string) bool {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, g := range promptGlyphs {
			if strings.HasPrefix(trimmed, g) {
				return true
			}
		}
	}
	return false
}

func hasIdleIndicator(lines []string) bool {
	for _, line := range lines {
		for _, m := range idleIndicatorMarkers {
			if strings.Contains(line, m) {
				return true
			}
		}
	}
	return false
}

func hasContextLimit(text string) bool {
	for _, p := range contextLimitPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func extractLastError(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		for _, phrase := range errorPhrases {
			if strings.Contains(lines[i], phrase) {
				return strings.TrimSpace(lines[i])
			}
		}
	}
	return ""
}

// IndicatesClearOverCompact reports whether the captured text shows the
// assistant has exhausted its context window entirely (0% remaining) or
// a compaction attempt already failed, in which case handle_context_limit
// should issue /clear instead of /compact.
func IndicatesClearOverCompact(text string) bool {
	if strings.Contains(text, "0% remaining") {
		return true
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, "compaction failed") || strings.Contains(lower, "compact failed")
}
