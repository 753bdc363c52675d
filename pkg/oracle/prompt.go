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
package oracle

import (
	"fmt"
	"strings"

	"github.com/teradata-labs/paneward/internal/model"
)

const actionMenu = `## AVAILABLE ACTIONS

You must choose exactly one action:
- "respond": type a reply into the session; requires "response" text.
- "wait": take no action this cycle.
- "approve": approve the pending permission prompt.
- "reject": reject the pending permission prompt.
- "compact": issue the session's context-compaction command.
- "clear": issue the session's context-clear command.
- "escape": interrupt whatever the session is currently doing.
- "request_help": the session needs a human operator; attach a notification.

Return ONLY a JSON object with this structure:
{
  "action": "respond|wait|approve|reject|compact|clear|escape|request_help",
  "response": "<required iff action is respond>",
  "reason": "<one sentence explaining the choice>",
  "notification": {"message": "<optional operator message>", "level": "info|warn|error"}
}`

func buildSystemInstruction(masterPrompt string) string {
	var sb strings.Builder
	sb.WriteString("You are supervising an autonomous coding-assistant session on behalf of an operator.\n\n")
	sb.WriteString("## OPERATOR OBJECTIVE\n")
	sb.WriteString(masterPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(actionMenu)
	return sb.String()
}

func buildUserMessage(input Input) string {
	var sb strings.Builder

	sb.WriteString("## TRIGGER\n")
	sb.WriteString(input.TriggerLabel)
	sb.WriteString("\n\n")

	if input.HumanInstruction != "" {
		sb.WriteString("## HUMAN INSTRUCTION\n")
		sb.WriteString(input.HumanInstruction)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## TERMINAL STATE FLAGS\n")
	sb.WriteString(flagsBlock(input.TerminalState))
	sb.WriteString("\n\n")

	sb.WriteString("## TERMINAL OUTPUT (last ")
	sb.WriteString(fmt.Sprintf("%d", maxTerminalLines))
	sb.WriteString(" lines)\n")
	sb.WriteString(lastNLines(input.TerminalText, maxTerminalLines))

	return sb.String()
}

func flagsBlock(state *model.TerminalState) string {
	if state == nil {
		return "(no terminal state available)"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("isProcessing=%t\n", state.IsProcessing))
	sb.WriteString(fmt.Sprintf("isWaitingForInput=%t\n", state.IsWaitingForInput))
	sb.WriteString(fmt.Sprintf("hasPermissionPrompt=%t", state.HasPermissionPrompt))
	if state.HasPermissionPrompt {
		sb.WriteString(fmt.Sprintf(" (type=%s)", state.PermissionType))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("hasContextLimit=%t\n", state.HasContextLimit))
	if state.LastError != "" {
		sb.WriteString(fmt.Sprintf("lastError=%q\n", state.LastError))
	}
	return sb.String()
}

func lastNLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
