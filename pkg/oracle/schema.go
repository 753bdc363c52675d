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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/teradata-labs/paneward/internal/model"
)

// decisionSchema is the closed JSON schema a raw model response must
// satisfy before it is accepted as a Decision.
const decisionSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["action", "reason"],
  "properties": {
    "action": {
      "type": "string",
      "enum": ["respond", "wait", "approve", "reject", "compact", "clear", "escape", "request_help"]
    },
    "response": {"type": "string"},
    "reason": {"type": "string"},
    "notification": {
      "type": "object",
      "additionalProperties": false,
      "required": ["message", "level"],
      "properties": {
        "message": {"type": "string"},
        "level": {"type": "string", "enum": ["info", "warn", "error"]}
      }
    }
  }
}`

var decisionSchemaLoader = gojsonschema.NewStringLoader(decisionSchema)

// parseDecision extracts the first JSON object in raw, validates it
// against decisionSchema, and unmarshals it into a model.Decision.
func parseDecision(raw string) (*model.Decision, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in oracle response")
	}
	jsonStr := raw[start : end+1]

	documentLoader := gojsonschema.NewStringLoader(jsonStr)
	result, err := gojsonschema.Validate(decisionSchemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var details []string
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return nil, fmt.Errorf("response failed schema validation: %s", strings.Join(details, "; "))
	}

	var decision model.Decision
	if err := json.Unmarshal([]byte(jsonStr), &decision); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decision: %w", err)
	}

	if !decision.Validate() {
		return nil, fmt.Errorf("decision failed invariant check: action=%q response-present=%t", decision.Action, decision.Response != "")
	}

	return &decision, nil
}
