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
package bedrock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AppliesDefaults(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	client, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultModelID, client.Model())
	assert.Equal(t, int64(DefaultMaxTokens), client.maxTokens)
}

func TestNew_RespectsExplicitModelID(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	client, err := New(context.Background(), Config{ModelID: "us.anthropic.claude-haiku-4-20250101-v1:0"})
	require.NoError(t, err)
	assert.Equal(t, "us.anthropic.claude-haiku-4-20250101-v1:0", client.Model())
}
