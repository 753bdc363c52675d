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
package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	paneconfig "github.com/teradata-labs/paneward/internal/config"
	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/internal/supervisor"
)

func TestBuildOracleProvider_AnthropicRequiresAPIKey(t *testing.T) {
	c := &paneconfig.Config{}
	c.Oracle.Provider = "anthropic"

	_, err := buildOracleProvider(c)
	assert.Error(t, err)
}

func TestBuildOracleProvider_AnthropicBuildsWithAPIKey(t *testing.T) {
	c := &paneconfig.Config{}
	c.Oracle.Provider = "anthropic"
	c.Oracle.AnthropicAPIKey = "test-key"

	provider, err := buildOracleProvider(c)
	require.NoError(t, err)
	assert.NotEmpty(t, provider.Model())
}

func TestBuildLogger_DefaultsToInfoOnInvalidLevel(t *testing.T) {
	logger := buildLogger("not-a-level")
	assert.NotNil(t, logger)
}

func TestTelegramTransportFactory_NilWhenAgentHasNoTelegramConfig(t *testing.T) {
	var sup *supervisor.Supervisor
	factory := telegramTransportFactory(zap.NewNop(), &sup)

	transport, err := factory(&model.Agent{ID: "a1"})
	require.NoError(t, err)
	assert.Nil(t, transport)
}

func TestTelegramTransportFactory_BuildsClientWhenEnabled(t *testing.T) {
	var sup *supervisor.Supervisor
	factory := telegramTransportFactory(zap.NewNop(), &sup)

	agent := &model.Agent{
		ID: "a1",
		Telegram: &model.TelegramConfig{
			Enabled:  true,
			BotToken: "tok",
			ChatID:   "123",
		},
	}

	transport, err := factory(agent)
	require.NoError(t, err)
	require.NotNil(t, transport)
	assert.NoError(t, transport.Stop())
}

func TestTelegramTransportFactory_PropagatesConfigError(t *testing.T) {
	var sup *supervisor.Supervisor
	factory := telegramTransportFactory(zap.NewNop(), &sup)

	agent := &model.Agent{
		ID: "a1",
		Telegram: &model.TelegramConfig{
			Enabled: true,
			ChatID:  "",
		},
	}

	_, err := factory(agent)
	assert.Error(t, err)
}
