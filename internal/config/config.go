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
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	// ServiceName is the keyring service namespace for paneward secrets.
	ServiceName = "paneward"
	// DefaultConfigFileName is the config file base name (without extension).
	DefaultConfigFileName = "paneward"
)

// Config holds all runtime configuration for panewardd.
//
// Priority (highest wins): CLI flags > environment variables > config
// file > defaults.
type Config struct {
	// DataDir is computed from PANEWARD_DATA_DIR (or ~/.paneward) and is
	// not itself loaded from the config file.
	DataDir string `mapstructure:"-"`

	Server  ServerConfig  `mapstructure:"server"`
	Oracle  OracleConfig  `mapstructure:"oracle"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the hook ingress HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// OracleConfig holds DecisionOracle provider configuration.
type OracleConfig struct {
	Provider string `mapstructure:"provider"` // anthropic, bedrock

	AnthropicAPIKey string `mapstructure:"anthropic_api_key"` // CLI/env/keyring only
	AnthropicModel  string `mapstructure:"anthropic_model"`

	BedrockRegion  string `mapstructure:"bedrock_region"`
	BedrockProfile string `mapstructure:"bedrock_profile"`
	BedrockModelID string `mapstructure:"bedrock_model_id"`

	MaxTokens      int `mapstructure:"max_tokens"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	CircuitBreakerThreshold int `mapstructure:"circuit_breaker_threshold"`
	RetryMaxAttempts        int `mapstructure:"retry_max_attempts"`
}

// StoreConfig holds AgentStore persistence configuration.
type StoreConfig struct {
	// Path is the agents.json path (default: $dataDir/agents.json).
	Path string `mapstructure:"path"`

	// SQLiteMirrorEnabled turns on the best-effort SQLite audit mirror.
	SQLiteMirrorEnabled bool `mapstructure:"sqlite_mirror_enabled"`
	// SQLiteMirrorPath is the mirror database path (default: $dataDir/mirror.db).
	SQLiteMirrorPath string `mapstructure:"sqlite_mirror_path"`

	// CompactionEnabled turns on the daily maintenance compaction job.
	CompactionEnabled bool `mapstructure:"compaction_enabled"`
}

// LoggingConfig holds structured logger configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// Load reads configuration from flags (already bound to viper by the
// caller), environment variables, a config file, and defaults, in that
// priority order.
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(GetDataDir())
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/paneward/")
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.SetEnvPrefix("PANEWARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.DataDir = GetDataDir()
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(cfg.DataDir, "agents.json")
	}
	if cfg.Store.SQLiteMirrorPath == "" {
		cfg.Store.SQLiteMirrorPath = filepath.Join(cfg.DataDir, "mirror.db")
	}

	_ = loadSecretsFromKeyring(&cfg)

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 47621)

	viper.SetDefault("oracle.provider", "anthropic")
	viper.SetDefault("oracle.anthropic_model", "claude-sonnet-4-5-20250929")
	viper.SetDefault("oracle.bedrock_region", "us-west-2")
	viper.SetDefault("oracle.bedrock_model_id", "us.anthropic.claude-sonnet-4-5-20250929-v1:0")
	viper.SetDefault("oracle.max_tokens", 1024)
	viper.SetDefault("oracle.timeout_seconds", 60)
	viper.SetDefault("oracle.circuit_breaker_threshold", 5)
	viper.SetDefault("oracle.retry_max_attempts", 3)

	viper.SetDefault("store.sqlite_mirror_enabled", false)
	viper.SetDefault("store.compaction_enabled", true)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// secretMapping describes how to fill a config field from the keyring
// when it was not already supplied via flag, env, or config file.
type secretMapping struct {
	key    string
	setter func(*Config, string)
	isSet  func(*Config) bool
}

func secretMappings() []secretMapping {
	return []secretMapping{
		{
			key:    "anthropic_api_key",
			setter: func(c *Config, v string) { c.Oracle.AnthropicAPIKey = v },
			isSet:  func(c *Config) bool { return c.Oracle.AnthropicAPIKey != "" },
		},
	}
}

func loadSecretsFromKeyring(cfg *Config) error {
	for _, m := range secretMappings() {
		if m.isSet(cfg) {
			continue
		}
		value, err := GetSecret(m.key)
		if err == nil && value != "" {
			m.setter(cfg, value)
		}
	}
	return nil
}

// GetSecret retrieves a secret from the system keyring.
func GetSecret(key string) (string, error) {
	return keyring.Get(ServiceName, key)
}

// SetSecret saves a secret to the system keyring.
func SetSecret(key, value string) error {
	return keyring.Set(ServiceName, key, value)
}

// DeleteSecret removes a secret from the system keyring.
func DeleteSecret(key string) error {
	return keyring.Delete(ServiceName, key)
}

// Validate checks required fields given the selected oracle provider.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}

	switch c.Oracle.Provider {
	case "anthropic":
		if c.Oracle.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic API key required (set --anthropic-key, PANEWARD_ORACLE_ANTHROPIC_API_KEY, or keyring key anthropic_api_key)")
		}
	case "bedrock":
		if c.Oracle.BedrockRegion == "" {
			return fmt.Errorf("bedrock region required (set oracle.bedrock_region or PANEWARD_ORACLE_BEDROCK_REGION)")
		}
	default:
		return fmt.Errorf("unsupported oracle provider: %s (must be anthropic or bedrock)", c.Oracle.Provider)
	}

	return nil
}
