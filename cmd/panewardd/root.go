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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	paneconfig "github.com/teradata-labs/paneward/internal/config"
	panelog "github.com/teradata-labs/paneward/internal/log"
)

const daemonVersion = "0.1.0"

var (
	cfgFile string
	cfg     *paneconfig.Config
)

var rootCmd = &cobra.Command{
	Use:     "panewardd",
	Short:   "Paneward Supervisor - watches and drives Master Agent terminal sessions",
	Long:    `panewardd runs the Supervisor: it ingests Claude Code hook events, reads the supervised terminal pane, consults an LLM oracle, and injects keystrokes on the agent owner's behalf.`,
	Version: daemonVersion,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $PANEWARD_DATA_DIR/paneward.yaml)")

	rootCmd.PersistentFlags().String("host", "127.0.0.1", "hook ingress listen host")
	rootCmd.PersistentFlags().Int("port", 47621, "hook ingress listen port")

	rootCmd.PersistentFlags().String("oracle-provider", "anthropic", "decision oracle provider (anthropic, bedrock)")
	rootCmd.PersistentFlags().String("anthropic-key", "", "Anthropic API key (or use keyring/env)")
	rootCmd.PersistentFlags().String("anthropic-model", "", "Anthropic model override")
	rootCmd.PersistentFlags().String("bedrock-region", "", "AWS region for Bedrock")
	rootCmd.PersistentFlags().String("bedrock-profile", "", "AWS profile for Bedrock")
	rootCmd.PersistentFlags().String("bedrock-model-id", "", "Bedrock model id override")

	rootCmd.PersistentFlags().String("store-path", "", "agent roster JSON path (default: $PANEWARD_DATA_DIR/agents.json)")
	rootCmd.PersistentFlags().Bool("sqlite-mirror", false, "enable best-effort SQLite audit mirror")
	rootCmd.PersistentFlags().Bool("compaction", true, "enable the daily agent store compaction job")

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json); serve does not apply it and always logs JSON")

	_ = viper.BindPFlag("server.host", rootCmd.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("server.port", rootCmd.PersistentFlags().Lookup("port"))

	_ = viper.BindPFlag("oracle.provider", rootCmd.PersistentFlags().Lookup("oracle-provider"))
	_ = viper.BindPFlag("oracle.anthropic_api_key", rootCmd.PersistentFlags().Lookup("anthropic-key"))
	_ = viper.BindPFlag("oracle.anthropic_model", rootCmd.PersistentFlags().Lookup("anthropic-model"))
	_ = viper.BindPFlag("oracle.bedrock_region", rootCmd.PersistentFlags().Lookup("bedrock-region"))
	_ = viper.BindPFlag("oracle.bedrock_profile", rootCmd.PersistentFlags().Lookup("bedrock-profile"))
	_ = viper.BindPFlag("oracle.bedrock_model_id", rootCmd.PersistentFlags().Lookup("bedrock-model-id"))

	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store-path"))
	_ = viper.BindPFlag("store.sqlite_mirror_enabled", rootCmd.PersistentFlags().Lookup("sqlite-mirror"))
	_ = viper.BindPFlag("store.compaction_enabled", rootCmd.PersistentFlags().Lookup("compaction"))

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	var err error
	cfg, err = paneconfig.Load(cfgFile)
	if err != nil {
		panelog.Fatal("error loading config", zap.Error(err))
	}
}
