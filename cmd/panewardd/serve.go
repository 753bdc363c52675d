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
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	paneconfig "github.com/teradata-labs/paneward/internal/config"
	"github.com/teradata-labs/paneward/internal/daemon"
	panelog "github.com/teradata-labs/paneward/internal/log"
	"github.com/teradata-labs/paneward/internal/maintenance"
	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/internal/store"
	"github.com/teradata-labs/paneward/internal/store/sqlitemirror"
	"github.com/teradata-labs/paneward/internal/supervisor"
	"github.com/teradata-labs/paneward/pkg/hookingress"
	"github.com/teradata-labs/paneward/pkg/oracle"
	"github.com/teradata-labs/paneward/pkg/oracle/provider/anthropic"
	"github.com/teradata-labs/paneward/pkg/oracle/provider/bedrock"
	"github.com/teradata-labs/paneward/pkg/telegram"
	"github.com/teradata-labs/paneward/pkg/terminal"
	"github.com/teradata-labs/paneward/pkg/terminal/tmuxmux"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Supervisor's hook ingress server",
	Run:   runServe,
}

func runServe(_ *cobra.Command, _ []string) {
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration validation failed: %v", err)
	}

	logger := buildLogger(cfg.Logging.Level)
	defer func() { _ = logger.Sync() }()

	// Replace the default dev logger used during flag parsing and config
	// loading (internal/log) with the production-configured one, so any
	// remaining package-level log call reflects the resolved log level.
	panelog.SetLogger(logger)

	logger.Info("starting panewardd", zap.String("version", daemonVersion))

	provider, err := buildOracleProvider(cfg)
	if err != nil {
		logger.Fatal("failed to build oracle provider", zap.Error(err))
	}
	resilientProvider := oracle.NewRetryingProvider(
		provider,
		oracle.DefaultRetryConfig(),
		oracle.NewCircuitBreaker(oracle.DefaultCircuitBreakerConfig()),
		logger.With(zap.String("component", "oracle")),
	)
	orc := oracle.New(resilientProvider)

	term := terminal.NewAdapter(tmuxmux.New())

	var mirror store.Mirror
	if cfg.Store.SQLiteMirrorEnabled {
		m, err := sqlitemirror.Open(cfg.Store.SQLiteMirrorPath)
		if err != nil {
			logger.Warn("failed to open sqlite mirror, continuing without it", zap.Error(err))
		} else {
			mirror = m
			defer func() { _ = m.Close() }()
		}
	}

	agentStore, err := store.NewAgentStore(cfg.Store.Path, cfg.Server.Port, mirror)
	if err != nil {
		logger.Fatal("failed to open agent store", zap.Error(err))
	}

	var sup *supervisor.Supervisor
	sup = supervisor.New(agentStore, term, orc, telegramTransportFactory(logger, &sup), nil, logger)

	ingressAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	ingress := hookingress.New(ingressAddr, sup, logger)

	go func() {
		logger.Info("hook ingress listening", zap.String("addr", ingressAddr))
		if err := ingress.ListenAndServe(); err != nil {
			logger.Error("hook ingress server failed", zap.Error(err))
		}
	}()

	var sched *maintenance.Scheduler
	if cfg.Store.CompactionEnabled {
		sched, err = maintenance.New(agentStore, maintenance.DefaultCompactionSchedule, logger)
		if err != nil {
			logger.Fatal("failed to build maintenance scheduler", zap.Error(err))
		}
		sched.Start()
	}

	logger.Info("panewardd ready")

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	logger.Info("shutting down gracefully... (press Ctrl+C again to force)")

	go func() {
		<-sigch
		logger.Warn("force shutdown requested")
		os.Exit(1)
	}()

	if sched != nil {
		sched.Stop()
		logger.Info("maintenance scheduler stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ingress.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping hook ingress server", zap.Error(err))
	} else {
		logger.Info("hook ingress server stopped")
	}

	sup.StopAll()
	logger.Info("all daemons stopped")
}

func buildLogger(level string) *zap.Logger {
	zapConfig := zap.NewProductionConfig()

	logLevel := zap.InfoLevel
	if level != "" {
		if err := logLevel.UnmarshalText([]byte(level)); err != nil {
			fmt.Fprintf(os.Stderr, "invalid log level %q, using info: %v\n", level, err)
		}
	}
	zapConfig.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := zapConfig.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	return logger
}

func buildOracleProvider(c *paneconfig.Config) (oracle.Provider, error) {
	switch c.Oracle.Provider {
	case "bedrock":
		return bedrock.New(context.Background(), bedrock.Config{
			Region:  c.Oracle.BedrockRegion,
			Profile: c.Oracle.BedrockProfile,
			ModelID: c.Oracle.BedrockModelID,
		})
	default:
		return anthropic.New(anthropic.Config{
			APIKey: c.Oracle.AnthropicAPIKey,
			Model:  c.Oracle.AnthropicModel,
		})
	}
}

// telegramTransportFactory returns a supervisor.TransportFactory building
// a pkg/telegram.Client for agents that carry Telegram configuration, or
// a nil Transport for agents that don't. supRef is filled in by the
// caller right after supervisor.New returns; the factory only dereferences
// it once a daemon actually starts, by which point supervisor.New has
// already returned, so the indirection is safe despite the apparent
// construction cycle (the transport needs to route incoming operator
// messages back into the Supervisor that is still being built).
func telegramTransportFactory(logger *zap.Logger, supRef **supervisor.Supervisor) supervisor.TransportFactory {
	return func(agent *model.Agent) (daemon.Transport, error) {
		if agent.Telegram == nil || !agent.Telegram.Enabled {
			return nil, nil
		}
		agentID := agent.ID
		handler := func(ctx context.Context, text string) {
			if _, err := (*supRef).HandleInstruction(ctx, agentID, text); err != nil {
				logger.Warn("telegram instruction failed", zap.String("agentId", agentID), zap.Error(err))
			}
		}
		return telegram.New(telegram.Config{
			BotToken: agent.Telegram.BotToken,
			ChatID:   agent.Telegram.ChatID,
		}, handler, logger.With(zap.String("agentId", agentID)))
	}
}
