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

// Package hookingress is the loopback HTTP server that receives the
// supervised assistant sessions' hook notifications and hands them to the
// Supervisor.
package hookingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/paneward/internal/model"
	"github.com/teradata-labs/paneward/internal/perrors"
)

// Dispatcher is the Supervisor-side callback the ingress hands normalized
// events to. It must return perrors.ErrAgentNotFound for an unknown
// agent id; any other error is treated as an unrecoverable local failure.
type Dispatcher interface {
	HandleHookEvent(ctx context.Context, event *model.HookEvent) error
}

// Server is the HookIngress (C3): a loopback HTTP server normalizing and
// forwarding hook payloads.
type Server struct {
	addr       string
	dispatcher Dispatcher
	logger     *zap.Logger
	httpServer *http.Server
}

// New builds a Server bound to addr (e.g. "127.0.0.1:47621").
func New(addr string, dispatcher Dispatcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{addr: addr, dispatcher: dispatcher, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/hooks/", s.handleScopedHook)
	mux.HandleFunc("/api/hooks", s.handleUnscopedHook)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving until the server is shut down. It returns
// nil on a clean Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting hook ingress", zap.String("addr", s.addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("hook ingress: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight handlers
// (which are synchronous w.r.t. dispatch) to complete or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping hook ingress")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// hookReceipt is the response body for a successful scoped hook POST.
type hookReceipt struct {
	Status     string    `json:"status"`
	AgentID    string    `json:"agentId"`
	EventType  string    `json:"eventType"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (s *Server) handleScopedHook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	agentID := strings.TrimPrefix(r.URL.Path, "/api/hooks/")
	if agentID == "" {
		http.NotFound(w, r)
		return
	}

	event, err := normalizeEvent(r.Body, agentID)
	if err != nil {
		s.logger.Warn("failed to normalize hook payload", zap.String("agentId", agentID), zap.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := s.dispatcher.HandleHookEvent(r.Context(), event); err != nil {
		if errors.Is(err, perrors.ErrAgentNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("hook dispatch failed", zap.String("agentId", agentID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, hookReceipt{
		Status:     "accepted",
		AgentID:    agentID,
		EventType:  string(event.EventType),
		ReceivedAt: event.ReceivedAt,
	})
}

// handleUnscopedHook is a diagnostic echo; it never dispatches.
func (s *Server) handleUnscopedHook(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "echo",
		"body":   string(body),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
