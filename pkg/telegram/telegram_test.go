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
package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/paneward/internal/model"
)

func TestNew_RequiresChatID(t *testing.T) {
	_, err := New(Config{BotToken: "tok"}, nil, nil)
	assert.Error(t, err)
}

func TestNew_RequiresBotToken(t *testing.T) {
	_, err := New(Config{ChatID: "123"}, nil, nil)
	assert.Error(t, err)
}

func TestNew_FallsBackToPlaintextTokenWhenNoKeyring(t *testing.T) {
	c, err := New(Config{BotToken: "tok", ChatID: "123"}, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, c.baseURL, "tok")
}

// testServer fakes the subset of the Telegram Bot API this package
// depends on: GET .../getUpdates and POST .../sendMessage.
type testServer struct {
	mu       sync.Mutex
	updates  []update
	sent     []sendMessageRequest
	served   int
}

func newTestServer(t *testing.T) (*httptest.Server, *testServer) {
	t.Helper()
	ts := &testServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && containsSuffix(r.URL.Path, "/getUpdates"):
			ts.mu.Lock()
			ts.served++
			var result []update
			if ts.served == 1 {
				result = ts.updates
			}
			ts.mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(getUpdatesResponse{OK: true, Result: result})
		case r.Method == http.MethodPost && containsSuffix(r.URL.Path, "/sendMessage"):
			var req sendMessageRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			ts.mu.Lock()
			ts.sent = append(ts.sent, req)
			ts.mu.Unlock()
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return srv, ts
}

func containsSuffix(path, suffix string) bool {
	if len(path) < len(suffix) {
		return false
	}
	return path[len(path)-len(suffix):] == suffix
}

func TestNotify_SendsFormattedMessageToConfiguredChat(t *testing.T) {
	srv, ts := newTestServer(t)
	defer srv.Close()

	c, err := New(Config{BotToken: "tok", ChatID: "555", APIBase: srv.URL}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, c.Notify(context.Background(), model.LevelWarn, "stalled"))

	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.Len(t, ts.sent, 1)
	assert.Equal(t, "555", ts.sent[0].ChatID)
	assert.Equal(t, "[WARN] stalled", ts.sent[0].Text)
}

func TestStartStop_DispatchesInstructionsFromConfiguredChatOnly(t *testing.T) {
	srv, ts := newTestServer(t)
	defer srv.Close()

	ts.updates = []update{
		{UpdateID: 1, Message: &message{Chat: chat{ID: 555}, Text: "do the thing"}},
		{UpdateID: 2, Message: &message{Chat: chat{ID: 999}, Text: "ignore me"}},
	}

	var mu sync.Mutex
	var received []string
	handler := func(_ context.Context, text string) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, text)
	}

	c, err := New(Config{BotToken: "tok", ChatID: "555", APIBase: srv.URL}, handler, nil)
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.IsRunning())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Stop())
	assert.False(t, c.IsRunning())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"do the thing"}, received)
}

func TestStart_IsIdempotent(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	c, err := New(Config{BotToken: "tok", ChatID: "555", APIBase: srv.URL}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Stop())
}
