package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartrules/internal/config"
	"cartrules/internal/engine"
	"cartrules/internal/reconciler"
	"cartrules/internal/server"
)

func TestAgentURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8787", agentURL(config.ServerConfig{Host: "0.0.0.0", Port: 8787}))
	assert.Equal(t, "http://127.0.0.1:9000", agentURL(config.ServerConfig{Host: "127.0.0.1", Port: 9000}))
	assert.Equal(t, "http://[::1]:9000", agentURL(config.ServerConfig{Host: "::1", Port: 9000}))
}

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(server.StatusResponse{
			Shop:      "demo.myshopify.com",
			RuleCount: 3,
			Scheduler: reconciler.StateDebouncing,
			Engine:    engine.Status{SessionID: "session-1"},
		})
	}))
	defer srv.Close()

	status, err := fetchStatus(context.Background(), srv.URL+"/", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", status.Shop)
	assert.Equal(t, 3, status.RuleCount)
	assert.Equal(t, reconciler.StateDebouncing, status.Scheduler)
	assert.Equal(t, "session-1", status.Engine.SessionID)
}

func TestFetchStatus_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := fetchStatus(context.Background(), srv.URL, time.Second)
	assert.ErrorContains(t, err, "503")

	_, err = fetchStatus(context.Background(), "http://127.0.0.1:1", 200*time.Millisecond)
	assert.ErrorContains(t, err, "agent not reachable")
}
