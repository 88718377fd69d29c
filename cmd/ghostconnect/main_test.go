package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/danmuck/ghostconnect/internal/server"
	"github.com/danmuck/ghostconnect/internal/tunnel"
)

type stubRunner struct {
	stdout []byte
}

func (r stubRunner) Invoke(ctx context.Context, directive string) ([]byte, []byte, int32, error) {
	return r.stdout, nil, 0, nil
}

func TestFetchStatusTracksDaemonState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sup := tunnel.NewSupervisor(stubRunner{stdout: []byte(`{"success": true}`)}, tunnel.DefaultConfig(), zerolog.Nop())
	srv := httptest.NewServer(server.Appear("ghostd-test", sup, nil).HTTPRouter())
	defer srv.Close()

	state, err := fetchStatus(srv.URL)
	if err != nil {
		t.Fatalf("fetch status: %v", err)
	}
	if state != string(tunnel.StateDisconnected) {
		t.Fatalf("unexpected state: %q", state)
	}

	if _, err := sup.Toggle(context.Background(), true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	state, err = fetchStatus(srv.URL)
	if err != nil {
		t.Fatalf("fetch status: %v", err)
	}
	if state != string(tunnel.StateConnected) {
		t.Fatalf("unexpected state: %q", state)
	}
}

func TestFetchStatusDaemonUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := srv.URL
	srv.Close()

	if _, err := fetchStatus(addr); err == nil || !strings.Contains(err.Error(), "unreachable") {
		t.Fatalf("expected unreachable error, got %v", err)
	}
}
