package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/ghostconnect/internal/config"
	"github.com/danmuck/ghostconnect/internal/logging"
	"github.com/danmuck/ghostconnect/internal/observability"
	"github.com/danmuck/ghostconnect/internal/tunnel"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: ghostconnect [-config path] connect|stop|status\n")
	os.Exit(2)
}

func main() {
	configPath := flag.String("config", "", "path to ghostd config (toml)")
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
	}
	verb := flag.Arg(0)

	logging.ConfigureRuntime()
	logger := observability.InitLogger("ghostconnect")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ghostconnect: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// status asks the running daemon; a fresh in-process supervisor would
	// always report disconnected.
	if verb == "status" {
		state, err := fetchStatus("http://" + cfg.ListenAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ghostconnect: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(state)
		return
	}

	var activate bool
	switch verb {
	case "connect":
		activate = true
	case "stop":
		activate = false
	default:
		usage()
	}

	// Interrupt kills the agent child before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisor := tunnel.NewSupervisor(cfg.Runner(), cfg.Supervisor(), logger)
	state, err := supervisor.Toggle(ctx, activate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ghostconnect: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(state)
}

// fetchStatus reads the tunnel state from the daemon's admin surface.
func fetchStatus(baseURL string) (string, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/api/tunnel/status")
	if err != nil {
		return "", fmt.Errorf("ghostd unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("read status: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status query failed: %s", resp.Status)
	}

	var payload struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	if payload.State == "" {
		return "", fmt.Errorf("status response missing state")
	}
	return payload.State, nil
}
