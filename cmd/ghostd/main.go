package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/ghostconnect/internal/config"
	"github.com/danmuck/ghostconnect/internal/logging"
	"github.com/danmuck/ghostconnect/internal/observability"
	"github.com/danmuck/ghostconnect/internal/server"
	"github.com/danmuck/ghostconnect/internal/tunnel"
)

func main() {
	configPath := flag.String("config", "", "path to ghostd config (toml)")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := observability.InitLogger("ghostd")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ghostd: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	supervisor := tunnel.NewSupervisor(cfg.Runner(), cfg.Supervisor(), logger)
	srv := server.Appear("ghostd", supervisor, cfg.CorsOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", cfg.ListenAddr).Str("agent", cfg.AgentPath).Msg("ghostd listening")
	if err := srv.Serve(ctx, cfg.ListenAddr); err != nil {
		fmt.Fprintf(os.Stderr, "ghostd: %v\n", err)
		os.Exit(1)
	}
}
