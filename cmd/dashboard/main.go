package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/boddenberg/orders-dashboard-go/internal/cli"
	"github.com/boddenberg/orders-dashboard-go/internal/config"
)

var version = "dev"

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.New(cfg, version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		stop()
		os.Exit(1)
	}
}
