package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"weatherpipe/internal/config"
	"weatherpipe/internal/database"
	"weatherpipe/internal/logging"
	"weatherpipe/internal/server"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closer, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, "")
	if err != nil {
		return err
	}
	defer closer.Close()

	// Initialize database
	db, err := database.NewDB(ctx, cfg.Storage.Driver, cfg.Storage.Destination)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	httpServer := server.NewServer(db, logger)
	return httpServer.Start(ctx, cfg.Server.Addr)
}
