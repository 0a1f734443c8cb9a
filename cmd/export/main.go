package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"weatherpipe/internal/config"
	"weatherpipe/internal/database"
	"weatherpipe/internal/export"
	"weatherpipe/internal/logging"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the YAML config file")
	out := flag.String("out", "data/processed/weather.parquet", "Parquet file to write")
	flag.Parse()

	if err := run(context.Background(), *configPath, *out); err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, out string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closer, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	db, err := database.Open(ctx, cfg.Storage.Driver, cfg.Storage.Destination)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := export.WriteParquet(ctx, db, out)
	if err != nil {
		return err
	}

	logger.Info("Export finished", "rows", n, "path", out)
	return nil
}
