package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"weatherpipe/internal/config"
	"weatherpipe/internal/inspect"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}

	report, err := inspect.Inspect(context.Background(), cfg.Storage.Driver, cfg.Storage.Destination)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}

	if err := report.Print(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}
