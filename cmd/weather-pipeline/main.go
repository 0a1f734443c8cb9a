package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"

	"weatherpipe/internal/api"
	"weatherpipe/internal/config"
	"weatherpipe/internal/database"
	"weatherpipe/internal/ingest"
	"weatherpipe/internal/logging"
	"weatherpipe/internal/metrics"
	"weatherpipe/internal/notify"
	"weatherpipe/internal/pipeline"
	"weatherpipe/internal/scheduler"
	"weatherpipe/internal/validation"
)

const pushJob = "weather_pipeline"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "weather-pipeline: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("weather-pipeline", flag.ContinueOnError)
	configPath := fs.String("config", "./config.yaml", "path to the YAML config file")
	every := fs.Duration("every", -1, "run repeatedly at this interval, 0 runs once (overrides schedule.every)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *every >= 0 {
		cfg.Schedule.Every = *every
	}

	logger, closer, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	p, cleanup := buildPipeline(cfg, logger)
	defer cleanup()

	runOnce := func(ctx context.Context) error {
		_, err := p.Run(ctx)
		pushMetrics(ctx, cfg, logger)
		return err
	}

	if cfg.Schedule.Every == 0 {
		return runOnce(ctx)
	}

	s := scheduler.New(cfg.Schedule.Every, runOnce, logger)
	if err := s.Start(); err != nil {
		return err
	}
	logger.Info("Scheduler started, waiting for signal", "every", cfg.Schedule.Every)

	<-ctx.Done()
	logger.Info("Shutting down scheduler")
	s.Stop()
	return nil
}

// buildPipeline assembles the pipeline from configuration. The returned
// cleanup releases the Redis client, if one was created.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, func()) {
	client := api.NewOpenMeteoClient(api.ClientConfig{
		BaseURL:    cfg.API.BaseURL,
		CacheDir:   cfg.API.CacheDir,
		Timeout:    cfg.API.Timeout,
		MaxRetries: cfg.API.MaxRetries,
		Backoff:    cfg.API.Backoff,
	}, logger)
	source := ingest.NewSource(client, archiveParams(cfg), logger)

	cleanup := func() {}
	var publisher pipeline.Publisher
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		publisher = notify.NewPublisher(redisClient, cfg.Redis.Stream, logger)
		cleanup = func() { redisClient.Close() }
	}

	p := pipeline.New(source,
		validation.NewValidator(logger),
		database.NewStore(cfg.Storage.Driver, logger),
		publisher,
		pipeline.Settings{
			Location:    cfg.Location.Name,
			StartDate:   cfg.Window.StartDate,
			EndDate:     cfg.Window.EndDate,
			Destination: cfg.Storage.Destination,
		},
		logger)
	return p, cleanup
}

func archiveParams(cfg *config.Config) api.ArchiveParams {
	return api.ArchiveParams{
		Latitude:     cfg.Location.Latitude,
		Longitude:    cfg.Location.Longitude,
		StartDate:    cfg.Window.StartDate,
		EndDate:      cfg.Window.EndDate,
		HourlyFields: cfg.Weather.HourlyFields,
	}
}

func pushMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, pushJob); err != nil {
		logger.Warn("Failed to push metrics", "url", cfg.Metrics.PushgatewayURL, "error", err)
	}
}
