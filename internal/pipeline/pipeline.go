// Package pipeline wires ingestion, validation and storage into one run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"weatherpipe/internal/database"
	"weatherpipe/internal/metrics"
	"weatherpipe/internal/models"
	"weatherpipe/internal/validation"
)

// Source produces the raw frame for one run.
type Source interface {
	Fetch(ctx context.Context) (*models.Frame, error)
}

// Publisher receives the summary of every successful run.
type Publisher interface {
	Publish(ctx context.Context, summary models.RunSummary)
}

// Settings describe what a run fetches and where it stores the result.
type Settings struct {
	Location    string
	StartDate   string
	EndDate     string
	Destination string
}

type Pipeline struct {
	source    Source
	validator *validation.Validator
	store     *database.Store
	publisher Publisher
	settings  Settings
	logger    *slog.Logger
}

// New creates a pipeline. publisher may be nil.
func New(source Source, validator *validation.Validator, store *database.Store, publisher Publisher, settings Settings, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:    source,
		validator: validator,
		store:     store,
		publisher: publisher,
		settings:  settings,
		logger:    logger,
	}
}

// Run executes fetch, validate and store once. Each stage runs only if the
// previous one succeeded, so a schema error leaves the store untouched.
func (p *Pipeline) Run(ctx context.Context) (summary models.RunSummary, err error) {
	summary = models.RunSummary{
		RunID:     uuid.NewString(),
		Location:  p.settings.Location,
		StartDate: p.settings.StartDate,
		EndDate:   p.settings.EndDate,
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With("run_id", summary.RunID)
	logger.Info("Pipeline started", "location", summary.Location,
		"start_date", summary.StartDate, "end_date", summary.EndDate)

	defer func() {
		metrics.RecordRun(time.Since(summary.StartedAt), err)
		if err != nil {
			logger.Error("Pipeline failed", "error", err)
		}
	}()

	frame, err := p.source.Fetch(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch: %w", err)
	}
	summary.RowsFetched = frame.Len()
	metrics.RowsTotal.WithLabelValues("fetched").Add(float64(summary.RowsFetched))

	result, err := p.validator.Check(frame)
	if err != nil {
		return summary, fmt.Errorf("validate: %w", err)
	}
	summary.RowsValid = result.Table.Len()
	summary.RowsDropped = result.Dropped
	summary.IrregularIntervals = result.IrregularIntervals
	metrics.RowsTotal.WithLabelValues("dropped").Add(float64(result.Dropped))
	metrics.RowsTotal.WithLabelValues("valid").Add(float64(summary.RowsValid))
	metrics.IrregularIntervals.Set(float64(result.IrregularIntervals))

	inserted, err := p.store.Persist(ctx, result.Table, p.settings.Destination)
	if err != nil {
		return summary, fmt.Errorf("store: %w", err)
	}
	summary.RowsInserted = inserted
	metrics.RowsTotal.WithLabelValues("inserted").Add(float64(inserted))

	summary.FinishedAt = time.Now().UTC()
	logger.Info("Pipeline finished",
		"rows_fetched", summary.RowsFetched,
		"rows_valid", summary.RowsValid,
		"rows_dropped", summary.RowsDropped,
		"rows_inserted", summary.RowsInserted,
		"duration", summary.FinishedAt.Sub(summary.StartedAt))

	if p.publisher != nil {
		p.publisher.Publish(ctx, summary)
	}
	return summary, nil
}
