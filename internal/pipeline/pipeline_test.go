package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherpipe/internal/database"
	"weatherpipe/internal/metrics"
	"weatherpipe/internal/models"
	"weatherpipe/internal/validation"
)

type fakeSource struct {
	frame *models.Frame
	err   error
}

func (f fakeSource) Fetch(ctx context.Context) (*models.Frame, error) {
	return f.frame, f.err
}

type recordingPublisher struct {
	summaries []models.RunSummary
}

func (r *recordingPublisher) Publish(ctx context.Context, summary models.RunSummary) {
	r.summaries = append(r.summaries, summary)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// dayFrame builds 24 hourly rows for 2025-01-01. Rows listed in implausible
// get a temperature of 99.
func dayFrame(implausible ...int) *models.Frame {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make(models.TimeSeries, 24)
	temp := make(models.FloatSeries, 24)
	precip := make(models.FloatSeries, 24)
	code := make(models.FloatSeries, 24)
	wind := make(models.FloatSeries, 24)
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * time.Hour)
		temp[i] = 2 + float64(i)/10
		precip[i] = 0.1
		code[i] = 3
		wind[i] = 10
	}
	code[5] = math.NaN()
	for _, i := range implausible {
		temp[i] = 99
	}
	return models.NewFrame().
		Set(models.ColTimestamp, ts).
		Set(models.ColTemperature2m, temp).
		Set(models.ColPrecipitation, precip).
		Set(models.ColWeatherCode, code).
		Set(models.ColWindSpeed10m, wind)
}

func newPipeline(t *testing.T, source Source, publisher Publisher, dest string) *Pipeline {
	t.Helper()
	logger := discardLogger()
	return New(source,
		validation.NewValidator(logger),
		database.NewStore(database.DriverSQLite, logger),
		publisher,
		Settings{Location: "Dortmund", StartDate: "2025-01-01", EndDate: "2025-01-01", Destination: dest},
		logger)
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "data", "processed", "weather.db")
	pub := &recordingPublisher{}
	p := newPipeline(t, fakeSource{frame: dayFrame()}, pub, dest)

	summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 24, summary.RowsFetched)
	assert.Equal(t, 24, summary.RowsValid)
	assert.Equal(t, 24, summary.RowsInserted)
	assert.Zero(t, summary.RowsDropped)
	_, err = uuid.Parse(summary.RunID)
	assert.NoError(t, err)
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))

	// A second run over the same window stores nothing new.
	again, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.RowsInserted)
	assert.NotEqual(t, summary.RunID, again.RunID)

	require.Len(t, pub.summaries, 2)
	assert.Equal(t, summary.RunID, pub.summaries[0].RunID)

	db, err := database.Open(ctx, database.DriverSQLite, dest)
	require.NoError(t, err)
	defer db.Close()
	all, err := db.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 24)
	assert.Nil(t, all[5].WeatherCode)
}

func TestRun_DropsImplausibleRows(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "weather.db")
	p := newPipeline(t, fakeSource{frame: dayFrame(3, 7)}, nil, dest)

	droppedBefore := testutil.ToFloat64(metrics.RowsTotal.WithLabelValues("dropped"))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RowsDropped)
	assert.Equal(t, 22, summary.RowsInserted)
	assert.Equal(t, 2, summary.IrregularIntervals)
	assert.Equal(t, droppedBefore+2, testutil.ToFloat64(metrics.RowsTotal.WithLabelValues("dropped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.IrregularIntervals))
}

func TestRun_SchemaErrorStoresNothing(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "weather.db")
	frame := dayFrame()
	ts, _ := frame.Column(models.ColTimestamp)
	dup := ts.(models.TimeSeries)
	dup[1] = dup[0]

	pub := &recordingPublisher{}
	p := newPipeline(t, fakeSource{frame: frame}, pub, dest)

	errorsBefore := testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("error"))

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrSchema)
	assert.NoFileExists(t, dest)
	assert.Empty(t, pub.summaries)
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("error")))
}

func TestRun_FetchError(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "weather.db")
	p := newPipeline(t, fakeSource{err: errors.New("status 503")}, nil, dest)

	_, err := p.Run(context.Background())
	assert.ErrorContains(t, err, "fetch: status 503")
	assert.NoFileExists(t, dest)
}

func TestRun_StorageError(t *testing.T) {
	logger := discardLogger()
	p := New(fakeSource{frame: dayFrame()},
		validation.NewValidator(logger),
		database.NewStore("postgres", logger),
		nil,
		Settings{Destination: "unused"},
		logger)

	_, err := p.Run(context.Background())
	var se *database.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "open", se.Op)
}
