// Package ingest turns Open-Meteo archive responses into raw frames.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"weatherpipe/internal/api"
	"weatherpipe/internal/models"
)

// Fetcher is the subset of the Open-Meteo client used by Source.
type Fetcher interface {
	GetHistoricalHourlyData(ctx context.Context, params api.ArchiveParams) (*models.Forecast, error)
}

// Source fetches one configured location and window.
type Source struct {
	client Fetcher
	params api.ArchiveParams
	logger *slog.Logger
}

func NewSource(client Fetcher, params api.ArchiveParams, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{client: client, params: params, logger: logger}
}

// Params returns the archive request this source issues.
func (s *Source) Params() api.ArchiveParams {
	return s.params
}

// Fetch downloads the archive window and converts it into a frame.
func (s *Source) Fetch(ctx context.Context) (*models.Frame, error) {
	s.logger.Info("Starting ingestion", "start_date", s.params.StartDate, "end_date", s.params.EndDate)

	forecast, err := s.client.GetHistoricalHourlyData(ctx, s.params)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	frame, err := ToFrame(forecast)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Finished ingestion", "rows", frame.Len(), "columns", len(frame.Columns()))
	return frame, nil
}

// ToFrame converts the hourly block of a forecast into a frame. Times are unix
// seconds and become UTC instants; null values become NaN. A variable the
// response does not carry is left out of the frame entirely.
func ToFrame(forecast *models.Forecast) (*models.Frame, error) {
	if forecast == nil {
		return nil, errors.New("ingest: nil forecast")
	}

	h := forecast.Hourly
	n := len(h.Time)

	ts := make(models.TimeSeries, n)
	for i, sec := range h.Time {
		ts[i] = time.Unix(sec, 0).UTC()
	}

	frame := models.NewFrame().Set(models.ColTimestamp, ts)
	addFloats(frame, models.ColTemperature2m, h.Temperature2m, n)
	addFloats(frame, models.ColPrecipitation, h.Precipitation, n)
	addFloats(frame, models.ColWeatherCode, h.WeatherCode, n)
	addFloats(frame, models.ColWindSpeed10m, h.WindSpeed10m, n)
	return frame, nil
}

func addFloats(frame *models.Frame, name string, values []*float64, n int) {
	if values == nil && n > 0 {
		return
	}
	s := make(models.FloatSeries, len(values))
	for i, v := range values {
		if v == nil {
			s[i] = math.NaN()
			continue
		}
		s[i] = *v
	}
	frame.Set(name, s)
}
