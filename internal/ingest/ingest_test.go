package ingest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherpipe/internal/api"
	"weatherpipe/internal/models"
)

func ptr(v float64) *float64 { return &v }

type fakeFetcher struct {
	forecast *models.Forecast
	err      error
	got      api.ArchiveParams
}

func (f *fakeFetcher) GetHistoricalHourlyData(ctx context.Context, params api.ArchiveParams) (*models.Forecast, error) {
	f.got = params
	return f.forecast, f.err
}

func sampleForecast() *models.Forecast {
	return &models.Forecast{
		Timezone: "GMT",
		Hourly: models.Hourly{
			Time:          []int64{1735689600, 1735693200, 1735696800},
			Temperature2m: []*float64{ptr(3.1), nil, ptr(2.4)},
			Precipitation: []*float64{ptr(0), ptr(0.4), ptr(0.1)},
			WeatherCode:   []*float64{ptr(3), ptr(61), nil},
			WindSpeed10m:  []*float64{ptr(11.2), ptr(14), ptr(9.8)},
		},
	}
}

func TestToFrame(t *testing.T) {
	frame, err := ToFrame(sampleForecast())
	require.NoError(t, err)

	assert.Equal(t, 3, frame.Len())
	assert.Equal(t, []string{
		models.ColTimestamp,
		models.ColTemperature2m,
		models.ColPrecipitation,
		models.ColWeatherCode,
		models.ColWindSpeed10m,
	}, frame.Columns())

	col, ok := frame.Column(models.ColTimestamp)
	require.True(t, ok)
	ts := col.(models.TimeSeries)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ts[0])
	assert.Equal(t, time.UTC, ts[1].Location())

	col, _ = frame.Column(models.ColTemperature2m)
	temps := col.(models.FloatSeries)
	assert.Equal(t, 3.1, temps[0])
	assert.True(t, math.IsNaN(temps[1]))

	col, _ = frame.Column(models.ColWeatherCode)
	assert.True(t, math.IsNaN(col.(models.FloatSeries)[2]))
}

func TestToFrame_MissingVariable(t *testing.T) {
	forecast := sampleForecast()
	forecast.Hourly.WindSpeed10m = nil

	frame, err := ToFrame(forecast)
	require.NoError(t, err)

	_, ok := frame.Column(models.ColWindSpeed10m)
	assert.False(t, ok)
}

func TestToFrame_LengthMismatchPassesThrough(t *testing.T) {
	forecast := sampleForecast()
	forecast.Hourly.Precipitation = forecast.Hourly.Precipitation[:2]

	frame, err := ToFrame(forecast)
	require.NoError(t, err)

	col, ok := frame.Column(models.ColPrecipitation)
	require.True(t, ok)
	assert.Equal(t, 2, col.Len())
}

func TestToFrame_Empty(t *testing.T) {
	frame, err := ToFrame(&models.Forecast{})
	require.NoError(t, err)
	assert.Equal(t, 0, frame.Len())
	assert.Len(t, frame.Columns(), 5)

	_, err = ToFrame(nil)
	assert.Error(t, err)
}

func TestSourceFetch(t *testing.T) {
	params := api.ArchiveParams{Latitude: 51.5149, Longitude: 7.466, StartDate: "2025-01-01", EndDate: "2025-01-01"}
	fetcher := &fakeFetcher{forecast: sampleForecast()}

	frame, err := NewSource(fetcher, params, nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Len())
	assert.Equal(t, params, fetcher.got)
}

func TestSourceFetch_Error(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("status 503")}

	_, err := NewSource(fetcher, api.ArchiveParams{}, nil).Fetch(context.Background())
	assert.ErrorContains(t, err, "status 503")
}
