package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"weatherpipe/internal/models"
)

const archiveURL = "https://archive-api.open-meteo.com/v1/archive"

// OpenMeteoClient is a client for the Open-Meteo historical archive API
type OpenMeteoClient struct {
	baseURL string
	client  *http.Client
	cache   *diskCache
	breaker *gobreaker.CircuitBreaker
	backoff BackoffConfig
	logger  *slog.Logger
}

// ClientConfig configures NewOpenMeteoClient. Zero values fall back to the
// public archive endpoint, a 30s timeout and a 200ms initial backoff.
// MaxRetries of zero disables retries and an empty CacheDir disables the
// response cache.
type ClientConfig struct {
	BaseURL    string
	CacheDir   string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

type ArchiveParams struct {
	Latitude     float64
	Longitude    float64
	StartDate    string // YYYY-MM-DD, inclusive
	EndDate      string // YYYY-MM-DD, inclusive
	HourlyFields []string
	Timezone     string
}

// NewOpenMeteoClient creates a new Open-Meteo API client
func NewOpenMeteoClient(cfg ClientConfig, logger *slog.Logger) *OpenMeteoClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = archiveURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}

	c := &OpenMeteoClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "open-meteo",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > uint32(cfg.MaxRetries)+1
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
		backoff: BackoffConfig{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.Backoff,
			MaxInterval:     5 * time.Second,
		},
		logger: logger,
	}
	if cfg.CacheDir != "" {
		c.cache = &diskCache{dir: cfg.CacheDir}
	}
	return c
}

// BuildURL builds the archive request URL. Timestamps are requested as unix
// seconds so that the response carries unambiguous instants.
func (c *OpenMeteoClient) BuildURL(params ArchiveParams) string {
	if params.Timezone == "" {
		params.Timezone = "GMT"
	}

	u := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&start_date=%s&end_date=%s&timezone=%s&timeformat=unixtime",
		c.baseURL, params.Latitude, params.Longitude, params.StartDate, params.EndDate, url.QueryEscape(params.Timezone))

	if len(params.HourlyFields) > 0 {
		u += "&hourly=" + strings.Join(params.HourlyFields, ",")
	}

	return u
}

// GetHistoricalHourlyData fetches the hourly archive for the given window.
func (c *OpenMeteoClient) GetHistoricalHourlyData(ctx context.Context, params ArchiveParams) (*models.Forecast, error) {
	if len(params.HourlyFields) == 0 {
		return nil, fmt.Errorf("GetHistoricalHourlyData: no weather fields provided")
	}

	u := c.BuildURL(params)
	c.logger.Info("Fetching weather data from Open-Meteo API",
		"latitude", params.Latitude, "longitude", params.Longitude,
		"start_date", params.StartDate, "end_date", params.EndDate)

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var forecast models.Forecast
	if err := json.Unmarshal(body, &forecast); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info("Weather data successfully retrieved", "hours", len(forecast.Hourly.Time))
	return &forecast, nil
}
