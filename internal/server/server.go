package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weatherpipe/internal/database"
	"weatherpipe/internal/models"
)

const (
	defaultHours = 24
	// maxHours caps /weather at one leap year of hourly rows.
	maxHours = 8784
)

// Store is the read side of the weather store used by the server.
type Store interface {
	GetLatest(ctx context.Context, limit int) (models.WeatherTable, error)
	GetColumnStats(ctx context.Context) (*database.ColumnStats, error)
}

// Server represents the HTTP server
type Server struct {
	store  Store
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer creates a new HTTP server
func NewServer(store Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:  store,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	// Register routes
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/weather", s.handleWeather)
	s.mux.HandleFunc("/weather/stats", s.handleStats)
	s.mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return requestLogger(s.logger, s.mux)
}

// Start serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth returns the server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type recordJSON struct {
	Timestamp     string   `json:"timestamp"`
	Temperature2m *float64 `json:"temperature_2m"`
	Precipitation *float64 `json:"precipitation"`
	WeatherCode   *int64   `json:"weather_code"`
	WindSpeed10m  *float64 `json:"wind_speed_10m"`
}

func toJSON(r models.WeatherRecord) recordJSON {
	return recordJSON{
		Timestamp:     models.FormatTimestamp(r.Timestamp),
		Temperature2m: nullable(r.Temperature2m),
		Precipitation: nullable(r.Precipitation),
		WeatherCode:   r.WeatherCode,
		WindSpeed10m:  nullable(r.WindSpeed10m),
	}
}

// nullable maps NaN, which JSON cannot encode, to null.
func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// handleWeather returns the most recent stored hours, newest first
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hours := defaultHours
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		h, err := strconv.Atoi(hoursStr)
		if err != nil || h < 1 || h > maxHours {
			http.Error(w, "hours must be an integer between 1 and "+strconv.Itoa(maxHours), http.StatusBadRequest)
			return
		}
		hours = h
	}

	table, err := s.store.GetLatest(r.Context(), hours)
	if err != nil {
		s.logger.Error("Failed to read weather rows", "error", err)
		http.Error(w, "failed to read weather data", http.StatusInternalServerError)
		return
	}

	data := make([]recordJSON, len(table))
	for i, rec := range table {
		data[i] = toJSON(rec)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hours": hours,
		"count": len(data),
		"data":  data,
	})
}

// handleStats returns row and NULL counts of the weather table
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.store.GetColumnStats(r.Context())
	if err != nil {
		s.logger.Error("Failed to read weather stats", "error", err)
		http.Error(w, "failed to read weather stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows":        stats.Rows,
		"null_counts": stats.NullCounts,
		"first":       stats.First,
		"last":        stats.Last,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
