package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"weatherpipe/internal/config"
	"weatherpipe/internal/database"
)

const archiveBody = `{
	"timezone": "GMT",
	"hourly": {
		"time": [1735689600, 1735693200, 1735696800],
		"temperature_2m": [3.1, 2.9, 99.0],
		"precipitation": [0.0, 0.4, 0.1],
		"weather_code": [3, null, 61],
		"wind_speed_10m": [11.2, 14.0, 9.8]
	}
}`

func TestArchiveParams(t *testing.T) {
	cfg := config.Default()

	params := archiveParams(cfg)

	if params.Latitude != 51.5149 || params.Longitude != 7.466 {
		t.Errorf("unexpected coordinates %v, %v", params.Latitude, params.Longitude)
	}
	if params.StartDate != "2025-01-01" || params.EndDate != "2025-01-31" {
		t.Errorf("unexpected window %s..%s", params.StartDate, params.EndDate)
	}
	if len(params.HourlyFields) != 4 {
		t.Errorf("expected 4 hourly fields, got %d", len(params.HourlyFields))
	}
}

func TestRun_BadFlag(t *testing.T) {
	if err := run(context.Background(), []string{"-every", "soon"}); err == nil {
		t.Error("expected an error for an invalid duration")
	}
}

// TestRun_OneShot is the only test that loads the process-wide config.
func TestRun_OneShot(t *testing.T) {
	var calls, pushes int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(archiveBody))
	}))
	defer api.Close()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pushes, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "data", "processed", "weather.db")
	logFile := filepath.Join(dir, "logs", "pipeline.log")
	configPath := filepath.Join(dir, "config.yaml")

	content := fmt.Sprintf(`window:
  start_date: "2025-01-01"
  end_date: "2025-01-01"
api:
  base_url: %q
  cache_dir: %q
storage:
  driver: sqlite3
  destination: %q
logging:
  file: %q
metrics:
  pushgateway_url: %q
`, api.URL, filepath.Join(dir, ".cache"), dest, logFile, gateway.URL)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	for _, key := range []string{"WEATHER_DB_DRIVER", "WEATHER_DB_PATH", "REDIS_ADDR", "LOG_FILE", "PUSHGATEWAY_URL"} {
		t.Setenv(key, "")
	}

	ctx := context.Background()
	if err := run(ctx, []string{"-config", configPath, "-every", "0"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	// The second run is served from the cache and adds nothing.
	if err := run(ctx, []string{"-config", configPath, "-every", "0"}); err != nil {
		t.Fatalf("second run() error = %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("API calls = %d, want 1", got)
	}
	if got := atomic.LoadInt32(&pushes); got != 2 {
		t.Errorf("metric pushes = %d, want 2", got)
	}

	db, err := database.Open(ctx, database.DriverSQLite, dest)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	all, err := db.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("stored rows = %d, want 2 (implausible row dropped)", len(all))
	}
	if all[1].WeatherCode != nil {
		t.Error("null weather code should be stored as NULL")
	}

	logs, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !strings.Contains(string(logs), "Pipeline finished") {
		t.Error("log file should record the finished run")
	}
}
