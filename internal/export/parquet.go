// Package export writes stored weather tables to Parquet files.
package export

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"weatherpipe/internal/database"
	"weatherpipe/internal/models"
)

// Row matches the Parquet schema. NULL measurements are nil.
type Row struct {
	Timestamp     string   `parquet:"timestamp"`
	Temperature2m *float64 `parquet:"temperature_2m,optional"`
	Precipitation *float64 `parquet:"precipitation,optional"`
	WeatherCode   *int64   `parquet:"weather_code,optional"`
	WindSpeed10m  *float64 `parquet:"wind_speed_10m,optional"`
}

// Reader is the part of the store used by WriteParquet.
type Reader interface {
	GetAll(ctx context.Context) (models.WeatherTable, error)
}

var _ Reader = (*database.DB)(nil)

// WriteParquet dumps the weather table in timestamp order to path and
// returns the number of rows written. The file is replaced atomically.
func WriteParquet(ctx context.Context, db Reader, path string) (int, error) {
	table, err := db.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read weather table: %w", err)
	}

	rows := make([]Row, len(table))
	for i, r := range table {
		rows[i] = toRow(r)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.parquet")
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := parquet.NewGenericWriter[Row](tmp)
	if _, err := w.Write(rows); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("close parquet writer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close export file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("move export file into place: %w", err)
	}
	return len(rows), nil
}

func toRow(r models.WeatherRecord) Row {
	return Row{
		Timestamp:     models.FormatTimestamp(r.Timestamp),
		Temperature2m: optional(r.Temperature2m),
		Precipitation: optional(r.Precipitation),
		WeatherCode:   r.WeatherCode,
		WindSpeed10m:  optional(r.WindSpeed10m),
	}
}

func optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
