package inspect

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherpipe/internal/database"
	"weatherpipe/internal/models"
)

func seedStore(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "processed", "weather.db")

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	table := make(models.WeatherTable, n)
	for i := range table {
		table[i] = models.WeatherRecord{
			Timestamp:     start.Add(time.Duration(i) * time.Hour),
			Temperature2m: 1.25,
			Precipitation: 0,
			WindSpeed10m:  8.5,
		}
		if i%2 == 0 {
			code := int64(3)
			table[i].WeatherCode = &code
		}
	}

	store := database.NewStore(database.DriverSQLite, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := store.Persist(context.Background(), table, path)
	require.NoError(t, err)
	return path
}

func TestInspect(t *testing.T) {
	path := seedStore(t, 8)

	report, err := Inspect(context.Background(), database.DriverSQLite, path)
	require.NoError(t, err)

	assert.True(t, report.Found)
	assert.Equal(t, []string{"weather"}, report.Tables)
	require.NotNil(t, report.Weather)
	assert.Equal(t, 8, report.Weather.Rows)
	assert.Equal(t, 4, report.Weather.NullCounts[models.ColWeatherCode])
	assert.Len(t, report.Columns, 5)
	require.Len(t, report.Preview, previewRows)
	assert.Equal(t, "2025-01-01T00:00:00+00:00", models.FormatTimestamp(report.Preview[0].Timestamp))

	var out bytes.Buffer
	require.NoError(t, report.Print(&out))
	text := out.String()
	assert.Contains(t, text, "Tables in the database:")
	assert.Contains(t, text, "Number of rows: 8")
	assert.Contains(t, text, "Number of columns: 5")
	assert.Contains(t, text, "Time range: 2025-01-01T00:00:00+00:00 .. 2025-01-01T07:00:00+00:00")
	assert.Contains(t, text, "NULL")
}

func TestInspect_MissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "weather.db")

	report, err := Inspect(context.Background(), database.DriverSQLite, path)
	require.NoError(t, err)
	assert.False(t, report.Found)

	var out bytes.Buffer
	require.NoError(t, report.Print(&out))
	assert.Equal(t, "Database not found at: "+path+"\n", out.String())

	// Inspection never creates anything.
	_, err = os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(err))
}

func TestInspect_NoWeatherTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	report, err := Inspect(context.Background(), database.DriverSQLite, path)
	require.NoError(t, err)
	assert.True(t, report.Found)
	assert.Empty(t, report.Tables)
	assert.Nil(t, report.Weather)

	var out bytes.Buffer
	require.NoError(t, report.Print(&out))
	assert.Contains(t, out.String(), "No tables found in database.")
}
