// Package inspect reports on the contents of a weather store.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"text/tabwriter"

	"weatherpipe/internal/database"
	"weatherpipe/internal/models"
)

const previewRows = 5

// Report is a read-only snapshot of a store.
type Report struct {
	Destination string
	Found       bool
	Tables      []string
	// Weather is nil when the store has no weather table.
	Weather *database.ColumnStats
	Columns []string
	Preview models.WeatherTable
}

// Inspect opens destination read-only and summarizes it. A SQLite file that
// does not exist yields a report with Found unset and no error.
func Inspect(ctx context.Context, driver, destination string) (*Report, error) {
	report := &Report{Destination: destination}

	dsn := destination
	if driver == database.DriverSQLite {
		if _, err := os.Stat(destination); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return report, nil
			}
			return nil, fmt.Errorf("stat database: %w", err)
		}
		dsn = "file:" + destination + "?mode=ro"
	}

	db, err := database.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	report.Found = true

	report.Tables, err = db.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(report.Tables, "weather") {
		return report, nil
	}

	report.Weather, err = db.GetColumnStats(ctx)
	if err != nil {
		return nil, err
	}
	report.Columns = []string{
		models.ColTimestamp,
		models.ColTemperature2m,
		models.ColPrecipitation,
		models.ColWeatherCode,
		models.ColWindSpeed10m,
	}

	report.Preview, err = db.GetFirst(ctx, previewRows)
	if err != nil {
		return nil, fmt.Errorf("failed to read preview rows: %w", err)
	}

	return report, nil
}

// Print renders the report for a terminal.
func (r *Report) Print(w io.Writer) error {
	if !r.Found {
		_, err := fmt.Fprintf(w, "Database not found at: %s\n", r.Destination)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Tables in the database:")
	if len(r.Tables) == 0 {
		fmt.Fprintln(tw, "No tables found in database.")
		return tw.Flush()
	}
	for _, name := range r.Tables {
		fmt.Fprintf(tw, "  %s\n", name)
	}
	fmt.Fprintln(tw)

	if r.Weather == nil {
		fmt.Fprintln(tw, "No weather table found in database.")
		return tw.Flush()
	}

	fmt.Fprintln(tw, "Weather table preview:")
	for i, col := range r.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)
	for _, rec := range r.Preview {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			models.FormatTimestamp(rec.Timestamp),
			formatFloat(rec.Temperature2m),
			formatFloat(rec.Precipitation),
			formatCode(rec.WeatherCode),
			formatFloat(rec.WindSpeed10m))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Sanity checks:")
	fmt.Fprintf(tw, "Number of rows: %d\n", r.Weather.Rows)
	fmt.Fprintf(tw, "Number of columns: %d\n", len(r.Columns))
	if r.Weather.Rows > 0 {
		fmt.Fprintf(tw, "Time range: %s .. %s\n", r.Weather.First, r.Weather.Last)
	}
	fmt.Fprintln(tw, "Missing values per column:")
	for _, col := range r.Columns {
		fmt.Fprintf(tw, "  %s\t%d\n", col, r.Weather.NullCounts[col])
	}

	return tw.Flush()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NULL"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatCode(c *int64) string {
	if c == nil {
		return "NULL"
	}
	return strconv.FormatInt(*c, 10)
}
