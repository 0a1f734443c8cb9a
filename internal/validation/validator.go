// Package validation turns a raw ingestion frame into a clean weather table.
package validation

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"weatherpipe/internal/models"
)

// Plausibility bounds. Rows outside them are dropped, not rejected.
const (
	TemperatureMin   = -50.0
	TemperatureMax   = 60.0
	PrecipitationMin = 0.0
	WindSpeedMin     = 0.0
	WindSpeedMax     = 75.0

	expectedInterval = time.Hour
)

// RequiredColumns lists the input columns in the order they are checked.
var RequiredColumns = []string{
	models.ColTimestamp,
	models.ColTemperature2m,
	models.ColPrecipitation,
	models.ColWeatherCode,
	models.ColWindSpeed10m,
}

// Result is the outcome of a successful validation.
type Result struct {
	Table              models.WeatherTable
	RowsIn             int
	Dropped            int
	Reordered          bool
	IrregularIntervals int
}

// Validator checks raw weather frames
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a validator that reports through logger.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate returns the cleaned table for frame, or a *SchemaError.
func (v *Validator) Validate(frame *models.Frame) (models.WeatherTable, error) {
	res, err := v.Check(frame)
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

// Check runs the full validation and returns the cleaned table together with
// the counters gathered on the way. The steps run in a fixed order: emptiness,
// required columns, timestamp type, column shape, uniqueness, plausibility
// filter, ordering and finally interval regularity.
func (v *Validator) Check(frame *models.Frame) (Result, error) {
	v.logger.Info("Starting validation", "rows", frame.Len())

	if frame.Len() == 0 {
		return Result{}, schemaError("empty input")
	}

	for _, name := range RequiredColumns {
		if _, ok := frame.Column(name); !ok {
			return Result{}, schemaError("missing column: " + name)
		}
	}

	tsCol, _ := frame.Column(models.ColTimestamp)
	timestamps, ok := tsCol.(models.TimeSeries)
	if !ok {
		return Result{}, schemaError("timestamp not a time type")
	}
	n := len(timestamps)

	temps, err := numericColumn(frame, models.ColTemperature2m, n)
	if err != nil {
		return Result{}, err
	}
	precip, err := numericColumn(frame, models.ColPrecipitation, n)
	if err != nil {
		return Result{}, err
	}
	codes, err := numericColumn(frame, models.ColWeatherCode, n)
	if err != nil {
		return Result{}, err
	}
	wind, err := numericColumn(frame, models.ColWindSpeed10m, n)
	if err != nil {
		return Result{}, err
	}

	if hasDuplicates(timestamps) {
		return Result{}, schemaError("duplicate timestamps")
	}

	table := make(models.WeatherTable, 0, n)
	for i := 0; i < n; i++ {
		if !plausible(temps[i], precip[i], wind[i]) {
			continue
		}
		table = append(table, models.WeatherRecord{
			Timestamp:     timestamps[i],
			Temperature2m: temps[i],
			Precipitation: precip[i],
			WeatherCode:   weatherCode(codes[i]),
			WindSpeed10m:  wind[i],
		})
	}
	dropped := n - len(table)
	v.logger.Info("Plausibility filter applied", "dropped", dropped, "kept", len(table))

	reordered := false
	if !isAscending(table) {
		slices.SortStableFunc(table, func(a, b models.WeatherRecord) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
		reordered = true
		v.logger.Info("Timestamps were out of order, table sorted ascending")
	}

	irregular := countIrregularIntervals(table)
	if irregular > 0 {
		v.logger.Warn("Irregular time intervals detected", "count", irregular)
	}

	v.logger.Info("Finished validation", "rows_in", n, "rows_out", len(table))

	return Result{
		Table:              table,
		RowsIn:             n,
		Dropped:            dropped,
		Reordered:          reordered,
		IrregularIntervals: irregular,
	}, nil
}

// numericColumn returns the named column as float64 values. Integer columns
// are widened; anything else is a schema error, as is a length that differs
// from the timestamp column.
func numericColumn(frame *models.Frame, name string, n int) ([]float64, error) {
	col, _ := frame.Column(name)
	if col.Len() != n {
		return nil, schemaError("column length mismatch: " + name)
	}

	switch s := col.(type) {
	case models.FloatSeries:
		return s, nil
	case models.IntSeries:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, schemaError("column not numeric: " + name)
	}
}

func hasDuplicates(ts models.TimeSeries) bool {
	seen := make(map[int64]struct{}, len(ts))
	for _, t := range ts {
		key := t.UnixNano()
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}

// plausible reports whether a row is physically reasonable. NaN fails every
// comparison, so rows with missing measurements are dropped as well.
func plausible(temp, precip, wind float64) bool {
	return temp >= TemperatureMin && temp <= TemperatureMax &&
		precip >= PrecipitationMin &&
		wind >= WindSpeedMin && wind <= WindSpeedMax
}

func weatherCode(v float64) *int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	code := int64(v)
	return &code
}

func isAscending(table models.WeatherTable) bool {
	for i := 1; i < len(table); i++ {
		if !table[i-1].Timestamp.Before(table[i].Timestamp) {
			return false
		}
	}
	return true
}

func countIrregularIntervals(table models.WeatherTable) int {
	irregular := 0
	for i := 1; i < len(table); i++ {
		if table[i].Timestamp.Sub(table[i-1].Timestamp) != expectedInterval {
			irregular++
		}
	}
	return irregular
}
