package models

import "time"

// Column names of the weather schema.
const (
	ColTimestamp     = "timestamp"
	ColTemperature2m = "temperature_2m"
	ColPrecipitation = "precipitation"
	ColWeatherCode   = "weather_code"
	ColWindSpeed10m  = "wind_speed_10m"
)

// Series is a single typed column of a Frame.
type Series interface {
	Len() int
}

type TimeSeries []time.Time

func (s TimeSeries) Len() int { return len(s) }

// FloatSeries encodes missing values as NaN.
type FloatSeries []float64

func (s FloatSeries) Len() int { return len(s) }

type IntSeries []int64

func (s IntSeries) Len() int { return len(s) }

type StringSeries []string

func (s StringSeries) Len() int { return len(s) }

// Frame is a column-oriented table of raw observations as produced by
// ingestion. Columns keep their insertion order.
type Frame struct {
	names  []string
	series map[string]Series
}

// NewFrame creates an empty frame
func NewFrame() *Frame {
	return &Frame{series: make(map[string]Series)}
}

// Set adds the column, or replaces it in place if the name already exists.
func (f *Frame) Set(name string, s Series) *Frame {
	if _, exists := f.series[name]; !exists {
		f.names = append(f.names, name)
	}
	f.series[name] = s
	return f
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (Series, bool) {
	if f == nil {
		return nil, false
	}
	s, ok := f.series[name]
	return s, ok
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Len returns the row count, taken from the first column. A frame without
// columns has zero rows.
func (f *Frame) Len() int {
	if f == nil || len(f.names) == 0 {
		return 0
	}
	return f.series[f.names[0]].Len()
}
