package models

import "time"

// Forecast represents an hourly archive response from the Open-Meteo API
// requested with timeformat=unixtime.
type Forecast struct {
	Latitude         float64     `json:"latitude"`
	Longitude        float64     `json:"longitude"`
	Elevation        float64     `json:"elevation"`
	Timezone         string      `json:"timezone"`
	UTCOffsetSeconds int         `json:"utc_offset_seconds"`
	HourlyUnits      HourlyUnits `json:"hourly_units"`
	Hourly           Hourly      `json:"hourly"`
	GenerationTimeMs float64     `json:"generation_time_ms"`
}

type HourlyUnits struct {
	Time          string `json:"time"`
	Temperature2m string `json:"temperature_2m"`
	Precipitation string `json:"precipitation"`
	WeatherCode   string `json:"weather_code"`
	WindSpeed10m  string `json:"wind_speed_10m"`
}

// Hourly holds the hourly series. Values are pointers because the API
// reports missing hours as null.
type Hourly struct {
	Time          []int64    `json:"time"`
	Temperature2m []*float64 `json:"temperature_2m"`
	Precipitation []*float64 `json:"precipitation"`
	WeatherCode   []*float64 `json:"weather_code"`
	WindSpeed10m  []*float64 `json:"wind_speed_10m"`
}

// WeatherRecord is one validated hourly observation.
type WeatherRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	Temperature2m float64   `json:"temperature_2m"`
	Precipitation float64   `json:"precipitation"`
	WeatherCode   *int64    `json:"weather_code"`
	WindSpeed10m  float64   `json:"wind_speed_10m"`
}

// WeatherTable is an ordered collection of records sharing the weather schema.
type WeatherTable []WeatherRecord

// Len returns the number of rows
func (t WeatherTable) Len() int {
	return len(t)
}

// TimestampLayout is ISO-8601 with an explicit numeric offset, e.g.
// 2025-01-01T00:00:00+00:00.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// FormatTimestamp renders t in UTC using TimestampLayout. This text is the
// primary key of the persisted weather table.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses text produced by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// RunSummary describes one completed pipeline run
type RunSummary struct {
	RunID              string    `json:"run_id"`
	Location           string    `json:"location"`
	StartDate          string    `json:"start_date"`
	EndDate            string    `json:"end_date"`
	RowsFetched        int       `json:"rows_fetched"`
	RowsValid          int       `json:"rows_valid"`
	RowsDropped        int       `json:"rows_dropped"`
	IrregularIntervals int       `json:"irregular_intervals"`
	RowsInserted       int       `json:"rows_inserted"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
}
