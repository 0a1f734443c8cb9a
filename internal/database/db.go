package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"weatherpipe/internal/metrics"
	"weatherpipe/internal/models"
)

// DB represents a connection to a weather store
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Open connects to an existing store without touching its schema.
// For sqlite3 the dsn is a file path (or a file: URI), for mysql it has the
// form "username:password@tcp(host:port)/dbname".
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, storageError("open", err)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, storageError("open", fmt.Errorf("failed to open database: %w", err))
	}

	// Test connection
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, storageError("open", fmt.Errorf("failed to ping database: %w", err))
	}

	if d.localFile {
		// One writer at a time; SQLite serializes writes anyway.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	return &DB{conn: conn, dialect: d}, nil
}

// NewDB connects to the store and creates the weather table if it is absent.
func NewDB(ctx context.Context, driver, dsn string) (*DB, error) {
	db, err := Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.initSchema(ctx); err != nil {
		db.Close()
		return nil, storageError("schema", fmt.Errorf("failed to initialize schema: %w", err))
	}

	return db, nil
}

// newWithConn wraps an already opened connection, used with sqlmock.
func newWithConn(conn *sql.DB, driver string) (*DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &DB{conn: conn, dialect: d}, nil
}

// initSchema creates the weather table. An existing table is left as is.
func (db *DB) initSchema(ctx context.Context) error {
	queryStart := time.Now()
	_, err := db.conn.ExecContext(ctx, db.dialect.schema)
	metrics.RecordDBQuery("CREATE", "weather", time.Since(queryStart), err)
	if err != nil {
		return fmt.Errorf("failed to execute schema statement: %w", err)
	}
	return nil
}

// InsertRecords inserts the table in a single transaction. Rows whose
// timestamp already exists are ignored. It returns the number of rows that
// were actually added.
func (db *DB) InsertRecords(ctx context.Context, table models.WeatherTable) (int, error) {
	defer db.publishStats()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageError("begin", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback() // Will be ignored if committed

	stmt, err := tx.PrepareContext(ctx, db.dialect.insert)
	if err != nil {
		return 0, storageError("insert", fmt.Errorf("failed to prepare statement: %w", err))
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range table {
		ts := models.FormatTimestamp(r.Timestamp)

		var code sql.NullInt64
		if r.WeatherCode != nil {
			code = sql.NullInt64{Int64: *r.WeatherCode, Valid: true}
		}

		queryStart := time.Now()
		res, err := stmt.ExecContext(ctx, ts, r.Temperature2m, r.Precipitation, code, r.WindSpeed10m)
		metrics.RecordDBQuery("INSERT", "weather", time.Since(queryStart), err)
		if err != nil {
			return 0, storageError("insert", fmt.Errorf("failed to insert row at %s: %w", ts, err))
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, storageError("insert", fmt.Errorf("failed to read affected rows at %s: %w", ts, err))
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, storageError("commit", fmt.Errorf("failed to commit transaction: %w", err))
	}

	return inserted, nil
}

const selectRecords = `SELECT timestamp, temperature_2m, precipitation, weather_code, wind_speed_10m FROM weather`

// GetLatest returns up to limit of the most recent rows, newest first.
// NULL measurements are returned as NaN.
func (db *DB) GetLatest(ctx context.Context, limit int) (models.WeatherTable, error) {
	return db.queryRecords(ctx, selectRecords+` ORDER BY timestamp DESC LIMIT ?`, limit)
}

// GetFirst returns up to limit of the oldest rows in chronological order.
func (db *DB) GetFirst(ctx context.Context, limit int) (models.WeatherTable, error) {
	return db.queryRecords(ctx, selectRecords+` ORDER BY timestamp ASC LIMIT ?`, limit)
}

// GetAll returns every row in chronological order.
func (db *DB) GetAll(ctx context.Context) (models.WeatherTable, error) {
	return db.queryRecords(ctx, selectRecords+` ORDER BY timestamp ASC`)
}

func (db *DB) queryRecords(ctx context.Context, query string, args ...any) (models.WeatherTable, error) {
	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("SELECT", "weather", time.Since(queryStart), err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) (models.WeatherTable, error) {
	var table models.WeatherTable
	for rows.Next() {
		var (
			ts                 string
			temp, precip, wind sql.NullFloat64
			code               sql.NullInt64
		)
		if err := rows.Scan(&ts, &temp, &precip, &code, &wind); err != nil {
			return nil, err
		}

		t, err := models.ParseTimestamp(ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored timestamp %q: %w", ts, err)
		}

		r := models.WeatherRecord{
			Timestamp:     t,
			Temperature2m: nullFloat(temp),
			Precipitation: nullFloat(precip),
			WindSpeed10m:  nullFloat(wind),
		}
		if code.Valid {
			c := code.Int64
			r.WeatherCode = &c
		}
		table = append(table, r)
	}

	return table, rows.Err()
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// ListTables returns the names of all tables in the store
func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, db.dialect.listTables)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return tables, nil
}

// ColumnStats summarizes the weather table.
type ColumnStats struct {
	Rows       int
	NullCounts map[string]int
	First      string
	Last       string
}

// GetColumnStats returns the row count, NULL count per column and the
// timestamp range of the weather table.
func (db *DB) GetColumnStats(ctx context.Context) (*ColumnStats, error) {
	query := `
	SELECT
		COUNT(*),
		COUNT(*) - COUNT(temperature_2m),
		COUNT(*) - COUNT(precipitation),
		COUNT(*) - COUNT(weather_code),
		COUNT(*) - COUNT(wind_speed_10m),
		MIN(timestamp),
		MAX(timestamp)
	FROM weather
	`
	var (
		stats                    ColumnStats
		temp, precip, code, wind int
		first, last              sql.NullString
	)
	row := db.conn.QueryRowContext(ctx, query)
	if err := row.Scan(&stats.Rows, &temp, &precip, &code, &wind, &first, &last); err != nil {
		return nil, fmt.Errorf("failed to read weather stats: %w", err)
	}

	stats.NullCounts = map[string]int{
		models.ColTimestamp:     0,
		models.ColTemperature2m: temp,
		models.ColPrecipitation: precip,
		models.ColWeatherCode:   code,
		models.ColWindSpeed10m:  wind,
	}
	stats.First = first.String
	stats.Last = last.String

	return &stats, nil
}

func (db *DB) publishStats() {
	stats := db.conn.Stats()
	metrics.UpdateDBConnectionStats(stats.OpenConnections, stats.InUse, stats.Idle)
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
