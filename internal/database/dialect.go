package database

import "fmt"

// Supported database/sql driver names.
const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

// dialect holds the driver-specific SQL for the weather table.
type dialect struct {
	driver     string
	schema     string
	insert     string
	listTables string
	// localFile is true when the destination is a file path whose parent
	// directory has to exist before the driver can create the database.
	localFile bool
}

var dialects = map[string]dialect{
	DriverSQLite: {
		driver: DriverSQLite,
		schema: `CREATE TABLE IF NOT EXISTS weather (
			timestamp TEXT PRIMARY KEY,
			temperature_2m REAL,
			precipitation REAL,
			weather_code INTEGER,
			wind_speed_10m REAL
		)`,
		insert: `INSERT INTO weather (timestamp, temperature_2m, precipitation, weather_code, wind_speed_10m)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(timestamp) DO NOTHING`,
		listTables: `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`,
		localFile:  true,
	},
	// MySQL cannot key an unbounded TEXT column, the timestamp text is
	// always 25 characters.
	DriverMySQL: {
		driver: DriverMySQL,
		schema: `CREATE TABLE IF NOT EXISTS weather (
			timestamp VARCHAR(32) NOT NULL PRIMARY KEY,
			temperature_2m DOUBLE NULL,
			precipitation DOUBLE NULL,
			weather_code BIGINT NULL,
			wind_speed_10m DOUBLE NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		insert: `INSERT IGNORE INTO weather (timestamp, temperature_2m, precipitation, weather_code, wind_speed_10m)
			VALUES (?, ?, ?, ?, ?)`,
		listTables: `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name`,
	},
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
	return d, nil
}
