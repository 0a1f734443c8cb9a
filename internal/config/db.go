package config

import (
	"fmt"
	"os"
)

// applyStorageEnv lets the environment pick the driver and destination.
// WEATHER_DB_PATH always wins. For mysql a DSN is otherwise taken from the
// DB_* variables or DATABASE_DSN.
func applyStorageEnv(s *StorageConfig) {
	s.Driver = getEnv("WEATHER_DB_DRIVER", s.Driver)

	if path := os.Getenv("WEATHER_DB_PATH"); path != "" {
		s.Destination = path
		return
	}

	if s.Driver == "mysql" {
		if dsn, ok := mysqlDSN(); ok {
			s.Destination = dsn
		}
	}
}

// mysqlDSN builds a MySQL DSN from the environment. The individual DB_*
// variables are used only when all of them are set.
func mysqlDSN() (string, bool) {
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_NAME")

	if user != "" && password != "" && host != "" && port != "" && database != "" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, password, host, port, database), true
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		return dsn, true
	}

	return "", false
}
