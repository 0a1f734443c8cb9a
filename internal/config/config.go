package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Location struct {
	Name      string  `yaml:"name" validate:"required"`
	Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
}

// Window is an inclusive range of calendar dates.
type Window struct {
	StartDate string `yaml:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `yaml:"end_date" validate:"required,datetime=2006-01-02"`
}

type WeatherConfig struct {
	HourlyFields []string `yaml:"hourly_fields" validate:"min=1,dive,required"`
}

type APIConfig struct {
	BaseURL    string        `yaml:"base_url" validate:"required,url"`
	CacheDir   string        `yaml:"cache_dir"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0"`
	Backoff    time.Duration `yaml:"backoff" validate:"gt=0"`
}

// StorageConfig selects the store. For sqlite3 the destination is a file
// path, for mysql a DSN.
type StorageConfig struct {
	Driver      string `yaml:"driver" validate:"oneof=sqlite3 mysql"`
	Destination string `yaml:"destination" validate:"required"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
	File   string `yaml:"file"`
}

// RedisConfig configures run summary publication. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Stream   string `yaml:"stream" validate:"required"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
}

type ScheduleConfig struct {
	Every time.Duration `yaml:"every" validate:"gte=0"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

type Config struct {
	Location Location       `yaml:"location"`
	Window   Window         `yaml:"window"`
	Weather  WeatherConfig  `yaml:"weather"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Server   ServerConfig   `yaml:"server"`
}

var (
	instance *Config
	loadErr  error
	once     sync.Once

	validate = validator.New()
)

// Default returns the built-in configuration: Dortmund, January 2025, stored
// in a local SQLite file.
func Default() *Config {
	return &Config{
		Location: Location{Name: "Dortmund", Latitude: 51.5149, Longitude: 7.466},
		Window:   Window{StartDate: "2025-01-01", EndDate: "2025-01-31"},
		Weather: WeatherConfig{
			HourlyFields: []string{"temperature_2m", "precipitation", "weather_code", "wind_speed_10m"},
		},
		API: APIConfig{
			BaseURL:    "https://archive-api.open-meteo.com/v1/archive",
			CacheDir:   ".cache",
			Timeout:    30 * time.Second,
			MaxRetries: 5,
			Backoff:    200 * time.Millisecond,
		},
		Storage: StorageConfig{Driver: "sqlite3", Destination: "data/processed/weather.db"},
		Logging: LoggingConfig{Level: "info", Format: "text", File: "logs/pipeline.log"},
		Redis:   RedisConfig{Stream: "weather_runs"},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// Load reads the configuration once per process. An empty path skips the
// file and uses defaults plus environment overrides.
func Load(configPath string) (*Config, error) {
	once.Do(func() {
		instance, loadErr = load(configPath)
	})

	return instance, loadErr
}

func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

func load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	applyStorageEnv(&c.Storage)
	applyRedisEnv(&c.Redis)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	c.Logging.File = getEnv("LOG_FILE", c.Logging.File)
	c.Metrics.PushgatewayURL = getEnv("PUSHGATEWAY_URL", c.Metrics.PushgatewayURL)
}

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	// Both dates are YYYY-MM-DD at this point, so they order lexically.
	if c.Window.StartDate > c.Window.EndDate {
		return fmt.Errorf("invalid config: window.start_date %s is after window.end_date %s",
			c.Window.StartDate, c.Window.EndDate)
	}
	return nil
}
