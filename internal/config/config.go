package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// SchemaPath overrides the embedded schema when set.
	SchemaPath string `env:"SCHEMA_PATH"`
	// MainShock overrides the schema's main-shock origin time when non-zero.
	MainShock time.Time `env:"MAINSHOCK_TIME"`

	// Plotting and analysis.
	PlotOutputDir     string  `env:"PLOT_OUTPUT_DIR" envDefault:"plots"`
	PlotWidthCM       float64 `env:"PLOT_WIDTH_CM" envDefault:"20"`
	PlotHeightCM      float64 `env:"PLOT_HEIGHT_CM" envDefault:"15"`
	MagnitudeBinWidth float64 `env:"MAGNITUDE_BIN_WIDTH" envDefault:"0.2"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"aftershock-records"`

	// Mapbox geocoding configuration.
	MapboxToken     string        `env:"MAPBOX_TOKEN"`
	MapboxEnabled   bool
	MapboxTimeout   time.Duration `env:"MAPBOX_TIMEOUT" envDefault:"5s"`
	MapboxCacheSize int           `env:"MAPBOX_CACHE_SIZE" envDefault:"1000"`
}

// mapboxSwitch distinguishes an unset MAPBOX_ENABLED from an explicit false.
type mapboxSwitch struct {
	Enabled string `env:"MAPBOX_ENABLED"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	sw, err := env.ParseAs[mapboxSwitch]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if sw.Enabled != "" {
		enabled, err := strconv.ParseBool(sw.Enabled)
		if err != nil {
			return nil, fmt.Errorf("invalid MAPBOX_ENABLED: %w", err)
		}
		cfg.MapboxEnabled = enabled
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.PlotWidthCM <= 0 || c.PlotHeightCM <= 0 {
		return errors.New("PLOT_WIDTH_CM and PLOT_HEIGHT_CM must be positive")
	}
	if c.MagnitudeBinWidth <= 0 {
		return errors.New("MAGNITUDE_BIN_WIDTH must be positive")
	}
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required")
	}
	if c.MapboxTimeout <= 0 {
		return errors.New("MAPBOX_TIMEOUT must be positive")
	}
	if c.MapboxCacheSize <= 0 {
		return errors.New("MAPBOX_CACHE_SIZE must be positive")
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}
