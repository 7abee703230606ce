package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.SchemaPath)
	assert.True(t, cfg.MainShock.IsZero())
	assert.Equal(t, "plots", cfg.PlotOutputDir)
	assert.Equal(t, 20.0, cfg.PlotWidthCM)
	assert.Equal(t, 15.0, cfg.PlotHeightCM)
	assert.Equal(t, 0.2, cfg.MagnitudeBinWidth)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "aftershock-records", cfg.KafkaTopic)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("SCHEMA_PATH", "/etc/aftershock/schema.json")
	t.Setenv("MAINSHOCK_TIME", "1979-12-26T03:57:20Z")
	t.Setenv("PLOT_OUTPUT_DIR", "/tmp/plots")
	t.Setenv("PLOT_WIDTH_CM", "30")
	t.Setenv("PLOT_HEIGHT_CM", "12.5")
	t.Setenv("MAGNITUDE_BIN_WIDTH", "0.1")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "carlisle-1979")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/etc/aftershock/schema.json", cfg.SchemaPath)
	assert.Equal(t, time.Date(1979, 12, 26, 3, 57, 20, 0, time.UTC), cfg.MainShock.UTC())
	assert.Equal(t, "/tmp/plots", cfg.PlotOutputDir)
	assert.Equal(t, 30.0, cfg.PlotWidthCM)
	assert.Equal(t, 12.5, cfg.PlotHeightCM)
	assert.Equal(t, 0.1, cfg.MagnitudeBinWidth)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "carlisle-1979", cfg.KafkaTopic)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-duration")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidMainShock(t *testing.T) {
	t.Setenv("MAINSHOCK_TIME", "boxing day")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_NonPositiveValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PLOT_WIDTH_CM", "0"},
		{"PLOT_HEIGHT_CM", "-3"},
		{"MAGNITUDE_BIN_WIDTH", "0"},
		{"MAPBOX_TIMEOUT", "-5s"},
		{"MAPBOX_CACHE_SIZE", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_InvalidMapboxEnabled(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "sometimes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_ENABLED")
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}
