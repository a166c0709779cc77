package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.Threshold)
	assert.Equal(t, 3, cfg.CountdownSteps)
	assert.Equal(t, 50.0, cfg.MinConfidence)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PDCALC_ADDR", ":9090")
	t.Setenv("PDCALC_THRESHOLD", "12")
	t.Setenv("PDCALC_COUNTDOWN_INTERVAL", "250ms")
	t.Setenv("PDCALC_MIN_CONFIDENCE", "70.5")
	t.Setenv("PDCALC_TRAY", "true")
	t.Setenv("PDCALC_DETECTOR", "mock")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 12, cfg.Threshold)
	assert.Equal(t, 250*time.Millisecond, cfg.CountdownInterval)
	assert.Equal(t, 70.5, cfg.MinConfidence)
	assert.True(t, cfg.Tray)
	assert.Equal(t, DetectorMock, cfg.Detector)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PDCALC_FPS=15\nPDCALC_DB_PATH=/tmp/pd.db\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("PDCALC_FPS")
		os.Unsetenv("PDCALC_DB_PATH")
	})

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, 15, cfg.FPS)
	assert.Equal(t, "/tmp/pd.db", cfg.DBPath)
}

func TestLoad_BadNumber(t *testing.T) {
	t.Setenv("PDCALC_FPS", "fast")
	t.Setenv("PDCALC_RATE_LIMIT", "lots")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PDCALC_FPS")
	assert.Contains(t, err.Error(), "PDCALC_RATE_LIMIT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero threshold", mutate: func(c *Config) { c.Threshold = 0 }, wantErr: "Threshold"},
		{name: "fps too high", mutate: func(c *Config) { c.FPS = 500 }, wantErr: "FPS"},
		{name: "unknown detector", mutate: func(c *Config) { c.Detector = "dlib" }, wantErr: "Detector"},
		{name: "bad measure url", mutate: func(c *Config) { c.MeasureURL = "not a url" }, wantErr: "MeasureURL"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "verbose" }, wantErr: "LogLevel"},
		{name: "confidence check disabled", mutate: func(c *Config) { c.MinConfidence = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocalMeasureURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:8080", cfg.LocalMeasureURL())

	cfg.Addr = "127.0.0.1:9000"
	assert.Equal(t, "http://127.0.0.1:9000", cfg.LocalMeasureURL())

	cfg.MeasureURL = "https://pd.example.com"
	assert.Equal(t, "https://pd.example.com", cfg.LocalMeasureURL())
}
