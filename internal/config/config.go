// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment variable prefix.
const envPrefix = "PDCALC_"

// Detector backends.
const (
	DetectorMediaPipe = "mediapipe"
	DetectorMock      = "mock"
)

// Config holds every runtime setting of pdcalc.
type Config struct {
	Env       string `validate:"required,oneof=development production test"`
	Addr      string `validate:"required"`
	StaticDir string
	DBPath    string

	// MeasureURL is the base URL of the measurement service. Empty means
	// the local server.
	MeasureURL string `validate:"omitempty,url"`

	CameraID    int    `validate:"gte=0"`
	FrameWidth  int    `validate:"gte=160"`
	FrameHeight int    `validate:"gte=120"`
	FPS         int    `validate:"gte=1,lte=120"`
	Detector    string `validate:"oneof=mediapipe mock"`

	Threshold         int           `validate:"gte=1"`
	CountdownSteps    int           `validate:"gte=1,lte=10"`
	CountdownInterval time.Duration `validate:"gte=0"`
	SubmitTimeout     time.Duration `validate:"gt=0"`

	MinConfidence float64 `validate:"gte=-1,lte=100"`
	RateLimit     float64 `validate:"gt=0"`
	RateBurst     int     `validate:"gte=1"`

	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string
	Tray     bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Env:               "development",
		Addr:              ":8080",
		StaticDir:         "web",
		CameraID:          0,
		FrameWidth:        640,
		FrameHeight:       480,
		FPS:               30,
		Detector:          DetectorMediaPipe,
		Threshold:         30,
		CountdownSteps:    3,
		CountdownInterval: time.Second,
		SubmitTimeout:     15 * time.Second,
		MinConfidence:     50,
		RateLimit:         5,
		RateBurst:         10,
		LogLevel:          "info",
	}
}

// Load reads an optional .env file and overlays PDCALC_* variables on the
// defaults. Files are tried in order; a missing file is not an error.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	var errs []error

	setString(&cfg.Env, "ENV")
	setString(&cfg.Addr, "ADDR")
	setString(&cfg.StaticDir, "STATIC_DIR")
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.MeasureURL, "MEASURE_URL")
	setString(&cfg.Detector, "DETECTOR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFile, "LOG_FILE")

	errs = append(errs,
		setInt(&cfg.CameraID, "CAMERA_ID"),
		setInt(&cfg.FrameWidth, "FRAME_WIDTH"),
		setInt(&cfg.FrameHeight, "FRAME_HEIGHT"),
		setInt(&cfg.FPS, "FPS"),
		setInt(&cfg.Threshold, "THRESHOLD"),
		setInt(&cfg.CountdownSteps, "COUNTDOWN_STEPS"),
		setInt(&cfg.RateBurst, "RATE_BURST"),
		setDuration(&cfg.CountdownInterval, "COUNTDOWN_INTERVAL"),
		setDuration(&cfg.SubmitTimeout, "SUBMIT_TIMEOUT"),
		setFloat(&cfg.MinConfidence, "MIN_CONFIDENCE"),
		setFloat(&cfg.RateLimit, "RATE_LIMIT"),
		setBool(&cfg.Tray, "TRAY"),
	)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LocalMeasureURL returns MeasureURL, or the local server address when unset.
func (c Config) LocalMeasureURL() string {
	if c.MeasureURL != "" {
		return c.MeasureURL
	}
	host := c.Addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}
