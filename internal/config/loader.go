// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) track(key string) string {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

func (l *Loader) envString(key, defaultVal string) string {
	return ParseString(l.track(key), defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	return ParseBool(l.track(key), defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	return ParseInt(l.track(key), defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	return ParseFloat(l.track(key), defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	return ParseDuration(l.track(key), defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	return ParseStringList(l.track(key), defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(cfg.DataDir, "history.db")
	}
	if cfg.WebUI.ProjectDir != "" {
		cfg.WebUI.ProjectDir = l.resolve(cfg.WebUI.ProjectDir)
	}
	if cfg.WebUI.BundleFile != "" {
		cfg.WebUI.BundleFile = l.resolve(cfg.WebUI.BundleFile)
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// resolve makes p absolute, relative to the config file when there is one.
func (l *Loader) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if l.configPath != "" {
		return filepath.Join(filepath.Dir(l.configPath), p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// loadFile decodes the YAML file over cfg. Keys absent from the file keep
// their current values.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.DataDir = l.envString("DATA_DIR", cfg.DataDir)
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)

	s := &cfg.Server
	s.Listen = l.envString("LISTEN", s.Listen)
	s.MetricsListen = l.envString("METRICS_LISTEN", s.MetricsListen)
	s.ReadTimeout = l.envDuration("SERVER_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = l.envDuration("SERVER_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = l.envDuration("SERVER_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = l.envDuration("SERVER_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.CORSOrigins = l.envList("CORS_ORIGINS", s.CORSOrigins)
	s.RateLimit.Enabled = l.envBool("RATE_LIMIT_ENABLED", s.RateLimit.Enabled)
	s.RateLimit.Requests = l.envInt("RATE_LIMIT_REQUESTS", s.RateLimit.Requests)
	s.RateLimit.Window = l.envDuration("RATE_LIMIT_WINDOW", s.RateLimit.Window)

	sn := &cfg.Sensor
	sn.URL = l.envString("SENSOR_URL", sn.URL)
	sn.Timeout = l.envDuration("SENSOR_TIMEOUT", sn.Timeout)
	sn.Retries = l.envInt("SENSOR_RETRIES", sn.Retries)
	sn.MinInterval = l.envDuration("SENSOR_MIN_INTERVAL", sn.MinInterval)
	sn.Mock = l.envBool("SENSOR_MOCK", sn.Mock)
	sn.MockTemp = l.envFloat("SENSOR_MOCK_TEMP", sn.MockTemp)

	cfg.GPIO.Pin = l.envInt("GPIO_PIN", cfg.GPIO.Pin)
	cfg.GPIO.Mock = l.envBool("GPIO_MOCK", cfg.GPIO.Mock)

	sc := &cfg.Schedule
	sc.Timezone = l.envString("TIMEZONE", sc.Timezone)
	sc.DayStartHour = l.envInt("DAY_START_HOUR", sc.DayStartHour)
	sc.DayEndHour = l.envInt("DAY_END_HOUR", sc.DayEndHour)
	sc.Day.Min = l.envFloat("DAY_MIN_TEMP", sc.Day.Min)
	sc.Day.Max = l.envFloat("DAY_MAX_TEMP", sc.Day.Max)
	sc.Night.Min = l.envFloat("NIGHT_MIN_TEMP", sc.Night.Min)
	sc.Night.Max = l.envFloat("NIGHT_MAX_TEMP", sc.Night.Max)

	cc := &cfg.Controller
	cc.PollInterval = l.envDuration("POLL_INTERVAL", cc.PollInterval)
	cc.OverrideDuration = l.envDuration("OVERRIDE_DURATION", cc.OverrideDuration)
	cc.ReadTimeout = l.envDuration("READ_TIMEOUT", cc.ReadTimeout)

	cfg.History.Enabled = l.envBool("HISTORY_ENABLED", cfg.History.Enabled)
	cfg.History.Path = l.envString("HISTORY_PATH", cfg.History.Path)
	cfg.History.Retention = l.envDuration("HISTORY_RETENTION", cfg.History.Retention)

	cfg.WebUI.Enabled = l.envBool("WEBUI_ENABLED", cfg.WebUI.Enabled)
	cfg.WebUI.ProjectDir = l.envString("WEBUI_DIR", cfg.WebUI.ProjectDir)
	cfg.WebUI.BundleFile = l.envString("WEBUI_BUNDLE", cfg.WebUI.BundleFile)
	cfg.WebUI.CopyOnStart = l.envBool("WEBUI_COPY_ON_START", cfg.WebUI.CopyOnStart)

	t := &cfg.Telemetry
	t.Enabled = l.envBool("TELEMETRY_ENABLED", t.Enabled)
	t.Exporter = l.envString("OTEL_EXPORTER", t.Exporter)
	t.Endpoint = l.envString("OTEL_ENDPOINT", t.Endpoint)
	t.SamplingRate = l.envFloat("OTEL_SAMPLING_RATE", t.SamplingRate)
	t.Environment = l.envString("OTEL_ENVIRONMENT", t.Environment)
}

// LoadFileConfig decodes a YAML config file over the defaults without
// environment overrides or validation.
func LoadFileConfig(path string) (AppConfig, error) {
	cfg := Defaults()
	err := NewLoader(path, "").loadFile(path, &cfg)
	return cfg, err
}
