// SPDX-License-Identifier: MIT

package config

import (
	"time"

	"github.com/homanchou/heatercontrol/internal/heater"
)

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	DataDir  string `yaml:"dataDir"`
	LogLevel string `yaml:"logLevel"`

	Server     ServerSection    `yaml:"server"`
	Sensor     SensorConfig     `yaml:"sensor"`
	GPIO       GPIOConfig       `yaml:"gpio"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Controller ControllerConfig `yaml:"controller"`
	History    HistoryConfig    `yaml:"history"`
	WebUI      WebUIConfig      `yaml:"webui"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServerSection configures the HTTP listeners.
type ServerSection struct {
	Listen          string          `yaml:"listen"`
	MetricsListen   string          `yaml:"metricsListen"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	IdleTimeout     time.Duration   `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	CORSOrigins     []string        `yaml:"corsOrigins"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig bounds mutating API calls per client IP.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// SensorConfig selects and tunes the temperature source.
type SensorConfig struct {
	URL              string        `yaml:"url"`
	Timeout          time.Duration `yaml:"timeout"`
	Retries          int           `yaml:"retries"`
	RetryWait        time.Duration `yaml:"retryWait"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
	// MinInterval shares a reading between refreshes closer together than this.
	MinInterval time.Duration `yaml:"minInterval"`
	Mock        bool          `yaml:"mock"`
	MockTemp    float64       `yaml:"mockTemp"`
}

// GPIOConfig selects the relay pin.
type GPIOConfig struct {
	Pin  int  `yaml:"pin"`
	Mock bool `yaml:"mock"`
}

// ScheduleConfig is the day/night schedule.
type ScheduleConfig struct {
	Timezone     string      `yaml:"timezone"`
	DayStartHour int         `yaml:"dayStartHour"`
	DayEndHour   int         `yaml:"dayEndHour"`
	Day          heater.Band `yaml:"day"`
	Night        heater.Band `yaml:"night"`
}

// ControllerConfig tunes the refresh loop and overrides.
type ControllerConfig struct {
	PollInterval     time.Duration `yaml:"pollInterval"`
	OverrideDuration time.Duration `yaml:"overrideDuration"`
	ReadTimeout      time.Duration `yaml:"readTimeout"`
}

// HistoryConfig configures the event store.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path defaults to <dataDir>/history.db.
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// WebUIConfig locates the web UI project.
type WebUIConfig struct {
	Enabled bool `yaml:"enabled"`
	// ProjectDir holds index.html, src/ and the dist/ output.
	ProjectDir string `yaml:"projectDir"`
	// BundleFile optionally overrides the built-in bundle description.
	BundleFile string `yaml:"bundleFile"`
	// CopyOnStart runs the copy plugin before serving.
	CopyOnStart bool `yaml:"copyOnStart"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}
