// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/homanchou/heatercontrol/internal/heater"
	"github.com/homanchou/heatercontrol/internal/validate"
)

var telemetryExporters = []string{"grpc", "http"}

// Validate checks cfg as a whole and reports every problem it finds.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("logLevel", strings.ToLower(cfg.LogLevel), validate.LogLevels)
	v.Directory("dataDir", cfg.DataDir, false)

	v.ListenAddr("server.listen", cfg.Server.Listen)
	if cfg.Server.MetricsListen != "" {
		v.ListenAddr("server.metricsListen", cfg.Server.MetricsListen)
		if cfg.Server.MetricsListen == cfg.Server.Listen {
			v.AddError("server.metricsListen", "must differ from server.listen", cfg.Server.MetricsListen)
		}
	}
	if cfg.Server.RateLimit.Enabled {
		v.Positive("server.rateLimit.requests", cfg.Server.RateLimit.Requests)
		v.MinDuration("server.rateLimit.window", cfg.Server.RateLimit.Window, time.Second)
	}

	if cfg.Sensor.Mock {
		v.FloatRange("sensor.mockTemp", cfg.Sensor.MockTemp, heater.MinSettableTemp, heater.MaxSettableTemp)
	} else {
		v.URL("sensor.url", cfg.Sensor.URL, []string{"http", "https"})
		v.Range("sensor.retries", cfg.Sensor.Retries, 0, 10)
		v.MinDuration("sensor.timeout", cfg.Sensor.Timeout, 100*time.Millisecond)
	}

	if !cfg.GPIO.Mock {
		v.Range("gpio.pin", cfg.GPIO.Pin, 0, 27)
	}

	v.Timezone("schedule.timezone", cfg.Schedule.Timezone)
	v.Custom("schedule", cfg.HeaterSchedule(), func(s any) error {
		return s.(heater.Schedule).Validate()
	})

	v.MinDuration("controller.pollInterval", cfg.Controller.PollInterval, time.Second)
	v.MinDuration("controller.overrideDuration", cfg.Controller.OverrideDuration, time.Minute)
	v.MinDuration("controller.readTimeout", cfg.Controller.ReadTimeout, 100*time.Millisecond)

	if cfg.History.Enabled {
		v.NotEmpty("history.path", cfg.History.Path)
		if cfg.History.Retention < 0 {
			v.AddError("history.retention", "cannot be negative", cfg.History.Retention)
		}
	}

	if cfg.WebUI.Enabled {
		v.NotEmpty("webui.projectDir", cfg.WebUI.ProjectDir)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, telemetryExporters)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if err := v.Err(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
