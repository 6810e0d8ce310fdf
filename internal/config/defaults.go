// SPDX-License-Identifier: MIT

package config

import (
	"time"

	"github.com/homanchou/heatercontrol/internal/controller"
	"github.com/homanchou/heatercontrol/internal/gpio"
	"github.com/homanchou/heatercontrol/internal/heater"
	"github.com/homanchou/heatercontrol/internal/sensor"
)

// Defaults returns the configuration used when nothing is overridden.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:  "./data",
		LogLevel: "info",
		Server: ServerSection{
			Listen:          ":5000",
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			CORSOrigins:     []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:  true,
				Requests: 30,
				Window:   time.Minute,
			},
		},
		Sensor: SensorConfig{
			URL:              sensor.DefaultURL,
			Timeout:          3 * time.Second,
			Retries:          2,
			RetryWait:        200 * time.Millisecond,
			BreakerThreshold: 3,
			BreakerReset:     30 * time.Second,
			MinInterval:      2 * time.Second,
			MockTemp:         sensor.DefaultMockTemperature,
		},
		GPIO: GPIOConfig{Pin: gpio.DefaultPin},
		Schedule: ScheduleConfig{
			Timezone:     heater.DefaultTimezone,
			DayStartHour: heater.DefaultDayStartHour,
			DayEndHour:   heater.DefaultDayEndHour,
			Day:          heater.Band{Min: heater.DefaultDaytimeMinTemp, Max: heater.DefaultDaytimeMaxTemp},
			Night:        heater.Band{Min: heater.DefaultNighttimeMinTemp, Max: heater.DefaultNighttimeMaxTemp},
		},
		Controller: ControllerConfig{
			PollInterval:     controller.DefaultPollInterval,
			OverrideDuration: controller.DefaultOverrideDuration,
			ReadTimeout:      controller.DefaultReadTimeout,
		},
		History: HistoryConfig{
			Enabled:   true,
			Retention: 30 * 24 * time.Hour,
		},
		WebUI: WebUIConfig{
			Enabled:    true,
			ProjectDir: "./web",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}

// HeaterSchedule converts the schedule section.
func (c AppConfig) HeaterSchedule() heater.Schedule {
	return heater.Schedule{
		Location:     heater.LoadLocation(c.Schedule.Timezone),
		DayStartHour: c.Schedule.DayStartHour,
		DayEndHour:   c.Schedule.DayEndHour,
		Day:          c.Schedule.Day,
		Night:        c.Schedule.Night,
	}
}

// ControllerSettings converts the controller, schedule and history sections.
func (c AppConfig) ControllerSettings() controller.Config {
	cfg := controller.Config{
		PollInterval:     c.Controller.PollInterval,
		OverrideDuration: c.Controller.OverrideDuration,
		ReadTimeout:      c.Controller.ReadTimeout,
		Schedule:         c.HeaterSchedule(),
	}
	if c.History.Enabled {
		cfg.Retention = c.History.Retention
	}
	return cfg
}

// SensorHTTP converts the sensor section for the HTTP reader.
func (c AppConfig) SensorHTTP() sensor.HTTPConfig {
	return sensor.HTTPConfig{
		URL:              c.Sensor.URL,
		Timeout:          c.Sensor.Timeout,
		Retries:          c.Sensor.Retries,
		RetryWait:        c.Sensor.RetryWait,
		BreakerThreshold: c.Sensor.BreakerThreshold,
		BreakerReset:     c.Sensor.BreakerReset,
	}
}
