// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors of the daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	temperature = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "heater_temperature_fahrenheit",
		Help: "Last temperature reading",
	})

	band = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "heater_band_fahrenheit",
		Help: "Active band limits",
	}, []string{"limit"}) // limit=min|max

	heaterOn = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "heater_relay_on",
		Help: "Whether the relay is switched on (1) or off (0)",
	})

	heaterDisabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "heater_disabled",
		Help: "Whether regulation is disabled (1) or enabled (0)",
	})

	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heater_refresh_total",
		Help: "Refresh cycles by resulting command",
	}, []string{"command"}) // command=on|off|no_action|sensor_error

	relaySwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heater_relay_switches_total",
		Help: "Relay switch operations by target state and outcome",
	}, []string{"target", "outcome"}) // outcome=success|failure

	sensorReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heater_sensor_reads_total",
		Help: "Temperature sensor reads by outcome",
	}, []string{"outcome"})

	sensorReadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "heater_sensor_read_duration_seconds",
		Help:    "Temperature sensor read latency",
		Buckets: prometheus.DefBuckets,
	})

	overridesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heater_overrides_total",
		Help: "User overrides by kind",
	}, []string{"kind"}) // kind=min|max|disable|enable

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heater_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"})
)

// RecordReading publishes the latest reading and band.
func RecordReading(temp, minTemp, maxTemp float64) {
	temperature.Set(temp)
	band.WithLabelValues("min").Set(minTemp)
	band.WithLabelValues("max").Set(maxTemp)
}

// SetHeaterOn publishes the relay state.
func SetHeaterOn(on bool) {
	heaterOn.Set(boolToFloat(on))
}

// SetDisabled publishes the disabled flag.
func SetDisabled(disabled bool) {
	heaterDisabled.Set(boolToFloat(disabled))
}

// IncRefresh counts a refresh by its outcome.
func IncRefresh(command string) {
	refreshTotal.WithLabelValues(command).Inc()
}

// IncRelaySwitch counts a relay operation.
func IncRelaySwitch(target string, err error) {
	relaySwitches.WithLabelValues(target, outcome(err)).Inc()
}

// ObserveSensorRead records a sensor read.
func ObserveSensorRead(seconds float64, err error) {
	sensorReads.WithLabelValues(outcome(err)).Inc()
	sensorReadDuration.Observe(seconds)
}

// IncOverride counts a user override.
func IncOverride(kind string) {
	overridesTotal.WithLabelValues(kind).Inc()
}

// IncConfigReload counts a configuration reload.
func IncConfigReload(err error) {
	configReloads.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
