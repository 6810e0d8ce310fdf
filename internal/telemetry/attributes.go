// SPDX-License-Identifier: MIT
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans and metrics.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	HeaterTempKey    = "heater.temp"
	HeaterMinTempKey = "heater.min_temp"
	HeaterMaxTempKey = "heater.max_temp"
	HeaterCommandKey = "heater.command"
	HeaterPeriodKey  = "heater.period"
	HeaterOnKey      = "heater.on"

	OverrideKindKey = "override.kind"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// DecisionAttributes describes one thermostat decision.
func DecisionAttributes(temp, minTemp, maxTemp float64, command, period string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Float64(HeaterTempKey, temp),
		attribute.Float64(HeaterMinTempKey, minTemp),
		attribute.Float64(HeaterMaxTempKey, maxTemp),
		attribute.String(HeaterCommandKey, command),
		attribute.String(HeaterPeriodKey, period),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(err error, errorType string) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
