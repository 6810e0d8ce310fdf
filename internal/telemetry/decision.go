// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/homanchou/heatercontrol"

// StartSpan starts a span on the package tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordDecision annotates the current span with a thermostat decision and
// counts it. The meter is looked up at call time so a provider installed
// after startup is honored.
func RecordDecision(ctx context.Context, temp, minTemp, maxTemp float64, command, period string) {
	attrs := DecisionAttributes(temp, minTemp, maxTemp, command, period)
	trace.SpanFromContext(ctx).SetAttributes(attrs...)

	meter := otel.GetMeterProvider().Meter(instrumentationName)
	decisions, err := meter.Int64Counter("heater_decisions_total",
		metric.WithDescription("Thermostat decisions by command and period"))
	if err != nil {
		return
	}
	decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(HeaterCommandKey, command),
		attribute.String(HeaterPeriodKey, period),
	))
}

// RecordError marks the current span as failed.
func RecordError(ctx context.Context, err error, errorType string) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetAttributes(ErrorAttributes(err, errorType)...)
	span.SetStatus(codes.Error, errorType)
}
