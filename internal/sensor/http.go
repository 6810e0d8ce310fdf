// SPDX-License-Identifier: MIT

package sensor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/homanchou/heatercontrol/internal/heater"
	xglog "github.com/homanchou/heatercontrol/internal/log"
	"github.com/homanchou/heatercontrol/internal/metrics"
	"github.com/homanchou/heatercontrol/internal/resilience"
	"github.com/rs/zerolog"
)

// HTTPConfig configures the HTTP sensor client.
type HTTPConfig struct {
	URL              string
	Timeout          time.Duration
	Retries          int
	RetryWait        time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

// HTTPReader polls a sensor service whose body is a plain decimal number.
type HTTPReader struct {
	url     string
	client  *resty.Client
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

// NewHTTPReader builds a reader from cfg, filling in defaults.
func NewHTTPReader(cfg HTTPConfig) *HTTPReader {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 200 * time.Millisecond
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(4*cfg.RetryWait).
		SetHeader("Accept", "text/plain").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &HTTPReader{
		url:     cfg.URL,
		client:  client,
		breaker: resilience.NewCircuitBreaker("sensor", cfg.BreakerThreshold, cfg.BreakerReset),
		logger:  xglog.WithComponent("sensor"),
	}
}

// Client exposes the underlying resty client.
func (r *HTTPReader) Client() *resty.Client {
	return r.client
}

// URL returns the sensor endpoint.
func (r *HTTPReader) URL() string {
	return r.url
}

// BreakerState returns the state of the circuit breaker guarding the sensor.
func (r *HTTPReader) BreakerState() resilience.State {
	return r.breaker.State()
}

func (r *HTTPReader) ReadTemperature(ctx context.Context) (float64, error) {
	start := time.Now()
	var temp float64
	err := r.breaker.Execute(func() error {
		v, err := r.fetch(ctx)
		if err != nil {
			return err
		}
		temp = v
		return nil
	})
	metrics.ObserveSensorRead(time.Since(start).Seconds(), err)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("event", "sensor.read_failed").
			Str(xglog.FieldSensorURL, r.url).
			Msg("temperature read failed")
		return 0, err
	}
	return temp, nil
}

func (r *HTTPReader) fetch(ctx context.Context) (float64, error) {
	resp, err := r.client.R().SetContext(ctx).Get(r.url)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", r.url, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode())
	}
	return parseReading(resp.String())
}

func parseReading(body string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(body), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReading, body)
	}
	if err := heater.ValidateTemperature(v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}
	return v, nil
}
