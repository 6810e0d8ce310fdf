// SPDX-License-Identifier: MIT

package sensor

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homanchou/heatercontrol/internal/resilience"
)

const testURL = "http://tsensor.test:5000/"

func newMockedReader(t *testing.T, cfg HTTPConfig) *HTTPReader {
	t.Helper()
	cfg.URL = testURL
	r := NewHTTPReader(cfg)
	httpmock.ActivateNonDefault(r.Client().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return r
}

func TestHTTPReader_ReadTemperature(t *testing.T) {
	r := newMockedReader(t, HTTPConfig{})
	httpmock.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(200, "71.34\n"))

	temp, err := r.ReadTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 71.34, temp)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHTTPReader_Errors(t *testing.T) {
	var tests = []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{"bad status", 404, "not here", ErrBadStatus},
		{"garbage body", 200, "warm-ish", ErrInvalidReading},
		{"absurd value", 200, "9000", ErrInvalidReading},
		{"nan", 200, "NaN", ErrInvalidReading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newMockedReader(t, HTTPConfig{BreakerThreshold: 100})
			httpmock.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(tt.status, tt.body))

			_, err := r.ReadTemperature(context.Background())
			assert.True(t, errors.Is(err, tt.expected), "got %v", err)
		})
	}
}

func TestHTTPReader_RetriesServerErrors(t *testing.T) {
	r := newMockedReader(t, HTTPConfig{Retries: 2, RetryWait: time.Millisecond})
	httpmock.RegisterResponder(http.MethodGet, testURL,
		httpmock.ResponderFromMultipleResponses([]*http.Response{
			httpmock.NewStringResponse(503, "busy"),
			httpmock.NewStringResponse(200, "70.5"),
		}))

	temp, err := r.ReadTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 70.5, temp)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestHTTPReader_BreakerOpens(t *testing.T) {
	r := newMockedReader(t, HTTPConfig{BreakerThreshold: 2, BreakerReset: time.Hour})
	httpmock.RegisterResponder(http.MethodGet, testURL, httpmock.NewErrorResponder(errors.New("connection refused")))

	for i := 0; i < 2; i++ {
		_, err := r.ReadTemperature(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, resilience.StateOpen, r.BreakerState())

	calls := httpmock.GetTotalCallCount()
	_, err := r.ReadTemperature(context.Background())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, calls, httpmock.GetTotalCallCount())
}

func TestStatic(t *testing.T) {
	s := NewStatic(DefaultMockTemperature)
	v, err := s.ReadTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultMockTemperature, v)

	s.SetError(errors.New("unplugged"))
	_, err = s.ReadTemperature(context.Background())
	assert.Error(t, err)

	s.Set(68)
	v, err = s.ReadTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 68.0, v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.ReadTemperature(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
