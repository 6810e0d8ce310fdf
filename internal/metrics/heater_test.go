// SPDX-License-Identifier: MIT

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordReading(t *testing.T) {
	RecordReading(71.5, 70.99, 72.1)
	assert.Equal(t, 71.5, testutil.ToFloat64(temperature))
	assert.Equal(t, 70.99, testutil.ToFloat64(band.WithLabelValues("min")))
	assert.Equal(t, 72.1, testutil.ToFloat64(band.WithLabelValues("max")))
}

func TestSetHeaterOn(t *testing.T) {
	SetHeaterOn(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(heaterOn))
	SetHeaterOn(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(heaterOn))
}

func TestIncRelaySwitch_Outcome(t *testing.T) {
	before := testutil.ToFloat64(relaySwitches.WithLabelValues("on", "failure"))
	IncRelaySwitch("on", errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(relaySwitches.WithLabelValues("on", "failure")))
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("sensor", "open")
	assert.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("sensor", "open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("sensor", "closed")))
}
