// SPDX-License-Identifier: MIT

// Package sensor reads the room temperature.
package sensor

import (
	"context"
	"errors"
	"sync"
)

// DefaultURL is where the temperature sensor service answers.
const DefaultURL = "http://tsensor:5000/"

// DefaultMockTemperature is what the static reader reports unless told otherwise.
const DefaultMockTemperature = 75.99

var (
	// ErrBadStatus is returned when the sensor answers with a non-2xx status.
	ErrBadStatus = errors.New("sensor returned unexpected status")
	// ErrInvalidReading is returned when the sensor body is not a usable temperature.
	ErrInvalidReading = errors.New("sensor returned invalid reading")
)

// Reader reads a temperature in degrees Fahrenheit.
type Reader interface {
	ReadTemperature(ctx context.Context) (float64, error)
}

// Static reports a settable fixed temperature.
type Static struct {
	mu    sync.RWMutex
	value float64
	err   error
}

// NewStatic returns a static reader reporting value.
func NewStatic(value float64) *Static {
	return &Static{value: value}
}

// Set changes the reported temperature and clears any error.
func (s *Static) Set(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.err = nil
}

// SetError makes subsequent reads fail with err.
func (s *Static) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Static) ReadTemperature(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return 0, s.err
	}
	return s.value, nil
}
