// SPDX-License-Identifier: MIT

package heater

import (
	"errors"
	"fmt"
	"math"
)

// Settable temperature range, degrees Fahrenheit.
const (
	MinSettableTemp = -40.0
	MaxSettableTemp = 150.0
)

// ErrInvalidTemperature is returned for temperatures that cannot be used as band limits.
var ErrInvalidTemperature = errors.New("invalid temperature")

// ValidateTemperature rejects NaN, infinities and values outside the settable range.
func ValidateTemperature(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTemperature, v)
	}
	if v < MinSettableTemp || v > MaxSettableTemp {
		return fmt.Errorf("%w: %.2f outside [%.0f, %.0f]", ErrInvalidTemperature, v, MinSettableTemp, MaxSettableTemp)
	}
	return nil
}
