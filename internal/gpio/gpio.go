// SPDX-License-Identifier: MIT

// Package gpio switches the heater relay.
package gpio

import "errors"

// DefaultPin is the BCM number of the relay pin.
const DefaultPin = 18

// ErrNotInitialized is returned when a pin is switched before Init.
var ErrNotInitialized = errors.New("gpio pin not initialized")

// Pin controls the relay that powers the heater.
type Pin interface {
	// Init prepares the pin as an output and switches the relay off.
	Init() error
	On() error
	Off() error
	IsOn() bool
	// Close switches the relay off and releases the pin.
	Close() error
}
