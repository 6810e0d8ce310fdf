// SPDX-License-Identifier: MIT

package gpio

import (
	"fmt"
	"sync"

	xglog "github.com/homanchou/heatercontrol/internal/log"
	"github.com/rs/zerolog"
	rpio "github.com/stianeikeland/go-rpio/v4"
)

// RaspberryPi drives a BCM pin through /dev/gpiomem.
type RaspberryPi struct {
	mu     sync.Mutex
	number int
	pin    rpio.Pin
	open   bool
	on     bool
	logger zerolog.Logger
}

// NewRaspberryPi returns a relay on the given BCM pin.
func NewRaspberryPi(number int) *RaspberryPi {
	if number <= 0 {
		number = DefaultPin
	}
	return &RaspberryPi{
		number: number,
		logger: xglog.WithComponent("gpio"),
	}
}

func (p *RaspberryPi) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := rpio.Open(); err != nil {
		return fmt.Errorf("open gpio memory (not a raspberry pi?): %w", err)
	}
	p.pin = rpio.Pin(p.number)
	p.pin.Output()
	p.pin.Low()
	p.open = true
	p.on = false

	p.logger.Info().
		Str("event", "gpio.initialized").
		Int(xglog.FieldPin, p.number).
		Msg("raspberry pi pin initialized")
	return nil
}

func (p *RaspberryPi) On() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrNotInitialized
	}
	p.pin.High()
	p.on = true
	return nil
}

func (p *RaspberryPi) Off() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrNotInitialized
	}
	p.pin.Low()
	p.on = false
	return nil
}

func (p *RaspberryPi) IsOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}

func (p *RaspberryPi) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return nil
	}
	p.pin.Low()
	p.on = false
	p.open = false
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close gpio memory: %w", err)
	}
	p.logger.Info().Str("event", "gpio.closed").Int(xglog.FieldPin, p.number).Msg("raspberry pi pin released")
	return nil
}
