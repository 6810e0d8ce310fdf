// SPDX-License-Identifier: MIT

package gpio

import (
	"sync"

	xglog "github.com/homanchou/heatercontrol/internal/log"
	"github.com/rs/zerolog"
)

// Mock is an in-memory relay for development machines and tests.
type Mock struct {
	mu       sync.Mutex
	on       bool
	inited   bool
	switches int
	// Fail, when set, is returned by On and Off.
	Fail   error
	logger zerolog.Logger
}

// NewMock returns a mock relay.
func NewMock() *Mock {
	return &Mock{logger: xglog.WithComponent("gpio-mock")}
}

func (m *Mock) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.on = false
	m.inited = true
	m.logger.Info().Str("event", "gpio.initialized").Msg("mock pin initialized")
	return nil
}

func (m *Mock) On() error {
	return m.set(true)
}

func (m *Mock) Off() error {
	return m.set(false)
}

func (m *Mock) set(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if m.on != on {
		m.switches++
	}
	m.on = on
	m.logger.Debug().Bool(xglog.FieldHeaterOn, on).Msg("mock relay switched")
	return nil
}

func (m *Mock) IsOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on
}

// Switches returns how many times the relay changed state.
func (m *Mock) Switches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.switches
}

// Initialized reports whether Init was called.
func (m *Mock) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inited
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.on = false
	m.inited = false
	m.logger.Info().Str("event", "gpio.closed").Msg("mock pin released")
	return nil
}
