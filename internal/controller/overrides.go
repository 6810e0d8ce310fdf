// SPDX-License-Identifier: MIT

package controller

import (
	"context"
	"fmt"

	"github.com/homanchou/heatercontrol/internal/heater"
	"github.com/homanchou/heatercontrol/internal/history"
	xglog "github.com/homanchou/heatercontrol/internal/log"
	"github.com/homanchou/heatercontrol/internal/metrics"
)

// SetMaxTemp sets the upper limit for OverrideDuration. A limit at or below
// the current minimum drags the minimum to BandGap below it.
func (c *Controller) SetMaxTemp(ctx context.Context, temp float64) error {
	if err := heater.ValidateTemperature(temp); err != nil {
		return err
	}
	// The minimum may be dragged to temp-BandGap, which must be settable too.
	if err := heater.ValidateTemperature(temp - BandGap); err != nil {
		return err
	}
	return c.override(ctx, "max", func(s *heater.State) {
		s.SetMaxTemp(temp)
		if temp <= s.MinTemp {
			s.SetMinTemp(temp - BandGap)
		}
		s.SetCustomRangeTimeout(c.clock().Add(c.cfg.OverrideDuration))
	})
}

// SetMinTemp sets the lower limit for OverrideDuration. A limit at or above
// the current maximum drags the maximum to BandGap above it.
func (c *Controller) SetMinTemp(ctx context.Context, temp float64) error {
	if err := heater.ValidateTemperature(temp); err != nil {
		return err
	}
	if err := heater.ValidateTemperature(temp + BandGap); err != nil {
		return err
	}
	return c.override(ctx, "min", func(s *heater.State) {
		s.SetMinTemp(temp)
		if temp >= s.MaxTemp {
			s.SetMaxTemp(temp + BandGap)
		}
		s.SetCustomRangeTimeout(c.clock().Add(c.cfg.OverrideDuration))
	})
}

// Disable forces the relay off until Enable.
func (c *Controller) Disable(ctx context.Context) error {
	return c.override(ctx, "disable", func(s *heater.State) { s.Disable() })
}

// Enable resumes regulation.
func (c *Controller) Enable(ctx context.Context) error {
	return c.override(ctx, "enable", func(s *heater.State) { s.Enable() })
}

// ClearOverride drops a custom band and returns to the schedule's defaults.
func (c *Controller) ClearOverride(ctx context.Context) error {
	return c.override(ctx, "clear", func(s *heater.State) {
		band := s.Schedule().Defaults(c.clock())
		s.ClearCustomRange()
		s.SetMinTemp(band.Min)
		s.SetMaxTemp(band.Max)
	})
}

func (c *Controller) override(ctx context.Context, kind string, apply func(*heater.State)) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if err := c.applyOverride(ctx, kind, apply); err != nil {
		return err
	}
	if err := c.refresh(ctx); err != nil {
		return fmt.Errorf("refresh after %s override: %w", kind, err)
	}
	return nil
}

func (c *Controller) applyOverride(ctx context.Context, kind string, apply func(*heater.State)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inited {
		return ErrNotInitialized
	}

	apply(c.state)
	metrics.IncOverride(kind)
	metrics.SetDisabled(c.state.Disabled)
	c.persistLocked(ctx)

	c.logger.Info().
		Str("event", "override.applied").
		Str("kind", kind).
		Float64(xglog.FieldMinTemp, c.state.MinTemp).
		Float64(xglog.FieldMaxTemp, c.state.MaxTemp).
		Bool("disabled", c.state.Disabled).
		Msg("user override applied")
	c.record(ctx, history.Event{
		At:      c.clock(),
		Kind:    history.KindOverride,
		Temp:    c.state.LastTempReading,
		MinTemp: c.state.MinTemp,
		MaxTemp: c.state.MaxTemp,
		Detail:  kind,
	})
	return nil
}
