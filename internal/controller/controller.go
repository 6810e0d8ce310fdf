// SPDX-License-Identifier: MIT

// Package controller ties the thermostat state to the relay and the sensor.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/homanchou/heatercontrol/internal/gpio"
	"github.com/homanchou/heatercontrol/internal/heater"
	"github.com/homanchou/heatercontrol/internal/history"
	xglog "github.com/homanchou/heatercontrol/internal/log"
	"github.com/homanchou/heatercontrol/internal/metrics"
	"github.com/homanchou/heatercontrol/internal/sensor"
	"github.com/homanchou/heatercontrol/internal/telemetry"
	"github.com/rs/zerolog"
)

// Defaults for Config.
const (
	DefaultPollInterval     = 10 * time.Second
	DefaultOverrideDuration = time.Hour
	DefaultReadTimeout      = 5 * time.Second
	// BandGap separates min and max when one limit is pushed across the other.
	BandGap = 0.1
)

// ErrNotInitialized is returned when the controller is used before Init.
var ErrNotInitialized = errors.New("controller not initialized")

// Config tunes the controller.
type Config struct {
	PollInterval     time.Duration
	OverrideDuration time.Duration
	ReadTimeout      time.Duration
	// Retention bounds the history log; zero keeps everything.
	Retention time.Duration
	Schedule  heater.Schedule
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.OverrideDuration <= 0 {
		c.OverrideDuration = DefaultOverrideDuration
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Schedule.Location == nil {
		c.Schedule = heater.DefaultSchedule()
	}
	return c
}

// Store is the persistence the controller needs. history.Store implements it.
type Store interface {
	Record(ctx context.Context, e history.Event) error
	SaveOverrides(ctx context.Context, o history.Overrides) error
	LoadOverrides(ctx context.Context) (history.Overrides, bool, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Status is the externally visible thermostat state.
type Status struct {
	MinTemp              float64    `json:"min_temp"`
	MaxTemp              float64    `json:"max_temp"`
	Temp                 float64    `json:"temp"`
	Disabled             bool       `json:"disabled"`
	HeaterOn             bool       `json:"heater_on"`
	Period               string     `json:"period"`
	CustomRangeExpiresAt *time.Time `json:"custom_range_expires_at,omitempty"`
	LastUpdatedAt        time.Time  `json:"last_updated_at"`
	LastError            string     `json:"last_error,omitempty"`
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithStore enables history and override persistence.
func WithStore(s Store) Option {
	return func(c *Controller) { c.store = s }
}

// Controller serializes refreshes and user overrides. refreshMu orders
// refreshes and overrides; mu guards state and is never held across a
// sensor read, so Status stays responsive while the sensor is slow.
type Controller struct {
	refreshMu sync.Mutex
	mu        sync.Mutex
	cfg     Config
	state   *heater.State
	pin     gpio.Pin
	reader  sensor.Reader
	store   Store
	now     func() time.Time
	inited  bool
	lastErr error
	logger  zerolog.Logger

	reconfigure chan struct{}
}

// New creates a controller. Call Init before Refresh or Run.
func New(cfg Config, pin gpio.Pin, reader sensor.Reader, opts ...Option) *Controller {
	c := &Controller{
		cfg:         cfg.withDefaults(),
		pin:         pin,
		reader:      reader,
		now:         time.Now,
		logger:      xglog.WithComponent("controller"),
		reconfigure: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init prepares the relay, restores persisted overrides and takes a first
// reading. A failed reading is logged and leaves the relay off.
func (c *Controller) Init(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if err := c.setup(ctx); err != nil {
		return err
	}
	if err := c.refresh(ctx); err != nil {
		c.logger.Warn().Err(err).Str("event", "controller.first_refresh_failed").Msg("first reading failed")
	}
	return nil
}

func (c *Controller) setup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.pin.Init(); err != nil {
		return fmt.Errorf("init relay: %w", err)
	}
	metrics.SetHeaterOn(false)

	now := c.clock()
	c.state = heater.NewState(now, 0, c.cfg.Schedule)

	if c.store != nil {
		o, ok, err := c.store.LoadOverrides(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Str("event", "overrides.load_failed").Msg("could not restore overrides")
		} else if ok {
			c.restore(o, now)
		}
	}

	c.inited = true
	metrics.SetDisabled(c.state.Disabled)
	c.logger.Info().
		Str("event", "controller.initialized").
		Float64(xglog.FieldMinTemp, c.state.MinTemp).
		Float64(xglog.FieldMaxTemp, c.state.MaxTemp).
		Bool("disabled", c.state.Disabled).
		Str(xglog.FieldPeriod, string(c.state.Period())).
		Msg("controller initialized")
	return nil
}

// restore applies persisted overrides. An expired band is dropped.
func (c *Controller) restore(o history.Overrides, now time.Time) {
	if o.Disabled {
		c.state.Disable()
	}
	if o.ExpiresAt != nil && now.Before(*o.ExpiresAt) {
		c.state.SetMinTemp(o.MinTemp)
		c.state.SetMaxTemp(o.MaxTemp)
		c.state.SetCustomRangeTimeout(*o.ExpiresAt)
	}
	c.logger.Info().
		Str("event", "overrides.restored").
		Bool("disabled", o.Disabled).
		Bool("band_restored", c.state.CustomRangeExpiresAt != nil).
		Msg("restored persisted overrides")
}

// Close switches the relay off and releases it.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	metrics.SetHeaterOn(false)
	if err := c.pin.Close(); err != nil {
		return fmt.Errorf("close relay: %w", err)
	}
	return nil
}

func (c *Controller) clock() time.Time {
	return c.now().In(c.cfg.Schedule.Location)
}

// Refresh reads the sensor and switches the relay. A failed read switches
// the relay off and is returned after being recorded.
func (c *Controller) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refresh(ctx)
}

// refresh requires refreshMu. The sensor is read without holding mu.
func (c *Controller) refresh(ctx context.Context) error {
	c.mu.Lock()
	inited, timeout := c.inited, c.cfg.ReadTimeout
	c.mu.Unlock()
	if !inited {
		return ErrNotInitialized
	}

	ctx, span := telemetry.StartSpan(ctx, "controller.refresh")
	defer span.End()

	readCtx, cancel := context.WithTimeout(ctx, timeout)
	temp, err := c.reader.ReadTemperature(readCtx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(ctx, temp, err)
}

func (c *Controller) applyLocked(ctx context.Context, temp float64, err error) error {
	now := c.clock()

	if err != nil {
		c.lastErr = err
		metrics.IncRefresh("sensor_error")
		c.logger.Error().
			Err(err).
			Str("event", "refresh.sensor_error").
			Msg("sensor read failed, switching heater off")
		telemetry.RecordError(ctx, err, "sensor")
		c.record(ctx, history.Event{
			At: now, Kind: history.KindSensorError,
			MinTemp: c.state.MinTemp, MaxTemp: c.state.MaxTemp,
			Detail: err.Error(),
		})
		if offErr := c.switchRelay(ctx, now, heater.Off, c.state.LastTempReading); offErr != nil {
			return errors.Join(fmt.Errorf("read temperature: %w", err), offErr)
		}
		return fmt.Errorf("read temperature: %w", err)
	}
	c.lastErr = nil

	prevPeriod := c.state.Period()
	hadOverride := c.state.CustomRangeExpiresAt != nil
	cmd := c.state.Refresh(now, temp)

	if period := c.state.Period(); period != prevPeriod && !hadOverride {
		c.logger.Info().
			Str("event", "schedule.transition").
			Str(xglog.FieldOldState, string(prevPeriod)).
			Str(xglog.FieldNewState, string(period)).
			Msg("period changed, applied default band")
	}
	if hadOverride && c.state.CustomRangeExpiresAt == nil {
		c.logger.Info().Str("event", "override.expired").Msg("override expired, back to schedule")
		c.persistLocked(ctx)
	}

	metrics.RecordReading(temp, c.state.MinTemp, c.state.MaxTemp)
	metrics.IncRefresh(cmd.String())
	telemetry.RecordDecision(ctx, temp, c.state.MinTemp, c.state.MaxTemp, cmd.String(), string(c.state.Period()))
	c.logger.Debug().
		Str("event", "refresh.done").
		Float64(xglog.FieldTemp, temp).
		Float64(xglog.FieldMinTemp, c.state.MinTemp).
		Float64(xglog.FieldMaxTemp, c.state.MaxTemp).
		Stringer(xglog.FieldCommand, cmd).
		Msg("refreshed")

	c.record(ctx, history.Event{
		At: now, Kind: history.KindReading, Temp: temp,
		MinTemp: c.state.MinTemp, MaxTemp: c.state.MaxTemp,
		Command: cmd.String(),
	})

	return c.switchRelay(ctx, now, cmd, temp)
}

func (c *Controller) switchRelay(ctx context.Context, now time.Time, cmd heater.Command, temp float64) error {
	var (
		target bool
		err    error
	)
	switch cmd {
	case heater.On:
		target = true
	case heater.Off:
		target = false
	default:
		return nil
	}

	was := c.pin.IsOn()
	if target {
		err = c.pin.On()
	} else {
		err = c.pin.Off()
	}
	metrics.IncRelaySwitch(cmd.String(), err)
	if err != nil {
		telemetry.RecordError(ctx, err, "relay")
		c.logger.Error().Err(err).Str("event", "relay.switch_failed").Stringer(xglog.FieldCommand, cmd).Msg("relay switch failed")
		return fmt.Errorf("switch relay %s: %w", cmd, err)
	}
	metrics.SetHeaterOn(target)

	if was != target {
		c.logger.Info().
			Str("event", "relay.switched").
			Bool(xglog.FieldHeaterOn, target).
			Float64(xglog.FieldTemp, temp).
			Time("local_time", now).
			Msgf("turn heater %s", cmd)
		c.record(ctx, history.Event{
			At: now, Kind: history.KindSwitch, Temp: temp,
			MinTemp: c.state.MinTemp, MaxTemp: c.state.MaxTemp,
			Command: cmd.String(),
		})
	}
	return nil
}

func (c *Controller) record(ctx context.Context, e history.Event) {
	if c.store == nil {
		return
	}
	if err := c.store.Record(ctx, e); err != nil {
		c.logger.Warn().Err(err).Str("event", "history.record_failed").Msg("could not record history event")
	}
}

func (c *Controller) persistLocked(ctx context.Context) {
	if c.store == nil {
		return
	}
	o := history.Overrides{
		MinTemp:  c.state.MinTemp,
		MaxTemp:  c.state.MaxTemp,
		Disabled: c.state.Disabled,
	}
	if c.state.CustomRangeExpiresAt != nil {
		t := *c.state.CustomRangeExpiresAt
		o.ExpiresAt = &t
	}
	if err := c.store.SaveOverrides(ctx, o); err != nil {
		c.logger.Warn().Err(err).Str("event", "overrides.save_failed").Msg("could not persist overrides")
	}
}

// Status returns the current state without refreshing.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	if c.state == nil {
		return Status{}
	}
	snap := c.state.Snapshot()
	st := Status{
		MinTemp:              snap.MinTemp,
		MaxTemp:              snap.MaxTemp,
		Temp:                 snap.LastTempReading,
		Disabled:             snap.Disabled,
		HeaterOn:             c.pin.IsOn(),
		Period:               string(c.state.Period()),
		CustomRangeExpiresAt: snap.CustomRangeExpiresAt,
		LastUpdatedAt:        snap.LastUpdatedAt,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}
