// SPDX-License-Identifier: MIT

package controller

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homanchou/heatercontrol/internal/gpio"
	"github.com/homanchou/heatercontrol/internal/heater"
	"github.com/homanchou/heatercontrol/internal/history"
	"github.com/homanchou/heatercontrol/internal/sensor"
)

var pst = time.FixedZone("PST", -8*60*60)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type fixture struct {
	ctrl   *Controller
	pin    *gpio.Mock
	reader *sensor.Static
	clock  *fakeClock
	store  *history.Store
}

func newFixture(t *testing.T, start time.Time, temp float64) *fixture {
	t.Helper()
	store, err := history.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return newFixtureWithStore(t, start, temp, store)
}

func newFixtureWithStore(t *testing.T, start time.Time, temp float64, store *history.Store) *fixture {
	t.Helper()
	sched := heater.DefaultSchedule()
	sched.Location = pst

	f := &fixture{
		pin:    gpio.NewMock(),
		reader: sensor.NewStatic(temp),
		clock:  &fakeClock{now: start},
		store:  store,
	}
	f.ctrl = New(Config{Schedule: sched, PollInterval: time.Hour}, f.pin, f.reader,
		WithClock(f.clock.Now), WithStore(store))
	require.NoError(t, f.ctrl.Init(context.Background()))
	return f
}

func night() time.Time { return time.Date(2019, 1, 12, 22, 4, 32, 0, pst) }
func day() time.Time   { return time.Date(2019, 1, 12, 11, 4, 32, 0, pst) }

func TestRefresh_SwitchesRelay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, night(), 60)

	require.NoError(t, f.ctrl.Refresh(ctx))
	assert.True(t, f.pin.IsOn())
	st := f.ctrl.Status()
	assert.True(t, st.HeaterOn)
	assert.Equal(t, 60.0, st.Temp)
	assert.Equal(t, "night", st.Period)

	f.reader.Set(71.5)
	require.NoError(t, f.ctrl.Refresh(ctx))
	assert.True(t, f.pin.IsOn(), "in-band reading leaves relay alone")

	f.reader.Set(80)
	require.NoError(t, f.ctrl.Refresh(ctx))
	assert.False(t, f.pin.IsOn())
	assert.Equal(t, 2, f.pin.Switches())
}

func TestRefresh_SensorErrorFailsSafe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, night(), 60)
	require.NoError(t, f.ctrl.Refresh(ctx))
	require.True(t, f.pin.IsOn())

	f.reader.SetError(errors.New("sensor unplugged"))
	err := f.ctrl.Refresh(ctx)
	require.Error(t, err)
	assert.False(t, f.pin.IsOn())
	assert.Contains(t, f.ctrl.Status().LastError, "sensor unplugged")

	events, err := f.store.Recent(ctx, 10)
	require.NoError(t, err)
	kinds := make([]history.Kind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, history.KindSensorError)
	assert.Contains(t, kinds, history.KindSwitch)

	f.reader.Set(60)
	require.NoError(t, f.ctrl.Refresh(ctx))
	assert.Empty(t, f.ctrl.Status().LastError)
}

func TestRefresh_RelayFailure(t *testing.T) {
	f := newFixture(t, night(), 60)
	f.pin.Fail = errors.New("relay stuck")
	assert.Error(t, f.ctrl.Refresh(context.Background()))
}

func TestNotInitialized(t *testing.T) {
	c := New(Config{}, gpio.NewMock(), sensor.NewStatic(70))
	assert.ErrorIs(t, c.Refresh(context.Background()), ErrNotInitialized)
	assert.ErrorIs(t, c.Disable(context.Background()), ErrNotInitialized)
	assert.Equal(t, Status{}, c.Status())
}

func TestSetMaxTemp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, night(), 71)

	require.NoError(t, f.ctrl.SetMaxTemp(ctx, 75))
	st := f.ctrl.Status()
	assert.Equal(t, 75.0, st.MaxTemp)
	assert.Equal(t, heater.DefaultNighttimeMinTemp, st.MinTemp)
	require.NotNil(t, st.CustomRangeExpiresAt)
	assert.True(t, st.CustomRangeExpiresAt.Equal(night().Add(DefaultOverrideDuration)))

	// Pushing max below min drags min along.
	require.NoError(t, f.ctrl.SetMaxTemp(ctx, 65))
	st = f.ctrl.Status()
	assert.Equal(t, 65.0, st.MaxTemp)
	assert.InDelta(t, 64.9, st.MinTemp, 1e-9)
	assert.False(t, f.pin.IsOn(), "71 is above the new max")
}

func TestSetMinTemp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, night(), 71)

	require.NoError(t, f.ctrl.SetMinTemp(ctx, 74))
	st := f.ctrl.Status()
	assert.Equal(t, 74.0, st.MinTemp)
	assert.InDelta(t, 74.1, st.MaxTemp, 1e-9)
	assert.True(t, f.pin.IsOn(), "71 is below the new min")

	assert.ErrorIs(t, f.ctrl.SetMinTemp(ctx, 1000), heater.ErrInvalidTemperature)
}

func TestOverrideExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, night(), 71)

	require.NoError(t, f.ctrl.SetMaxTemp(ctx, 80))
	f.clock.Advance(DefaultOverrideDuration + time.Minute)
	require.NoError(t, f.ctrl.Refresh(ctx))

	st := f.ctrl.Status()
	assert.Nil(t, st.CustomRangeExpiresAt)
	assert.Equal(t, heater.DefaultNighttimeMaxTemp, st.MaxTemp)

	o, ok, err := f.store.LoadOverrides(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, o.ExpiresAt)
}

func TestClearOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(), 62)

	require.NoError(t, f.ctrl.SetMinTemp(ctx, 68))
	require.NoError(t, f.ctrl.ClearOverride(ctx))
	st := f.ctrl.Status()
	assert.Nil(t, st.CustomRangeExpiresAt)
	assert.Equal(t, heater.DefaultDaytimeMinTemp, st.MinTemp)
	assert.Equal(t, heater.DefaultDaytimeMaxTemp, st.MaxTemp)
}

func TestDisableEnable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, night(), 10)

	require.NoError(t, f.ctrl.Disable(ctx))
	assert.True(t, f.ctrl.Status().Disabled)
	assert.False(t, f.pin.IsOn())

	require.NoError(t, f.ctrl.Enable(ctx))
	assert.False(t, f.ctrl.Status().Disabled)
	assert.True(t, f.pin.IsOn())
}

func TestInit_RestoresOverrides(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(ctx, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := newFixtureWithStore(t, night(), 71, store)
	require.NoError(t, f.ctrl.SetMaxTemp(ctx, 78))
	require.NoError(t, f.ctrl.Disable(ctx))

	// A new controller over the same store picks the overrides up.
	g := newFixtureWithStore(t, night().Add(10*time.Minute), 71, store)
	st := g.ctrl.Status()
	assert.True(t, st.Disabled)
	assert.Equal(t, 78.0, st.MaxTemp)
	require.NotNil(t, st.CustomRangeExpiresAt)

	// After expiry only the disabled flag survives a restart.
	h := newFixtureWithStore(t, night().Add(2*time.Hour), 71, store)
	st = h.ctrl.Status()
	assert.True(t, st.Disabled)
	assert.Nil(t, st.CustomRangeExpiresAt)
	assert.Equal(t, heater.DefaultNighttimeMaxTemp, st.MaxTemp)
}

func TestRun_StopsAndSwitchesOff(t *testing.T) {
	f := newFixture(t, night(), 60)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Run(ctx) }()

	require.Eventually(t, f.pin.IsOn, time.Second, 5*time.Millisecond)
	f.ctrl.Reconfigure(Config{PollInterval: 10 * time.Millisecond, Schedule: f.ctrl.cfg.Schedule})

	f.reader.Set(80)
	require.Eventually(t, func() bool { return !f.pin.IsOn() }, time.Second, 5*time.Millisecond)
	f.reader.Set(60)
	require.Eventually(t, f.pin.IsOn, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, f.pin.IsOn())
}

func TestInit_TakesFirstReading(t *testing.T) {
	f := newFixture(t, night(), 60)
	st := f.ctrl.Status()
	assert.Equal(t, 60.0, st.Temp)
	assert.True(t, st.HeaterOn)
	assert.True(t, f.pin.IsOn())
}

func TestInit_SensorErrorDoesNotFail(t *testing.T) {
	sched := heater.DefaultSchedule()
	sched.Location = pst
	reader := sensor.NewStatic(60)
	reader.SetError(errors.New("sensor unplugged"))
	pin := gpio.NewMock()
	clock := &fakeClock{now: night()}

	c := New(Config{Schedule: sched}, pin, reader, WithClock(clock.Now))
	require.NoError(t, c.Init(context.Background()))

	st := c.Status()
	assert.Contains(t, st.LastError, "sensor unplugged")
	assert.False(t, st.HeaterOn)
	assert.Zero(t, st.Temp)
}

// gatedReader blocks reads while a gate is installed.
type gatedReader struct {
	mu      sync.Mutex
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedReader) hold() chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gate = make(chan struct{})
	return g.gate
}

func (g *gatedReader) ReadTemperature(ctx context.Context) (float64, error) {
	g.mu.Lock()
	gate := g.gate
	g.mu.Unlock()
	if gate != nil {
		g.entered <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 60, nil
}

func TestStatus_DoesNotWaitForSlowSensor(t *testing.T) {
	sched := heater.DefaultSchedule()
	sched.Location = pst
	reader := &gatedReader{entered: make(chan struct{}, 1)}
	clock := &fakeClock{now: night()}
	c := New(Config{Schedule: sched, ReadTimeout: 10 * time.Second}, gpio.NewMock(), reader, WithClock(clock.Now))
	require.NoError(t, c.Init(context.Background()))

	release := reader.hold()
	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-reader.entered

	got := make(chan Status, 1)
	go func() { got <- c.Status() }()
	select {
	case st := <-got:
		assert.Equal(t, 60.0, st.Temp)
	case <-time.After(time.Second):
		t.Fatal("Status blocked while a sensor read was in flight")
	}

	close(release)
	require.NoError(t, <-done)
}

func TestSetLimits_DerivedLimitMustBeSettable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, night(), 71)

	assert.ErrorIs(t, f.ctrl.SetMaxTemp(ctx, heater.MinSettableTemp), heater.ErrInvalidTemperature)
	assert.ErrorIs(t, f.ctrl.SetMinTemp(ctx, heater.MaxSettableTemp), heater.ErrInvalidTemperature)

	st := f.ctrl.Status()
	assert.Equal(t, heater.DefaultNighttimeMinTemp, st.MinTemp)
	assert.Equal(t, heater.DefaultNighttimeMaxTemp, st.MaxTemp)
	assert.Nil(t, st.CustomRangeExpiresAt)

	require.NoError(t, f.ctrl.SetMaxTemp(ctx, heater.MinSettableTemp+1))
	assert.GreaterOrEqual(t, f.ctrl.Status().MinTemp, heater.MinSettableTemp)
}

func TestRun_PrunesHistory(t *testing.T) {
	ctx := context.Background()
	store, err := history.Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	old := night().Add(-48 * time.Hour)
	recent := night().Add(-time.Hour)
	require.NoError(t, store.Record(ctx, history.Event{At: old, Kind: history.KindReading, Temp: 70}))
	require.NoError(t, store.Record(ctx, history.Event{At: recent, Kind: history.KindReading, Temp: 71}))

	sched := heater.DefaultSchedule()
	sched.Location = pst
	clock := &fakeClock{now: night()}
	c := New(Config{Schedule: sched, PollInterval: time.Hour, Retention: 24 * time.Hour},
		gpio.NewMock(), sensor.NewStatic(71), WithClock(clock.Now), WithStore(store))
	require.NoError(t, c.Init(ctx))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()

	hasOld := func() bool {
		events, err := store.Recent(ctx, 100)
		if err != nil {
			return true
		}
		for _, e := range events {
			if e.At.Equal(old) {
				return true
			}
		}
		return false
	}
	require.Eventually(t, func() bool { return !hasOld() }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	events, err := store.Recent(ctx, 100)
	require.NoError(t, err)
	var kept bool
	for _, e := range events {
		if e.At.Equal(recent) {
			kept = true
		}
	}
	assert.True(t, kept, "events inside the retention window survive")
}
