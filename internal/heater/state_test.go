// SPDX-License-Identifier: MIT

package heater

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func testSchedule() Schedule {
	s := DefaultSchedule()
	// Pin the zone so tests do not depend on the host tz database.
	s.Location = time.FixedZone("PST", -8*60*60)
	return s
}

func TestNewState_PicksBandForPeriod(t *testing.T) {
	sched := testSchedule()
	day := mustParse(t, "2019-01-12T11:04:32-08:00")
	night := mustParse(t, "2019-01-12T22:04:32-08:00")

	hs := NewState(day, 72, sched)
	assert.Equal(t, DefaultDaytimeMinTemp, hs.MinTemp)
	assert.Equal(t, DefaultDaytimeMaxTemp, hs.MaxTemp)
	assert.Equal(t, PeriodDay, hs.Period())

	hs = NewState(night, 72, sched)
	assert.Equal(t, DefaultNighttimeMinTemp, hs.MinTemp)
	assert.Equal(t, DefaultNighttimeMaxTemp, hs.MaxTemp)
	assert.Equal(t, PeriodNight, hs.Period())
}

func TestRefresh_PeriodTransitions(t *testing.T) {
	sched := testSchedule()
	day := mustParse(t, "2019-01-12T11:04:32-08:00")
	night := mustParse(t, "2019-01-12T22:04:32-08:00")

	t.Run("day to day keeps band", func(t *testing.T) {
		hs := NewState(day, 72, sched)
		hs.SetMinTemp(50)
		hs.SetMaxTemp(55)
		hs.Refresh(day.Add(time.Minute), 72)
		assert.Equal(t, 50.0, hs.MinTemp)
		assert.Equal(t, 55.0, hs.MaxTemp)
	})

	t.Run("night to day resets to day defaults", func(t *testing.T) {
		hs := NewState(night, 72, sched)
		hs.Refresh(day.Add(24*time.Hour), 72)
		assert.Equal(t, DefaultDaytimeMinTemp, hs.MinTemp)
		assert.Equal(t, DefaultDaytimeMaxTemp, hs.MaxTemp)
	})

	t.Run("day to night resets to night defaults", func(t *testing.T) {
		hs := NewState(day, 72, sched)
		hs.Refresh(night, 72)
		assert.Equal(t, DefaultNighttimeMinTemp, hs.MinTemp)
		assert.Equal(t, DefaultNighttimeMaxTemp, hs.MaxTemp)
	})
}

func TestRefresh_CustomRange(t *testing.T) {
	sched := testSchedule()
	day := mustParse(t, "2019-01-12T11:04:32-08:00")
	night := mustParse(t, "2019-01-12T22:04:32-08:00")
	nextDay := day.Add(24 * time.Hour)

	t.Run("keeps override across transition until timer ends", func(t *testing.T) {
		hs := NewState(night, 72, sched)
		hs.SetMinTemp(89.9)
		hs.SetMaxTemp(90)
		hs.SetCustomRangeTimeout(nextDay.Add(time.Minute))

		hs.Refresh(nextDay, 72)
		assert.Equal(t, 89.9, hs.MinTemp)
		assert.Equal(t, 90.0, hs.MaxTemp)
		require.NotNil(t, hs.CustomRangeExpiresAt)
	})

	t.Run("goes back to day if timer ends in the day", func(t *testing.T) {
		hs := NewState(day, 72, sched)
		hs.SetMaxTemp(90)
		hs.SetCustomRangeTimeout(day.Add(-time.Minute))

		hs.Refresh(day, 72)
		assert.Equal(t, DefaultDaytimeMinTemp, hs.MinTemp)
		assert.Equal(t, DefaultDaytimeMaxTemp, hs.MaxTemp)
		assert.Nil(t, hs.CustomRangeExpiresAt)
	})

	t.Run("goes back to night if timer ends in the night", func(t *testing.T) {
		hs := NewState(night, 72, sched)
		hs.SetMaxTemp(90)
		hs.SetCustomRangeTimeout(night.Add(-time.Minute))

		hs.Refresh(night, 72)
		assert.Equal(t, DefaultNighttimeMinTemp, hs.MinTemp)
		assert.Equal(t, DefaultNighttimeMaxTemp, hs.MaxTemp)
		assert.Nil(t, hs.CustomRangeExpiresAt)
	})
}

func TestRefresh_Commands(t *testing.T) {
	sched := testSchedule()
	night := mustParse(t, "2019-01-12T22:04:32-08:00")

	cases := []struct {
		name string
		temp float64
		want Command
	}{
		{"too hot", 100, Off},
		{"too cold", 30, On},
		{"at min", DefaultNighttimeMinTemp, NoAction},
		{"at max", DefaultNighttimeMaxTemp, NoAction},
		{"in range", 71.5, NoAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hs := NewState(night, tc.temp, sched)
			assert.Equal(t, tc.want, hs.Refresh(night, tc.temp))
			assert.Equal(t, tc.temp, hs.LastTempReading)
			assert.Equal(t, night, hs.LastUpdatedAt)
		})
	}
}

func TestDisableEnable(t *testing.T) {
	sched := testSchedule()
	night := mustParse(t, "2019-01-12T22:04:32-08:00")

	hs := NewState(night, 10, sched)
	hs.Disable()
	assert.True(t, hs.Disabled)
	assert.Equal(t, Off, hs.Refresh(night, 10))

	hs.Enable()
	assert.False(t, hs.Disabled)
	assert.Equal(t, On, hs.Refresh(night, 10))
}

func TestSnapshot_DoesNotAlias(t *testing.T) {
	sched := testSchedule()
	night := mustParse(t, "2019-01-12T22:04:32-08:00")

	hs := NewState(night, 70, sched)
	hs.SetCustomRangeTimeout(night.Add(time.Hour))
	snap := hs.Snapshot()

	*hs.CustomRangeExpiresAt = night.Add(2 * time.Hour)
	assert.Equal(t, night.Add(time.Hour), *snap.CustomRangeExpiresAt)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "off", Off.String())
	assert.Equal(t, "on", On.String())
	assert.Equal(t, "no_action", NoAction.String())
	assert.Equal(t, "unknown", Command(42).String())
}
