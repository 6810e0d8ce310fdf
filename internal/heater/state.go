// SPDX-License-Identifier: MIT

// Package heater holds the thermostat decision logic. It is pure: time and
// temperature are inputs, and callers serialize access.
package heater

import "time"

// State is the thermostat's memory between refreshes.
type State struct {
	MinTemp              float64    `json:"min_temp"`
	MaxTemp              float64    `json:"max_temp"`
	Disabled             bool       `json:"disabled"`
	CustomRangeExpiresAt *time.Time `json:"custom_range_expires_at,omitempty"`
	LastTempReading      float64    `json:"last_temp_reading"`
	LastUpdatedAt        time.Time  `json:"last_updated_at"`

	schedule Schedule
}

// NewState creates a state following the schedule's band for now.
func NewState(now time.Time, temp float64, schedule Schedule) *State {
	band := schedule.Defaults(now)
	return &State{
		MinTemp:         band.Min,
		MaxTemp:         band.Max,
		LastTempReading: temp,
		LastUpdatedAt:   now,
		schedule:        schedule,
	}
}

// Schedule returns the schedule the state follows.
func (s *State) Schedule() Schedule {
	return s.schedule
}

// SetSchedule swaps the schedule. The current band is left alone; the next
// period transition or override expiry applies the new defaults.
func (s *State) SetSchedule(schedule Schedule) {
	s.schedule = schedule
}

// Refresh records a new reading and returns the relay command.
//
// An active override suppresses period transitions until it expires; on
// expiry the band resets to the defaults of the current period.
func (s *State) Refresh(now time.Time, temp float64) Command {
	if s.CustomRangeExpiresAt != nil {
		if now.After(*s.CustomRangeExpiresAt) {
			s.CustomRangeExpiresAt = nil
			s.applyBand(s.schedule.Defaults(now))
		}
	} else if s.schedule.IsDayTime(s.LastUpdatedAt) != s.schedule.IsDayTime(now) {
		s.applyBand(s.schedule.Defaults(now))
	}

	s.LastUpdatedAt = now
	s.LastTempReading = temp

	if s.Disabled {
		return Off
	}
	if temp > s.MaxTemp {
		return Off
	}
	if temp < s.MinTemp {
		return On
	}
	return NoAction
}

func (s *State) applyBand(b Band) {
	s.MinTemp = b.Min
	s.MaxTemp = b.Max
}

// Period returns the period of the last refresh.
func (s *State) Period() Period {
	return s.schedule.Period(s.LastUpdatedAt)
}

// SetMaxTemp sets the upper limit.
func (s *State) SetMaxTemp(temp float64) {
	s.MaxTemp = temp
}

// SetMinTemp sets the lower limit.
func (s *State) SetMinTemp(temp float64) {
	s.MinTemp = temp
}

// SetCustomRangeTimeout marks the current band as a user override until t.
func (s *State) SetCustomRangeTimeout(t time.Time) {
	s.CustomRangeExpiresAt = &t
}

// ClearCustomRange drops the override without touching the band.
func (s *State) ClearCustomRange() {
	s.CustomRangeExpiresAt = nil
}

// Disable forces the relay off on every refresh.
func (s *State) Disable() {
	s.Disabled = true
}

// Enable resumes temperature regulation.
func (s *State) Enable() {
	s.Disabled = false
}

// Snapshot returns a copy that shares no pointers with s.
func (s *State) Snapshot() State {
	out := *s
	if s.CustomRangeExpiresAt != nil {
		t := *s.CustomRangeExpiresAt
		out.CustomRangeExpiresAt = &t
	}
	return out
}
