// SPDX-License-Identifier: MIT

package heater

import (
	"fmt"
	"time"
)

// Default bands and day window, in degrees Fahrenheit and local hours.
const (
	DefaultDaytimeMinTemp   = 60.0
	DefaultDaytimeMaxTemp   = 65.0
	DefaultNighttimeMinTemp = 70.99
	DefaultNighttimeMaxTemp = 72.1

	DefaultDayStartHour = 10
	DefaultDayEndHour   = 18

	DefaultTimezone = "America/Los_Angeles"
)

// Period is the part of the day a schedule is in.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodNight Period = "night"
)

// Band is the temperature interval the heater keeps.
type Band struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Validate reports whether the band is usable.
func (b Band) Validate() error {
	if err := ValidateTemperature(b.Min); err != nil {
		return fmt.Errorf("min: %w", err)
	}
	if err := ValidateTemperature(b.Max); err != nil {
		return fmt.Errorf("max: %w", err)
	}
	if b.Min >= b.Max {
		return fmt.Errorf("min (%.2f) must be below max (%.2f)", b.Min, b.Max)
	}
	return nil
}

// Schedule maps wall-clock time to the default band.
// Daytime is [DayStartHour, DayEndHour) in Location.
type Schedule struct {
	Location     *time.Location
	DayStartHour int
	DayEndHour   int
	Day          Band
	Night        Band
}

// DefaultSchedule returns the schedule the heater ships with.
func DefaultSchedule() Schedule {
	return Schedule{
		Location:     LoadLocation(DefaultTimezone),
		DayStartHour: DefaultDayStartHour,
		DayEndHour:   DefaultDayEndHour,
		Day:          Band{Min: DefaultDaytimeMinTemp, Max: DefaultDaytimeMaxTemp},
		Night:        Band{Min: DefaultNighttimeMinTemp, Max: DefaultNighttimeMaxTemp},
	}
}

// LoadLocation resolves an IANA zone name. Unknown names fall back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks hours and bands.
func (s Schedule) Validate() error {
	if s.DayStartHour < 0 || s.DayStartHour > 23 {
		return fmt.Errorf("day start hour %d out of range [0,23]", s.DayStartHour)
	}
	if s.DayEndHour < 1 || s.DayEndHour > 24 {
		return fmt.Errorf("day end hour %d out of range [1,24]", s.DayEndHour)
	}
	if s.DayStartHour >= s.DayEndHour {
		return fmt.Errorf("day start hour %d must be before end hour %d", s.DayStartHour, s.DayEndHour)
	}
	if err := s.Day.Validate(); err != nil {
		return fmt.Errorf("day band: %w", err)
	}
	if err := s.Night.Validate(); err != nil {
		return fmt.Errorf("night band: %w", err)
	}
	return nil
}

func (s Schedule) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// IsDayTime reports whether t falls into the day window.
func (s Schedule) IsDayTime(t time.Time) bool {
	h := t.In(s.location()).Hour()
	return h >= s.DayStartHour && h < s.DayEndHour
}

// Period returns the period t falls into.
func (s Schedule) Period(t time.Time) Period {
	if s.IsDayTime(t) {
		return PeriodDay
	}
	return PeriodNight
}

// Defaults returns the default band for t.
func (s Schedule) Defaults(t time.Time) Band {
	if s.IsDayTime(t) {
		return s.Day
	}
	return s.Night
}

// Now returns the current time in the schedule's location.
func (s Schedule) Now() time.Time {
	return time.Now().In(s.location())
}
