// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDiff(t *testing.T) {
	a := Defaults()
	b := Defaults()
	b.Controller.PollInterval = 20 * time.Second
	b.Schedule.Night.Max = 73
	b.Server.CORSOrigins = []string{"http://heater.local"}
	b.Version = "ignored"

	want := []Change{
		{Field: "server.corsOrigins", Old: "[*]", New: "[http://heater.local]"},
		{Field: "schedule.night.max", Old: "72.1", New: "73"},
		{Field: "controller.pollInterval", Old: "10s", New: "20s"},
	}
	if diff := cmp.Diff(want, Diff(a, b)); diff != "" {
		t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
	}

	if got := Diff(a, a); len(got) != 0 {
		t.Errorf("Diff(a, a) = %v, want none", got)
	}
}
