// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Thermostat fields
	FieldTemp     = "temp"
	FieldMinTemp  = "min_temp"
	FieldMaxTemp  = "max_temp"
	FieldCommand  = "command"
	FieldPeriod   = "period"
	FieldHeaterOn = "heater_on"
	FieldPin      = "pin"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath      = "path"
	FieldSensorURL = "sensor_url"
)
