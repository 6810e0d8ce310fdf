// SPDX-License-Identifier: MIT

// Package config loads heaterd configuration.
//
// Precedence, lowest to highest: built-in defaults, the YAML file (strict,
// unknown keys rejected), then HEATER_* environment variables. The result is
// validated as a whole; a ConfigHolder swaps validated configs on reload.
package config
