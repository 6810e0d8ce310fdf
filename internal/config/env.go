// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/homanchou/heatercontrol/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment variable the daemon reads.
const EnvPrefix = "HEATER_"

// lookupEnv returns the raw value of key and whether it should be used.
// Unset and empty variables fall back to the default and are logged as such.
func lookupEnv(logger zerolog.Logger, key string, def any) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		logger.Debug().
			Str("key", key).
			Interface("default", def).
			Str("source", "default").
			Msg("using default value")
		return "", false
	}
	if strings.TrimSpace(v) == "" {
		logger.Debug().
			Str("key", key).
			Interface("default", def).
			Str("source", "default").
			Msg("using default value (environment variable is empty)")
		return "", false
	}
	return v, true
}

func logEnvUsed(logger zerolog.Logger, key string, value any) {
	logger.Debug().
		Str("key", key).
		Interface("value", value).
		Str("source", "environment").
		Msg("using environment variable")
}

func logEnvInvalid(logger zerolog.Logger, key, raw, kind string, def any) {
	logger.Warn().
		Str("key", key).
		Str("value", raw).
		Interface("default", def).
		Msgf("invalid %s in environment variable, using default", kind)
}

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key, defaultValue)
	if !ok {
		return defaultValue
	}
	logEnvUsed(logger, key, v)
	return v
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key, defaultValue)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logEnvInvalid(logger, key, v, "integer", defaultValue)
		return defaultValue
	}
	logEnvUsed(logger, key, i)
	return i
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key, defaultValue)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logEnvInvalid(logger, key, v, "float", defaultValue)
		return defaultValue
	}
	logEnvUsed(logger, key, f)
	return f
}

// ParseDuration reads a duration in Go duration format (e.g. "5s").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key, defaultValue.String())
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logEnvInvalid(logger, key, v, "duration", defaultValue.String())
		return defaultValue
	}
	logEnvUsed(logger, key, d.String())
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key, defaultValue)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		logEnvUsed(logger, key, true)
		return true
	case "false", "0", "no":
		logEnvUsed(logger, key, false)
		return false
	default:
		logEnvInvalid(logger, key, v, "boolean", defaultValue)
		return defaultValue
	}
}

// ParseStringList reads a comma separated list. Blank entries are dropped.
func ParseStringList(key string, defaultValue []string) []string {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key, defaultValue)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	logEnvUsed(logger, key, out)
	return out
}
