package env

import (
	"os"
	"strconv"
)

// String returns the value of the environment variable or the default when unset.
func String(name string, defaultValue string) string {
	if value, ok := os.LookupEnv(name); ok {
		return value
	}
	return defaultValue
}

// Int returns the environment variable parsed as an integer, or the default
// when the variable is unset or malformed.
func Int(name string, defaultValue int) int {
	if value, ok := os.LookupEnv(name); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Bool returns the environment variable parsed as a boolean, or the default
// when the variable is unset or malformed.
func Bool(name string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(name); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Float64 returns the environment variable parsed as a float64, or the default
// when the variable is unset or malformed.
func Float64(name string, defaultValue float64) float64 {
	if value, ok := os.LookupEnv(name); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
