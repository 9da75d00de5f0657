package config

import (
	"fmt"
	"os"
	"strconv"
)

// EnvString returns the value of an environment variable and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return value, ok
}

// EnvInt returns an integer environment variable. The second return value
// reports whether the variable was set at all.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, true, nil
}

// AgeDaysFromEnv reads a max-age threshold from the environment. An unset or
// empty variable disables age filtering entirely and fallback is returned as
// the threshold; a numeric value enables filtering at that age. The enabled
// flag is the second return value.
func AgeDaysFromEnv(key string, fallback int) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer number of days: %w", key, err)
	}
	return parsed, true, nil
}

// EnvBool returns a boolean environment variable. Any of 1/t/true/yes/on
// (case-insensitive) count as true; an empty value counts as unset.
func EnvBool(key string) (bool, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return false, false, nil
	}
	switch value {
	case "yes", "Yes", "YES", "on", "On", "ON":
		return true, true, nil
	case "no", "No", "NO", "off", "Off", "OFF":
		return false, true, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return parsed, true, nil
}
