package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/nfosync/nfosync/internal/log"
)

// ParseString reads a string from an environment variable or returns the default.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	if value, exists := os.LookupEnv(key); exists && value != "" {
		lowerKey := strings.ToLower(key)
		if strings.Contains(lowerKey, "password") || strings.Contains(lowerKey, "token") {
			logger.Debug().
				Str("key", key).
				Str("source", "environment").
				Bool("sensitive", true).
				Msg("using environment variable")
		} else {
			logger.Debug().
				Str("key", key).
				Str("value", value).
				Str("source", "environment").
				Msg("using environment variable")
		}
		return value
	}
	return defaultValue
}

// ParseBool reads a boolean from an environment variable or returns the default.
// Falls back to the default on parse errors.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn().
				Str("key", key).
				Str("value", v).
				Bool("default", defaultValue).
				Msg("invalid boolean in environment, using default")
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// ParseInt reads an integer from an environment variable or returns the default.
// Falls back to the default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			logger.Warn().
				Str("key", key).
				Str("value", v).
				Int("default", defaultValue).
				Msg("invalid integer in environment, using default")
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// ParseDays reads a comma-separated weekday list (Mon=0) from an environment
// variable, e.g. "0,2,4". Returns the default on parse errors.
func ParseDays(key string, defaultValue []int) []int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, err := strconv.Atoi(part)
		if err != nil {
			logger.Warn().
				Str("key", key).
				Str("value", v).
				Msg("invalid weekday list in environment, using default")
			return defaultValue
		}
		out = append(out, day)
	}
	return out
}
