// Package environment provides helpers for loading configuration from environment variables.
//
// Every helper reads one variable and falls back to a default when the
// variable is unset, blank or unparsable. Required variables return an error
// rather than calling os.Exit, keeping process control in cmd/.
package environment

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// lookup returns the trimmed value of name and whether it is non-blank.
func lookup(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}

// StringOr returns the value of the named environment variable, or defaultValue
// if the variable is unset or blank.
func StringOr(name, defaultValue string) string {
	if v, ok := lookup(name); ok {
		return v
	}
	return defaultValue
}

// RequiredString returns the value of the named environment variable or an error
// if it is unset or blank.
func RequiredString(name string) (string, error) {
	v, ok := lookup(name)
	if !ok {
		return "", fmt.Errorf("required environment variable %q is not set", name)
	}
	return v, nil
}

// BoolOr parses the named environment variable with strconv.ParseBool.
func BoolOr(name string, defaultValue bool) bool {
	v, ok := lookup(name)
	if !ok {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

// IntOr parses the named environment variable as a decimal integer.
func IntOr(name string, defaultValue int) int {
	v, ok := lookup(name)
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// FloatOr parses the named environment variable as a finite float64.
func FloatOr(name string, defaultValue float64) float64 {
	v, ok := lookup(name)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultValue
	}
	return f
}

// DurationOr parses the named environment variable as a time.Duration (e.g.
// "45s", "2m"). Non-positive durations fall back to defaultValue.
func DurationOr(name string, defaultValue time.Duration) time.Duration {
	v, ok := lookup(name)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// PathOr returns the named variable as a cleaned path, expanding a leading
// "~/" to the user's home directory.
func PathOr(name, defaultValue string) string {
	v, ok := lookup(name)
	if !ok {
		v = defaultValue
	}
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			v = filepath.Join(home, v[2:])
		}
	}
	return filepath.Clean(v)
}

// StringSliceOr parses the named environment variable as a comma-separated list
// of strings, trimming whitespace from each element and dropping empties.
func StringSliceOr(name string, defaultValue []string) []string {
	v, ok := lookup(name)
	if !ok {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
