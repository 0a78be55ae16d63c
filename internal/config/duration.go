package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration knobs in the config file are Go duration strings ("30s", "5m").
// An empty string means unset; negative values are rejected so a bad
// reload cannot turn a send delay or timeout into a no-op by accident.

// ParseDurationField parses the duration configured at path. Empty input
// yields zero.
func ParseDurationField(path, raw string) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(trimmed)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def substituted for
// unset values. The service config mappers use it so every knob has a
// working default.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
