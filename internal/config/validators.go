package config

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cristianoliveira/ancs-intray/internal/colors"
)

// Validator validates and normalizes a configuration value.
// Returns the normalized value and an error if validation fails.
type Validator func(key, value, defaultValue string) (normalized string, err error)

// validatorRegistry manages the set of registered validators.
type validatorRegistry struct {
	mu         sync.RWMutex
	validators map[string]Validator
}

// registry is the global validator registry.
var registry = &validatorRegistry{
	validators: make(map[string]Validator),
}

// RegisterValidator registers a validator for a configuration key.
// Panics if a validator is already registered for the key.
func RegisterValidator(key string, validator Validator) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.validators[key]; exists {
		panic(fmt.Sprintf("validator already registered for key: %s", key))
	}
	registry.validators[key] = validator
}

// getValidator returns the validator for a key, or nil if not registered.
func getValidator(key string) Validator {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return registry.validators[key]
}

// PositiveIntValidator accepts integers of at least 1.
func PositiveIntValidator() Validator {
	return minIntValidator(1, "a positive integer")
}

// NonNegativeIntValidator accepts zero or a positive integer.
func NonNegativeIntValidator() Validator {
	return minIntValidator(0, "zero or a positive integer")
}

// Uint16Validator accepts integers in 1..65535.
func Uint16Validator() Validator {
	return rangeIntValidator(1, math.MaxUint16, "an integer between 1 and 65535")
}

func minIntValidator(floor int, rule string) Validator {
	return rangeIntValidator(floor, math.MaxInt, rule)
}

// rangeIntValidator falls back to the default for anything that is not an integer in
// floor..ceil.
func rangeIntValidator(floor, ceil int, rule string) Validator {
	return func(key, value, defaultValue string) (string, error) {
		if value == "" {
			return defaultValue, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < floor || n > ceil {
			colors.Warning(fmt.Sprintf("invalid %s value '%s': must be %s, using default: %s", key, value, rule, defaultValue))
			return defaultValue, nil
		}
		return strconv.Itoa(n), nil
	}
}

// EnumValidator returns a validator that ensures a value is one of the allowed enum values.
func EnumValidator(allowed map[string]bool) Validator {
	return func(key, value, defaultValue string) (string, error) {
		if value == "" {
			return defaultValue, nil
		}
		valueLower := strings.ToLower(value)
		if !allowed[valueLower] {
			colors.Warning(fmt.Sprintf("invalid %s value '%s': must be one of: %s; using default: %s", key, value, allowedValues(allowed), defaultValue))
			return defaultValue, nil
		}
		return valueLower, nil
	}
}

// BoolValidator returns a validator that normalizes and validates boolean values.
// Returns a shared validator instance for all boolean keys.
func BoolValidator() Validator {
	return func(key, value, defaultValue string) (string, error) {
		if value == "" {
			return defaultValue, nil
		}
		normalized := normalizeBool(value)
		if normalized != "true" && normalized != "false" {
			colors.Warning(fmt.Sprintf("invalid boolean value for %s: '%s', must be one of: 1, true, yes, on, 0, false, no, off; using default: %s", key, value, defaultValue))
			return defaultValue, nil
		}
		return normalized, nil
	}
}

// initValidators registers all configuration validators.
func initValidators() {
	positiveIntValidator := PositiveIntValidator()
	RegisterValidator("request_timeout_ms", positiveIntValidator)
	RegisterValidator("hooks_async_timeout", positiveIntValidator)
	RegisterValidator("max_hooks", positiveIntValidator)
	RegisterValidator("logging_max_files", positiveIntValidator)

	// attribute lengths and the MTU go on the wire as 16 bits
	uint16Validator := Uint16Validator()
	RegisterValidator("title_max_len", uint16Validator)
	RegisterValidator("message_max_len", uint16Validator)
	RegisterValidator("preferred_mtu", uint16Validator)

	// 0 disables the bound or the floor
	nonNegativeIntValidator := NonNegativeIntValidator()
	RegisterValidator("notif_queue_max", nonNegativeIntValidator)
	RegisterValidator("min_free_memory", nonNegativeIntValidator)
	RegisterValidator("browse_delay_ms", nonNegativeIntValidator)
	RegisterValidator("dedup_window_seconds", nonNegativeIntValidator)

	RegisterValidator("dedup_criteria", EnumValidator(map[string]bool{"exact": true, "content": true, "off": true}))
	RegisterValidator("hooks_failure_mode", EnumValidator(map[string]bool{"ignore": true, "warn": true, "abort": true}))
	RegisterValidator("logging_level", EnumValidator(map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}))

	boolValidator := BoolValidator()
	for _, key := range []string{
		"drop_preexisting",
		"verbose_log",
		"strict_protocol",
		"inbox_enabled",
		"hooks_enabled",
		"hooks_async",
		"hooks_enabled_on_notification",
		"logging_enabled",
		"debug",
		"quiet",
	} {
		RegisterValidator(key, boolValidator)
	}
}

// normalizeBool converts various boolean representations to "true"/"false".
func normalizeBool(val string) string {
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return "true"
	case "0", "false", "no", "off":
		return "false"
	default:
		// If invalid, return as-is; validation will fix it.
		return val
	}
}

// allowedValues returns a comma-separated string of allowed values.
func allowedValues(allowed map[string]bool) string {
	values := make([]string, 0, len(allowed))
	for k := range allowed {
		values = append(values, k)
	}
	// Sort for consistent output
	sort.Strings(values)
	return strings.Join(values, ", ")
}
