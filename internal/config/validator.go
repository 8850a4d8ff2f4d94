package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers mcpcore-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("duration", validateDuration); err != nil {
		return fmt.Errorf("failed to register duration validator: %w", err)
	}
	return nil
}

// validateDuration validates that a string field, when non-empty, parses as
// a time.Duration (e.g. "30m", "1h").
func validateDuration(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.ParseDuration(value)
	return err == nil
}

// Validate validates the Config using struct tags and custom cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateDurationFields(); err != nil {
		return err
	}

	if err := c.validateAllowlist(); err != nil {
		return err
	}

	return nil
}

// validateDurationFields runs the "duration" custom tag manually against
// each duration-shaped string field, since struct tags alone don't name
// which field failed clearly enough for the error message below.
func (c *Config) validateDurationFields() error {
	fields := map[string]string{
		"server.idle_timeout":        c.Server.IdleTimeout,
		"server.sampling_timeout":    c.Server.SamplingTimeout,
		"rate_limit.duration":        c.RateLimit.Duration,
		"rate_limit.sweep_interval":  c.RateLimit.SweepInterval,
		"rate_limit.max_idle":        c.RateLimit.MaxIdle,
		"session.timeout":            c.Session.Timeout,
		"session.refresh_timeout":    c.Session.RefreshTimeout,
		"session.sliding_expiration": c.Session.SlidingExpiration,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", name, value, err)
		}
	}
	return nil
}

// validateAllowlist rejects blank allowlist entries, which would otherwise
// silently fail to match any identity.
func (c *Config) validateAllowlist() error {
	for i, entry := range c.RateLimit.Allowlist {
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("rate_limit.allowlist[%d]: entry must not be blank", i)
		}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			msg := formatSingleValidationError(e)
			messages = append(messages, msg)
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "duration":
		return fmt.Sprintf("%s must be a valid duration (e.g. \"30m\")", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
