package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"cartrules/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// addErr appends err when it is a ValidationError.
func (ve *ValidationErrors) addErr(err error) {
	if v, ok := err.(ValidationError); ok {
		*ve = append(*ve, v)
	}
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "is required",
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateURL checks that value is an absolute http(s) URL.
func ValidateURL(field, value string) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "must be an absolute http or https URL",
		}
	}
	return nil
}

// ValidatePositive checks that a duration is greater than zero.
func ValidatePositive(field string, value time.Duration) error {
	if value <= 0 {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "must be greater than zero",
		}
	}
	return nil
}

// Validate checks the whole configuration and returns ValidationErrors
// listing every problem, or nil.
func (c CartRulesConfig) Validate() error {
	var errs ValidationErrors

	errs.addErr(ValidateRequired("shop", c.Shop))

	errs.addErr(ValidateOneOf("ruleSource.mode", c.RuleSource.Mode, []string{RuleSourceHTTP, RuleSourceFile}))
	switch c.RuleSource.Mode {
	case RuleSourceHTTP:
		errs.addErr(ValidateURL("ruleSource.url", c.RuleSource.URL))
	case RuleSourceFile:
		errs.addErr(ValidateRequired("ruleSource.dir", c.RuleSource.Dir))
	}
	errs.addErr(ValidatePositive("ruleSource.timeout", c.RuleSource.Timeout))

	errs.addErr(ValidateURL("cart.baseURL", c.Cart.BaseURL))
	errs.addErr(ValidatePositive("cart.timeout", c.Cart.Timeout))

	if c.Telemetry.Enabled {
		if c.TelemetryURL() == "" {
			errs.Add("telemetry.url", "is required when telemetry is enabled and the rule source is not http")
		} else {
			errs.addErr(ValidateURL("telemetry.url", c.TelemetryURL()))
		}
		errs.addErr(ValidatePositive("telemetry.timeout", c.Telemetry.Timeout))
	}

	errs.addErr(ValidatePositive("engine.debounce", c.Engine.Debounce))
	errs.addErr(ValidatePositive("engine.pollInterval", c.Engine.PollInterval))
	errs.addErr(ValidatePositive("engine.suppressionWindow", c.Engine.SuppressionWindow))
	errs.addErr(ValidatePositive("engine.passTimeout", c.Engine.PassTimeout))

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs.Add("server.port", "must be between 0 and 65535", c.Server.Port)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs.Add("log.level", err.Error(), c.Log.Level)
	}
	errs.addErr(ValidateOneOf("log.format", c.Log.Format, []string{string(logging.FormatText), string(logging.FormatJSON)}))

	if errs.HasErrors() {
		return errs
	}
	return nil
}
