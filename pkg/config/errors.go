package config

import "fmt"

// Reason classifies a configuration validation failure.
type Reason string

const (
	// ReasonMissingRequired indicates a required value was omitted or empty.
	ReasonMissingRequired Reason = "missing-required"

	// ReasonOutOfRange indicates a numeric value outside its valid domain.
	ReasonOutOfRange Reason = "out-of-range"

	// ReasonUnrecognizedEnum indicates a value outside a closed enum.
	ReasonUnrecognizedEnum Reason = "unrecognized-enum-value"

	// ReasonMalformedPath indicates a syntactically invalid path fragment.
	ReasonMalformedPath Reason = "malformed-path"
)

// ConfigError is the only error kind produced at the resolution boundary.
// It identifies exactly which declared field failed and why, so the user
// can correct the declaration directly.
//
// nolint:revive // ConfigError is intentionally named to distinguish from standard errors
type ConfigError struct {
	// Field is the declared option path, e.g. "server.port".
	Field string `json:"field"`

	// Reason is the failure classification.
	Reason Reason `json:"reason"`

	// Detail is an optional human-readable elaboration.
	Detail string `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Reason, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is implements error equality for errors.Is: two ConfigErrors match when
// field and reason agree, ignoring detail text.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	return e.Field == t.Field && e.Reason == t.Reason
}

func newConfigError(field string, reason Reason, detail string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason, Detail: detail}
}
