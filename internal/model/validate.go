package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateCreateChannel checks a create request for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the input is valid.
func ValidateCreateChannel(in *CreateChannelInput) error {
	var ve ValidationError

	if strings.TrimSpace(in.Name) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "is required"})
	}

	if s := in.Settings; s != nil {
		if s.MaxConnections != nil && *s.MaxConnections < 0 {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   "settings.max_connections",
				Message: fmt.Sprintf("must not be negative, got %d", *s.MaxConnections),
			})
		}
		if s.RateLimitPerMinute != nil && *s.RateLimitPerMinute < 0 {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   "settings.rate_limit_per_minute",
				Message: fmt.Sprintf("must not be negative, got %d", *s.RateLimitPerMinute),
			})
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateContent checks message content against the size limit in bytes.
// A limit of zero or less disables the size check.
func ValidateContent(content string, limit int) error {
	var ve ValidationError
	switch {
	case content == "":
		ve.Errors = append(ve.Errors, FieldError{Field: "content", Message: "is required"})
	case limit > 0 && len(content) > limit:
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "content",
			Message: fmt.Sprintf("must be %d bytes or fewer, got %d", limit, len(content)),
		})
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}
