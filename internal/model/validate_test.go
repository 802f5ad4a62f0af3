package model

import (
	"strings"
	"testing"
)

// fieldErrors extracts a *ValidationError from err or fails the test.
func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Errors
}

// hasFieldError reports whether the error list contains an error for the given field.
func hasFieldError(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }

func TestValidateCreateChannel_Valid(t *testing.T) {
	in := &CreateChannelInput{Name: "news"}
	if err := ValidateCreateChannel(in); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestValidateCreateChannel_NameRequired(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		errs := fieldErrors(t, ValidateCreateChannel(&CreateChannelInput{Name: name}))
		if !hasFieldError(errs, "name") {
			t.Errorf("name %q: expected error on field 'name'", name)
		}
	}
}

func TestValidateCreateChannel_NegativeSettings(t *testing.T) {
	in := &CreateChannelInput{
		Name: "news",
		Settings: &SettingsInput{
			MaxConnections:     intPtr(-1),
			RateLimitPerMinute: intPtr(-5),
		},
	}
	errs := fieldErrors(t, ValidateCreateChannel(in))
	if !hasFieldError(errs, "settings.max_connections") {
		t.Error("expected error on settings.max_connections")
	}
	if !hasFieldError(errs, "settings.rate_limit_per_minute") {
		t.Error("expected error on settings.rate_limit_per_minute")
	}
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		limit   int
		wantErr bool
	}{
		{"empty", "", 10, true},
		{"within limit", "hello", 10, false},
		{"exactly at limit", "0123456789", 10, false},
		{"over limit", "0123456789a", 10, true},
		{"no limit", strings.Repeat("x", 4096), 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateContent(tc.content, tc.limit)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateContent() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil {
				if errs := fieldErrors(t, err); !hasFieldError(errs, "content") {
					t.Errorf("expected error on field 'content', got %v", errs)
				}
			}
		})
	}
}

func TestValidationError_Format(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{
		{Field: "name", Message: "is required"},
		{Field: "content", Message: "is required"},
	}}
	want := "validation failed: name: is required; content: is required"
	if got := ve.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
