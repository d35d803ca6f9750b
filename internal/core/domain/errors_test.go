package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "plain",
			err:      NewDomainError("TN-TEST-1000", "test message"),
			expected: "[TN-TEST-1000] test message",
		},
		{
			name:     "with details",
			err:      NewDomainError("TN-TEST-1001", "test message").WithDetails("id 7"),
			expected: "[TN-TEST-1001] test message: id 7",
		},
		{
			name:     "with details and cause",
			err:      NewDomainError("TN-TEST-1002", "test message").WithDetails("id 7").WithCause(fmt.Errorf("boom")),
			expected: "[TN-TEST-1002] test message: id 7: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("TN-TEST-1000", "message 1")
	err2 := NewDomainError("TN-TEST-1000", "message 2")
	err3 := NewDomainError("TN-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := ErrNetwork.WithCause(cause)

	if got := errors.Unwrap(err); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
	if errors.Unwrap(ErrNetwork) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_CopiesLeaveOriginalUntouched(t *testing.T) {
	withDetails := ErrNotFound.WithDetailsf("id %d", 42)
	withCause := ErrNotFound.WithCause(fmt.Errorf("x"))

	if ErrNotFound.Details != "" || ErrNotFound.Cause != nil {
		t.Fatal("sentinel error was modified")
	}
	if withDetails.Details != "id 42" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "id 42")
	}
	if withCause.Code != ErrNotFound.Code || withCause.Message != ErrNotFound.Message {
		t.Errorf("WithCause() changed code or message: %+v", withCause)
	}
}

func TestIsDomainError(t *testing.T) {
	wrapped := fmt.Errorf("remove: %w", ErrNotFound.WithDetails("id 3"))

	if !IsDomainError(wrapped, "TN-REG-4040") {
		t.Error("IsDomainError should match wrapped error by code")
	}
	if IsDomainError(wrapped, "TN-REG-9999") {
		t.Error("IsDomainError should not match a different code")
	}
	if !IsDomainError(wrapped, "") {
		t.Error("IsDomainError with empty code should match any DomainError")
	}
	if IsDomainError(fmt.Errorf("regular error"), "") {
		t.Error("IsDomainError should return false for non-DomainError")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrDuplicateID, "TN-REG-4090"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrHandshake), "TN-CONN-5020"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err  *DomainError
		code string
	}{
		{ErrDuplicateID, "TN-REG-4090"},
		{ErrNotFound, "TN-REG-4040"},
		{ErrInvalidArgument, "TN-REG-4000"},

		{ErrCorruptStore, "TN-STOR-5000"},
		{ErrSourceNotFound, "TN-STOR-4040"},
		{ErrWriteError, "TN-STOR-5001"},

		{ErrNetwork, "TN-CONN-5030"},
		{ErrHandshake, "TN-CONN-5020"},
		{ErrMissingKeyPath, "TN-CONN-4001"},
		{ErrAuth, "TN-CONN-4010"},
		{ErrPromptUnavailable, "TN-CONN-4011"},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Error code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Error message should not be empty")
			}
			if seen[tt.code] {
				t.Errorf("code %s used twice", tt.code)
			}
			seen[tt.code] = true
		})
	}
}
