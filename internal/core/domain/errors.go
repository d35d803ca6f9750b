// Package domain defines the core domain models for tunnelmgr.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a registry or connection error with a structured code.
// Codes have the form TN-<AREA>-<NNNN> and are stable across releases so
// scripts can match on them.
type DomainError struct {
	Code    string // Error code (e.g., "TN-REG-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support. Two DomainErrors match when their codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Registry Errors (REG)
// ============================================================================

var (
	// ErrDuplicateID indicates a tunnel with the same id is already registered.
	ErrDuplicateID = NewDomainError("TN-REG-4090", "tunnel id already exists")

	// ErrNotFound indicates no tunnel is registered under the requested id.
	ErrNotFound = NewDomainError("TN-REG-4040", "tunnel not found")

	// ErrInvalidArgument indicates a tunnel definition failed validation.
	ErrInvalidArgument = NewDomainError("TN-REG-4000", "invalid tunnel definition")
)

// ============================================================================
// Storage Errors (STOR)
// ============================================================================

var (
	// ErrCorruptStore indicates durable storage exists but cannot be parsed.
	ErrCorruptStore = NewDomainError("TN-STOR-5000", "tunnel store is corrupt")

	// ErrSourceNotFound indicates an import source could not be read.
	ErrSourceNotFound = NewDomainError("TN-STOR-4040", "import source not readable")

	// ErrWriteError indicates durable storage or an export target could not be written.
	ErrWriteError = NewDomainError("TN-STOR-5001", "write failed")
)

// ============================================================================
// Connection Errors (CONN)
// ============================================================================

var (
	// ErrNetwork indicates the TCP connection could not be established in time.
	ErrNetwork = NewDomainError("TN-CONN-5030", "network connection failed")

	// ErrHandshake indicates the SSH protocol handshake failed.
	ErrHandshake = NewDomainError("TN-CONN-5020", "ssh handshake failed")

	// ErrMissingKeyPath indicates key authentication was selected without a key file.
	ErrMissingKeyPath = NewDomainError("TN-CONN-4001", "ssh key path not configured")

	// ErrAuth indicates the remote host rejected the supplied credentials.
	ErrAuth = NewDomainError("TN-CONN-4010", "ssh authentication failed")

	// ErrPromptUnavailable indicates a credential was needed but nobody can be asked for it.
	ErrPromptUnavailable = NewDomainError("TN-CONN-4011", "credential prompt unavailable")
)
