package logger

import (
	"log/slog"
	"strings"
)

// Key name fragments whose values are always redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"private_key",
	"privatekey",
	"token",
}

// Value markers that identify key material regardless of the key name.
var sensitiveValueMarkers = []string{
	"PRIVATE KEY-----",
	"-----BEGIN OPENSSH",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive replaces credential values with a placeholder.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if strVal == "" {
			return a
		}
		if IsSensitiveValue(strVal) || IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		return a
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	// Non-string values under a sensitive key (e.g. a []byte passphrase)
	// are dropped to the placeholder as well.
	if a.Value.Kind() == slog.KindAny && IsSensitiveKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}

	return a
}

// RedactString returns the placeholder for values that look like key
// material and the value unchanged otherwise.
func RedactString(value string) string {
	if IsSensitiveValue(value) {
		return redactedValue
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value looks like private key material.
func IsSensitiveValue(value string) bool {
	for _, marker := range sensitiveValueMarkers {
		if strings.Contains(value, marker) {
			return true
		}
	}
	return false
}
