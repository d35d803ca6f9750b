// Package logger provides structured logging for tunnelmgr.
//
//   - logger.go: slog-backed Logger, level control, package-level helpers
//   - context.go: carrying a Logger and the current attempt id in a context
//   - redact.go: masking of passwords, passphrases and key material
//
// Every handler built here runs attributes through the redactor, so a
// credential passed as a log attribute never reaches the output.
package logger
