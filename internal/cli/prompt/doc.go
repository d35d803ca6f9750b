// Package prompt asks the operator for credentials that are not stored.
package prompt
