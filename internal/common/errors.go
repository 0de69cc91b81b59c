// Package common defines shared sentinel errors and small helpers used across
// pingate components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrNotFound reports a missing record in local storage.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput reports user input that failed local validation.
	ErrInvalidInput = errors.New("invalid input")
)
