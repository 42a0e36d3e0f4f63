// Package errors consolidates error definitions for the warden project.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Convenience wrappers around the standard errors package
package errors

import (
	"errors"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Not found errors
	ErrNotFound      = errors.New("not found")
	ErrTableNotFound = errors.New("table not found")
	ErrLinkNotFound  = errors.New("link not found")

	// Already exists errors
	ErrAlreadyExists = errors.New("already exists")
	ErrTableExists   = errors.New("table already exists")

	// Validation errors
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidDefinition = errors.New("invalid table definition")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrMissingField      = errors.New("missing required field")
	ErrDuplicateField    = errors.New("duplicate field name")
	ErrUnknownOption     = errors.New("unknown option")

	// Bootstrap / reconciliation errors
	ErrNotReady         = errors.New("table not ready")
	ErrReadinessTimeout = errors.New("readiness wait timed out")
	ErrTransformFailed  = errors.New("table transform failed")
	ErrIndexOutOfRange  = errors.New("index position outside field order")

	// Store errors
	ErrClosed      = errors.New("store is closed")
	ErrNotIndexed  = errors.New("field position is not indexed")
	ErrKeyMismatch = errors.New("record key does not match table key")

	// Internal errors
	ErrInternal = errors.New("internal error")
	ErrDatabase = errors.New("database error")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTableNotFound) ||
		errors.Is(err, ErrLinkNotFound)
}

// IsAlreadyExists returns true if err is an already-exists error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrTableExists)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidDefinition) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrDuplicateField) ||
		errors.Is(err, ErrUnknownOption)
}

// IsBootstrapFatal returns true if err must abort schema bootstrap.
// A correctly shaped schema is a precondition for serving anything, so
// every reconciliation failure lands here.
func IsBootstrapFatal(err error) bool {
	return errors.Is(err, ErrReadinessTimeout) ||
		errors.Is(err, ErrTransformFailed) ||
		errors.Is(err, ErrNotReady) ||
		errors.Is(err, ErrDatabase)
}
