// Package errors provides error handling for rollbook.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints on configuration mistakes
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrMissingReport) {
//	    // zero out that year, keep going
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinel errors for use across rollbook.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrMissingReport indicates a report expected for a year/category was
	// not found among the directory's named report groups. Callers must
	// zero out that year's contribution and continue, not abort the run.
	ErrMissingReport = New("report not found")

	// ErrEmptyDirectory indicates the directory listing returned no people
	// at all. This is the one structurally-required input whose absence
	// aborts the run.
	ErrEmptyDirectory = New("directory listing returned no people")

	// ErrAmbiguousNameKey indicates a canonical name key maps to more than
	// one person. Such keys are never used for a silent single-choice match.
	ErrAmbiguousNameKey = New("canonical name key is ambiguous")

	// ErrUnparseableDate indicates an individual date field could not be
	// parsed. The owning record is still processed on its other attributes.
	ErrUnparseableDate = New("unparseable date")

	// ErrUnparseableIdentifier indicates a malformed person identifier.
	ErrUnparseableIdentifier = New("unparseable identifier")
)

// IsMissingReport checks if an error is or wraps ErrMissingReport.
func IsMissingReport(err error) bool {
	return err != nil && Is(err, ErrMissingReport)
}

// IsEmptyDirectory checks if an error is or wraps ErrEmptyDirectory.
func IsEmptyDirectory(err error) bool {
	return err != nil && Is(err, ErrEmptyDirectory)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// WrapNotFound wraps an error as a not-found error with context.
func WrapNotFound(err error, context string) error {
	return Wrap(Wrap(ErrNotFound, err.Error()), context)
}

// NewMissingReportError creates a missing-report error with a formatted message.
func NewMissingReportError(format string, args ...interface{}) error {
	return Wrap(ErrMissingReport, Newf(format, args...).Error())
}
