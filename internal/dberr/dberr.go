// Package dberr defines the error taxonomy shared by the index engine and
// table creator. Kinds are plain sentinel errors; callers distinguish them
// with errors.Is and get human-readable detail from the wrapped message.
package dberr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTableDefinition covers empty column lists, oversized
	// column/index counts, malformed or duplicate names, a second
	// primary key, and disallowed auto-number combinations.
	ErrInvalidTableDefinition = errors.New("invalid table definition")

	// ErrUnsupportedIndexColumnType marks a column that cannot
	// participate in an index (anything but fixed-length or TEXT/MEMO).
	ErrUnsupportedIndexColumnType = errors.New("unsupported index column type")

	// ErrUnmappedIndexCharacter marks a string containing a character
	// outside the legacy code table.
	ErrUnmappedIndexCharacter = errors.New("unmapped index character")

	// ErrIncompatibleEntryShape marks a comparison between entries with
	// different column arities.
	ErrIncompatibleEntryShape = errors.New("incompatible entry shape")

	// ErrStorageFailure wraps errors propagated from the paged storage
	// interface.
	ErrStorageFailure = errors.New("storage failure")

	// ErrFormatViolation marks a parsed page that disagrees with the
	// expected layout or a format limit.
	ErrFormatViolation = errors.New("format violation")
)

// InvalidTableDefinition wraps ErrInvalidTableDefinition with a cause.
func InvalidTableDefinition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTableDefinition, fmt.Sprintf(format, args...))
}

// UnsupportedIndexColumnType wraps ErrUnsupportedIndexColumnType with a cause.
func UnsupportedIndexColumnType(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedIndexColumnType, fmt.Sprintf(format, args...))
}

// UnmappedIndexCharacter wraps ErrUnmappedIndexCharacter with a cause.
func UnmappedIndexCharacter(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnmappedIndexCharacter, fmt.Sprintf(format, args...))
}

// IncompatibleEntryShape wraps ErrIncompatibleEntryShape with a cause.
func IncompatibleEntryShape(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIncompatibleEntryShape, fmt.Sprintf(format, args...))
}

// StorageFailure wraps an underlying storage error.
func StorageFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}

// FormatViolation wraps ErrFormatViolation with a cause.
func FormatViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormatViolation, fmt.Sprintf(format, args...))
}
