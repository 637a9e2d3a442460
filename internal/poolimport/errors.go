package poolimport

import (
	"errors"
	"fmt"
)

// File-level failures. Any of them aborts the import before anything is stored.
var (
	ErrHeaderNotFound  = errors.New("header row not found")
	ErrMissingDateCell = errors.New("date cell is empty")
	ErrInvalidDateCell = errors.New("date cell does not hold a date")
	ErrEmptyImport     = errors.New("no reservations found in file")
	ErrUnderlyingRead  = errors.New("spreadsheet could not be read")
)

// ErrUnparseableRow matches every RowError. Rows are skipped, never fatal.
var ErrUnparseableRow = errors.New("row skipped")

// ImportError is returned by Parse and the readers.
type ImportError struct {
	Kind error
	Cell string
	Err  error
}

func (e *ImportError) Error() string {
	msg := e.Kind.Error()
	if e.Cell != "" {
		msg = fmt.Sprintf("%s (cell %s)", msg, e.Cell)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ImportError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// SkipReason says why a data row did not produce a reservation.
type SkipReason string

const (
	SkipMissingClient SkipReason = "missing_client"
	SkipMissingTime   SkipReason = "missing_time"
	SkipInvalidTime   SkipReason = "invalid_time"
)

// RowError reports a skipped data row. Row is zero-based.
type RowError struct {
	Row    int
	Reason SkipReason
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d skipped: %s", e.Row+1, e.Reason)
}

func (e *RowError) Is(target error) bool {
	return target == ErrUnparseableRow
}
