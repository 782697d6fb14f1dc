// =============================================================================
// Campaign Reconciler - Error Types
// =============================================================================
//
// Every failure raised by the reconciliation core is one of four kinds:
//   - ParseError          : a cell or file section could not be interpreted
//   - ConfigurationError  : a caller-supplied option is unusable
//   - AmbiguousColumnError: the placement key column could not be located
//   - DivisionError       : a weighted redistribution group summed to zero
//
// Callers match a kind with errors.As, or with errors.Is against the
// sentinel values below when the details are not needed.
//
// =============================================================================

package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel values matched by the Is methods of the error types.
var (
	ErrParse           = errors.New("parse error")
	ErrConfiguration   = errors.New("configuration error")
	ErrAmbiguousColumn = errors.New("ambiguous column")
	ErrDivision        = errors.New("division by zero")
)

// =============================================================================
// PARSE ERROR
// =============================================================================

// ParseError reports a value that could not be interpreted.
type ParseError struct {
	// Source is the file or section being parsed (may be empty).
	Source string

	// Row is the 1-indexed row number, 0 when not applicable.
	Row int

	// Column is the column name, empty when not applicable.
	Column string

	// Value is the offending raw value.
	Value string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error")
	if e.Source != "" {
		fmt.Fprintf(&b, " in %s", e.Source)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ", column '%s'", e.Column)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// =============================================================================
// CONFIGURATION ERROR
// =============================================================================

// ConfigurationError reports an unusable option or a missing column that the
// caller asked to operate on.
type ConfigurationError struct {
	// Field is the option or column at fault.
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// =============================================================================
// AMBIGUOUS COLUMN ERROR
// =============================================================================

// AmbiguousColumnError reports that zero or several columns satisfied the
// placement key strategies.
type AmbiguousColumnError struct {
	// Source identifies the table being searched.
	Source string

	// Strategies lists the strategy names that were tried.
	Strategies []string

	// Candidates lists every column that qualified. Empty when none did.
	Candidates []string
}

// Error implements the error interface.
func (e *AmbiguousColumnError) Error() string {
	where := ""
	if e.Source != "" {
		where = " in " + e.Source
	}
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("no placement key column found%s (strategies: %s)",
			where, strings.Join(e.Strategies, ", "))
	}
	return fmt.Sprintf("ambiguous placement key column%s: %s (strategies: %s)",
		where, strings.Join(e.Candidates, ", "), strings.Join(e.Strategies, ", "))
}

// Is reports whether target is ErrAmbiguousColumn.
func (e *AmbiguousColumnError) Is(target error) bool { return target == ErrAmbiguousColumn }

// =============================================================================
// DIVISION ERROR
// =============================================================================

// DivisionError reports a weighted redistribution group whose weights sum to
// zero.
type DivisionError struct {
	// Group is the printable group key.
	Group string

	// Column is the weight column.
	Column string
}

// Error implements the error interface.
func (e *DivisionError) Error() string {
	return fmt.Sprintf("weights in column '%s' sum to zero for group %s", e.Column, e.Group)
}

// Is reports whether target is ErrDivision.
func (e *DivisionError) Is(target error) bool { return target == ErrDivision }
