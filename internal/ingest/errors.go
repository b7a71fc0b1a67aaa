package ingest

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Category buckets every ingest failure into one of a small set of
// machine-distinguishable outcomes.
type Category string

const (
	// CategoryValidation marks caller-fixable input problems. Never retried.
	CategoryValidation Category = "validation"
	// CategorySecurity marks payloads or types the classifier refused.
	// Audited at higher severity, otherwise handled like validation failures.
	CategorySecurity Category = "security"
	// CategoryTransient marks storage or record-store I/O failures. The whole
	// attempt may be retried by the caller since no partial state survives.
	CategoryTransient Category = "transient"
	// CategoryInvariant marks a broken internal contract. Always a hard
	// failure, never swallowed.
	CategoryInvariant Category = "invariant"
)

// Error is the structured failure every ingest operation returns. Callers
// inspect Category to decide retry/report behavior and Reasons for the
// complete list of problems found.
type Error struct {
	Category Category
	Reasons  []string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ingest %s failure", e.Category)
	if len(e.Reasons) > 0 {
		msg += ": " + strings.Join(e.Reasons, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError carries the complete list of caller-fixable problems.
func NewValidationError(reasons []string) *Error {
	return &Error{Category: CategoryValidation, Reasons: reasons}
}

// NewSecurityError carries the classifier's message plus its security flags.
func NewSecurityError(reason string, flags []string) *Error {
	reasons := append([]string{reason}, flags...)
	return &Error{Category: CategorySecurity, Reasons: reasons}
}

func NewTransientError(reason string, err error) *Error {
	return &Error{Category: CategoryTransient, Reasons: []string{reason}, Err: err}
}

func NewInvariantError(reason string, err error) *Error {
	return &Error{Category: CategoryInvariant, Reasons: []string{reason}, Err: err}
}

// CategoryOf extracts the failure category from err, or empty when err is not
// an ingest failure.
func CategoryOf(err error) Category {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Category
	}
	return ""
}

// ReasonsOf extracts the reason list from err, or nil.
func ReasonsOf(err error) []string {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Reasons
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
