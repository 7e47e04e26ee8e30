// Package errors classifies editor failures so every layer can decide
// locally whether to drop, refuse, retry or report.
//
// Nothing in the editor core surfaces a failure as a panic. Each failure is
// wrapped in a categorized error and handled at the lowest layer able to
// make a decision: reconciliation drops, the guard refuses, the save
// pipeline reports a status message.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryMalformed marks an entity missing required fields.
	// The entity is dropped and a diagnostic is recorded.
	CategoryMalformed Category = iota

	// CategoryUnresolvable marks an edge whose endpoints matched no node.
	CategoryUnresolvable

	// CategoryDestructive marks a refused mutation that would have erased data.
	CategoryDestructive

	// CategoryTransient marks a persistence failure a retry might fix.
	// Examples: 5xx responses, 429, timeouts, connection resets.
	CategoryTransient

	// CategoryPersistence marks a persistence failure a retry won't fix.
	// Examples: 4xx responses, cache quota exceeded, closed stores.
	CategoryPersistence

	// CategoryInvariant marks an internal inconsistency that was resolved
	// in place (duplicate edge, empty node paradox).
	CategoryInvariant
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMalformed:
		return "malformed"
	case CategoryUnresolvable:
		return "unresolvable"
	case CategoryDestructive:
		return "destructive"
	case CategoryTransient:
		return "transient"
	case CategoryPersistence:
		return "persistence"
	case CategoryInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Retries is the number of attempts that have been made.
	Retries int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Retries)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Context:  context,
	}
}

// Malformed creates a malformed-input error.
func Malformed(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryMalformed, context)
}

// Unresolvable creates an unresolvable-reference error.
func Unresolvable(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryUnresolvable, context)
}

// Destructive creates a destructive-mutation refusal.
func Destructive(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryDestructive, context)
}

// Transient creates a retryable persistence error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Persistence creates a non-retryable persistence error.
func Persistence(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryPersistence, context)
}

// Invariant creates an invariant-violation error.
func Invariant(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryInvariant, context)
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPersistence // shouldn't happen, fail safe
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Retryable() {
			return CategoryTransient
		}
		return CategoryPersistence
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return CategoryMalformed
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryTransient
	}

	// Unknown errors are treated as persistence failures (fail safe)
	return CategoryPersistence
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsPersistence reports whether the error came from a save, load or cache
// operation, retryable or not.
func IsPersistence(err error) bool {
	cat := Categorize(err)
	return cat == CategoryTransient || cat == CategoryPersistence
}

// IsDestructive reports whether the error is a guard refusal.
func IsDestructive(err error) bool {
	if err == nil {
		return false
	}
	var catErr *CategorizedError
	return errors.As(err, &catErr) && catErr.Category == CategoryDestructive
}

// IsUnauthorized reports whether the error is an HTTP 401.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsNotFound reports whether the error is an HTTP 404.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func hasStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}
