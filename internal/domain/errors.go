package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEmptyCart guards checkout entry: an empty cart never reaches step 1.
	ErrEmptyCart = errors.New("cart is empty")

	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrSubmissionInFlight = errors.New("order submission already in flight")
	ErrProductNotFound    = errors.New("product not found")
)

// ValidationError carries field-level messages for the current checkout
// step. It blocks the transition but is recovered locally by the user.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

// PersistenceError reports a cart store read or write failure. Reads degrade
// to an empty cart before this ever surfaces; writes surface it as a
// transient notice.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cart store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SubmissionError reports a failed order submission. The cart is preserved
// and the user may retry.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("order submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
