package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a product price could not be resolved. It
// determines the status code surfaced to the caller.
type FailureKind string

const (
	// FailureNotFound: the catalog does not know the product.
	FailureNotFound FailureKind = "not_found"
	// FailureUnavailable: the catalog could not be reached on any transport.
	FailureUnavailable FailureKind = "service_unavailable"
	// FailureInvalidData: the catalog answered without usable price data.
	FailureInvalidData FailureKind = "invalid_data"
)

// PricingError aborts order creation before any transaction is opened.
// It carries the first offending product; resolution is fail-fast so there
// is never more than one.
type PricingError struct {
	ProductID int64
	Kind      FailureKind
	Reason    string
}

func (e *PricingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("pricing product %d: %s: %s", e.ProductID, e.Kind, e.Reason)
	}
	return fmt.Sprintf("pricing product %d: %s", e.ProductID, e.Kind)
}

// ValidationError reports a malformed checkout request. It is terminal and
// produces no side effects.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError reports a persistence failure after successful pricing. The
// transaction has been rolled back; the caller may safely retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrOrderNotFound is returned by repository reads for unknown order ids.
var ErrOrderNotFound = errors.New("order not found")
