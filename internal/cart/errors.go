package cart

import (
	"errors"
	"fmt"
)

// ErrLineNotFound is returned when a ref addresses no line of the snapshot.
var ErrLineNotFound = errors.New("cart line not found")

// ErrStoreNotConfigured is returned when the service has no store.
var ErrStoreNotConfigured = errors.New("cart service not configured")

// PartialReplaceError reports a dimension replace whose delete succeeded but whose
// create failed. Neither the old nor the new line can be assumed to exist; callers
// should reload the cart.
type PartialReplaceError struct {
	Removed   Line
	Attempted Line
	Err       error
}

// Error implements the error interface.
func (e *PartialReplaceError) Error() string {
	return fmt.Sprintf("cart: replaced line for product %s was removed but the new line was not created: %v", e.Removed.ProductID, e.Err)
}

// Unwrap exposes the create failure.
func (e *PartialReplaceError) Unwrap() error {
	return e.Err
}

// IsPartialReplace reports whether err is a partial replace failure.
func IsPartialReplace(err error) bool {
	var target *PartialReplaceError
	return errors.As(err, &target)
}
