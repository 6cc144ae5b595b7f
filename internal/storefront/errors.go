package storefront

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/common"
)

var (
	// ErrMissingProductID rejects product calls without an id.
	ErrMissingProductID = fmt.Errorf("%w: product id is required", common.ErrValidation)
	// ErrInvalidCampaign rejects campaigns whose percentage is outside [0, 100].
	ErrInvalidCampaign = fmt.Errorf("%w: discount percentage must be between 0 and 100", common.ErrValidation)
)

var hundred = decimal.NewFromInt(100)

// Error is a failed storefront call: a transport failure or a non-2xx response. It
// matches common.ErrExternal with errors.Is.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("storefront %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("storefront %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("storefront %s: %v", e.Op, e.Err)
	default:
		return "storefront " + e.Op + ": failed"
	}
}

// Unwrap exposes common.ErrExternal and the transport cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{common.ErrExternal}
	}
	return []error{common.ErrExternal, e.Err}
}

// StatusCode returns the HTTP status of a storefront failure, or 0.
func StatusCode(err error) int {
	var sfErr *Error
	if errors.As(err, &sfErr) {
		return sfErr.StatusCode
	}
	return 0
}
