package pricing

import (
	"fmt"

	"github.com/noah-isme/toko-pricing/internal/common"
)

// Validation failures. All of them match common.ErrValidation with errors.Is.
var (
	ErrInvalidQuantity       = fmt.Errorf("%w: quantity must be at least 1", common.ErrValidation)
	ErrExceedsStock          = fmt.Errorf("%w: quantity exceeds available stock", common.ErrValidation)
	ErrInvalidDimensions     = fmt.Errorf("%w: length, breadth and height must be positive", common.ErrValidation)
	ErrMissingDimensions     = fmt.Errorf("%w: product is priced by dimensions", common.ErrValidation)
	ErrMissingHeight         = fmt.Errorf("%w: product is priced by volume and needs a height", common.ErrValidation)
	ErrNoDimensionRate       = fmt.Errorf("%w: product has no dimension rate", common.ErrValidation)
	ErrUnknownStaticSize     = fmt.Errorf("%w: dimensions are not in the price chart", common.ErrValidation)
	ErrUnknownVariant        = fmt.Errorf("%w: variant not found", common.ErrValidation)
	ErrUnknownSize           = fmt.Errorf("%w: size not found", common.ErrValidation)
	ErrInvalidTier           = fmt.Errorf("%w: invalid bulk pricing tier", common.ErrValidation)
	ErrDuplicateTierQuantity = fmt.Errorf("%w: duplicate bulk pricing threshold", common.ErrValidation)
)
