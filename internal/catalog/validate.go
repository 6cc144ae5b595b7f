package catalog

import (
	"fmt"

	"github.com/noah-isme/toko-pricing/internal/common"
)

var (
	// ErrNoDefaultVariant is returned when a variant product flags no default variant.
	ErrNoDefaultVariant = fmt.Errorf("%w: no default variant", common.ErrValidation)
	// ErrMultipleDefaultVariants is returned when more than one variant is flagged default.
	ErrMultipleDefaultVariants = fmt.Errorf("%w: multiple default variants", common.ErrValidation)
)

// ValidateVariants enforces that a variant product has exactly one default variant.
func ValidateVariants(p Product) error {
	if !p.HasVariants || len(p.Variants) == 0 {
		return nil
	}
	defaults := 0
	for _, v := range p.Variants {
		if v.IsDefault {
			defaults++
		}
	}
	switch {
	case defaults == 0:
		return fmt.Errorf("product %s: %w", p.ID, ErrNoDefaultVariant)
	case defaults > 1:
		return fmt.Errorf("product %s has %d defaults: %w", p.ID, defaults, ErrMultipleDefaultVariants)
	}
	return nil
}
