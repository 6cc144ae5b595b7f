// Package discount resolves which percentage campaign applies to a product.
package discount

import (
	"time"

	"github.com/noah-isme/toko-pricing/internal/catalog"
)

// Window is an inclusive [Start, End] interval. An undefined bound never matches.
type Window struct {
	Start catalog.Timestamp
	End   catalog.Timestamp
}

// Defined reports whether both bounds are set.
func (w Window) Defined() bool {
	return w.Start.Defined() && w.End.Defined()
}

// Contains reports whether now lies within the window, bounds included.
func (w Window) Contains(now time.Time) bool {
	if !w.Defined() {
		return false
	}
	return !now.Before(w.Start.Time) && !now.After(w.End.Time)
}

// CampaignWindow returns the campaign's active window.
func CampaignWindow(c catalog.DiscountCampaign) Window {
	return Window{Start: c.StartDate, End: c.EndDate}
}

// Live reports whether the campaign is switched on and now is inside its window.
func Live(c catalog.DiscountCampaign, now time.Time) bool {
	return c.IsActive && CampaignWindow(c).Contains(now)
}

// Applies reports whether a live campaign targets the product.
func Applies(c catalog.DiscountCampaign, p catalog.Product) bool {
	if c.ApplicableToAll {
		return true
	}
	return p.InCategory(c.SelectedMainCategory) || p.InCategory(c.SelectedSubCategory)
}

// Resolve returns the first campaign, in the order given, that is live at now and
// targets the product. Callers control precedence through the slice order.
func Resolve(p catalog.Product, campaigns []catalog.DiscountCampaign, now time.Time) *catalog.DiscountCampaign {
	for i := range campaigns {
		c := campaigns[i]
		if !Live(c, now) {
			continue
		}
		if Applies(c, p) {
			return &c
		}
	}
	return nil
}

// LiveCampaigns filters campaigns to those live at now, keeping their order.
func LiveCampaigns(campaigns []catalog.DiscountCampaign, now time.Time) []catalog.DiscountCampaign {
	out := make([]catalog.DiscountCampaign, 0, len(campaigns))
	for _, c := range campaigns {
		if Live(c, now) {
			out = append(out, c)
		}
	}
	return out
}
