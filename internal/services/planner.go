package services

import (
	"errors"

	"github.com/panelbridge/surveylink/internal/models"
)

// Allocation is one unit of the distribution plan: how many links of one
// type go to one vendor. VendorID is nil for pooled (vendor-less) links.
type Allocation struct {
	VendorID *uint           `json:"vendor_id"`
	LinkType models.LinkType `json:"link_type"`
	Quantity int             `json:"quantity"`
}

var (
	ErrNegativeCount = errors.New("link counts must not be negative")
	ErrEmptyPlan     = errors.New("at least one link must be requested")
)

// PlanDistribution computes the per-vendor/per-type quantities for a
// generation request. Deterministic: same inputs always yield the same
// ordered plan (TEST allocations first, vendors in list order).
//
// With perVendor set, testCount and liveCount are issued to each vendor in
// full, so two vendors at testCount=10/liveCount=40 yield 100 links.
// Without perVendor the counts are totals, split as evenly as possible
// across the vendor list with the remainder going to the first vendors so
// no fractional links exist. An empty vendor list produces one pooled
// allocation per link type with a nil vendor.
func PlanDistribution(testCount, liveCount int, vendorIDs []uint, perVendor bool) ([]Allocation, error) {
	if testCount < 0 || liveCount < 0 {
		return nil, ErrNegativeCount
	}
	if testCount == 0 && liveCount == 0 {
		return nil, ErrEmptyPlan
	}

	var plan []Allocation

	appendType := func(linkType models.LinkType, count int) {
		if count == 0 {
			return
		}
		if len(vendorIDs) == 0 {
			plan = append(plan, Allocation{VendorID: nil, LinkType: linkType, Quantity: count})
			return
		}

		if perVendor {
			for i := range vendorIDs {
				vendorID := vendorIDs[i]
				plan = append(plan, Allocation{VendorID: &vendorID, LinkType: linkType, Quantity: count})
			}
			return
		}

		base := count / len(vendorIDs)
		remainder := count % len(vendorIDs)
		for i := range vendorIDs {
			quantity := base
			if i < remainder {
				quantity++
			}
			if quantity == 0 {
				continue
			}
			vendorID := vendorIDs[i]
			plan = append(plan, Allocation{VendorID: &vendorID, LinkType: linkType, Quantity: quantity})
		}
	}

	appendType(models.LinkTypeTest, testCount)
	appendType(models.LinkTypeLive, liveCount)

	return plan, nil
}

// PlanTotal sums the quantities of a plan.
func PlanTotal(plan []Allocation) int {
	total := 0
	for _, a := range plan {
		total += a.Quantity
	}
	return total
}
