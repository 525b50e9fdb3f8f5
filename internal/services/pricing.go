package services

import "github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"

// computeTotal sums the line totals of an order in minor currency units.
// Line prices are snapshots, so the total never drifts when the catalog
// changes after placement.
func computeTotal(items []domain.OrderLineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}
