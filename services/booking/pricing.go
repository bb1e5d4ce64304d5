package booking

import (
	"fmt"

	"carebook/models"
)

// ComputeTotal sums the priced items and applies the flat at-home tax when
// the home-visit flag is on. Two items priced {50, 70} with tax 10 total 130
// at home and 120 in-facility.
func ComputeTotal(items []models.BookedItem, atHome bool, tax float64) float64 {
	total := 0.0
	for _, it := range items {
		total += it.Price
	}
	if atHome {
		total += tax
	}
	return total
}

// FormatAmount renders an amount with two-decimal formatting.
func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
