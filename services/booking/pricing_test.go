package booking

import (
	"testing"

	"carebook/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotalAppliesFlatAtHomeTax(t *testing.T) {
	items := []models.BookedItem{
		{ID: "a", Price: 50},
		{ID: "b", Price: 70},
	}
	assert.Equal(t, 120.0, ComputeTotal(items, false, 10))
	assert.Equal(t, 130.0, ComputeTotal(items, true, 10))
	assert.Equal(t, 0.0, ComputeTotal(nil, false, 10))
	// The fee is flat per booking, not per item.
	assert.Equal(t, 60.0, ComputeTotal([]models.BookedItem{{Price: 50}}, true, 10))
}

func TestFormatAmountTwoDecimals(t *testing.T) {
	assert.Equal(t, "130.00", FormatAmount(130))
	assert.Equal(t, "99.90", FormatAmount(99.9))
	assert.Equal(t, "0.10", FormatAmount(0.1))
	assert.Equal(t, "120.46", FormatAmount(120.456))
}
