package refdata

import (
	"testing"

	"carebook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeListBareArray(t *testing.T) {
	body := []byte(`[{"id":"a1","name":"CBC","price":50},{"id":"a2","name":"Lipids","price":70.5}]`)
	items, err := NormalizeList(models.CategoryServices, body)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a1", items[0].ID)
	assert.Equal(t, "CBC", items[0].Name)
	assert.Equal(t, 70.5, items[1].Price)
}

func TestNormalizeListDataEnvelope(t *testing.T) {
	body := []byte(`{"data":[{"id":7,"name":"Cairo"}]}`)
	items, err := NormalizeList(models.CategoryCities, body)
	require.NoError(t, err)
	require.Len(t, items, 1)
	// Numeric ids are stringified.
	assert.Equal(t, "7", items[0].ID)
}

func TestNormalizeListRejectsNonArray(t *testing.T) {
	for _, body := range []string{`{"error":"oops"}`, `"just a string"`, `42`, `not json`} {
		_, err := NormalizeList(models.CategoryServices, []byte(body))
		assert.Error(t, err, "body %s", body)
	}
}

func TestNormalizeListDropsElementsWithoutID(t *testing.T) {
	body := []byte(`[{"name":"no id"},{"id":"ok","name":"kept"},{"id":""}]`)
	items, err := NormalizeList(models.CategoryServices, body)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ok", items[0].ID)
}

func TestNormalizeListEmptyStaysEmpty(t *testing.T) {
	items, err := NormalizeList(models.CategoryProviders, []byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNormalizeSlots(t *testing.T) {
	body := []byte(`[
		{"id":"s1","date":"2026-09-05","time":"10:00"},
		{"id":"s2","day":"2026-09-06","time":"11:00","available":false},
		{"id":"s3","date":"2026-09-07","time":"12:00","available":true}
	]`)
	items, err := NormalizeList(models.CategorySlots, body)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Missing "available" defaults to bookable; "day" aliases "date".
	assert.True(t, items[0].Available)
	assert.Equal(t, "2026-09-06", items[1].Date)
	assert.False(t, items[1].Available)
	assert.True(t, items[2].Available)
	assert.Equal(t, "2026-09-05 10:00", items[0].Name)
}
