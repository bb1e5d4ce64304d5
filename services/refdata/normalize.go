package refdata

import (
	"encoding/json"
	"fmt"

	"carebook/models"
)

// The upstream wraps lists either as a bare JSON array or as {"data": [...]}.
// Anything else is a malformed payload and triggers degradation.
func unwrapArray(body []byte) ([]json.RawMessage, error) {
	var bare []json.RawMessage
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}
	return nil, fmt.Errorf("reference payload is not an array")
}

// NormalizeList decodes a raw list payload into reference items using the
// frozen per-resource schema. Elements missing an id are dropped; a payload
// that is not an array at all returns an error.
func NormalizeList(category models.Category, body []byte) ([]models.ReferenceItem, error) {
	elements, err := unwrapArray(body)
	if err != nil {
		return nil, err
	}

	items := make([]models.ReferenceItem, 0, len(elements))
	for _, raw := range elements {
		var item models.ReferenceItem
		var ok bool
		if category == models.CategorySlots {
			item, ok = decodeSlot(raw)
		} else {
			item, ok = decodeItem(raw)
		}
		if ok {
			items = append(items, item)
		}
	}
	return items, nil
}

type wireItem struct {
	ID     any     `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Rating float64 `json:"rating"`
	Hours  string  `json:"hours"`
}

func decodeItem(raw json.RawMessage) (models.ReferenceItem, bool) {
	var w wireItem
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.ReferenceItem{}, false
	}
	id, ok := stringID(w.ID)
	if !ok {
		return models.ReferenceItem{}, false
	}
	return models.ReferenceItem{
		ID:     id,
		Name:   w.Name,
		Price:  w.Price,
		Rating: w.Rating,
		Hours:  w.Hours,
	}, true
}

type wireSlot struct {
	ID        any     `json:"id"`
	Date      string  `json:"date"`
	Day       string  `json:"day"`
	Time      string  `json:"time"`
	Price     float64 `json:"price"`
	Available *bool   `json:"available"`
}

func decodeSlot(raw json.RawMessage) (models.ReferenceItem, bool) {
	var w wireSlot
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.ReferenceItem{}, false
	}
	id, ok := stringID(w.ID)
	if !ok {
		return models.ReferenceItem{}, false
	}
	date := w.Date
	if date == "" {
		date = w.Day
	}
	available := true
	if w.Available != nil {
		available = *w.Available
	}
	return models.ReferenceItem{
		ID:        id,
		Name:      date + " " + w.Time,
		Date:      date,
		Time:      w.Time,
		Price:     w.Price,
		Available: available,
	}, true
}

func stringID(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return fmt.Sprintf("%.0f", t), true
	default:
		return "", false
	}
}
