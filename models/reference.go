package models

// ReferenceItem is one entry of a reference list (service, city, provider or
// slot). IDs are UUID strings from the real backend, or synthetic "fb-" ids
// from the fallback datasets.
type ReferenceItem struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price,omitempty"`
	Rating float64 `json:"rating,omitempty"`
	Hours  string  `json:"hours,omitempty"`

	// Slot attributes; empty for non-slot categories.
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	Available bool   `json:"available,omitempty"`

	Fallback bool `json:"fallback,omitempty"`
}

// OptionList is a fetched reference list together with its degradation state.
type OptionList struct {
	Category Category        `json:"category"`
	Items    []ReferenceItem `json:"items"`
	Fallback bool            `json:"fallback"`
	Warning  string          `json:"warning,omitempty"`
}
