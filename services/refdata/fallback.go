package refdata

import "carebook/models"

// Static fallback datasets, substituted when a reference fetch fails so every
// step stays navigable in a degraded demo mode. Ids carry the "fb-" prefix so
// downstream consumers can tell a fallback booking from a real one.

var fallbackCities = []models.ReferenceItem{
	{ID: "fb-city-1", Name: "Cairo"},
	{ID: "fb-city-2", Name: "Giza"},
	{ID: "fb-city-3", Name: "Alexandria"},
	{ID: "fb-city-4", Name: "Mansoura"},
}

var fallbackSlots = []models.ReferenceItem{
	{ID: "fb-slot-1", Name: "2026-09-07 09:00", Date: "2026-09-07", Time: "09:00", Available: true},
	{ID: "fb-slot-2", Name: "2026-09-07 11:30", Date: "2026-09-07", Time: "11:30", Available: true},
	{ID: "fb-slot-3", Name: "2026-09-08 14:00", Date: "2026-09-08", Time: "14:00", Available: true},
	{ID: "fb-slot-4", Name: "2026-09-09 16:30", Date: "2026-09-09", Time: "16:30", Available: true},
}

var fallbackServices = map[string][]models.ReferenceItem{
	"lab": {
		{ID: "fb-an-1", Name: "Complete Blood Count", Price: 50},
		{ID: "fb-an-2", Name: "Lipid Profile", Price: 70},
		{ID: "fb-an-3", Name: "Liver Function", Price: 65},
		{ID: "fb-an-4", Name: "HbA1c", Price: 45},
	},
	"nursing-ar": {
		{ID: "fb-nu-1", Name: "Wound Care", Price: 120},
		{ID: "fb-nu-2", Name: "IV Therapy", Price: 150},
		{ID: "fb-nu-3", Name: "Elderly Care Visit", Price: 200},
	},
	"nursing-en": {
		{ID: "fb-nu-1", Name: "Wound Care", Price: 120},
		{ID: "fb-nu-2", Name: "IV Therapy", Price: 150},
		{ID: "fb-nu-3", Name: "Post-Op Follow Up", Price: 180},
	},
	"home-visit": {
		{ID: "fb-sp-1", Name: "Internal Medicine", Price: 300},
		{ID: "fb-sp-2", Name: "Pediatrics", Price: 280},
		{ID: "fb-sp-3", Name: "Cardiology", Price: 400},
	},
	"clinic": {
		{ID: "fb-sp-1", Name: "Internal Medicine", Price: 250},
		{ID: "fb-sp-2", Name: "Dermatology", Price: 220},
		{ID: "fb-sp-3", Name: "Orthopedics", Price: 320},
	},
}

var fallbackProviders = map[string][]models.ReferenceItem{
	"lab": {
		{ID: "fb-lab-1", Name: "Al Noor Laboratories", Rating: 4.6, Hours: "08:00-22:00"},
		{ID: "fb-lab-2", Name: "Delta Scan & Lab", Rating: 4.3, Hours: "09:00-21:00"},
		{ID: "fb-lab-3", Name: "Misr Lab Center", Rating: 4.8, Hours: "24h"},
	},
	"nursing-ar": {
		{ID: "fb-nrs-1", Name: "Care Nursing Team", Rating: 4.7, Hours: "24h"},
		{ID: "fb-nrs-2", Name: "Home Nurse Unit", Rating: 4.4, Hours: "08:00-20:00"},
	},
	"nursing-en": {
		{ID: "fb-nrs-1", Name: "Care Nursing Team", Rating: 4.7, Hours: "24h"},
		{ID: "fb-nrs-2", Name: "Home Nurse Unit", Rating: 4.4, Hours: "08:00-20:00"},
	},
	"home-visit": {
		{ID: "fb-doc-1", Name: "Dr. Ahmed Hassan", Rating: 4.9, Hours: "10:00-18:00", Price: 350},
		{ID: "fb-doc-2", Name: "Dr. Mona Khalil", Rating: 4.5, Hours: "12:00-20:00", Price: 300},
	},
	"clinic": {
		{ID: "fb-doc-1", Name: "Dr. Ahmed Hassan", Rating: 4.9, Hours: "10:00-18:00", Price: 250},
		{ID: "fb-doc-2", Name: "Dr. Mona Khalil", Rating: 4.5, Hours: "12:00-20:00", Price: 220},
		{ID: "fb-doc-3", Name: "Dr. Omar Farouk", Rating: 4.2, Hours: "09:00-17:00", Price: 200},
	},
}

// Fallback returns the static dataset for a flow and category, marked so the
// items are recognizable downstream.
func Fallback(flow string, category models.Category) []models.ReferenceItem {
	var src []models.ReferenceItem
	switch category {
	case models.CategoryServices:
		src = fallbackServices[flow]
	case models.CategoryCities:
		src = fallbackCities
	case models.CategoryProviders:
		src = fallbackProviders[flow]
	case models.CategorySlots:
		src = fallbackSlots
	}

	items := make([]models.ReferenceItem, len(src))
	copy(items, src)
	for i := range items {
		items[i].Fallback = true
	}
	return items
}
