package models

import "time"

// WizardSession holds one booking wizard in progress. Sessions are serialized
// to Redis with a TTL and mutated step by step, so every field must survive a
// JSON round trip.
type WizardSession struct {
	SessionID string `json:"sessionId"`
	Flow      string `json:"flow"`
	Step      Step   `json:"step"`

	Selection SelectionState `json:"selection"`

	// Options caches the reference lists fetched for this session, keyed by
	// category. A list is valid only for the generation it was fetched under.
	Options map[Category][]ReferenceItem `json:"options,omitempty"`

	// FallbackFlags marks categories that degraded to the static fallback
	// dataset. Independent per category; cleared by a later successful fetch
	// or explicit dismissal.
	FallbackFlags map[Category]bool `json:"fallbackFlags,omitempty"`

	// Generations is bumped per category whenever an upstream selection
	// invalidates that category. A fetch result is applied only if the
	// generation it was issued under still matches.
	Generations map[Category]int64 `json:"generations,omitempty"`

	// DisabledSlots lists slot ids the server reported as already booked,
	// kept disabled until the slot list is refetched under a new key.
	DisabledSlots []string `json:"disabledSlots,omitempty"`

	Booking *Booking `json:"booking,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Generation returns the current generation for a category (zero when unset).
func (s *WizardSession) Generation(c Category) int64 {
	if s.Generations == nil {
		return 0
	}
	return s.Generations[c]
}

// BumpGeneration invalidates a category: its cached options are dropped and
// any in-flight fetch for the old generation will be discarded on completion.
func (s *WizardSession) BumpGeneration(c Category) {
	if s.Generations == nil {
		s.Generations = make(map[Category]int64)
	}
	s.Generations[c]++
	if s.Options != nil {
		delete(s.Options, c)
	}
	if c == CategorySlots {
		s.DisabledSlots = nil
	}
}

// SetOptions stores a fetched list for a category and records whether it came
// from the fallback dataset.
func (s *WizardSession) SetOptions(c Category, items []ReferenceItem, fallback bool) {
	if s.Options == nil {
		s.Options = make(map[Category][]ReferenceItem)
	}
	s.Options[c] = items
	if s.FallbackFlags == nil {
		s.FallbackFlags = make(map[Category]bool)
	}
	s.FallbackFlags[c] = fallback
}

// UsedFallbackData reports whether any category degraded to fallback content.
func (s *WizardSession) UsedFallbackData() bool {
	for _, v := range s.FallbackFlags {
		if v {
			return true
		}
	}
	return false
}

// DisableSlot flags a slot id the server reported as already booked.
func (s *WizardSession) DisableSlot(id string) {
	if !s.SlotDisabled(id) {
		s.DisabledSlots = append(s.DisabledSlots, id)
	}
}

// SlotDisabled reports whether a slot id was flagged as already booked.
func (s *WizardSession) SlotDisabled(id string) bool {
	for _, d := range s.DisabledSlots {
		if d == id {
			return true
		}
	}
	return false
}

// OptionByID looks up a cached reference item by category and id.
func (s *WizardSession) OptionByID(c Category, id string) (ReferenceItem, bool) {
	for _, it := range s.Options[c] {
		if it.ID == id {
			return it, true
		}
	}
	return ReferenceItem{}, false
}
