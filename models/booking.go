package models

import "time"

// Booking statuses as archived locally.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// BookedItem is one priced line of a confirmed booking.
type BookedItem struct {
	ID    string  `bson:"id" json:"id"`
	Name  string  `bson:"name" json:"name"`
	Price float64 `bson:"price" json:"price"`
}

// Booking is the server-confirmed result of a submission, denormalized with
// the display attributes the confirmation view and PDF export need. Created
// only from a successful upstream response; never synthesized client-side.
type Booking struct {
	ID   string `bson:"_id" json:"id"`
	Flow string `bson:"flow" json:"flow"`

	ServiceName  string `bson:"serviceName" json:"serviceName"`
	CityName     string `bson:"cityName" json:"cityName"`
	ProviderID   string `bson:"providerId" json:"providerId"`
	ProviderName string `bson:"providerName" json:"providerName"`

	Date string `bson:"date" json:"date"`
	Time string `bson:"time" json:"time"`

	Items []BookedItem `bson:"items" json:"items"`
	Total float64      `bson:"total" json:"total"`

	AtHome  bool   `bson:"atHome" json:"atHome"`
	Address string `bson:"address,omitempty" json:"address,omitempty"`

	PatientName  string `bson:"patientName" json:"patientName"`
	PatientPhone string `bson:"patientPhone" json:"patientPhone"`
	PatientEmail string `bson:"patientEmail,omitempty" json:"patientEmail,omitempty"`

	Status       string `bson:"status" json:"status"`
	CancelReason string `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`

	// UsedFallbackData marks bookings assembled while at least one reference
	// category was degraded to offline demo data.
	UsedFallbackData bool `bson:"usedFallbackData" json:"usedFallbackData"`

	PaymentProofURL string `bson:"paymentProofUrl,omitempty" json:"paymentProofUrl,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// IsComplete reports whether every field the confirmation view renders is
// populated. Incomplete bookings are still surfaced by the archive list,
// flagged rather than hidden.
func (b *Booking) IsComplete() bool {
	if b.ID == "" || b.ProviderName == "" || b.Date == "" || b.Time == "" || b.PatientName == "" {
		return false
	}
	return len(b.Items) > 0 && b.Total > 0
}

// ReminderPayload is the asynq task payload for a booking reminder.
type ReminderPayload struct {
	BookingID    string `json:"bookingId"`
	Flow         string `json:"flow"`
	PatientName  string `json:"patientName"`
	ProviderName string `json:"providerName"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}
