package booking

import (
	"fmt"

	"carebook/models"
)

// ConfirmationLine is one priced row of the confirmation summary.
type ConfirmationLine struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// ConfirmationView is the human-readable summary rendered after a successful
// submission. The PDF export mirrors it field for field.
type ConfirmationView struct {
	BookingID    string             `json:"bookingId"`
	FlowTitle    string             `json:"flowTitle"`
	ServiceName  string             `json:"serviceName"`
	Items        []ConfirmationLine `json:"items"`
	CityName     string             `json:"cityName"`
	ProviderName string             `json:"providerName"`
	Date         string             `json:"date"`
	Time         string             `json:"time"`
	AtHome       bool               `json:"atHome"`
	Address      string             `json:"address,omitempty"`
	PatientName  string             `json:"patientName"`
	PatientPhone string             `json:"patientPhone"`
	PatientEmail string             `json:"patientEmail,omitempty"`
	Total        string             `json:"total"`
	Status       string             `json:"status"`
	Fallback     bool               `json:"usedFallbackData"`
}

// BuildConfirmation renders the view from a confirmed session.
func BuildConfirmation(flow *models.FlowConfig, sess *models.WizardSession) (*ConfirmationView, error) {
	if sess.Booking == nil {
		return nil, fmt.Errorf("session has no confirmed booking")
	}
	b := sess.Booking

	view := &ConfirmationView{
		BookingID:    b.ID,
		FlowTitle:    flow.Title,
		ServiceName:  b.ServiceName,
		CityName:     b.CityName,
		ProviderName: b.ProviderName,
		Date:         b.Date,
		Time:         b.Time,
		AtHome:       b.AtHome,
		Address:      b.Address,
		PatientName:  b.PatientName,
		PatientPhone: b.PatientPhone,
		PatientEmail: b.PatientEmail,
		Total:        FormatAmount(b.Total),
		Status:       b.Status,
		Fallback:     b.UsedFallbackData,
	}
	for _, it := range b.Items {
		view.Items = append(view.Items, ConfirmationLine{Name: it.Name, Price: FormatAmount(it.Price)})
	}
	return view, nil
}
