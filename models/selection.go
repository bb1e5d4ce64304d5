package models

// PatientInfo holds the freeform fields collected on the patient step.
type PatientInfo struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// AttachmentMeta describes an uploaded payment-proof image. The binary is
// uploaded to storage once; StorageID/URL are carried in the session and the
// raw bytes ride into the multipart submission.
type AttachmentMeta struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	StorageID   string `json:"storageId,omitempty"`
	URL         string `json:"url,omitempty"`
}

// SelectionState is the user's in-progress choices for one wizard session.
// It is mutated only by explicit select/patch actions and cleared whole on
// reset.
type SelectionState struct {
	ServiceID  string   `json:"serviceId,omitempty"`
	CityID     string   `json:"cityId,omitempty"`
	ProviderID string   `json:"providerId,omitempty"`
	SlotID     string   `json:"slotId,omitempty"`
	ItemIDs    []string `json:"itemIds,omitempty"`

	// Denormalized from the chosen slot so validation and the confirmation
	// view do not depend on the cached slot list surviving.
	SlotDate string `json:"slotDate,omitempty"`
	SlotTime string `json:"slotTime,omitempty"`

	Patient PatientInfo `json:"patient"`

	AtHome          bool            `json:"atHome"`
	PaymentProof    *AttachmentMeta `json:"paymentProof,omitempty"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
}

// ValueOf returns the selection value behind a declared field name.
func (s *SelectionState) ValueOf(f Field) string {
	switch f {
	case FieldService:
		return s.ServiceID
	case FieldCity:
		return s.CityID
	case FieldProvider:
		return s.ProviderID
	case FieldSlot:
		return s.SlotID
	case FieldItems:
		if len(s.ItemIDs) == 0 {
			return ""
		}
		return s.ItemIDs[0]
	case FieldName:
		return s.Patient.Name
	case FieldPhone:
		return s.Patient.Phone
	case FieldEmail:
		return s.Patient.Email
	case FieldAddress:
		return s.Patient.Address
	case FieldPaymentProof:
		if s.PaymentProof == nil {
			return ""
		}
		return s.PaymentProof.StorageID
	}
	return ""
}

// Clear resets a single declared field to its zero value.
func (s *SelectionState) Clear(f Field) {
	switch f {
	case FieldService:
		s.ServiceID = ""
	case FieldCity:
		s.CityID = ""
	case FieldProvider:
		s.ProviderID = ""
	case FieldSlot:
		s.SlotID = ""
		s.SlotDate = ""
		s.SlotTime = ""
	case FieldItems:
		s.ItemIDs = nil
	case FieldName:
		s.Patient.Name = ""
	case FieldPhone:
		s.Patient.Phone = ""
	case FieldEmail:
		s.Patient.Email = ""
	case FieldAddress:
		s.Patient.Address = ""
	case FieldPaymentProof:
		s.PaymentProof = nil
	}
}
