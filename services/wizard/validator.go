package wizard

import (
	"strings"
	"time"

	"carebook/models"

	"github.com/go-playground/validator/v10"
)

// Validator computes the per-step field-error map. It is pure over the flow
// config and the selection state; an empty map means the step is valid.
type Validator struct {
	v             *validator.Validate
	maxProofBytes int64
}

// NewValidator builds a Validator. maxProofMB caps the payment-proof size.
func NewValidator(maxProofMB int) *Validator {
	if maxProofMB <= 0 {
		maxProofMB = 5
	}
	return &Validator{
		v:             validator.New(),
		maxProofBytes: int64(maxProofMB) * 1024 * 1024,
	}
}

// fieldOwner maps each declared field to the step on which it is entered and
// therefore validated.
func fieldOwner(flow *models.FlowConfig, f models.Field) models.Step {
	switch f {
	case models.FieldService, models.FieldItems:
		return models.StepService
	case models.FieldCity:
		return models.StepCity
	case models.FieldProvider:
		return models.StepProvider
	case models.FieldSlot:
		return models.StepAppointment
	default:
		return models.StepPatientInfo
	}
}

// requiredFor returns the required field set for a step, including the
// at-home additions owned by that step while the toggle is on.
func requiredFor(flow *models.FlowConfig, step models.Step, sel *models.SelectionState) []models.Field {
	required := append([]models.Field(nil), flow.Required[step]...)
	if sel.AtHome || flow.AlwaysAtHome {
		for _, f := range flow.AtHomeRequires {
			if fieldOwner(flow, f) == step && !containsField(required, f) {
				required = append(required, f)
			}
		}
	}
	return required
}

func containsField(fields []models.Field, f models.Field) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}

// Validate checks one step of a flow against the selection state and returns
// a field-name to error-message map; empty means the step passes.
func (va *Validator) Validate(flow *models.FlowConfig, step models.Step, sel *models.SelectionState) map[string]string {
	errs := make(map[string]string)

	for _, f := range requiredFor(flow, step, sel) {
		if sel.ValueOf(f) == "" {
			errs[string(f)] = requiredMessage(f)
		}
	}

	// Format rules apply to any populated value, required or not.
	if step == models.StepPatientInfo {
		if sel.Patient.Phone != "" && !va.validPhone(sel.Patient.Phone, flow.Phone) {
			errs[string(models.FieldPhone)] = "valid phone number required"
		}
		if sel.Patient.Email != "" {
			if err := va.v.Var(sel.Patient.Email, "email"); err != nil {
				errs[string(models.FieldEmail)] = "valid email address required"
			}
		}
		if sel.PaymentProof != nil {
			if msg := va.proofError(sel.PaymentProof); msg != "" {
				errs[string(models.FieldPaymentProof)] = msg
			}
		}
	}

	if step == models.StepAppointment && sel.SlotID != "" {
		if sel.SlotDate != "" && !validDate(sel.SlotDate, flow.StrictISODate) {
			errs[string(models.FieldSlot)] = "valid appointment date required"
		}
		if sel.SlotTime != "" && !validTime(sel.SlotTime) {
			errs[string(models.FieldSlot)] = "valid appointment time required"
		}
	}

	return errs
}

// ValidateAll runs every step of the flow up to and including the patient
// step; used once more immediately before submission.
func (va *Validator) ValidateAll(flow *models.FlowConfig, sel *models.SelectionState) map[string]string {
	errs := make(map[string]string)
	for _, step := range flow.Steps {
		if step == models.StepConfirmation {
			continue
		}
		for field, msg := range va.Validate(flow, step, sel) {
			errs[field] = msg
		}
	}
	return errs
}

func requiredMessage(f models.Field) string {
	switch f {
	case models.FieldItems:
		return "select at least one item"
	case models.FieldPaymentProof:
		return "payment proof image required"
	default:
		return "this field is required"
	}
}

// validPhone strips non-digits then applies the flow's digit-count rule.
func (va *Validator) validPhone(phone string, rule models.PhoneRule) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	if digits == "" {
		return false
	}
	if rule.Exact > 0 {
		return len(digits) == rule.Exact
	}
	min, max := rule.Min, rule.Max
	if min == 0 {
		min = 10
	}
	if max == 0 {
		max = 15
	}
	return len(digits) >= min && len(digits) <= max
}

// validDate requires a real calendar date. With strict on, the string must
// round-trip through ISO normalization unchanged, which rejects ambiguous
// spellings like "2026-1-5".
func validDate(date string, strict bool) bool {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		if strict {
			return false
		}
		// Tolerant path accepts a couple of common spellings.
		for _, layout := range []string{"2006-1-2", "02/01/2006"} {
			if _, e := time.Parse(layout, date); e == nil {
				return true
			}
		}
		return false
	}
	if strict {
		return t.Format("2006-01-02") == date
	}
	return true
}

// validTime accepts HH:MM, 24-hour.
func validTime(value string) bool {
	if len(value) != 5 || value[2] != ':' {
		return false
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return false
	}
	return t.Format("15:04") == value
}

// proofError checks the payment-proof constraints before any upload attempt.
func (va *Validator) proofError(proof *models.AttachmentMeta) string {
	if !strings.HasPrefix(proof.ContentType, "image/") {
		return "payment proof must be an image"
	}
	if proof.Size > va.maxProofBytes {
		return "payment proof exceeds the maximum size"
	}
	return ""
}
