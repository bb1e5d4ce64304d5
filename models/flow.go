package models

// Step is a position in a flow's ordered wizard sequence.
type Step int

const (
	StepService Step = iota + 1
	StepCity
	StepProvider
	StepAppointment
	StepPatientInfo
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepService:
		return "service"
	case StepCity:
		return "city"
	case StepProvider:
		return "provider"
	case StepAppointment:
		return "appointment"
	case StepPatientInfo:
		return "patientInfo"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// Category names a reference-data resource fetched from the upstream API.
type Category string

const (
	CategoryServices  Category = "services"
	CategoryCities    Category = "cities"
	CategoryProviders Category = "providers"
	CategorySlots     Category = "slots"
)

// Field names a selection field for cascade-reset and required-set declarations.
type Field string

const (
	FieldService      Field = "serviceId"
	FieldCity         Field = "cityId"
	FieldProvider     Field = "providerId"
	FieldSlot         Field = "slotId"
	FieldItems        Field = "itemIds"
	FieldName         Field = "name"
	FieldPhone        Field = "phone"
	FieldEmail        Field = "email"
	FieldAddress      Field = "address"
	FieldPaymentProof Field = "paymentProof"
)

// PhoneRule describes the digit-count rule applied after stripping non-digits.
// Exact wins over the Min/Max range when non-zero.
type PhoneRule struct {
	Exact int
	Min   int
	Max   int
}

// FlowConfig is one booking flow expressed as configuration over the shared
// wizard engine: its step list, the reference category each step renders,
// upstream endpoint paths, cascade-reset declarations and required field sets.
type FlowConfig struct {
	Name  string
	Title string

	Steps []Step

	// Category each step needs loaded before it is usable. Steps without
	// reference data (patient info, confirmation) are absent.
	StepCategories map[Step]Category

	// Upstream path per category, relative to the API base URL.
	Endpoints  map[Category]string
	SubmitPath string
	CancelPath string

	// Resets declares which downstream fields are cleared when a field
	// changes; Invalidates lists the cached categories dropped with them.
	Resets      map[Field][]Field
	Invalidates map[Field][]Category

	// Required fields per step. AtHomeRequires lists the fields that become
	// mandatory only while the at-home toggle is on.
	Required       map[Step][]Field
	AtHomeRequires []Field

	Phone PhoneRule

	// MultiItem flows (lab analyses) accept one or more item selections on
	// the service step instead of a single service id.
	MultiItem bool

	// AllowAtHome exposes the home-visit toggle; AlwaysAtHome pins it on
	// (nursing visits). StrictISODate rejects dates that do not round-trip
	// through ISO normalization unchanged.
	AllowAtHome   bool
	AlwaysAtHome  bool
	StrictISODate bool
}

// CategoryFor returns the reference category step k renders, if any.
func (f *FlowConfig) CategoryFor(step Step) (Category, bool) {
	c, ok := f.StepCategories[step]
	return c, ok
}

// StepIndex returns the position of step within the flow, or -1.
func (f *FlowConfig) StepIndex(step Step) int {
	for i, s := range f.Steps {
		if s == step {
			return i
		}
	}
	return -1
}

// NextStep returns the step after cur, or cur when cur is last.
func (f *FlowConfig) NextStep(cur Step) Step {
	i := f.StepIndex(cur)
	if i < 0 || i+1 >= len(f.Steps) {
		return cur
	}
	return f.Steps[i+1]
}

// PrevStep returns the step before cur, or cur when cur is first.
func (f *FlowConfig) PrevStep(cur Step) Step {
	i := f.StepIndex(cur)
	if i <= 0 {
		return cur
	}
	return f.Steps[i-1]
}

// FirstStep returns the flow's opening step.
func (f *FlowConfig) FirstStep() Step {
	if len(f.Steps) == 0 {
		return StepService
	}
	return f.Steps[0]
}
