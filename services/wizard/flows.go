package wizard

import "carebook/models"

// The five booking flows are thin configurations over the shared engine.
// Everything flow-specific lives here: step order, upstream paths, cascade
// resets, required sets and market rules.

var allSteps = []models.Step{
	models.StepService,
	models.StepCity,
	models.StepProvider,
	models.StepAppointment,
	models.StepPatientInfo,
	models.StepConfirmation,
}

var defaultStepCategories = map[models.Step]models.Category{
	models.StepService:     models.CategoryServices,
	models.StepCity:        models.CategoryCities,
	models.StepProvider:    models.CategoryProviders,
	models.StepAppointment: models.CategorySlots,
}

// defaultResets cascades every downstream selection when an upstream field
// changes. Failing to cascade is the classic stale-selection bug, so the
// declarations are explicit per field rather than computed.
var defaultResets = map[models.Field][]models.Field{
	models.FieldService:  {models.FieldCity, models.FieldProvider, models.FieldSlot},
	models.FieldItems:    {models.FieldProvider, models.FieldSlot},
	models.FieldCity:     {models.FieldProvider, models.FieldSlot},
	models.FieldProvider: {models.FieldSlot},
}

var defaultInvalidates = map[models.Field][]models.Category{
	models.FieldService:  {models.CategoryCities, models.CategoryProviders, models.CategorySlots},
	models.FieldItems:    {models.CategoryProviders, models.CategorySlots},
	models.FieldCity:     {models.CategoryProviders, models.CategorySlots},
	models.FieldProvider: {models.CategorySlots},
}

func endpoints(prefix string) map[models.Category]string {
	return map[models.Category]string{
		models.CategoryServices:  "/" + prefix + "/services",
		models.CategoryCities:    "/" + prefix + "/cities",
		models.CategoryProviders: "/" + prefix + "/providers",
		models.CategorySlots:     "/" + prefix + "/slots",
	}
}

// LabFlow books laboratory analyses, optionally collected at home.
func LabFlow() *models.FlowConfig {
	return &models.FlowConfig{
		Name:           "lab",
		Title:          "Laboratory Tests",
		Steps:          allSteps,
		StepCategories: defaultStepCategories,
		Endpoints:      endpoints("lab"),
		SubmitPath:     "/lab/bookings",
		CancelPath:     "/lab/bookings",
		Resets:         defaultResets,
		Invalidates:    defaultInvalidates,
		Required: map[models.Step][]models.Field{
			models.StepService:     {models.FieldItems},
			models.StepCity:        {models.FieldCity},
			models.StepProvider:    {models.FieldProvider},
			models.StepAppointment: {models.FieldSlot},
			models.StepPatientInfo: {models.FieldName, models.FieldPhone, models.FieldEmail},
		},
		AtHomeRequires: []models.Field{models.FieldAddress, models.FieldPaymentProof},
		Phone:          models.PhoneRule{Min: 10, Max: 15},
		MultiItem:      true,
		AllowAtHome:    true,
	}
}

// NursingARFlow books at-home nursing visits for the AR market, which uses a
// strict 11-digit phone rule. Nursing is always at home.
func NursingARFlow() *models.FlowConfig {
	return &models.FlowConfig{
		Name:           "nursing-ar",
		Title:          "Nursing Visits",
		Steps:          allSteps,
		StepCategories: defaultStepCategories,
		Endpoints:      endpoints("nursing/ar"),
		SubmitPath:     "/nursing/ar/bookings",
		CancelPath:     "/nursing/ar/bookings",
		Resets:         defaultResets,
		Invalidates:    defaultInvalidates,
		Required: map[models.Step][]models.Field{
			models.StepService:     {models.FieldService},
			models.StepCity:        {models.FieldCity},
			models.StepProvider:    {models.FieldProvider},
			models.StepAppointment: {models.FieldSlot},
			models.StepPatientInfo: {models.FieldName, models.FieldPhone, models.FieldEmail},
		},
		AtHomeRequires: []models.Field{models.FieldAddress, models.FieldPaymentProof},
		Phone:          models.PhoneRule{Exact: 11},
		AllowAtHome:    true,
		AlwaysAtHome:   true,
	}
}

// NursingENFlow is the EN-market nursing flow.
func NursingENFlow() *models.FlowConfig {
	f := NursingARFlow()
	f.Name = "nursing-en"
	f.Endpoints = endpoints("nursing/en")
	f.SubmitPath = "/nursing/en/bookings"
	f.CancelPath = "/nursing/en/bookings"
	f.Phone = models.PhoneRule{Min: 10, Max: 15}
	return f
}

// HomeVisitFlow books an at-home doctor consultation. Home-visit slot dates
// must round-trip ISO normalization exactly.
func HomeVisitFlow() *models.FlowConfig {
	return &models.FlowConfig{
		Name:           "home-visit",
		Title:          "Doctor Home Visit",
		Steps:          allSteps,
		StepCategories: defaultStepCategories,
		Endpoints:      endpoints("consultations/home"),
		SubmitPath:     "/consultations/home/bookings",
		CancelPath:     "/consultations/home/bookings",
		Resets:         defaultResets,
		Invalidates:    defaultInvalidates,
		Required: map[models.Step][]models.Field{
			models.StepService:     {models.FieldService},
			models.StepCity:        {models.FieldCity},
			models.StepProvider:    {models.FieldProvider},
			models.StepAppointment: {models.FieldSlot},
			models.StepPatientInfo: {models.FieldName, models.FieldPhone, models.FieldEmail},
		},
		AtHomeRequires: []models.Field{models.FieldAddress, models.FieldPaymentProof},
		Phone:          models.PhoneRule{Min: 10, Max: 15},
		AllowAtHome:    true,
		AlwaysAtHome:   true,
		StrictISODate:  true,
	}
}

// ClinicFlow books an in-clinic consultation; no address or payment proof.
func ClinicFlow() *models.FlowConfig {
	return &models.FlowConfig{
		Name:           "clinic",
		Title:          "Clinic Consultation",
		Steps:          allSteps,
		StepCategories: defaultStepCategories,
		Endpoints:      endpoints("consultations/clinic"),
		SubmitPath:     "/consultations/clinic/bookings",
		CancelPath:     "/consultations/clinic/bookings",
		Resets:         defaultResets,
		Invalidates:    defaultInvalidates,
		Required: map[models.Step][]models.Field{
			models.StepService:     {models.FieldService},
			models.StepCity:        {models.FieldCity},
			models.StepProvider:    {models.FieldProvider},
			models.StepAppointment: {models.FieldSlot},
			models.StepPatientInfo: {models.FieldName, models.FieldPhone, models.FieldEmail},
		},
		Phone: models.PhoneRule{Min: 10, Max: 15},
	}
}

// Flows returns the registry of all booking flows keyed by name.
func Flows() map[string]*models.FlowConfig {
	flows := map[string]*models.FlowConfig{}
	for _, f := range []*models.FlowConfig{
		LabFlow(), NursingARFlow(), NursingENFlow(), HomeVisitFlow(), ClinicFlow(),
	} {
		flows[f.Name] = f
	}
	return flows
}
