package booking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"carebook/database/repository"
	"carebook/models"
	"carebook/services/refdata"
	"carebook/services/storage"
	"carebook/services/tasks"
	"carebook/services/upstream"
	"carebook/services/wizard"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ErrSubmissionInFlight is returned when a submit lands while another one for
// the same session is still outstanding; the second attempt is a no-op.
var ErrSubmissionInFlight = errors.New("a submission is already in progress")

// ValidationError carries the field-error map of a pre-submit validation
// failure.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking validation failed for %d field(s)", len(e.Fields))
}

const submitLockTTL = 2 * time.Minute

// Submitter assembles and performs the single multipart booking submission.
type Submitter interface {
	Submit(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession) (*models.Booking, error)
}

// DefaultSubmitter implements Submitter against the upstream booking API,
// archiving confirmed bookings and scheduling their reminders.
type DefaultSubmitter struct {
	Client    *upstream.Client
	RefData   refdata.Service
	Validator *wizard.Validator
	Repo      repository.BookingRepository
	Storage   storage.Service
	Locks     *redis.Client
	Tasks     *asynq.Client
	Logger    *zap.Logger
	AtHomeTax float64
}

func lockKey(sessionID string) string {
	return "wizard:submitlock:" + sessionID
}

// Submit validates once more, re-checks the chosen slot, performs exactly one
// multipart POST and returns the confirmed booking. Failures come back as a
// single classified error per attempt; the submission itself is never retried
// automatically.
func (s *DefaultSubmitter) Submit(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession) (*models.Booking, error) {
	acquired, err := s.Locks.SetNX(ctx, lockKey(sess.SessionID), "1", submitLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire submit lock: %w", err)
	}
	if !acquired {
		return nil, ErrSubmissionInFlight
	}
	defer s.Locks.Del(ctx, lockKey(sess.SessionID))

	if sess.Booking != nil {
		return nil, fmt.Errorf("booking already confirmed for this session")
	}

	sel := &sess.Selection
	if errs := s.Validator.ValidateAll(flow, sel); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	if errs := wellFormedIDs(sel); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	// Close the slot race as far as possible before committing.
	if sel.SlotID != "" && !s.RefData.SlotAvailable(ctx, flow, sess, sel.SlotID) {
		return nil, upstream.NewAPIError(upstream.ClassDuplicateBooking, 0, "slot already booked, pick another")
	}

	items := BookedItems(flow, sess)
	total := ComputeTotal(items, sel.AtHome, s.AtHomeTax)

	fields := url.Values{}
	fields.Set("patient_name", sel.Patient.Name)
	fields.Set("patient_phone", sel.Patient.Phone)
	fields.Set("patient_email", sel.Patient.Email)
	if sel.Patient.Address != "" {
		fields.Set("address", sel.Patient.Address)
	}
	if sel.Patient.Condition != "" {
		fields.Set("medical_condition", sel.Patient.Condition)
	}
	fields.Set("city_id", sel.CityID)
	fields.Set("provider_id", sel.ProviderID)
	fields.Set("appointment_id", sel.SlotID)
	fields.Set("date", sel.SlotDate)
	fields.Set("time", sel.SlotTime)
	fields.Set("total", FormatAmount(total))
	if flow.AllowAtHome {
		fields.Set("at_home", fmt.Sprintf("%t", sel.AtHome))
	}
	for _, id := range itemIDs(flow, sel) {
		fields.Add("item_ids[]", id)
	}
	if sel.PaymentIntentID != "" {
		fields.Set("payment_intent_id", sel.PaymentIntentID)
	}

	proof, err := s.loadProof(ctx, sel)
	if err != nil {
		return nil, err
	}

	bookingID, apiErr := s.Client.SubmitBooking(ctx, flow.SubmitPath, fields, proof)
	if apiErr != nil {
		return nil, apiErr
	}

	booking := s.assemble(flow, sess, bookingID, items, total)

	// Archival and reminders are best effort; the upstream booking exists
	// either way and the user must still see their confirmation.
	if err := s.Repo.Create(ctx, booking); err != nil {
		s.Logger.Warn("failed to archive booking", zap.String("bookingId", bookingID), zap.Error(err))
	}
	s.scheduleReminder(booking)

	return booking, nil
}

// wellFormedIDs enforces UUID shape where the upstream expects UUIDs.
// Fallback ids (fb- prefix) are synthetic and exempt; the booking is marked
// as fallback-derived downstream instead.
func wellFormedIDs(sel *models.SelectionState) map[string]string {
	errs := make(map[string]string)
	check := func(field models.Field, id string) {
		if id == "" || strings.HasPrefix(id, "fb-") {
			return
		}
		if _, err := uuid.Parse(id); err != nil {
			errs[string(field)] = "selection is no longer valid, please re-select"
		}
	}
	check(models.FieldService, sel.ServiceID)
	check(models.FieldCity, sel.CityID)
	check(models.FieldProvider, sel.ProviderID)
	check(models.FieldSlot, sel.SlotID)
	for _, id := range sel.ItemIDs {
		check(models.FieldItems, id)
	}
	return errs
}

func itemIDs(flow *models.FlowConfig, sel *models.SelectionState) []string {
	if flow.MultiItem {
		return sel.ItemIDs
	}
	if sel.ServiceID != "" {
		return []string{sel.ServiceID}
	}
	return nil
}

// BookedItems resolves the priced lines from the session's cached reference
// lists. Single-service flows bill the chosen service; when it carries no
// price the provider's visit price applies.
func BookedItems(flow *models.FlowConfig, sess *models.WizardSession) []models.BookedItem {
	var items []models.BookedItem
	for _, id := range itemIDs(flow, &sess.Selection) {
		item := models.BookedItem{ID: id, Name: id}
		if ref, ok := sess.OptionByID(models.CategoryServices, id); ok {
			item.Name = ref.Name
			item.Price = ref.Price
		}
		if item.Price == 0 {
			if prov, ok := sess.OptionByID(models.CategoryProviders, sess.Selection.ProviderID); ok {
				item.Price = prov.Price
			}
		}
		items = append(items, item)
	}
	return items
}

func (s *DefaultSubmitter) loadProof(ctx context.Context, sel *models.SelectionState) (*upstream.ProofFile, error) {
	if sel.PaymentProof == nil || sel.PaymentProof.URL == "" {
		return nil, nil
	}
	data, err := s.Storage.Fetch(ctx, sel.PaymentProof.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment proof for submission: %w", err)
	}
	return &upstream.ProofFile{
		FileName:    sel.PaymentProof.FileName,
		ContentType: sel.PaymentProof.ContentType,
		Data:        data,
	}, nil
}

func (s *DefaultSubmitter) assemble(flow *models.FlowConfig, sess *models.WizardSession, bookingID string, items []models.BookedItem, total float64) *models.Booking {
	sel := &sess.Selection

	booking := &models.Booking{
		ID:               bookingID,
		Flow:             flow.Name,
		ProviderID:       sel.ProviderID,
		Date:             sel.SlotDate,
		Time:             sel.SlotTime,
		Items:            items,
		Total:            total,
		AtHome:           sel.AtHome,
		Address:          sel.Patient.Address,
		PatientName:      sel.Patient.Name,
		PatientPhone:     sel.Patient.Phone,
		PatientEmail:     sel.Patient.Email,
		Status:           models.BookingStatusConfirmed,
		UsedFallbackData: sess.UsedFallbackData(),
		CreatedAt:        time.Now().UTC(),
	}
	if prov, ok := sess.OptionByID(models.CategoryProviders, sel.ProviderID); ok {
		booking.ProviderName = prov.Name
	}
	if city, ok := sess.OptionByID(models.CategoryCities, sel.CityID); ok {
		booking.CityName = city.Name
	}
	if svc, ok := sess.OptionByID(models.CategoryServices, sel.ServiceID); ok {
		booking.ServiceName = svc.Name
	} else if len(items) > 0 {
		booking.ServiceName = items[0].Name
	}
	if sel.PaymentProof != nil {
		booking.PaymentProofURL = sel.PaymentProof.URL
	}
	return booking
}

func (s *DefaultSubmitter) scheduleReminder(booking *models.Booking) {
	if s.Tasks == nil {
		return
	}
	slotAt, err := time.Parse("2006-01-02 15:04", booking.Date+" "+booking.Time)
	if err != nil {
		return
	}
	fireAt := slotAt.Add(-24 * time.Hour)
	if !fireAt.After(time.Now()) {
		return
	}

	task, opts, err := tasks.NewBookingReminderTask(models.ReminderPayload{
		BookingID:    booking.ID,
		Flow:         booking.Flow,
		PatientName:  booking.PatientName,
		ProviderName: booking.ProviderName,
		Date:         booking.Date,
		Time:         booking.Time,
	}, fireAt)
	if err != nil {
		s.Logger.Warn("failed to build reminder task", zap.Error(err))
		return
	}
	if _, err := s.Tasks.Enqueue(task, opts...); err != nil {
		s.Logger.Warn("failed to enqueue booking reminder", zap.String("bookingId", booking.ID), zap.Error(err))
	}
}
