package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carebook/models"
	"carebook/services/refdata"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrStepBlocked is returned by Advance when validation or a missing
// dependency blocks the forward transition; the field map carries the detail.
var ErrStepBlocked = fmt.Errorf("step requirements not met")

// ErrNoReferenceData is returned by OptionsForStep on steps that render no
// reference list, like patient info and confirmation.
var ErrNoReferenceData = fmt.Errorf("step has no reference data")

// SelectionInput is one explicit user action against the selection state.
// Nil pointers leave a field untouched.
type SelectionInput struct {
	ServiceID  *string  `json:"serviceId,omitempty"`
	CityID     *string  `json:"cityId,omitempty"`
	ProviderID *string  `json:"providerId,omitempty"`
	SlotID     *string  `json:"slotId,omitempty"`
	ItemIDs    []string `json:"itemIds,omitempty"`

	AtHome *bool `json:"atHome,omitempty"`

	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Address   *string `json:"address,omitempty"`
	Condition *string `json:"condition,omitempty"`

	PaymentProof *models.AttachmentMeta `json:"paymentProof,omitempty"`
}

// Engine is the shared wizard state machine. All five booking flows run on
// one engine instance; sessions live in Redis for the wizard's lifetime.
type Engine struct {
	Flows     map[string]*models.FlowConfig
	Cache     *redis.Client
	RefData   refdata.Service
	Validator *Validator
	Logger    *zap.Logger
	TTL       time.Duration
}

// NewEngine wires the engine with the full flow registry.
func NewEngine(cache *redis.Client, refSvc refdata.Service, validator *Validator, logger *zap.Logger, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Engine{
		Flows:     Flows(),
		Cache:     cache,
		RefData:   refSvc,
		Validator: validator,
		Logger:    logger,
		TTL:       ttl,
	}
}

// Flow resolves a flow config by name.
func (e *Engine) Flow(name string) (*models.FlowConfig, error) {
	f, ok := e.Flows[name]
	if !ok {
		return nil, fmt.Errorf("unknown booking flow %q", name)
	}
	return f, nil
}

func sessionKey(flow, id string) string {
	return fmt.Sprintf("wizard:%s:%s", flow, id)
}

// StartSession creates a fresh session on the flow's first step and stores it.
func (e *Engine) StartSession(ctx context.Context, flowName string) (*models.WizardSession, error) {
	flow, err := e.Flow(flowName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &models.WizardSession{
		SessionID: uuid.New().String(),
		Flow:      flow.Name,
		Step:      flow.FirstStep(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if flow.AlwaysAtHome {
		sess.Selection.AtHome = true
	}
	if err := e.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// LoadSession fetches a session from Redis.
func (e *Engine) LoadSession(ctx context.Context, flowName, sessionID string) (*models.WizardSession, error) {
	data, err := e.Cache.Get(ctx, sessionKey(flowName, sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("wizard session not found or expired: %w", err)
	}
	var sess models.WizardSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("failed to parse wizard session: %w", err)
	}
	return &sess, nil
}

// SaveSession persists a session, refreshing its TTL.
func (e *Engine) SaveSession(ctx context.Context, sess *models.WizardSession) error {
	sess.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal wizard session: %w", err)
	}
	if err := e.Cache.Set(ctx, sessionKey(sess.Flow, sess.SessionID), data, e.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store wizard session: %w", err)
	}
	return nil
}

// ApplySelection mutates the selection state from one explicit user action,
// cascading resets over every downstream field whose upstream changed, and
// persists the session. Returns a field-error map for rejected inputs.
func (e *Engine) ApplySelection(ctx context.Context, sess *models.WizardSession, input SelectionInput) (map[string]string, error) {
	flow, err := e.Flow(sess.Flow)
	if err != nil {
		return nil, err
	}
	if sess.Step == models.StepConfirmation {
		return nil, fmt.Errorf("booking already confirmed; reset to start another")
	}

	sel := &sess.Selection

	if input.ServiceID != nil && *input.ServiceID != sel.ServiceID {
		sel.ServiceID = *input.ServiceID
		e.cascade(flow, sess, models.FieldService)
	}
	if input.ItemIDs != nil && !sameIDs(input.ItemIDs, sel.ItemIDs) {
		sel.ItemIDs = input.ItemIDs
		e.cascade(flow, sess, models.FieldItems)
	}
	if input.CityID != nil && *input.CityID != sel.CityID {
		sel.CityID = *input.CityID
		e.cascade(flow, sess, models.FieldCity)
	}
	if input.ProviderID != nil && *input.ProviderID != sel.ProviderID {
		sel.ProviderID = *input.ProviderID
		e.cascade(flow, sess, models.FieldProvider)
	}
	if input.SlotID != nil && *input.SlotID != sel.SlotID {
		if sess.SlotDisabled(*input.SlotID) {
			return map[string]string{string(models.FieldSlot): "slot already booked, pick another"}, nil
		}
		sel.SlotID = *input.SlotID
		sel.SlotDate, sel.SlotTime = "", ""
		if slot, ok := sess.OptionByID(models.CategorySlots, *input.SlotID); ok {
			sel.SlotDate, sel.SlotTime = slot.Date, slot.Time
		}
	}

	if input.AtHome != nil && flow.AllowAtHome && !flow.AlwaysAtHome {
		sel.AtHome = *input.AtHome
	}

	if input.Name != nil {
		sel.Patient.Name = *input.Name
	}
	if input.Phone != nil {
		sel.Patient.Phone = *input.Phone
	}
	if input.Email != nil {
		sel.Patient.Email = *input.Email
	}
	if input.Address != nil {
		sel.Patient.Address = *input.Address
	}
	if input.Condition != nil {
		sel.Patient.Condition = *input.Condition
	}
	if input.PaymentProof != nil {
		sel.PaymentProof = input.PaymentProof
	}

	// Errors are recomputed on every relevant input change; they do not block
	// the mutation itself, only forward navigation.
	errs := e.Validator.Validate(flow, sess.Step, sel)
	if err := e.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return errs, nil
}

// cascade clears the fields downstream of a changed field and invalidates the
// cached categories their steps render.
func (e *Engine) cascade(flow *models.FlowConfig, sess *models.WizardSession, changed models.Field) {
	for _, f := range flow.Resets[changed] {
		sess.Selection.Clear(f)
	}
	for _, c := range flow.Invalidates[changed] {
		sess.BumpGeneration(c)
	}
}

// CanAdvance reports whether the current step validates clean and the next
// step's dependency key is computable. Loading itself happens on step entry.
func (e *Engine) CanAdvance(sess *models.WizardSession) (bool, map[string]string) {
	flow, err := e.Flow(sess.Flow)
	if err != nil {
		return false, nil
	}
	if sess.Step == models.StepConfirmation {
		return false, nil
	}

	errs := e.Validator.Validate(flow, sess.Step, &sess.Selection)
	if len(errs) > 0 {
		return false, errs
	}

	next := flow.NextStep(sess.Step)
	if next == models.StepConfirmation {
		// Confirmation is reached only through a successful submission.
		return false, map[string]string{"step": "submit the booking to continue"}
	}
	if cat, ok := flow.CategoryFor(next); ok {
		if _, ready := refdata.KeyFor(flow, cat, &sess.Selection); !ready {
			return false, map[string]string{"step": "complete the current step first"}
		}
	}
	return true, nil
}

// Advance moves to the next step when CanAdvance allows it; otherwise it is a
// no-op and the blocking field errors are returned with ErrStepBlocked.
func (e *Engine) Advance(ctx context.Context, sess *models.WizardSession) (map[string]string, error) {
	ok, errs := e.CanAdvance(sess)
	if !ok {
		return errs, ErrStepBlocked
	}
	flow, _ := e.Flow(sess.Flow)
	sess.Step = flow.NextStep(sess.Step)
	return nil, e.SaveSession(ctx, sess)
}

// Retreat moves one step back unconditionally, flooring at the first step.
// The confirmation step is terminal; going back from it is refused.
func (e *Engine) Retreat(ctx context.Context, sess *models.WizardSession) error {
	flow, err := e.Flow(sess.Flow)
	if err != nil {
		return err
	}
	if sess.Step == models.StepConfirmation {
		return fmt.Errorf("booking already confirmed; reset to start another")
	}
	sess.Step = flow.PrevStep(sess.Step)
	return e.SaveSession(ctx, sess)
}

// Reset clears the whole session back to step 1 ("book another").
func (e *Engine) Reset(ctx context.Context, sess *models.WizardSession) error {
	flow, err := e.Flow(sess.Flow)
	if err != nil {
		return err
	}
	sess.Step = flow.FirstStep()
	sess.Selection = models.SelectionState{}
	if flow.AlwaysAtHome {
		sess.Selection.AtHome = true
	}
	sess.Options = nil
	sess.FallbackFlags = nil
	sess.DisabledSlots = nil
	sess.Booking = nil
	for _, c := range []models.Category{models.CategoryServices, models.CategoryCities, models.CategoryProviders, models.CategorySlots} {
		sess.BumpGeneration(c)
	}
	return e.SaveSession(ctx, sess)
}

// OptionsForStep loads the reference list the current step renders. The fetch
// is issued under the category's current generation; if a cascade reset
// bumped the generation while the fetch was in flight, the stale result is
// discarded silently and the caller sees the fresh session state instead.
func (e *Engine) OptionsForStep(ctx context.Context, sess *models.WizardSession) (*models.OptionList, error) {
	flow, err := e.Flow(sess.Flow)
	if err != nil {
		return nil, err
	}
	cat, ok := flow.CategoryFor(sess.Step)
	if !ok {
		return nil, fmt.Errorf("step %s: %w", sess.Step, ErrNoReferenceData)
	}

	gen := sess.Generation(cat)
	list, err := e.RefData.Options(ctx, flow, sess, cat)
	if err != nil {
		return nil, err
	}

	// Re-read the session: another action may have changed the fetch key
	// while the request was outstanding.
	fresh, err := e.LoadSession(ctx, sess.Flow, sess.SessionID)
	if err != nil {
		return nil, err
	}
	if fresh.Generation(cat) != gen {
		e.Logger.Debug("discarding stale reference fetch",
			zap.String("category", string(cat)),
			zap.Int64("issuedGeneration", gen),
			zap.Int64("currentGeneration", fresh.Generation(cat)))
		*sess = *fresh
		if items, ok := fresh.Options[cat]; ok {
			return &models.OptionList{Category: cat, Items: items, Fallback: fresh.FallbackFlags[cat]}, nil
		}
		return &models.OptionList{Category: cat}, nil
	}

	fresh.SetOptions(cat, list.Items, list.Fallback)
	if err := e.SaveSession(ctx, fresh); err != nil {
		return nil, err
	}
	*sess = *fresh
	return &list, nil
}

// DismissFallbackWarning clears one category's fallback flag at the user's
// request; the data itself stays until a successful refetch.
func (e *Engine) DismissFallbackWarning(ctx context.Context, sess *models.WizardSession, cat models.Category) error {
	if sess.FallbackFlags != nil {
		sess.FallbackFlags[cat] = false
	}
	return e.SaveSession(ctx, sess)
}

// CompleteBooking records a confirmed booking and moves the session to its
// terminal confirmation step.
func (e *Engine) CompleteBooking(ctx context.Context, sess *models.WizardSession, booking *models.Booking) error {
	sess.Booking = booking
	sess.Step = models.StepConfirmation
	return e.SaveSession(ctx, sess)
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
