package wizard

import (
	"context"
	"testing"
	"time"

	"carebook/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRefData serves canned lists and lets tests hook the fetch to simulate
// concurrent session mutations while a request is outstanding.
type fakeRefData struct {
	lists     map[models.Category][]models.ReferenceItem
	onOptions func()
}

func (f *fakeRefData) Options(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, category models.Category) (models.OptionList, error) {
	if f.onOptions != nil {
		f.onOptions()
	}
	return models.OptionList{Category: category, Items: f.lists[category]}, nil
}

func (f *fakeRefData) SlotAvailable(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, slotID string) bool {
	return true
}

func (f *fakeRefData) NextAvailability(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, providers []models.ReferenceItem) map[string]models.ReferenceItem {
	return nil
}

func newTestEngine(t *testing.T, ref *fakeRefData) *Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewEngine(rdb, ref, NewValidator(5), zap.NewNop(), time.Minute)
}

func strPtr(s string) *string { return &s }

func TestStartSessionBeginsOnFirstStep(t *testing.T) {
	e := newTestEngine(t, &fakeRefData{})
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, models.StepService, sess.Step)
	assert.NotEmpty(t, sess.SessionID)
	assert.False(t, sess.Selection.AtHome)

	// Nursing is always at home.
	nur, err := e.StartSession(ctx, "nursing-ar")
	require.NoError(t, err)
	assert.True(t, nur.Selection.AtHome)

	_, err = e.StartSession(ctx, "no-such-flow")
	assert.Error(t, err)
}

func TestAdvanceBlockedUntilStepValid(t *testing.T) {
	e := newTestEngine(t, &fakeRefData{})
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "lab")
	require.NoError(t, err)

	fieldErrs, err := e.Advance(ctx, sess)
	require.ErrorIs(t, err, ErrStepBlocked)
	assert.Contains(t, fieldErrs, string(models.FieldItems))
	assert.Equal(t, models.StepService, sess.Step)

	_, err = e.ApplySelection(ctx, sess, SelectionInput{ItemIDs: []string{"item-1"}})
	require.NoError(t, err)

	fieldErrs, err = e.Advance(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, fieldErrs)
	assert.Equal(t, models.StepCity, sess.Step)

	// The saved copy moved too.
	reloaded, err := e.LoadSession(ctx, "lab", sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StepCity, reloaded.Step)
}

func TestConfirmationOnlyReachableThroughSubmission(t *testing.T) {
	e := newTestEngine(t, &fakeRefData{})
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "clinic")
	require.NoError(t, err)
	sess.Step = models.StepPatientInfo
	sess.Selection = models.SelectionState{
		ServiceID:  "svc-1",
		CityID:     "city-1",
		ProviderID: "prov-1",
		SlotID:     "slot-1",
		Patient: models.PatientInfo{
			Name:  "Sara Ahmed",
			Phone: "0101234567",
			Email: "sara@example.com",
		},
	}
	require.NoError(t, e.SaveSession(ctx, sess))

	ok, errs := e.CanAdvance(sess)
	assert.False(t, ok)
	assert.Equal(t, "submit the booking to continue", errs["step"])
}

func TestCascadeResetClearsDownstreamSelections(t *testing.T) {
	e := newTestEngine(t, &fakeRefData{})
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "clinic")
	require.NoError(t, err)
	sess.Step = models.StepAppointment
	sess.Selection.ServiceID = "svc-1"
	sess.Selection.CityID = "city-1"
	sess.Selection.ProviderID = "prov-1"
	sess.Selection.SlotID = "slot-1"
	sess.Selection.SlotDate = "2026-09-05"
	sess.Selection.SlotTime = "10:00"
	sess.SetOptions(models.CategoryProviders, []models.ReferenceItem{{ID: "prov-1", Name: "Dr. A"}}, false)
	sess.SetOptions(models.CategorySlots, []models.ReferenceItem{{ID: "slot-1"}}, false)
	provGen := sess.Generation(models.CategoryProviders)
	slotGen := sess.Generation(models.CategorySlots)
	require.NoError(t, e.SaveSession(ctx, sess))

	_, err = e.ApplySelection(ctx, sess, SelectionInput{CityID: strPtr("city-2")})
	require.NoError(t, err)

	assert.Equal(t, "city-2", sess.Selection.CityID)
	assert.Empty(t, sess.Selection.ProviderID)
	assert.Empty(t, sess.Selection.SlotID)
	assert.Empty(t, sess.Selection.SlotDate)
	assert.Empty(t, sess.Selection.SlotTime)
	// Service upstream of the city is untouched.
	assert.Equal(t, "svc-1", sess.Selection.ServiceID)

	assert.Equal(t, provGen+1, sess.Generation(models.CategoryProviders))
	assert.Equal(t, slotGen+1, sess.Generation(models.CategorySlots))
	assert.NotContains(t, sess.Options, models.CategoryProviders)
	assert.NotContains(t, sess.Options, models.CategorySlots)
}

func TestDisabledSlotCannotBeReselected(t *testing.T) {
	e := newTestEngine(t, &fakeRefData{})
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "clinic")
	require.NoError(t, err)
	sess.DisableSlot("slot-9")
	require.NoError(t, e.SaveSession(ctx, sess))

	errs, err := e.ApplySelection(ctx, sess, SelectionInput{SlotID: strPtr("slot-9")})
	require.NoError(t, err)
	assert.Equal(t, "slot already booked, pick another", errs[string(models.FieldSlot)])
	assert.Empty(t, sess.Selection.SlotID)
}

func TestSlotSelectionDenormalizesDateAndTime(t *testing.T) {
	e := newTestEngine(t, &fakeRefData{})
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "clinic")
	require.NoError(t, err)
	sess.SetOptions(models.CategorySlots, []models.ReferenceItem{
		{ID: "slot-1", Date: "2026-09-05", Time: "10:00", Available: true},
	}, false)
	require.NoError(t, e.SaveSession(ctx, sess))

	_, err = e.ApplySelection(ctx, sess, SelectionInput{SlotID: strPtr("slot-1")})
	require.NoError(t, err)
	assert.Equal(t, "2026-09-05", sess.Selection.SlotDate)
	assert.Equal(t, "10:00", sess.Selection.SlotTime)
}

func TestResetClearsEverything(t *testing.T) {
	e := newTestEngine(t, &fakeRefData{})
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "nursing-ar")
	require.NoError(t, err)
	sess.Step = models.StepPatientInfo
	sess.Selection.ServiceID = "svc-1"
	sess.Selection.Patient.Name = "Sara"
	sess.SetOptions(models.CategoryServices, []models.ReferenceItem{{ID: "svc-1"}}, true)
	sess.DisableSlot("slot-1")
	require.NoError(t, e.SaveSession(ctx, sess))

	require.NoError(t, e.Reset(ctx, sess))
	assert.Equal(t, models.StepService, sess.Step)
	assert.Empty(t, sess.Selection.ServiceID)
	assert.Empty(t, sess.Selection.Patient.Name)
	assert.Nil(t, sess.Options)
	assert.Empty(t, sess.DisabledSlots)
	assert.Nil(t, sess.Booking)
	// AlwaysAtHome flows come back with the toggle pinned on.
	assert.True(t, sess.Selection.AtHome)
}

func TestRetreatFloorsAtFirstStepAndRefusesAfterConfirmation(t *testing.T) {
	e := newTestEngine(t, &fakeRefData{})
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "clinic")
	require.NoError(t, err)

	require.NoError(t, e.Retreat(ctx, sess))
	assert.Equal(t, models.StepService, sess.Step)

	sess.Step = models.StepCity
	require.NoError(t, e.Retreat(ctx, sess))
	assert.Equal(t, models.StepService, sess.Step)

	sess.Step = models.StepConfirmation
	assert.Error(t, e.Retreat(ctx, sess))
}

func TestOptionsForStepStoresResult(t *testing.T) {
	ref := &fakeRefData{lists: map[models.Category][]models.ReferenceItem{
		models.CategoryServices: {{ID: "svc-1", Name: "Blood Work"}},
	}}
	e := newTestEngine(t, ref)
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "clinic")
	require.NoError(t, err)

	list, err := e.OptionsForStep(ctx, sess)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Blood Work", list.Items[0].Name)

	reloaded, err := e.LoadSession(ctx, "clinic", sess.SessionID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Options[models.CategoryServices], 1)
}

func TestOptionsForStepDiscardsStaleResult(t *testing.T) {
	ref := &fakeRefData{lists: map[models.Category][]models.ReferenceItem{
		models.CategoryServices: {{ID: "svc-stale", Name: "Stale"}},
	}}
	e := newTestEngine(t, ref)
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "clinic")
	require.NoError(t, err)

	// While the fetch is outstanding another action invalidates the category.
	ref.onOptions = func() {
		other, err := e.LoadSession(ctx, "clinic", sess.SessionID)
		require.NoError(t, err)
		other.BumpGeneration(models.CategoryServices)
		require.NoError(t, e.SaveSession(ctx, other))
	}

	list, err := e.OptionsForStep(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	reloaded, err := e.LoadSession(ctx, "clinic", sess.SessionID)
	require.NoError(t, err)
	assert.NotContains(t, reloaded.Options, models.CategoryServices)
}

func TestSessionExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	e := NewEngine(rdb, &fakeRefData{}, NewValidator(5), zap.NewNop(), time.Minute)
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "lab")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = e.LoadSession(ctx, "lab", sess.SessionID)
	assert.Error(t, err)
}

func TestOptionsForStepWithoutReferenceData(t *testing.T) {
	e := newTestEngine(t, &fakeRefData{})
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "clinic")
	require.NoError(t, err)
	sess.Step = models.StepPatientInfo

	_, err = e.OptionsForStep(ctx, sess)
	require.ErrorIs(t, err, ErrNoReferenceData)
}
