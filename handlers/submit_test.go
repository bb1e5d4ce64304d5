package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carebook/models"
	"carebook/services/booking"
	"carebook/services/upstream"
	"carebook/services/wizard"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRefData struct{}

func (fakeRefData) Options(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, category models.Category) (models.OptionList, error) {
	return models.OptionList{Category: category}, nil
}

func (fakeRefData) SlotAvailable(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, slotID string) bool {
	return true
}

func (fakeRefData) NextAvailability(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession, providers []models.ReferenceItem) map[string]models.ReferenceItem {
	return nil
}

// fakeSubmitter returns a scripted outcome per call.
type fakeSubmitter struct {
	booking *models.Booking
	err     error
}

func (f *fakeSubmitter) Submit(ctx context.Context, flow *models.FlowConfig, sess *models.WizardSession) (*models.Booking, error) {
	return f.booking, f.err
}

type testRig struct {
	engine *wizard.Engine
	bundle *HandlerBundle
	router *gin.Engine
}

func newTestRig(t *testing.T, submitter booking.Submitter) *testRig {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	engine := wizard.NewEngine(rdb, fakeRefData{}, wizard.NewValidator(5), zap.NewNop(), time.Minute)
	hb := &HandlerBundle{
		Engine:    engine,
		Submitter: submitter,
		AtHomeTax: 10,
		Logger:    zap.NewNop(),
	}

	r := gin.New()
	r.POST("/api/wizard/:flow/session", hb.StartSession)
	sess := r.Group("/api/wizard/:flow/session/:sessionID")
	sess.GET("", hb.GetSession)
	sess.GET("/options", hb.GetOptions)
	sess.PATCH("/selection", hb.ApplySelection)
	sess.POST("/proof", hb.UploadProof)
	sess.POST("/payment-intent", hb.CreatePaymentIntent)
	sess.POST("/advance", hb.Advance)
	sess.POST("/submit", hb.SubmitBooking)
	sess.GET("/confirmation", hb.GetConfirmation)
	sess.GET("/confirmation/pdf", hb.ExportPDF)
	return &testRig{engine: engine, bundle: hb, router: r}
}

func (rig *testRig) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	rig.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

// startSession creates a clinic session primed to the patient step.
func (rig *testRig) startSubmittableSession(t *testing.T) *models.WizardSession {
	t.Helper()
	ctx := context.Background()
	sess, err := rig.engine.StartSession(ctx, "clinic")
	require.NoError(t, err)
	sess.Step = models.StepPatientInfo
	sess.Selection = models.SelectionState{
		ServiceID:  "fb-sp-1",
		CityID:     "fb-city-1",
		ProviderID: "fb-prov-1",
		SlotID:     "fb-slot-1",
		SlotDate:   "2026-09-05",
		SlotTime:   "10:00",
		Patient: models.PatientInfo{
			Name:  "Sara Ahmed",
			Phone: "0101234567",
			Email: "sara@example.com",
		},
	}
	require.NoError(t, rig.engine.SaveSession(ctx, sess))
	return sess
}

func TestStartSessionEndpoint(t *testing.T) {
	rig := newTestRig(t, &fakeSubmitter{})

	w := rig.do(http.MethodPost, "/api/wizard/lab/session", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	payload := decode(t, w)
	assert.Equal(t, "lab", payload["flow"])
	assert.Equal(t, "service", payload["step"])
	assert.NotEmpty(t, payload["sessionId"])

	w = rig.do(http.MethodPost, "/api/wizard/no-such-flow/session", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSessionUnknownIDIs404(t *testing.T) {
	rig := newTestRig(t, &fakeSubmitter{})
	w := rig.do(http.MethodGet, "/api/wizard/lab/session/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApplySelectionReturnsFieldErrorsWithoutBlocking(t *testing.T) {
	rig := newTestRig(t, &fakeSubmitter{})
	sess := rig.startSubmittableSession(t)

	path := fmt.Sprintf("/api/wizard/clinic/session/%s/selection", sess.SessionID)
	w := rig.do(http.MethodPatch, path, gin.H{"phone": "123"})
	require.Equal(t, http.StatusOK, w.Code)

	payload := decode(t, w)
	fieldErrs, ok := payload["fieldErrors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fieldErrs, "phone")

	// The bad value is stored anyway; only forward navigation is blocked.
	reloaded, err := rig.engine.LoadSession(context.Background(), "clinic", sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "123", reloaded.Selection.Patient.Phone)
}

func TestAdvanceBlockedReturns422(t *testing.T) {
	rig := newTestRig(t, &fakeSubmitter{})

	w := rig.do(http.MethodPost, "/api/wizard/lab/session", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := decode(t, w)["sessionId"].(string)

	w = rig.do(http.MethodPost, fmt.Sprintf("/api/wizard/lab/session/%s/advance", sessionID), nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	payload := decode(t, w)
	assert.Contains(t, payload["fieldErrors"], "itemIds")
}

func TestSubmitSuccessConfirmsSession(t *testing.T) {
	confirmed := &models.Booking{
		ID:           "bk-1",
		Flow:         "clinic",
		ProviderName: "Care Clinic",
		Date:         "2026-09-05",
		Time:         "10:00",
		PatientName:  "Sara Ahmed",
		Items:        []models.BookedItem{{ID: "a", Name: "Internal Medicine", Price: 250}},
		Total:        250,
		Status:       models.BookingStatusConfirmed,
	}
	rig := newTestRig(t, &fakeSubmitter{booking: confirmed})
	sess := rig.startSubmittableSession(t)

	w := rig.do(http.MethodPost, fmt.Sprintf("/api/wizard/clinic/session/%s/submit", sess.SessionID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode(t, w)
	assert.Equal(t, "confirmation", payload["step"])
	assert.Contains(t, payload, "confirmation")

	reloaded, err := rig.engine.LoadSession(context.Background(), "clinic", sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StepConfirmation, reloaded.Step)
	require.NotNil(t, reloaded.Booking)
	assert.Equal(t, "bk-1", reloaded.Booking.ID)
}

func TestSubmitDuplicateDisablesSlotAndReturnsToAppointment(t *testing.T) {
	rig := newTestRig(t, &fakeSubmitter{
		err: upstream.NewAPIError(upstream.ClassDuplicateBooking, 409, "slot already booked"),
	})
	sess := rig.startSubmittableSession(t)
	takenSlot := sess.Selection.SlotID

	w := rig.do(http.MethodPost, fmt.Sprintf("/api/wizard/clinic/session/%s/submit", sess.SessionID), nil)
	require.Equal(t, http.StatusConflict, w.Code)

	payload := decode(t, w)
	assert.Equal(t, "appointment", payload["step"])
	fieldErrs := payload["fieldErrors"].(map[string]any)
	assert.Contains(t, fieldErrs, "slotId")

	reloaded, err := rig.engine.LoadSession(context.Background(), "clinic", sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StepAppointment, reloaded.Step)
	assert.Empty(t, reloaded.Selection.SlotID)
	assert.True(t, reloaded.SlotDisabled(takenSlot))
}

func TestSubmitErrorClassMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{upstream.NewAPIError(upstream.ClassAuthExpired, 401, "expired"), http.StatusUnauthorized},
		{upstream.NewAPIError(upstream.ClassValidationRejected, 422, "bad phone"), http.StatusUnprocessableEntity},
		{upstream.NewAPIError(upstream.ClassNetworkUnreachable, 0, "offline"), http.StatusServiceUnavailable},
		{upstream.NewAPIError(upstream.ClassMalformedResponse, 200, "no id"), http.StatusBadGateway},
		{upstream.NewAPIError(upstream.ClassServerError, 500, "boom"), http.StatusBadGateway},
		{booking.ErrSubmissionInFlight, http.StatusConflict},
		{&booking.ValidationError{Fields: map[string]string{"phone": "invalid"}}, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		rig := newTestRig(t, &fakeSubmitter{err: tc.err})
		sess := rig.startSubmittableSession(t)
		w := rig.do(http.MethodPost, fmt.Sprintf("/api/wizard/clinic/session/%s/submit", sess.SessionID), nil)
		assert.Equal(t, tc.code, w.Code, "error %v", tc.err)
	}
}

func TestConfirmationAndPDFRequireBooking(t *testing.T) {
	rig := newTestRig(t, &fakeSubmitter{})
	sess := rig.startSubmittableSession(t)
	base := fmt.Sprintf("/api/wizard/clinic/session/%s", sess.SessionID)

	assert.Equal(t, http.StatusNotFound, rig.do(http.MethodGet, base+"/confirmation", nil).Code)
	assert.Equal(t, http.StatusNotFound, rig.do(http.MethodGet, base+"/confirmation/pdf", nil).Code)

	require.NoError(t, rig.engine.CompleteBooking(context.Background(), sess, &models.Booking{
		ID:           "bk-1",
		ProviderName: "Care Clinic",
		Date:         "2026-09-05",
		Time:         "10:00",
		PatientName:  "Sara Ahmed",
		Items:        []models.BookedItem{{Name: "Internal Medicine", Price: 250}},
		Total:        250,
		Status:       models.BookingStatusConfirmed,
	}))

	w := rig.do(http.MethodGet, base+"/confirmation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)
	assert.Equal(t, "250.00", view["total"])

	w = rig.do(http.MethodGet, base+"/confirmation/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "booking-bk-1.pdf")
	assert.Equal(t, "%PDF", w.Body.String()[:4])
}

func TestGetOptionsOnStepWithoutReferenceData(t *testing.T) {
	rig := newTestRig(t, &fakeSubmitter{})
	sess := rig.startSubmittableSession(t)

	path := fmt.Sprintf("/api/wizard/clinic/session/%s/options", sess.SessionID)
	w := rig.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
