package handlers

import (
	"net/http"

	"carebook/database/repository"
	"carebook/models"
	"carebook/services/booking"
	"carebook/services/payment"
	"carebook/services/refdata"
	"carebook/services/storage"
	"carebook/services/upstream"
	"carebook/services/wizard"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandlerBundle groups the service dependencies every HTTP handler draws
// from, so routes receive one wired object instead of a pile of globals.
type HandlerBundle struct {
	Engine    *wizard.Engine
	Submitter booking.Submitter
	Storage   storage.Service
	Payment   payment.Service
	Repo      repository.BookingRepository
	Upstream  *upstream.Client
	AtHomeTax float64
	Logger    *zap.Logger
}

// NewHandlerBundle wires the bundle.
func NewHandlerBundle(
	engine *wizard.Engine,
	submitter booking.Submitter,
	storageSvc storage.Service,
	paymentSvc payment.Service,
	repo repository.BookingRepository,
	upstreamClient *upstream.Client,
	atHomeTax float64,
	logger *zap.Logger,
) *HandlerBundle {
	return &HandlerBundle{
		Engine:    engine,
		Submitter: submitter,
		Storage:   storageSvc,
		Payment:   paymentSvc,
		Repo:      repo,
		Upstream:  upstreamClient,
		AtHomeTax: atHomeTax,
		Logger:    logger,
	}
}

// loadSession resolves the flow and session from the route params, writing
// the error response itself when either is missing.
func (hb *HandlerBundle) loadSession(c *gin.Context) (*models.FlowConfig, *models.WizardSession, bool) {
	flowName := c.Param("flow")
	flow, err := hb.Engine.Flow(flowName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	sess, err := hb.Engine.LoadSession(c.Request.Context(), flowName, c.Param("sessionID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found or expired", "details": err.Error()})
		return nil, nil, false
	}
	return flow, sess, true
}

// sessionView is the wire shape every wizard endpoint returns: the session
// snapshot plus enough flow metadata for a client to render the step.
func sessionView(flow *models.FlowConfig, sess *models.WizardSession) gin.H {
	warnings := map[string]string{}
	for cat, flagged := range sess.FallbackFlags {
		if flagged {
			warnings[string(cat)] = refdata.DegradedWarning
		}
	}

	view := gin.H{
		"sessionId":  sess.SessionID,
		"flow":       sess.Flow,
		"flowTitle":  flow.Title,
		"step":       sess.Step.String(),
		"stepIndex":  flow.StepIndex(sess.Step),
		"totalSteps": len(flow.Steps),
		"selection":  sess.Selection,
	}
	if len(sess.Options) > 0 {
		view["options"] = sess.Options
	}
	if len(warnings) > 0 {
		view["fallbackWarnings"] = warnings
	}
	if len(sess.DisabledSlots) > 0 {
		view["disabledSlots"] = sess.DisabledSlots
	}
	if sess.Booking != nil {
		view["booking"] = sess.Booking
	}
	return view
}
