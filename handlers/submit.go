package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"carebook/models"
	"carebook/services/booking"
	"carebook/services/export"
	"carebook/services/upstream"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SubmitBooking performs the single booking submission for the session and
// maps every failure class to a distinct, recoverable HTTP response.
func (hb *HandlerBundle) SubmitBooking(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	confirmed, err := hb.Submitter.Submit(ctx, flow, sess)
	if err != nil {
		hb.handleSubmitError(c, flow, sess, err)
		return
	}

	if err := hb.Engine.CompleteBooking(ctx, sess, confirmed); err != nil {
		// The upstream booking exists even if the session save failed.
		hb.Logger.Error("failed to persist confirmed session",
			zap.String("bookingID", confirmed.ID), zap.Error(err))
	}
	hb.Logger.Info("booking confirmed",
		zap.String("flow", flow.Name),
		zap.String("bookingID", confirmed.ID),
		zap.Bool("usedFallbackData", confirmed.UsedFallbackData))

	resp := sessionView(flow, sess)
	if view, verr := booking.BuildConfirmation(flow, sess); verr == nil {
		resp["confirmation"] = view
	}
	c.JSON(http.StatusOK, resp)
}

func (hb *HandlerBundle) handleSubmitError(c *gin.Context, flow *models.FlowConfig, sess *models.WizardSession, err error) {
	ctx := c.Request.Context()

	if errors.Is(err, booking.ErrSubmissionInFlight) {
		c.JSON(http.StatusConflict, gin.H{"error": "submission already in progress, please wait"})
		return
	}

	var vErr *booking.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "booking data is invalid", "fieldErrors": vErr.Fields})
		return
	}

	var apiErr *upstream.APIError
	if !errors.As(err, &apiErr) {
		hb.Logger.Error("booking submission failed", zap.String("flow", flow.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "booking submission failed", "details": err.Error()})
		return
	}

	switch apiErr.Class {
	case upstream.ClassAuthExpired:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session with the booking service expired, please try again"})
	case upstream.ClassValidationRejected:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "the booking service rejected the data", "details": apiErr.Message})
	case upstream.ClassDuplicateBooking:
		// The chosen slot is gone. Disable it, drop the user back on the
		// appointment step and let them pick another.
		if sess.Selection.SlotID != "" {
			sess.DisableSlot(sess.Selection.SlotID)
			sess.Selection.Clear(models.FieldSlot)
		}
		sess.Step = models.StepAppointment
		if saveErr := hb.Engine.SaveSession(ctx, sess); saveErr != nil {
			hb.Logger.Error("failed to save session after duplicate booking", zap.Error(saveErr))
		}
		resp := sessionView(flow, sess)
		resp["error"] = "that slot was just booked by someone else"
		resp["fieldErrors"] = gin.H{string(models.FieldSlot): "slot already booked, pick another"}
		c.JSON(http.StatusConflict, resp)
	case upstream.ClassNetworkUnreachable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "booking service unreachable, check your connection and retry"})
	case upstream.ClassMalformedResponse:
		hb.Logger.Error("malformed booking response", zap.String("flow", flow.Name), zap.Error(apiErr))
		c.JSON(http.StatusBadGateway, gin.H{"error": "booking service returned an unusable response, please retry"})
	default:
		hb.Logger.Error("booking service error", zap.String("flow", flow.Name), zap.Error(apiErr))
		c.JSON(http.StatusBadGateway, gin.H{"error": "booking service error, please retry later"})
	}
}

// GetConfirmation renders the confirmation summary for a submitted session.
func (hb *HandlerBundle) GetConfirmation(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}
	view, err := booking.BuildConfirmation(flow, sess)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// ExportPDF streams the confirmation summary as a downloadable PDF.
func (hb *HandlerBundle) ExportPDF(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}
	view, err := booking.BuildConfirmation(flow, sess)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	pdfBytes, err := export.RenderPDF(view)
	if err != nil {
		hb.Logger.Error("pdf render failed", zap.String("bookingID", view.BookingID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render PDF"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(view)))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
