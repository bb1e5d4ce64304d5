package handlers

import (
	"net/http"

	"carebook/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreatePaymentIntent opens a card payment intent for the session's current
// total, as the alternative to uploading a transfer proof. The intent id is
// recorded on the selection and travels with the submission.
func (hb *HandlerBundle) CreatePaymentIntent(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}
	if hb.Payment == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "card payments are not configured"})
		return
	}
	if sess.Selection.PaymentProof != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a payment proof is already attached to this session"})
		return
	}

	items := booking.BookedItems(flow, sess)
	if len(items) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "select a service before paying"})
		return
	}
	total := booking.ComputeTotal(items, sess.Selection.AtHome, hb.AtHomeTax)

	intent, err := hb.Payment.CreateIntent(total, "egp", sess.SessionID)
	if err != nil {
		hb.Logger.Error("payment intent creation failed",
			zap.String("sessionID", sess.SessionID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to start card payment"})
		return
	}

	sess.Selection.PaymentIntentID = intent.ID
	if err := hb.Engine.SaveSession(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"intent": intent,
		"total":  booking.FormatAmount(total),
	})
}
