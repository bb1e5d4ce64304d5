package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"carebook/config"
	"carebook/models"
	"carebook/services/wizard"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StartSession opens a fresh wizard session for the flow in the route.
func (hb *HandlerBundle) StartSession(c *gin.Context) {
	sess, err := hb.Engine.StartSession(c.Request.Context(), c.Param("flow"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	flow, _ := hb.Engine.Flow(sess.Flow)
	hb.Logger.Info("wizard session started",
		zap.String("flow", sess.Flow), zap.String("sessionID", sess.SessionID))
	c.JSON(http.StatusCreated, sessionView(flow, sess))
}

// GetSession returns the current session snapshot.
func (hb *HandlerBundle) GetSession(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionView(flow, sess))
}

// GetOptions loads the reference list the current step renders; on upstream
// failure the list degrades to offline data and carries a warning.
func (hb *HandlerBundle) GetOptions(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}
	list, err := hb.Engine.OptionsForStep(c.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, wizard.ErrNoReferenceData) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load options", "details": err.Error()})
		return
	}
	resp := sessionView(flow, sess)
	resp["optionList"] = list
	c.JSON(http.StatusOK, resp)
}

// ApplySelection mutates the selection state from one user action. Invalid
// values come back as per-field errors without blocking the mutation.
func (hb *HandlerBundle) ApplySelection(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}
	var input wizard.SelectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	fieldErrs, err := hb.Engine.ApplySelection(c.Request.Context(), sess, input)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	resp := sessionView(flow, sess)
	if len(fieldErrs) > 0 {
		resp["fieldErrors"] = fieldErrs
	}
	c.JSON(http.StatusOK, resp)
}

// UploadProof receives the payment-proof image, stores it, and records the
// attachment on the session selection.
func (hb *HandlerBundle) UploadProof(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}
	if !flow.AllowAtHome && !flow.AlwaysAtHome {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment proof is not accepted on this flow"})
		return
	}
	if sess.Selection.PaymentIntentID != "" {
		c.JSON(http.StatusConflict, gin.H{"error": "a card payment is already in progress for this session"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file part", "details": err.Error()})
		return
	}
	maxBytes := int64(config.AppConfig.MaxProofSizeMB) * 1024 * 1024
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"fieldErrors": gin.H{string(models.FieldPaymentProof): fmt.Sprintf("file exceeds %d MB limit", config.AppConfig.MaxProofSizeMB)},
		})
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{
			"fieldErrors": gin.H{string(models.FieldPaymentProof): "payment proof must be an image"},
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file", "details": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file", "details": err.Error()})
		return
	}

	publicID, fileURL, err := hb.Storage.UploadPaymentProof(c.Request.Context(), data, fileHeader.Filename)
	if err != nil {
		hb.Logger.Error("payment proof upload failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store payment proof"})
		return
	}

	meta := &models.AttachmentMeta{
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Size:        fileHeader.Size,
		StorageID:   publicID,
		URL:         fileURL,
	}
	fieldErrs, err := hb.Engine.ApplySelection(c.Request.Context(), sess, wizard.SelectionInput{PaymentProof: meta})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	resp := sessionView(flow, sess)
	if len(fieldErrs) > 0 {
		resp["fieldErrors"] = fieldErrs
	}
	c.JSON(http.StatusOK, resp)
}

// Advance moves the wizard forward one step when the current one validates.
func (hb *HandlerBundle) Advance(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}
	fieldErrs, err := hb.Engine.Advance(c.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, wizard.ErrStepBlocked) {
			resp := sessionView(flow, sess)
			resp["fieldErrors"] = fieldErrs
			c.JSON(http.StatusUnprocessableEntity, resp)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(flow, sess))
}

// Retreat moves one step back. Selections are kept; only navigation changes.
func (hb *HandlerBundle) Retreat(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}
	if err := hb.Engine.Retreat(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(flow, sess))
}

// ResetSession wipes the session back to the first step ("book another").
func (hb *HandlerBundle) ResetSession(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}
	if err := hb.Engine.Reset(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset session", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(flow, sess))
}

// DismissWarning clears one category's offline-data warning.
func (hb *HandlerBundle) DismissWarning(c *gin.Context) {
	flow, sess, ok := hb.loadSession(c)
	if !ok {
		return
	}
	var input struct {
		Category string `json:"category" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if err := hb.Engine.DismissFallbackWarning(c.Request.Context(), sess, models.Category(input.Category)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(flow, sess))
}
