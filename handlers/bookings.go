package handlers

import (
	"net/http"

	"carebook/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListBookings returns the archived bookings, optionally filtered by flow.
// Bookings with missing display fields are flagged incomplete so clients can
// render them greyed out instead of hiding them.
func (hb *HandlerBundle) ListBookings(c *gin.Context) {
	bookings, err := hb.Repo.List(c.Request.Context(), c.Query("flow"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bookings", "details": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		out = append(out, gin.H{
			"booking":    b,
			"incomplete": !b.IsComplete(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out, "count": len(out)})
}

// GetBooking returns one archived booking by id.
func (hb *HandlerBundle) GetBooking(c *gin.Context) {
	b, err := hb.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b, "incomplete": !b.IsComplete()})
}

// CancelBooking cancels an archived booking with the upstream service, then
// marks the archive copy cancelled.
func (hb *HandlerBundle) CancelBooking(c *gin.Context) {
	var input struct {
		Reason string `json:"reason"`
	}
	// Reason is optional; an empty body is fine.
	_ = c.ShouldBindJSON(&input)

	ctx := c.Request.Context()
	b, err := hb.Repo.GetByID(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found", "details": err.Error()})
		return
	}
	if b.Status == models.BookingStatusCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "booking is already cancelled"})
		return
	}

	flow, err := hb.Engine.Flow(b.Flow)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if apiErr := hb.Upstream.CancelBooking(ctx, flow.CancelPath, b.ID, input.Reason); apiErr != nil {
		hb.Logger.Error("upstream cancellation failed",
			zap.String("bookingID", b.ID), zap.Error(apiErr))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to cancel with the booking service", "details": apiErr.Message})
		return
	}

	if err := hb.Repo.MarkCancelled(ctx, b.ID, input.Reason); err != nil {
		hb.Logger.Error("failed to mark booking cancelled", zap.String("bookingID", b.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled", "bookingId": b.ID})
}
