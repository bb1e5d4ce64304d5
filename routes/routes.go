package routes

import (
	"time"

	"carebook/handlers"
	"carebook/middleware"
	"carebook/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterWizardRoutes registers the booking wizard endpoints. Every flow
// (lab, nursing-ar, nursing-en, home-visit, clinic) shares these routes; the
// :flow param selects the configuration.
func RegisterWizardRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/wizard/:flow")
	{
		api.POST("/session", hb.StartSession)

		sess := api.Group("/session/:sessionID")
		sess.GET("", hb.GetSession)
		sess.GET("/options", hb.GetOptions)
		sess.PATCH("/selection", hb.ApplySelection)
		sess.POST("/proof", hb.UploadProof)
		sess.POST("/advance", hb.Advance)
		sess.POST("/back", hb.Retreat)
		sess.POST("/reset", hb.ResetSession)
		sess.POST("/dismiss-warning", hb.DismissWarning)

		sess.POST("/payment-intent", hb.CreatePaymentIntent)

		sess.POST("/submit", hb.SubmitBooking)
		sess.GET("/confirmation", hb.GetConfirmation)
		sess.GET("/confirmation/pdf", hb.ExportPDF)
	}
}

// RegisterBookingRoutes registers the archived-booking endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.GET("", hb.ListBookings)
		api.GET("/:id", hb.GetBooking)
		api.DELETE("/:id", hb.CancelBooking)
	}
}

// SetupRoutes builds the gin engine with global middleware and all routes.
func SetupRoutes(hb *handlers.HandlerBundle) *gin.Engine {
	r := gin.New()
	r.Use(utils.ErrorHandler())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RateLimitMiddleware())

	r.GET("/health", hb.HealthCheck)

	RegisterWizardRoutes(r, hb)
	RegisterBookingRoutes(r, hb)

	return r
}
