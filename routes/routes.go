package routes

import (
	"time"

	"innkeeper/handlers"
	"innkeeper/middleware"
	"innkeeper/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle carries the wired handlers for route registration.
type HandlerBundle struct {
	StayHandler    *handlers.StayHandler
	HoldHandler    *handlers.HoldHandler
	WebhookHandler *handlers.WebhookHandler
}

// RegisterStayRoutes registers the stay lifecycle endpoints.
func RegisterStayRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/stays")
	{
		api.Use(middleware.AgentAuthMiddleware())
		api.Use(middleware.IdempotencyMiddleware(utils.GetIdemClient()))
		api.POST("", hb.StayHandler.CreateStay)
		api.GET("/:stayID", hb.StayHandler.GetStay)
		api.POST("/:stayID/availability", hb.StayHandler.MarkAvailability)
		api.POST("/:stayID/book", hb.StayHandler.ConvertHold)
		api.POST("/:stayID/deposit", hb.StayHandler.CaptureDeposit)
		api.POST("/:stayID/balance", hb.StayHandler.CaptureBalance)
		api.POST("/:stayID/check-in", hb.StayHandler.CheckIn)
		api.POST("/:stayID/check-out", hb.StayHandler.CheckOut)
		api.POST("/:stayID/complete", hb.StayHandler.Complete)
		api.POST("/:stayID/modification", hb.StayHandler.RequestModification)
		api.POST("/:stayID/cancellation", hb.StayHandler.RequestCancellation)
		api.POST("/:stayID/no-show", hb.StayHandler.ReportNoShow)
		api.POST("/:stayID/refund-confirmation", hb.StayHandler.ConfirmRefund)
		api.GET("/:stayID/dead-letters", hb.WebhookHandler.ListDeadLetters)
	}
}

// RegisterHoldRoutes registers the hold endpoints.
func RegisterHoldRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/holds")
	{
		api.Use(middleware.AgentAuthMiddleware())
		api.Use(middleware.IdempotencyMiddleware(utils.GetIdemClient()))
		api.POST("", hb.HoldHandler.CreateHold)
		api.GET("/:holdID", hb.HoldHandler.GetHold)
		api.DELETE("/:holdID", hb.HoldHandler.CancelHold)
	}
}

// RegisterVenueRoutes registers venue-facing configuration endpoints.
func RegisterVenueRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/venues")
	{
		api.Use(middleware.AgentAuthMiddleware())
		api.PUT("/:venueID/webhook", hb.WebhookHandler.RegisterEndpoint)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.Health)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterStayRoutes(r, hb)
	RegisterHoldRoutes(r, hb)
	RegisterVenueRoutes(r, hb)
}
