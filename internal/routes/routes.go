package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"scanwise-server/internal/config"
	"scanwise-server/internal/handlers"
	"scanwise-server/internal/middleware"
	"scanwise-server/internal/models"
	"scanwise-server/internal/schedule"
	"scanwise-server/internal/store"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config) {
	// Initialize handlers
	appointmentStore := store.NewAppointmentStore(db)
	appointmentHandler := handlers.NewAppointmentHandler(
		appointmentStore,
		schedule.SystemClock(),
		time.Duration(cfg.NowRefreshSeconds)*time.Second,
	)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		// Patients book from the public portal; slot catalog backs the
		// booking form.
		public.POST("/appointments", appointmentHandler.CreateAppointment)
		public.GET("/appointments/slots", appointmentHandler.ListSlots)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		appointmentRoutes := private.Group("/appointments")
		{
			// List and calendar projections (patient view is scoped by
			// ?email=, admin view sees everything)
			appointmentRoutes.GET("", appointmentHandler.ListAppointments)
			appointmentRoutes.GET("/calendar", appointmentHandler.GetCalendar)
			appointmentRoutes.GET("/calendar/stream", appointmentHandler.StreamNowMarker)

			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.GET("/:id/ics", appointmentHandler.ExportICS)

			// Status updates: admin approve/reject, patient cancel
			// (differentiated in the handler)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)

			// Reschedule resets the appointment to pending
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment)

			// Raw deletion is an admin-only store operation
			appointmentRoutes.DELETE("/:id",
				middleware.RoleAuthMiddleware(models.RoleAdmin),
				appointmentHandler.DeleteAppointment)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
