package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tmuoka/servicehub/handlers"
	"github.com/tmuoka/servicehub/middleware"
)

func ProviderRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Post("/providers/apply", middleware.Protected(), handlers.ApplyToBeAProvider)

	provider := api.Group("/provider", middleware.Protected(), middleware.ProviderRequired())
	provider.Get("/profile", handlers.GetMyProviderProfile)

	provider.Post("/services", handlers.CreateService)
	provider.Get("/services", handlers.GetMyServices)

	provider.Post("/availability", handlers.CreateAvailabilitySlot)
	provider.Get("/availability", handlers.GetMyAvailability)
	provider.Delete("/availability/:slotId", handlers.DeleteAvailabilitySlot)

	provider.Get("/bookings", handlers.GetMyProviderBookings)
	provider.Post("/bookings/:bookingId/confirm", handlers.ConfirmBooking)
	provider.Post("/bookings/:bookingId/complete", handlers.CompleteBooking)

	provider.Get("/earnings", handlers.GetMyEarnings)
	provider.Get("/earnings/summary", handlers.GetMyEarningsSummary)

	provider.Post("/payouts", handlers.RequestPayout)
	provider.Get("/payouts", handlers.GetMyPayoutRequests)
}
