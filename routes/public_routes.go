package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tmuoka/servicehub/handlers"
)

func PublicRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/providers/:providerId/services", handlers.GetProviderServices)
	api.Get("/providers/:providerId/availability", handlers.GetProviderAvailability)
	api.Get("/availability/check", handlers.CheckAvailability)
	api.Get("/availability/:slotId/stats", handlers.GetSlotStats)

	api.Get("/earnings/preview", handlers.GetEarningsPreview)
	api.Get("/earnings/fee-config", handlers.GetPlatformFeeConfig)
}
