package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tmuoka/servicehub/handlers"
	"github.com/tmuoka/servicehub/middleware"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())
	admin.Post("/earnings/backfill", handlers.BackfillEarnings)
	admin.Post("/earnings/clearance", handlers.RunEarningsClearance)
	admin.Post("/earnings/:earningId/freeze", handlers.FreezeEarning)

	admin.Get("/payout-requests", handlers.ListPayoutRequests)
	admin.Post("/payout-requests/:requestId", handlers.ProcessPayoutRequest)
}
