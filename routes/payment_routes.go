package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tmuoka/servicehub/handlers"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// Signature-checked inside the handler; no JWT on provider callbacks.
	api.Post("/webhooks/transfers", handlers.HandleTransferWebhook)
}
