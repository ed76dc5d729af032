package handlers

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	config "github.com/tmuoka/servicehub/configs"
	"github.com/tmuoka/servicehub/database"
	"github.com/tmuoka/servicehub/models"
	"github.com/tmuoka/servicehub/repository"
)

type RequestPayoutRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func RequestPayout(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var req RequestPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payout, err := payouts.RequestPayout(c.Context(), providerID, req.Amount, 0)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Insufficient withdrawable balance for this payout request"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create payout request"})
	}

	return c.Status(fiber.StatusCreated).JSON(payout)
}

func GetMyPayoutRequests(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var requests []models.PayoutRequest
	database.DB.Where("provider_id = ?", providerID).Order("requested_at desc").Find(&requests)

	return c.JSON(requests)
}

// TransferWebhookPayload is the transfer provider's callback body.
type TransferWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string `json:"reference"`
		Status          string `json:"status"`
		TransactionRef  string `json:"transaction_ref"`
		CompleteMessage string `json:"complete_message"`
	} `json:"data"`
}

// HandleTransferWebhook reacts to transfer provider callbacks. The signature
// header is checked before any ledger mutation; the payout id travels in the
// transfer reference.
func HandleTransferWebhook(c *fiber.Ctx) error {
	secret := config.Config("PAYOUT_WEBHOOK_SECRET")
	signature := c.Get("verif-hash")
	if secret == "" || subtle.ConstantTimeCompare([]byte(signature), []byte(secret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid webhook signature"})
	}

	var payload TransferWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}

	payoutID, err := uuid.Parse(payload.Data.Reference)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transfer reference"})
	}

	switch payload.Event {
	case "transfer.completed":
		if err := payouts.HandleTransferCompleted(c.Context(), payoutID, payload.Data.TransactionRef); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process transfer completion"})
		}
	case "transfer.failed":
		if err := payouts.HandleTransferFailed(c.Context(), payoutID, payload.Data.CompleteMessage, payload.Data.Status); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process transfer failure"})
		}
	default:
		return c.JSON(fiber.Map{"message": "Event ignored"})
	}

	return c.JSON(fiber.Map{"message": "Webhook processed successfully"})
}
