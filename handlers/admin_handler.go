package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tmuoka/servicehub/database"
	"github.com/tmuoka/servicehub/models"
	"github.com/tmuoka/servicehub/services"
)

// BackfillEarnings creates missing earnings for completed bookings. Per-item
// failures are collected, not fatal: the response is 200 when every item
// succeeded, 207 when some failed, and 500 only when the candidate query
// itself failed.
func BackfillEarnings(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	report, err := ledger.BackfillEarnings(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to query completed bookings without earnings"})
	}

	status := fiber.StatusOK
	if report.Errors > 0 {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(report)
}

// RunEarningsClearance triggers a clearance sweep on demand, outside the
// cron schedule. Optional provider_id and delay_hours query parameters.
func RunEarningsClearance(c *fiber.Ctx) error {
	var providerID *uuid.UUID
	if raw := c.Query("provider_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid provider_id"})
		}
		providerID = &parsed
	}
	delayHours, _ := strconv.Atoi(c.Query("delay_hours", "24"))

	report, err := ledger.ProcessEarningsClearance(c.Context(), providerID, delayHours)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to query earnings pending clearance"})
	}

	status := fiber.StatusOK
	if report.Errors > 0 {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(report)
}

func ListPayoutRequests(c *fiber.Ctx) error {
	var requests []models.PayoutRequest
	database.DB.Preload("Provider").Order("requested_at desc").Find(&requests)

	return c.JSON(requests)
}

type PayoutDecisionRequest struct {
	Decision   string `json:"decision" validate:"required,oneof=approved rejected"`
	AdminNotes string `json:"admin_notes"`
}

func ProcessPayoutRequest(c *fiber.Ctx) error {
	payoutID, err := uuid.Parse(c.Params("requestId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout request ID"})
	}

	var req PayoutDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	switch req.Decision {
	case "approved":
		err = payouts.Approve(c.Context(), payoutID)
	case "rejected":
		reason := req.AdminNotes
		if reason == "" {
			reason = "rejected by admin"
		}
		err = payouts.Reject(c.Context(), payoutID, reason)
	}
	if err != nil {
		if errors.Is(err, services.ErrPayoutNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payout request not found"})
		}
		if errors.Is(err, services.ErrInvalidPayoutState) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payout request has already been processed"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process payout request"})
	}

	return c.JSON(fiber.Map{"message": "Payout request processed."})
}

type FreezeEarningRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// FreezeEarning moves an earning to frozen, excluding it from every balance
// bucket pending investigation.
func FreezeEarning(c *fiber.Ctx) error {
	earningID, err := uuid.Parse(c.Params("earningId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid earning ID"})
	}

	var req FreezeEarningRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := ledger.UpdateEarningsStatus(c.Context(), earningID, models.EarningStatusFrozen, nil); err != nil {
		if errors.Is(err, services.ErrEarningNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Earning not found"})
		}
		if errors.Is(err, services.ErrIllegalTransition) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Earning is already frozen"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to freeze earning"})
	}

	return c.JSON(fiber.Map{"message": "Earning frozen."})
}
