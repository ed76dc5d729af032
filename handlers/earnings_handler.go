package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/tmuoka/servicehub/database"
	"github.com/tmuoka/servicehub/models"
)

// GetEarningsPreview returns the gross/fee/net split for an amount. It uses
// the same calculation as actual earning creation, so the preview and the
// recorded earning can never disagree for the same amount.
func GetEarningsPreview(c *fiber.Ctx) error {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A positive amount query parameter is required"})
	}

	return c.JSON(ledger.CalculateEarnings(amount))
}

func GetPlatformFeeConfig(c *fiber.Ctx) error {
	cfg := ledger.PlatformFeeConfig()
	return c.JSON(fiber.Map{
		"fee_percentage": cfg.FeePercentage,
		"minimum_fee":    cfg.MinimumFee,
		"currency":       cfg.Currency,
	})
}

func GetMyEarningsSummary(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	summary, err := ledger.GetProviderEarningsSummary(c.Context(), providerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load earnings summary"})
	}

	return c.JSON(summary)
}

func GetMyEarnings(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var earnings []models.Earning
	database.DB.Where("provider_id = ?", providerID).
		Order("created_at desc").
		Find(&earnings)

	return c.JSON(earnings)
}
