package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/tmuoka/servicehub/database"
	"github.com/tmuoka/servicehub/models"
)

type CreateAvailabilityRequest struct {
	ServiceID   *string `json:"service_id,omitempty" validate:"omitempty,uuid"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	MaxBookings int     `json:"max_bookings,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

func CreateAvailabilitySlot(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var req CreateAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	startTime, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start time, use HH:MM"})
	}
	endTime, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end time, use HH:MM"})
	}
	if startTime >= endTime {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Start time must be before end time"})
	}

	maxBookings := 1
	if req.MaxBookings > 1 {
		maxBookings = req.MaxBookings
	}

	slot := models.AvailabilitySlot{
		ProviderID:  providerID,
		Date:        models.DateOf(date),
		StartTime:   startTime,
		EndTime:     endTime,
		MaxBookings: maxBookings,
		IsAvailable: true,
	}
	if req.ServiceID != nil {
		serviceID, err := uuid.Parse(*req.ServiceID)
		if err == nil {
			var service models.Service
			if err := database.DB.First(&service, "id = ? AND provider_id = ?", serviceID, providerID).Error; err != nil {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service not found"})
			}
			slot.ServiceID = &serviceID
		}
	}
	if req.Notes != "" {
		slot.Notes = &req.Notes
	}

	if err := database.DB.Create(&slot).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create availability slot"})
	}

	return c.Status(fiber.StatusCreated).JSON(slot)
}

func GetMyAvailability(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID := claims["user_id"].(string)

	var slots []models.AvailabilitySlot
	database.DB.Where("provider_id = ?", providerID).
		Order("date asc, start_time asc").
		Find(&slots)

	return c.JSON(slots)
}

func GetProviderAvailability(c *fiber.Ctx) error {
	providerID := c.Params("providerId")

	var slots []models.AvailabilitySlot
	database.DB.Where("provider_id = ? AND is_available = ? AND date >= ?",
		providerID, true, models.DateOf(time.Now())).
		Order("date asc, start_time asc").
		Find(&slots)

	return c.JSON(slots)
}

func DeleteAvailabilitySlot(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))
	slotID := c.Params("slotId")

	var slot models.AvailabilitySlot
	if err := database.DB.First(&slot, "id = ? AND provider_id = ?", slotID, providerID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Availability slot not found or you do not have permission to delete it."})
	}

	if slot.CurrentBookings > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot delete a slot that has active bookings."})
	}

	database.DB.Delete(&slot)

	return c.SendStatus(fiber.StatusNoContent)
}

func GetSlotStats(c *fiber.Ctx) error {
	slotID, err := uuid.Parse(c.Params("slotId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot ID format"})
	}

	stats, err := reconciler.GetAvailabilityStats(c.Context(), slotID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load slot stats"})
	}
	if stats == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Availability slot not found"})
	}

	return c.JSON(stats)
}

// CheckAvailability is the public pre-booking validation endpoint. The
// message is safe to show to the client as-is.
func CheckAvailability(c *fiber.Ctx) error {
	providerID, err := uuid.Parse(c.Query("provider_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid provider_id"})
	}

	var serviceID *uuid.UUID
	if raw := c.Query("service_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service_id"})
		}
		serviceID = &parsed
	}

	at, err := time.Parse(time.RFC3339, c.Query("datetime"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid datetime, use RFC3339"})
	}

	check, err := reconciler.ValidateBookingAvailability(c.Context(), providerID, serviceID, at)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check availability"})
	}

	return c.JSON(check)
}
