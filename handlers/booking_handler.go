package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/tmuoka/servicehub/database"
	"github.com/tmuoka/servicehub/models"
	"github.com/tmuoka/servicehub/repository"
	"github.com/tmuoka/servicehub/services"
	"gorm.io/gorm"
)

type CreateBookingRequest struct {
	ServiceID string `json:"service_id" validate:"required,uuid"`
	DateTime  string `json:"date_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Notes     string `json:"notes,omitempty"`
}

func CreateBooking(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	studentID, _ := uuid.Parse(claims["user_id"].(string))

	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	serviceID, _ := uuid.Parse(req.ServiceID)

	var service models.Service
	if err := database.DB.First(&service, "id = ?", serviceID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service not found"})
	}
	if !service.IsActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "This service is no longer offered"})
	}

	at, _ := time.Parse(time.RFC3339, req.DateTime)
	if at.Before(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Booking time cannot be in the past"})
	}

	check, err := reconciler.ValidateBookingAvailability(c.Context(), service.ProviderID, &service.ID, at)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check availability"})
	}
	if !check.IsValid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": check.Message})
	}

	booking := models.Booking{
		StudentID:  studentID,
		ProviderID: service.ProviderID,
		ServiceID:  service.ID,
		DateTime:   at,
		Status:     models.BookingStatusPending,
		Price:      service.Price,
		Currency:   service.Currency,
	}
	if req.Notes != "" {
		booking.Notes = &req.Notes
	}
	if err := database.DB.Create(&booking).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create booking"})
	}

	// The slot counter is adjusted after the response; a failure there is
	// logged by the dispatcher and never rolls the booking back.
	dispatcher.Enqueue(services.ReconcileTask{
		Kind:       services.TaskBookingCreated,
		ProviderID: service.ProviderID,
		ServiceID:  &service.ID,
		At:         at,
	})

	return c.Status(fiber.StatusCreated).JSON(booking)
}

func CancelBooking(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	studentID, _ := uuid.Parse(claims["user_id"].(string))
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID format"})
	}

	// The repository flips the status in one conditional update, so only one
	// of two racing cancels gets past this point.
	booking, err := bookings.Cancel(c.Context(), bookingID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotBookingOwner) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This is not your booking"})
		}
		if errors.Is(err, repository.ErrBookingNotCancellable) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only pending or confirmed bookings can be cancelled"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to cancel booking"})
	}
	if booking == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}

	// Enqueued exactly once, gated by the winning status transition, so a
	// cancelled booking triggers at most one compensating decrement.
	dispatcher.Enqueue(services.ReconcileTask{
		Kind:       services.TaskBookingCancelled,
		ProviderID: booking.ProviderID,
		ServiceID:  &booking.ServiceID,
		At:         booking.DateTime,
	})

	return c.JSON(fiber.Map{"message": "Booking cancelled successfully"})
}

func ConfirmBooking(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))
	bookingID := c.Params("bookingId")

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.ProviderID != providerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not the provider for this booking"})
	}
	if booking.Status != models.BookingStatusPending {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only pending bookings can be confirmed"})
	}

	booking.Status = models.BookingStatusConfirmed
	if err := database.DB.Save(&booking).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to confirm booking"})
	}

	return c.JSON(fiber.Map{"message": "Booking confirmed"})
}

func CompleteBooking(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID format"})
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.ProviderID != providerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not the provider for this booking"})
	}
	if booking.Status != models.BookingStatusConfirmed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only confirmed bookings can be marked as complete"})
	}
	if booking.DateTime.After(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot mark a booking as complete before it has taken place"})
	}

	booking.Status = models.BookingStatusCompleted
	if err := database.DB.Save(&booking).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to complete booking"})
	}

	if err := ledger.CreateEarningsFromCompletedBooking(c.Context(), bookingID); err != nil {
		// The booking stays completed; the admin backfill recovers missed
		// earnings.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Booking completed but recording earnings failed"})
	}

	return c.JSON(fiber.Map{"message": "Booking marked as complete and earnings have been recorded."})
}

func GetMyBookings(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	studentID, _ := uuid.Parse(claims["user_id"].(string))

	var bookings []models.Booking
	database.DB.
		Preload("Provider").
		Preload("Service").
		Where("student_id = ?", studentID).
		Order("date_time desc").
		Find(&bookings)

	return c.JSON(bookings)
}

func GetMyProviderBookings(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var bookings []models.Booking
	database.DB.
		Preload("Student").
		Preload("Service").
		Where("provider_id = ?", providerID).
		Order("date_time desc").
		Find(&bookings)

	return c.JSON(bookings)
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func CreateReview(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	studentID, _ := uuid.Parse(claims["user_id"].(string))
	bookingID := c.Params("bookingId")

	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var newReview models.Review
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			return errors.New("booking not found")
		}
		if booking.StudentID != studentID {
			return errors.New("you are not the student for this booking")
		}
		if booking.Status != models.BookingStatusCompleted {
			return errors.New("reviews can only be submitted for completed bookings")
		}

		var existingReview models.Review
		if err := tx.Where("booking_id = ?", bookingID).First(&existingReview).Error; err == nil {
			return errors.New("a review for this booking has already been submitted")
		}

		newReview = models.Review{
			BookingID:  booking.ID,
			StudentID:  studentID,
			ProviderID: booking.ProviderID,
			Rating:     req.Rating,
			Comment:    req.Comment,
		}
		if err := tx.Create(&newReview).Error; err != nil {
			return err
		}

		var result struct {
			Avg float64
		}
		tx.Model(&models.Review{}).Where("provider_id = ?", booking.ProviderID).Select("avg(rating) as avg").Scan(&result)

		if err := tx.Model(&models.Provider{}).Where("user_id = ?", booking.ProviderID).Update("avg_rating", result.Avg).Error; err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(newReview)
}
