package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tmuoka/servicehub/models"
	"gorm.io/gorm"
)

var (
	ErrNotBookingOwner       = errors.New("booking belongs to another student")
	ErrBookingNotCancellable = errors.New("booking is not in a cancellable status")
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GetWithDetails loads a booking with its service and both parties. Returns
// (nil, nil) when the booking does not exist.
func (r *BookingRepository) GetWithDetails(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Student").
		Preload("Provider").
		First(&booking, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

// Cancel flips a pending or confirmed booking to cancelled in a single
// conditional update, so two concurrent cancels cannot both pass the status
// guard. Returns (nil, nil) when the booking does not exist.
func (r *BookingRepository) Cancel(ctx context.Context, bookingID, studentID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if booking.StudentID != studentID {
		return nil, ErrNotBookingOwner
	}

	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status IN ?", bookingID,
			[]string{models.BookingStatusPending, models.BookingStatusConfirmed}).
		Update("status", models.BookingStatusCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrBookingNotCancellable
	}

	booking.Status = models.BookingStatusCancelled
	return &booking, nil
}

// ListCompletedWithoutEarnings returns completed bookings that have no
// earning row yet, oldest first. The admin backfill iterates over these.
func (r *BookingRepository) ListCompletedWithoutEarnings(ctx context.Context, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Joins("LEFT JOIN earnings ON earnings.booking_id = bookings.id").
		Where("bookings.status = ? AND earnings.id IS NULL", models.BookingStatusCompleted).
		Order("bookings.updated_at asc").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}
