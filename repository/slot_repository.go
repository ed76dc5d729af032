package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tmuoka/servicehub/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSlotAtCapacity = errors.New("availability slot is at maximum capacity")

type SlotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// FindSlot resolves the slot a booking instant falls into: same provider,
// same calendar date, clock time inside [start, end]. A slot bound to no
// service matches any service. Returns (nil, nil) when nothing matches.
func (r *SlotRepository) FindSlot(ctx context.Context, providerID uuid.UUID, serviceID *uuid.UUID, date time.Time, at models.TimeOfDay, onlyAvailable bool) (*models.AvailabilitySlot, error) {
	q := r.db.WithContext(ctx).
		Where("provider_id = ? AND date = ?", providerID, models.DateOf(date)).
		Where("start_time <= ? AND end_time >= ?", int(at), int(at))

	if serviceID != nil {
		q = q.Where("service_id = ? OR service_id IS NULL", *serviceID)
	}
	if onlyAvailable {
		q = q.Where("is_available = ?", true)
	}

	var slot models.AvailabilitySlot
	if err := q.Order("start_time asc").First(&slot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

// ApplyBookingDelta mutates the slot's counter under a row lock. The capacity
// check runs again after the lock is taken, so two concurrent increments can
// never overbook the slot. Counter, is_booked and is_available are written in
// the same update.
func (r *SlotRepository) ApplyBookingDelta(ctx context.Context, slotID uuid.UUID, delta int) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slot, "id = ?", slotID).Error; err != nil {
			return err
		}
		if delta > 0 && slot.CurrentBookings >= slot.MaxBookings {
			return ErrSlotAtCapacity
		}
		slot.ApplyBookingDelta(delta)
		return tx.Model(&slot).Updates(map[string]interface{}{
			"current_bookings": slot.CurrentBookings,
			"is_booked":        slot.IsBooked,
			"is_available":     slot.IsAvailable,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// GetWithService loads a slot and its linked service. Returns (nil, nil)
// when the slot does not exist.
func (r *SlotRepository) GetWithService(ctx context.Context, slotID uuid.UUID) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := r.db.WithContext(ctx).Preload("Service").First(&slot, "id = ?", slotID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

func (r *SlotRepository) Create(ctx context.Context, slot *models.AvailabilitySlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *SlotRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("date asc, start_time asc").
		Find(&slots).Error
	return slots, err
}
