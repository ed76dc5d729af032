package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tmuoka/servicehub/models"
	"github.com/tmuoka/servicehub/repository"
	"go.uber.org/zap"
)

// SlotStore is the slot persistence the reconciler needs.
type SlotStore interface {
	FindSlot(ctx context.Context, providerID uuid.UUID, serviceID *uuid.UUID, date time.Time, at models.TimeOfDay, onlyAvailable bool) (*models.AvailabilitySlot, error)
	ApplyBookingDelta(ctx context.Context, slotID uuid.UUID, delta int) (*models.AvailabilitySlot, error)
	GetWithService(ctx context.Context, slotID uuid.UUID) (*models.AvailabilitySlot, error)
}

// AvailabilityCheck is the result of a pre-booking validation. Message is
// shown to the client verbatim.
type AvailabilityCheck struct {
	IsValid bool                    `json:"is_valid"`
	Message string                  `json:"message"`
	Slot    *models.AvailabilitySlot `json:"slot,omitempty"`
}

// ReconcileResult reports a slot counter adjustment.
type ReconcileResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AvailabilityStats is a read-only projection of one slot.
type AvailabilityStats struct {
	SlotID          uuid.UUID        `json:"slot_id"`
	Date            time.Time        `json:"date"`
	StartTime       models.TimeOfDay `json:"start_time"`
	EndTime         models.TimeOfDay `json:"end_time"`
	MaxBookings     int              `json:"max_bookings"`
	CurrentBookings int              `json:"current_bookings"`
	AvailableSpots  int              `json:"available_spots"`
	IsAvailable     bool             `json:"is_available"`
	ServiceName     string           `json:"service_name,omitempty"`
	ServiceDuration int              `json:"service_duration_minutes,omitempty"`
}

// AvailabilityReconciler keeps slot booking counters consistent with booking
// creation and cancellation. All operations are functions of repository
// state; the reconciler itself holds nothing mutable.
type AvailabilityReconciler struct {
	slots  SlotStore
	logger *zap.Logger
}

func NewAvailabilityReconciler(slots SlotStore, logger *zap.Logger) *AvailabilityReconciler {
	return &AvailabilityReconciler{slots: slots, logger: logger}
}

// ValidateBookingAvailability checks whether a booking at the given instant
// can be accepted. Read-only.
func (r *AvailabilityReconciler) ValidateBookingAvailability(ctx context.Context, providerID uuid.UUID, serviceID *uuid.UUID, at time.Time) (*AvailabilityCheck, error) {
	slot, err := r.slots.FindSlot(ctx, providerID, serviceID, at, models.TimeOfDayOf(at), true)
	if err != nil {
		return nil, fmt.Errorf("find slot: %w", err)
	}
	if slot == nil {
		return &AvailabilityCheck{
			IsValid: false,
			Message: "No availability slot found for the requested time",
		}, nil
	}
	if slot.CurrentBookings >= slot.MaxBookings {
		return &AvailabilityCheck{
			IsValid: false,
			Message: "This time slot is fully booked",
		}, nil
	}
	return &AvailabilityCheck{IsValid: true, Message: "Slot is available", Slot: slot}, nil
}

// UpdateOnBookingCreate increments the matching slot's counter. A booking
// with no matching slot is tolerated: not every booking is slot-backed, so
// the operation succeeds without capacity tracking. The lookup ignores the
// is_available flag so a retried update still finds the slot it already
// filled.
func (r *AvailabilityReconciler) UpdateOnBookingCreate(ctx context.Context, providerID uuid.UUID, serviceID *uuid.UUID, at time.Time) (*ReconcileResult, error) {
	slot, err := r.slots.FindSlot(ctx, providerID, serviceID, at, models.TimeOfDayOf(at), false)
	if err != nil {
		return nil, fmt.Errorf("find slot: %w", err)
	}
	if slot == nil {
		return &ReconcileResult{
			Success: true,
			Message: "No availability slot matches this booking time; capacity tracking skipped",
		}, nil
	}

	updated, err := r.slots.ApplyBookingDelta(ctx, slot.ID, 1)
	if err != nil {
		if errors.Is(err, repository.ErrSlotAtCapacity) {
			return &ReconcileResult{
				Success: false,
				Message: "This availability slot is at maximum capacity",
			}, nil
		}
		return nil, fmt.Errorf("increment slot %s: %w", slot.ID, err)
	}

	r.logger.Info("availability slot incremented",
		zap.String("slot_id", updated.ID.String()),
		zap.String("provider_id", providerID.String()),
		zap.Int("current_bookings", updated.CurrentBookings),
		zap.Int("max_bookings", updated.MaxBookings),
	)
	return &ReconcileResult{
		Success: true,
		Message: fmt.Sprintf("Slot updated to %d/%d bookings", updated.CurrentBookings, updated.MaxBookings),
	}, nil
}

// UpdateOnBookingCancel decrements the matching slot's counter, floored at
// zero. A previously full slot is found regardless of its is_available flag
// so it can be freed. A missing slot is a tolerant no-op.
func (r *AvailabilityReconciler) UpdateOnBookingCancel(ctx context.Context, providerID uuid.UUID, serviceID *uuid.UUID, at time.Time) (*ReconcileResult, error) {
	slot, err := r.slots.FindSlot(ctx, providerID, serviceID, at, models.TimeOfDayOf(at), false)
	if err != nil {
		return nil, fmt.Errorf("find slot: %w", err)
	}
	if slot == nil {
		return &ReconcileResult{
			Success: true,
			Message: "No availability slot matches this booking time; nothing to release",
		}, nil
	}

	updated, err := r.slots.ApplyBookingDelta(ctx, slot.ID, -1)
	if err != nil {
		return nil, fmt.Errorf("decrement slot %s: %w", slot.ID, err)
	}

	r.logger.Info("availability slot decremented",
		zap.String("slot_id", updated.ID.String()),
		zap.String("provider_id", providerID.String()),
		zap.Int("current_bookings", updated.CurrentBookings),
		zap.Int("max_bookings", updated.MaxBookings),
	)
	return &ReconcileResult{
		Success: true,
		Message: fmt.Sprintf("Slot updated to %d/%d bookings", updated.CurrentBookings, updated.MaxBookings),
	}, nil
}

// GetAvailabilityStats returns a projection of one slot, or (nil, nil) when
// the slot does not exist.
func (r *AvailabilityReconciler) GetAvailabilityStats(ctx context.Context, slotID uuid.UUID) (*AvailabilityStats, error) {
	slot, err := r.slots.GetWithService(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", slotID, err)
	}
	if slot == nil {
		return nil, nil
	}

	stats := &AvailabilityStats{
		SlotID:          slot.ID,
		Date:            slot.Date,
		StartTime:       slot.StartTime,
		EndTime:         slot.EndTime,
		MaxBookings:     slot.MaxBookings,
		CurrentBookings: slot.CurrentBookings,
		AvailableSpots:  slot.AvailableSpots(),
		IsAvailable:     slot.IsAvailable,
	}
	if slot.ServiceID != nil {
		stats.ServiceName = slot.Service.Name
		stats.ServiceDuration = slot.Service.DurationMinutes
	}
	return stats, nil
}
