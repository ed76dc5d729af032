package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/tmuoka/servicehub/models"
	"github.com/tmuoka/servicehub/services"
)

// BookingStore is the booking persistence handlers mutate through directly.
// The booking repository satisfies it.
type BookingStore interface {
	Cancel(ctx context.Context, bookingID, studentID uuid.UUID) (*models.Booking, error)
}

var (
	reconciler *services.AvailabilityReconciler
	ledger     *services.EarningsLedger
	payouts    *services.PayoutService
	dispatcher *services.ReconcileDispatcher
	bookings   BookingStore
)

// Init wires the domain services into the handler package. Called once from
// main before any route is registered.
func Init(r *services.AvailabilityReconciler, l *services.EarningsLedger, p *services.PayoutService, d *services.ReconcileDispatcher, b BookingStore) {
	reconciler = r
	ledger = l
	payouts = p
	dispatcher = d
	bookings = b
}
