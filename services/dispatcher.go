package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TaskBookingCreated   = "booking_created"
	TaskBookingCancelled = "booking_cancelled"
)

// ReconcileTask is one deferred slot adjustment.
type ReconcileTask struct {
	Kind       string
	ProviderID uuid.UUID
	ServiceID  *uuid.UUID
	At         time.Time
}

// ReconcileDispatcher runs slot counter adjustments after booking writes
// without blocking the request. Enqueue never fails and never rolls a booking
// back: a full queue falls through to a direct goroutine, and a failed
// adjustment is only logged.
type ReconcileDispatcher struct {
	reconciler *AvailabilityReconciler
	tasks      chan ReconcileTask
	logger     *zap.Logger
}

func NewReconcileDispatcher(reconciler *AvailabilityReconciler, logger *zap.Logger, buffer int) *ReconcileDispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &ReconcileDispatcher{
		reconciler: reconciler,
		tasks:      make(chan ReconcileTask, buffer),
		logger:     logger,
	}
}

// Run drains the queue. Intended to be started once as a goroutine.
func (d *ReconcileDispatcher) Run() {
	for task := range d.tasks {
		d.process(task)
	}
}

// Enqueue hands a task to the worker.
func (d *ReconcileDispatcher) Enqueue(task ReconcileTask) {
	select {
	case d.tasks <- task:
	default:
		go d.process(task)
	}
}

func (d *ReconcileDispatcher) process(task ReconcileTask) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var result *ReconcileResult
	var err error
	switch task.Kind {
	case TaskBookingCreated:
		result, err = d.reconciler.UpdateOnBookingCreate(ctx, task.ProviderID, task.ServiceID, task.At)
	case TaskBookingCancelled:
		result, err = d.reconciler.UpdateOnBookingCancel(ctx, task.ProviderID, task.ServiceID, task.At)
	default:
		d.logger.Error("unknown reconcile task kind", zap.String("kind", task.Kind))
		return
	}

	if err != nil {
		d.logger.Error("availability reconciliation failed",
			zap.String("kind", task.Kind),
			zap.String("provider_id", task.ProviderID.String()),
			zap.Time("at", task.At),
			zap.Error(err))
		return
	}
	if !result.Success {
		d.logger.Warn("availability reconciliation rejected",
			zap.String("kind", task.Kind),
			zap.String("provider_id", task.ProviderID.String()),
			zap.String("message", result.Message))
	}
}
