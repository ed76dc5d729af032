package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tmuoka/servicehub/models"
	"go.uber.org/zap"
)

// syncSlotStore guards the in-memory fake for use from the dispatcher's
// worker goroutine.
type syncSlotStore struct {
	mu    sync.Mutex
	inner *fakeSlotStore
}

func (s *syncSlotStore) FindSlot(ctx context.Context, providerID uuid.UUID, serviceID *uuid.UUID, date time.Time, at models.TimeOfDay, onlyAvailable bool) (*models.AvailabilitySlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.FindSlot(ctx, providerID, serviceID, date, at, onlyAvailable)
}

func (s *syncSlotStore) ApplyBookingDelta(ctx context.Context, slotID uuid.UUID, delta int) (*models.AvailabilitySlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ApplyBookingDelta(ctx, slotID, delta)
}

func (s *syncSlotStore) GetWithService(ctx context.Context, slotID uuid.UUID) (*models.AvailabilitySlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.GetWithService(ctx, slotID)
}

func (s *syncSlotStore) currentBookings(slotID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.slots[slotID].CurrentBookings
}

func TestDispatcherProcessesBookingTasks(t *testing.T) {
	providerID := uuid.New()
	slot := testSlot(providerID, 2)
	store := &syncSlotStore{inner: newFakeSlotStore(slot)}
	reconciler := NewAvailabilityReconciler(store, zap.NewNop())

	dispatcher := NewReconcileDispatcher(reconciler, zap.NewNop(), 8)
	go dispatcher.Run()

	dispatcher.Enqueue(ReconcileTask{Kind: TaskBookingCreated, ProviderID: providerID, At: bookingInstant()})
	dispatcher.Enqueue(ReconcileTask{Kind: TaskBookingCreated, ProviderID: providerID, At: bookingInstant()})

	assert.Eventually(t, func() bool {
		return store.currentBookings(slot.ID) == 2
	}, 2*time.Second, 10*time.Millisecond)

	dispatcher.Enqueue(ReconcileTask{Kind: TaskBookingCancelled, ProviderID: providerID, At: bookingInstant()})

	assert.Eventually(t, func() bool {
		return store.currentBookings(slot.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatcherEnqueueNeverBlocks(t *testing.T) {
	providerID := uuid.New()
	slot := testSlot(providerID, 100)
	store := &syncSlotStore{inner: newFakeSlotStore(slot)}
	reconciler := NewAvailabilityReconciler(store, zap.NewNop())

	// No worker draining the queue: overflow must fall through to direct
	// goroutines instead of blocking the caller.
	dispatcher := NewReconcileDispatcher(reconciler, zap.NewNop(), 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			dispatcher.Enqueue(ReconcileTask{Kind: TaskBookingCreated, ProviderID: providerID, At: bookingInstant()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}
