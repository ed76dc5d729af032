package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmuoka/servicehub/models"
	"github.com/tmuoka/servicehub/repository"
	"go.uber.org/zap"
)

// fakePayoutStore mirrors the repository's reservation semantics over an
// in-memory earning set: oldest available earnings are reserved greedily until
// the requested amount is covered.
type fakePayoutStore struct {
	payouts  map[uuid.UUID]*models.PayoutRequest
	earnings map[uuid.UUID]*models.Earning

	reserveErr error
	releaseErr error
}

func newFakePayoutStore() *fakePayoutStore {
	return &fakePayoutStore{
		payouts:  make(map[uuid.UUID]*models.PayoutRequest),
		earnings: make(map[uuid.UUID]*models.Earning),
	}
}

func (f *fakePayoutStore) GetByID(_ context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	return f.payouts[id], nil
}

func (f *fakePayoutStore) ReserveEarnings(_ context.Context, providerID uuid.UUID, requested float64, fee float64) (*models.PayoutRequest, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}

	var available []*models.Earning
	for _, e := range f.earnings {
		if e.ProviderID == providerID && e.Status == models.EarningStatusAvailable {
			available = append(available, e)
		}
	}
	sort.Slice(available, func(i, j int) bool {
		return available[i].CreatedAt.Before(available[j].CreatedAt)
	})

	var sum float64
	var reserved []*models.Earning
	for _, e := range available {
		if sum >= requested {
			break
		}
		sum += e.Amount
		reserved = append(reserved, e)
	}
	if sum < requested {
		return nil, repository.ErrInsufficientBalance
	}

	payout := &models.PayoutRequest{
		ID:          uuid.New(),
		ProviderID:  providerID,
		Amount:      sum,
		Fees:        fee,
		NetAmount:   sum - fee,
		Status:      models.PayoutStatusPending,
		Metadata:    models.PayoutMetadata{EarningCount: len(reserved)},
		RequestedAt: time.Now(),
	}
	f.payouts[payout.ID] = payout
	for _, e := range reserved {
		e.Status = models.EarningStatusPaidOut
		id := payout.ID
		e.PayoutID = &id
	}
	return payout, nil
}

func (f *fakePayoutStore) MarkCompleted(_ context.Context, id uuid.UUID, transactionRef string) error {
	p := f.payouts[id]
	p.Status = models.PayoutStatusCompleted
	p.TransactionRef = &transactionRef
	now := time.Now()
	p.ProcessedAt = &now
	return nil
}

func (f *fakePayoutStore) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	f.payouts[id].Status = status
	return nil
}

func (f *fakePayoutStore) MarkFailedAndReleaseEarnings(_ context.Context, id uuid.UUID, status string, reason string, gatewayResponse string) (int64, error) {
	if f.releaseErr != nil {
		return 0, f.releaseErr
	}
	p := f.payouts[id]
	p.Status = status
	p.FailureReason = &reason
	p.Metadata.GatewayResponse = gatewayResponse

	var released int64
	for _, e := range f.earnings {
		if e.PayoutID != nil && *e.PayoutID == id && e.Status == models.EarningStatusPaidOut {
			e.Status = models.EarningStatusAvailable
			e.PayoutID = nil
			released++
		}
	}
	return released, nil
}

func (f *fakePayoutStore) addAvailableEarning(providerID uuid.UUID, amount float64, age time.Duration) *models.Earning {
	e := &models.Earning{
		ID:         uuid.New(),
		ProviderID: providerID,
		BookingID:  uuid.New(),
		Amount:     amount,
		Status:     models.EarningStatusAvailable,
		CreatedAt:  time.Now().Add(-age),
	}
	f.earnings[e.ID] = e
	return e
}

func newTestPayoutService(store *fakePayoutStore) *PayoutService {
	return NewPayoutService(store, zap.NewNop())
}

func TestRequestPayoutReservesOldestFirst(t *testing.T) {
	providerID := uuid.New()
	store := newFakePayoutStore()
	oldest := store.addAvailableEarning(providerID, 400, 72*time.Hour)
	middle := store.addAvailableEarning(providerID, 300, 48*time.Hour)
	newest := store.addAvailableEarning(providerID, 500, 1*time.Hour)

	svc := newTestPayoutService(store)
	payout, err := svc.RequestPayout(context.Background(), providerID, 600, 50)
	require.NoError(t, err)

	assert.InDelta(t, 700, payout.Amount, 0.001)
	assert.InDelta(t, 650, payout.NetAmount, 0.001)
	assert.Equal(t, 2, payout.Metadata.EarningCount)
	assert.Equal(t, models.PayoutStatusPending, payout.Status)

	assert.Equal(t, models.EarningStatusPaidOut, oldest.Status)
	assert.Equal(t, models.EarningStatusPaidOut, middle.Status)
	assert.Equal(t, models.EarningStatusAvailable, newest.Status)
	require.NotNil(t, oldest.PayoutID)
	assert.Equal(t, payout.ID, *oldest.PayoutID)
}

func TestRequestPayoutInsufficientBalance(t *testing.T) {
	providerID := uuid.New()
	store := newFakePayoutStore()
	earning := store.addAvailableEarning(providerID, 200, time.Hour)

	svc := newTestPayoutService(store)
	_, err := svc.RequestPayout(context.Background(), providerID, 500, 0)
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)
	assert.Equal(t, models.EarningStatusAvailable, earning.Status)
	assert.Empty(t, store.payouts)
}

func TestRequestPayoutRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestPayoutService(newFakePayoutStore())

	_, err := svc.RequestPayout(context.Background(), uuid.New(), 0, 0)
	assert.Error(t, err)

	_, err = svc.RequestPayout(context.Background(), uuid.New(), -100, 0)
	assert.Error(t, err)
}

func TestApprove(t *testing.T) {
	store := newFakePayoutStore()
	payout := &models.PayoutRequest{ID: uuid.New(), Status: models.PayoutStatusPending}
	store.payouts[payout.ID] = payout

	svc := newTestPayoutService(store)
	require.NoError(t, svc.Approve(context.Background(), payout.ID))
	assert.Equal(t, models.PayoutStatusApproved, payout.Status)

	err := svc.Approve(context.Background(), payout.ID)
	assert.ErrorIs(t, err, ErrInvalidPayoutState)

	err = svc.Approve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPayoutNotFound)
}

func TestRejectReleasesReservedEarnings(t *testing.T) {
	providerID := uuid.New()
	store := newFakePayoutStore()
	store.addAvailableEarning(providerID, 400, 2*time.Hour)
	store.addAvailableEarning(providerID, 300, time.Hour)

	svc := newTestPayoutService(store)
	payout, err := svc.RequestPayout(context.Background(), providerID, 700, 0)
	require.NoError(t, err)

	require.NoError(t, svc.Reject(context.Background(), payout.ID, "account details mismatch"))
	assert.Equal(t, models.PayoutStatusRejected, payout.Status)
	require.NotNil(t, payout.FailureReason)
	assert.Equal(t, "account details mismatch", *payout.FailureReason)

	for _, e := range store.earnings {
		assert.Equal(t, models.EarningStatusAvailable, e.Status)
		assert.Nil(t, e.PayoutID)
	}
}

func TestRejectRequiresPendingStatus(t *testing.T) {
	store := newFakePayoutStore()
	payout := &models.PayoutRequest{ID: uuid.New(), Status: models.PayoutStatusProcessing}
	store.payouts[payout.ID] = payout

	svc := newTestPayoutService(store)
	err := svc.Reject(context.Background(), payout.ID, "late")
	assert.ErrorIs(t, err, ErrInvalidPayoutState)
	assert.Equal(t, models.PayoutStatusProcessing, payout.Status)
}

func TestHandleTransferCompleted(t *testing.T) {
	store := newFakePayoutStore()
	payout := &models.PayoutRequest{ID: uuid.New(), Status: models.PayoutStatusProcessing}
	store.payouts[payout.ID] = payout

	svc := newTestPayoutService(store)
	require.NoError(t, svc.HandleTransferCompleted(context.Background(), payout.ID, "trf_123"))
	assert.Equal(t, models.PayoutStatusCompleted, payout.Status)
	require.NotNil(t, payout.TransactionRef)
	assert.Equal(t, "trf_123", *payout.TransactionRef)
	assert.NotNil(t, payout.ProcessedAt)

	// Redelivered webhook is a no-op.
	first := payout.ProcessedAt
	require.NoError(t, svc.HandleTransferCompleted(context.Background(), payout.ID, "trf_123"))
	assert.Equal(t, first, payout.ProcessedAt)
}

func TestHandleTransferFailedReleasesEarnings(t *testing.T) {
	providerID := uuid.New()
	store := newFakePayoutStore()
	store.addAvailableEarning(providerID, 500, time.Hour)

	svc := newTestPayoutService(store)
	payout, err := svc.RequestPayout(context.Background(), providerID, 500, 0)
	require.NoError(t, err)

	require.NoError(t, svc.HandleTransferFailed(context.Background(), payout.ID, "transfer failed", "insufficient gateway float"))
	assert.Equal(t, models.PayoutStatusFailed, payout.Status)
	assert.Equal(t, "insufficient gateway float", payout.Metadata.GatewayResponse)

	for _, e := range store.earnings {
		assert.Equal(t, models.EarningStatusAvailable, e.Status)
		assert.Nil(t, e.PayoutID)
	}

	// Redelivered failure webhook does not flip the released earnings again.
	require.NoError(t, svc.HandleTransferFailed(context.Background(), payout.ID, "transfer failed", ""))
	assert.Equal(t, "insufficient gateway float", payout.Metadata.GatewayResponse)
}

func TestHandleTransferFailedUnknownPayout(t *testing.T) {
	svc := newTestPayoutService(newFakePayoutStore())

	err := svc.HandleTransferFailed(context.Background(), uuid.New(), "boom", "")
	assert.ErrorIs(t, err, ErrPayoutNotFound)
}
