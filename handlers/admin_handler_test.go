package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "github.com/tmuoka/servicehub/configs"
	"github.com/tmuoka/servicehub/models"
	"github.com/tmuoka/servicehub/services"
	"go.uber.org/zap"
)

type stubBackfillBookings struct {
	bookings   map[uuid.UUID]*models.Booking
	candidates []models.Booking
}

func (s *stubBackfillBookings) GetWithDetails(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	return s.bookings[id], nil
}

func (s *stubBackfillBookings) ListCompletedWithoutEarnings(_ context.Context, _ int) ([]models.Booking, error) {
	return s.candidates, nil
}

type stubEarningStore struct {
	created map[uuid.UUID]*models.Earning
}

func (s *stubEarningStore) Create(_ context.Context, earning *models.Earning) error {
	if earning.ID == uuid.Nil {
		earning.ID = uuid.New()
	}
	s.created[earning.BookingID] = earning
	return nil
}

func (s *stubEarningStore) ExistsForBooking(_ context.Context, bookingID uuid.UUID) (bool, error) {
	_, ok := s.created[bookingID]
	return ok, nil
}

func (s *stubEarningStore) GetByID(_ context.Context, _ uuid.UUID) (*models.Earning, error) {
	return nil, nil
}

func (s *stubEarningStore) UpdateStatus(_ context.Context, _ uuid.UUID, _ string, _ *time.Time) error {
	return nil
}

func (s *stubEarningStore) ClearPending(_ context.Context, _ uuid.UUID, _ time.Time) (bool, error) {
	return true, nil
}

func (s *stubEarningStore) ListPendingClearance(_ context.Context, _ *uuid.UUID, _ time.Time) ([]models.Earning, error) {
	return nil, nil
}

func (s *stubEarningStore) SumByStatus(_ context.Context, _ uuid.UUID, _ string) (float64, error) {
	return 0, nil
}

func (s *stubEarningStore) SumLifetime(_ context.Context, _ uuid.UUID) (float64, error) {
	return 0, nil
}

func completedTestBooking(price float64) *models.Booking {
	return &models.Booking{
		ID:         uuid.New(),
		StudentID:  uuid.New(),
		ProviderID: uuid.New(),
		ServiceID:  uuid.New(),
		Status:     models.BookingStatusCompleted,
		Service:    models.Service{Name: "Generator Servicing", Price: price},
		Student:    models.User{FullName: "Chidi Eze"},
		UpdatedAt:  time.Now(),
	}
}

func newBackfillTestApp(candidates ...*models.Booking) *fiber.App {
	bookingStore := &stubBackfillBookings{bookings: make(map[uuid.UUID]*models.Booking)}
	for _, b := range candidates {
		bookingStore.bookings[b.ID] = b
		bookingStore.candidates = append(bookingStore.candidates, *b)
	}
	earningStore := &stubEarningStore{created: make(map[uuid.UUID]*models.Earning)}

	feeCfg := config.PlatformFeeConfig{FeePercentage: 0.15, MinimumFee: 100, Currency: "NGN"}
	Init(nil, services.NewEarningsLedger(bookingStore, earningStore, feeCfg, zap.NewNop()), nil, nil, nil)

	app := fiber.New()
	app.Post("/api/v1/admin/earnings/backfill", BackfillEarnings)
	return app
}

func TestBackfillEarningsAllSucceedReturns200(t *testing.T) {
	app := newBackfillTestApp(completedTestBooking(1000), completedTestBooking(500))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/earnings/backfill", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var report services.BackfillReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 0, report.Errors)
	assert.Empty(t, report.Failures)
}

func TestBackfillEarningsPartialFailureReturns207(t *testing.T) {
	good := completedTestBooking(1000)
	alsoGood := completedTestBooking(500)
	unpriced := completedTestBooking(0)
	app := newBackfillTestApp(good, alsoGood, unpriced)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/earnings/backfill", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusMultiStatus, resp.StatusCode)

	var report services.BackfillReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Errors)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, unpriced.ID, report.Failures[0].BookingID)
}
