package handlers

import (
	"bytes"
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
	"github.com/tmuoka/servicehub/models"
	"github.com/tmuoka/servicehub/services"
	"go.uber.org/zap"
)

type stubPayoutStore struct {
	payouts  map[uuid.UUID]*models.PayoutRequest
	released int64
}

func (s *stubPayoutStore) GetByID(_ context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	return s.payouts[id], nil
}

func (s *stubPayoutStore) ReserveEarnings(_ context.Context, _ uuid.UUID, _ float64, _ float64) (*models.PayoutRequest, error) {
	return nil, nil
}

func (s *stubPayoutStore) MarkCompleted(_ context.Context, id uuid.UUID, transactionRef string) error {
	p := s.payouts[id]
	p.Status = models.PayoutStatusCompleted
	p.TransactionRef = &transactionRef
	now := time.Now()
	p.ProcessedAt = &now
	return nil
}

func (s *stubPayoutStore) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	s.payouts[id].Status = status
	return nil
}

func (s *stubPayoutStore) MarkFailedAndReleaseEarnings(_ context.Context, id uuid.UUID, status string, reason string, gatewayResponse string) (int64, error) {
	p := s.payouts[id]
	p.Status = status
	p.FailureReason = &reason
	p.Metadata.GatewayResponse = gatewayResponse
	s.released = 2
	return s.released, nil
}

func newWebhookTestApp(t *testing.T, store *stubPayoutStore) *fiber.App {
	t.Helper()
	t.Setenv("PAYOUT_WEBHOOK_SECRET", "test-secret")

	Init(nil, nil, services.NewPayoutService(store, zap.NewNop()), nil, nil)

	app := fiber.New()
	app.Post("/api/v1/webhooks/transfers", HandleTransferWebhook)
	return app
}

func webhookRequest(t *testing.T, signature string, payload TransferWebhookPayload) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/transfers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("verif-hash", signature)
	}
	return req
}

func TestTransferWebhookRejectsBadSignature(t *testing.T) {
	store := &stubPayoutStore{payouts: map[uuid.UUID]*models.PayoutRequest{}}
	app := newWebhookTestApp(t, store)

	var payload TransferWebhookPayload
	payload.Event = "transfer.completed"
	payload.Data.Reference = uuid.New().String()

	resp, err := app.Test(webhookRequest(t, "wrong-secret", payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(webhookRequest(t, "", payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestTransferWebhookCompletesPayout(t *testing.T) {
	payout := &models.PayoutRequest{ID: uuid.New(), Status: models.PayoutStatusProcessing}
	store := &stubPayoutStore{payouts: map[uuid.UUID]*models.PayoutRequest{payout.ID: payout}}
	app := newWebhookTestApp(t, store)

	var payload TransferWebhookPayload
	payload.Event = "transfer.completed"
	payload.Data.Reference = payout.ID.String()
	payload.Data.TransactionRef = "trf_987"

	resp, err := app.Test(webhookRequest(t, "test-secret", payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, models.PayoutStatusCompleted, payout.Status)
	require.NotNil(t, payout.TransactionRef)
	assert.Equal(t, "trf_987", *payout.TransactionRef)
}

func TestTransferWebhookFailureReleasesEarnings(t *testing.T) {
	payout := &models.PayoutRequest{ID: uuid.New(), Status: models.PayoutStatusProcessing}
	store := &stubPayoutStore{payouts: map[uuid.UUID]*models.PayoutRequest{payout.ID: payout}}
	app := newWebhookTestApp(t, store)

	var payload TransferWebhookPayload
	payload.Event = "transfer.failed"
	payload.Data.Reference = payout.ID.String()
	payload.Data.Status = "FAILED"
	payload.Data.CompleteMessage = "beneficiary account invalid"

	resp, err := app.Test(webhookRequest(t, "test-secret", payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, models.PayoutStatusFailed, payout.Status)
	require.NotNil(t, payout.FailureReason)
	assert.Equal(t, "beneficiary account invalid", *payout.FailureReason)
	assert.Equal(t, int64(2), store.released)
}

func TestTransferWebhookIgnoresUnknownEvents(t *testing.T) {
	store := &stubPayoutStore{payouts: map[uuid.UUID]*models.PayoutRequest{}}
	app := newWebhookTestApp(t, store)

	var payload TransferWebhookPayload
	payload.Event = "transfer.reversed"
	payload.Data.Reference = uuid.New().String()

	resp, err := app.Test(webhookRequest(t, "test-secret", payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Event ignored", body["message"])
}

func TestTransferWebhookRejectsBadReference(t *testing.T) {
	store := &stubPayoutStore{payouts: map[uuid.UUID]*models.PayoutRequest{}}
	app := newWebhookTestApp(t, store)

	var payload TransferWebhookPayload
	payload.Event = "transfer.completed"
	payload.Data.Reference = "not-a-uuid"

	resp, err := app.Test(webhookRequest(t, "test-secret", payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
