package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmuoka/servicehub/models"
	"go.uber.org/zap"
)

var (
	ErrPayoutNotFound    = errors.New("payout request not found")
	ErrInvalidPayoutState = errors.New("payout request is not in a state that allows this transition")
)

// PayoutStore is the payout persistence the service needs. Reservation and
// release are transactional at the store level: reserving creates the payout
// and flips its earnings in one unit, releasing resets them in one batch
// update.
type PayoutStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	ReserveEarnings(ctx context.Context, providerID uuid.UUID, requested float64, fee float64) (*models.PayoutRequest, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, transactionRef string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkFailedAndReleaseEarnings(ctx context.Context, id uuid.UUID, status string, reason string, gatewayResponse string) (int64, error)
}

// PayoutService owns payout reservation and the webhook-driven transfer
// transitions.
type PayoutService struct {
	payouts PayoutStore
	logger  *zap.Logger
}

func NewPayoutService(payouts PayoutStore, logger *zap.Logger) *PayoutService {
	return &PayoutService{payouts: payouts, logger: logger}
}

// RequestPayout reserves available earnings into a new payout request. The
// payout amount is the sum of the reserved earnings, which covers (and may
// slightly exceed) the requested amount since earnings cannot be split.
func (s *PayoutService) RequestPayout(ctx context.Context, providerID uuid.UUID, requested float64, fee float64) (*models.PayoutRequest, error) {
	if requested <= 0 {
		return nil, fmt.Errorf("requested amount must be positive")
	}
	payout, err := s.payouts.ReserveEarnings(ctx, providerID, requested, fee)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payout requested",
		zap.String("payout_id", payout.ID.String()),
		zap.String("provider_id", providerID.String()),
		zap.Float64("amount", payout.Amount),
		zap.Float64("net_amount", payout.NetAmount),
		zap.Int("earnings_reserved", payout.Metadata.EarningCount),
	)
	return payout, nil
}

// Approve moves a pending payout to approved, ready for transfer initiation.
func (s *PayoutService) Approve(ctx context.Context, payoutID uuid.UUID) error {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return fmt.Errorf("load payout %s: %w", payoutID, err)
	}
	if payout == nil {
		return fmt.Errorf("payout %s: %w", payoutID, ErrPayoutNotFound)
	}
	if payout.Status != models.PayoutStatusPending {
		return fmt.Errorf("payout %s has status %q: %w", payoutID, payout.Status, ErrInvalidPayoutState)
	}
	return s.payouts.UpdateStatus(ctx, payoutID, models.PayoutStatusApproved)
}

// Reject fails a pending payout by admin decision and releases its earnings.
func (s *PayoutService) Reject(ctx context.Context, payoutID uuid.UUID, reason string) error {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return fmt.Errorf("load payout %s: %w", payoutID, err)
	}
	if payout == nil {
		return fmt.Errorf("payout %s: %w", payoutID, ErrPayoutNotFound)
	}
	if payout.Status != models.PayoutStatusPending {
		return fmt.Errorf("payout %s has status %q: %w", payoutID, payout.Status, ErrInvalidPayoutState)
	}

	released, err := s.payouts.MarkFailedAndReleaseEarnings(ctx, payoutID, models.PayoutStatusRejected, reason, "")
	if err != nil {
		return fmt.Errorf("reject payout %s: %w", payoutID, err)
	}

	s.logger.Info("payout rejected, earnings released",
		zap.String("payout_id", payoutID.String()),
		zap.Int64("earnings_released", released),
	)
	return nil
}

// HandleTransferCompleted finalizes a payout after the transfer provider
// confirms success. A payout already completed is a no-op, so webhook
// redelivery is safe.
func (s *PayoutService) HandleTransferCompleted(ctx context.Context, payoutID uuid.UUID, transactionRef string) error {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return fmt.Errorf("load payout %s: %w", payoutID, err)
	}
	if payout == nil {
		return fmt.Errorf("payout %s: %w", payoutID, ErrPayoutNotFound)
	}
	if payout.Status == models.PayoutStatusCompleted {
		s.logger.Info("transfer webhook already processed",
			zap.String("payout_id", payoutID.String()))
		return nil
	}

	if err := s.payouts.MarkCompleted(ctx, payoutID, transactionRef); err != nil {
		return fmt.Errorf("complete payout %s: %w", payoutID, err)
	}

	s.logger.Info("payout completed",
		zap.String("payout_id", payoutID.String()),
		zap.String("transaction_ref", transactionRef),
	)
	return nil
}

// HandleTransferFailed marks the payout failed and releases every earning it
// had reserved back to available in one batch, so none is left stuck in
// paid_out with no owning payout. Redelivered failure webhooks are no-ops.
func (s *PayoutService) HandleTransferFailed(ctx context.Context, payoutID uuid.UUID, reason string, gatewayResponse string) error {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return fmt.Errorf("load payout %s: %w", payoutID, err)
	}
	if payout == nil {
		return fmt.Errorf("payout %s: %w", payoutID, ErrPayoutNotFound)
	}
	if payout.Status == models.PayoutStatusFailed || payout.Status == models.PayoutStatusRejected {
		s.logger.Info("transfer failure webhook already processed",
			zap.String("payout_id", payoutID.String()))
		return nil
	}

	released, err := s.payouts.MarkFailedAndReleaseEarnings(ctx, payoutID, models.PayoutStatusFailed, reason, gatewayResponse)
	if err != nil {
		return fmt.Errorf("fail payout %s: %w", payoutID, err)
	}

	s.logger.Info("payout failed, earnings released",
		zap.String("payout_id", payoutID.String()),
		zap.String("reason", reason),
		zap.Int64("earnings_released", released),
	)
	return nil
}
