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

var ErrInsufficientBalance = errors.New("insufficient withdrawable balance")

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// GetByID returns (nil, nil) when the payout does not exist.
func (r *PayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	if err := r.db.WithContext(ctx).First(&payout, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// ReserveEarnings creates a payout request and moves the earnings backing it
// to paid_out in one transaction. Available earnings are locked, taken oldest
// first until they cover the requested amount, and the payout amount is the
// exact sum of the reserved rows. Fails with ErrInsufficientBalance when the
// withdrawable balance cannot cover the request.
func (r *PayoutRepository) ReserveEarnings(ctx context.Context, providerID uuid.UUID, requested float64, fee float64) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var available []models.Earning
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("provider_id = ? AND status = ?", providerID, models.EarningStatusAvailable).
			Order("created_at asc").
			Find(&available).Error; err != nil {
			return err
		}

		var reserved []uuid.UUID
		var sum float64
		for _, e := range available {
			reserved = append(reserved, e.ID)
			sum += e.Amount
			if sum >= requested {
				break
			}
		}
		if sum < requested {
			return ErrInsufficientBalance
		}

		payout = models.PayoutRequest{
			ProviderID:  providerID,
			Amount:      sum,
			Fees:        fee,
			NetAmount:   sum - fee,
			Status:      models.PayoutStatusPending,
			RequestedAt: time.Now(),
			Metadata:    models.PayoutMetadata{EarningCount: len(reserved)},
		}
		if err := tx.Create(&payout).Error; err != nil {
			return err
		}

		return tx.Model(&models.Earning{}).
			Where("id IN ?", reserved).
			Updates(map[string]interface{}{
				"status":    models.EarningStatusPaidOut,
				"payout_id": payout.ID,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// MarkCompleted finalizes a payout after a successful transfer.
func (r *PayoutRepository) MarkCompleted(ctx context.Context, id uuid.UUID, transactionRef string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          models.PayoutStatusCompleted,
			"transaction_ref": transactionRef,
			"processed_at":    now,
		}).Error
}

func (r *PayoutRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// MarkFailedAndReleaseEarnings marks the payout failed (or rejected) and
// releases every earning it had reserved in the same transaction. The release
// is a single batch update on (payout_id, status = paid_out), so no earning
// can be left half-updated with no owning payout.
func (r *PayoutRepository) MarkFailedAndReleaseEarnings(ctx context.Context, id uuid.UUID, status string, reason string, gatewayResponse string) (int64, error) {
	var released int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payout models.PayoutRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payout, "id = ?", id).Error; err != nil {
			return err
		}

		now := time.Now()
		payout.Status = status
		payout.FailureReason = &reason
		payout.ProcessedAt = &now
		payout.Metadata.GatewayResponse = gatewayResponse
		if err := tx.Save(&payout).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Earning{}).
			Where("payout_id = ? AND status = ?", id, models.EarningStatusPaidOut).
			Updates(map[string]interface{}{
				"status":    models.EarningStatusAvailable,
				"payout_id": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		released = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

func (r *PayoutRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.PayoutRequest, error) {
	var payouts []models.PayoutRequest
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("requested_at desc").
		Find(&payouts).Error
	return payouts, err
}

func (r *PayoutRepository) ListAll(ctx context.Context) ([]models.PayoutRequest, error) {
	var payouts []models.PayoutRequest
	err := r.db.WithContext(ctx).
		Preload("Provider").
		Order("requested_at desc").
		Find(&payouts).Error
	return payouts, err
}
