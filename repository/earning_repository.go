package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tmuoka/servicehub/models"
	"gorm.io/gorm"
)

type EarningRepository struct {
	db *gorm.DB
}

func NewEarningRepository(db *gorm.DB) *EarningRepository {
	return &EarningRepository{db: db}
}

func (r *EarningRepository) Create(ctx context.Context, earning *models.Earning) error {
	return r.db.WithContext(ctx).Create(earning).Error
}

func (r *EarningRepository) ExistsForBooking(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("booking_id = ?", bookingID).
		Count(&count).Error
	return count > 0, err
}

// GetByID returns (nil, nil) when the earning does not exist.
func (r *EarningRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Earning, error) {
	var earning models.Earning
	if err := r.db.WithContext(ctx).First(&earning, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &earning, nil
}

// UpdateStatus persists a status transition. cleared_at is written only when
// a timestamp is supplied, which the ledger does on the move to available.
func (r *EarningRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, clearedAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if clearedAt != nil {
		updates["cleared_at"] = *clearedAt
	}
	return r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ClearPending moves one earning from pending_clearance to available in a
// single conditional update. Returns false when the earning was no longer
// pending, for example frozen between the candidate query and this update.
func (r *EarningRepository) ClearPending(ctx context.Context, id uuid.UUID, clearedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("id = ? AND status = ?", id, models.EarningStatusPendingClearance).
		Updates(map[string]interface{}{
			"status":     models.EarningStatusAvailable,
			"cleared_at": clearedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListPendingClearance returns earnings still pending clearance that were
// created at or before the cutoff, optionally scoped to one provider.
func (r *EarningRepository) ListPendingClearance(ctx context.Context, providerID *uuid.UUID, cutoff time.Time) ([]models.Earning, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND created_at <= ?", models.EarningStatusPendingClearance, cutoff)
	if providerID != nil {
		q = q.Where("provider_id = ?", *providerID)
	}

	var earnings []models.Earning
	err := q.Order("created_at asc").Find(&earnings).Error
	return earnings, err
}

func (r *EarningRepository) SumByStatus(ctx context.Context, providerID uuid.UUID, status string) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("provider_id = ? AND status = ?", providerID, status).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// SumLifetime totals every earning except frozen ones.
func (r *EarningRepository) SumLifetime(ctx context.Context, providerID uuid.UUID) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("provider_id = ? AND status <> ?", providerID, models.EarningStatusFrozen).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *EarningRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.Earning, error) {
	var earnings []models.Earning
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at desc").
		Find(&earnings).Error
	return earnings, err
}
