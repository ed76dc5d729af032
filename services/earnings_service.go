package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	config "github.com/tmuoka/servicehub/configs"
	"github.com/tmuoka/servicehub/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingNotCompleted = errors.New("booking is not completed")
	ErrMissingServicePrice = errors.New("booking has no service price")
	ErrEarningNotFound     = errors.New("earning not found")
	ErrIllegalTransition   = errors.New("illegal earning status transition")
)

// BookingStore is the booking persistence the ledger needs.
type BookingStore interface {
	GetWithDetails(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListCompletedWithoutEarnings(ctx context.Context, limit int) ([]models.Booking, error)
}

// EarningStore is the earning persistence the ledger needs.
type EarningStore interface {
	Create(ctx context.Context, earning *models.Earning) error
	ExistsForBooking(ctx context.Context, bookingID uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Earning, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, clearedAt *time.Time) error
	ClearPending(ctx context.Context, id uuid.UUID, clearedAt time.Time) (bool, error)
	ListPendingClearance(ctx context.Context, providerID *uuid.UUID, cutoff time.Time) ([]models.Earning, error)
	SumByStatus(ctx context.Context, providerID uuid.UUID, status string) (float64, error)
	SumLifetime(ctx context.Context, providerID uuid.UUID) (float64, error)
}

// EarningsBreakdown is the gross/fee/net split for one amount. It is used for
// both real earning creation and client-facing previews, so it must stay a
// pure function of the amount and the startup fee config.
type EarningsBreakdown struct {
	GrossAmount    float64 `json:"gross_amount"`
	PlatformFee    float64 `json:"platform_fee"`
	ProviderAmount float64 `json:"provider_amount"`
	Currency       string  `json:"currency"`
	FeePercentage  float64 `json:"fee_percentage"`
}

// ClearanceFailure records one earning the clearance batch could not advance.
type ClearanceFailure struct {
	EarningID uuid.UUID `json:"earning_id"`
	Error     string    `json:"error"`
}

// ClearanceReport aggregates a clearance batch run.
type ClearanceReport struct {
	Processed int                `json:"processed"`
	Errors    int                `json:"errors"`
	Failures  []ClearanceFailure `json:"failures,omitempty"`
}

// BackfillFailure records one booking the backfill could not create an
// earning for.
type BackfillFailure struct {
	BookingID uuid.UUID `json:"booking_id"`
	Error     string    `json:"error"`
}

// BackfillReport aggregates a backfill run.
type BackfillReport struct {
	Candidates int               `json:"candidates"`
	Processed  int               `json:"processed"`
	Errors     int               `json:"errors"`
	Failures   []BackfillFailure `json:"failures"`
}

// EarningsSummary is a provider's balance snapshot by status partition.
// Frozen earnings are excluded from every bucket.
type EarningsSummary struct {
	TotalLifetime    float64 `json:"total_lifetime"`
	AvailableBalance float64 `json:"available_balance"`
	PendingClearance float64 `json:"pending_clearance"`
	PaidOut          float64 `json:"paid_out"`
	Currency         string  `json:"currency"`
}

// EarningsLedger creates and advances provider earnings. Earning rows are
// immutable except for their clearance state; creation is idempotent per
// booking.
type EarningsLedger struct {
	bookings BookingStore
	earnings EarningStore
	feeCfg   config.PlatformFeeConfig
	logger   *zap.Logger
}

func NewEarningsLedger(bookings BookingStore, earnings EarningStore, feeCfg config.PlatformFeeConfig, logger *zap.Logger) *EarningsLedger {
	return &EarningsLedger{bookings: bookings, earnings: earnings, feeCfg: feeCfg, logger: logger}
}

// PlatformFeeConfig exposes the fee parameters the ledger was built with.
func (l *EarningsLedger) PlatformFeeConfig() config.PlatformFeeConfig {
	return l.feeCfg
}

// CalculatePlatformFee returns max(gross * percentage, minimum fee).
func (l *EarningsLedger) CalculatePlatformFee(grossAmount float64) float64 {
	fee := grossAmount * l.feeCfg.FeePercentage
	if fee < l.feeCfg.MinimumFee {
		fee = l.feeCfg.MinimumFee
	}
	return fee
}

// CalculateEarnings splits a gross amount. Pure; the provider amount can go
// negative when the fee floor exceeds a very small gross, and callers that
// persist earnings must reject that case.
func (l *EarningsLedger) CalculateEarnings(grossAmount float64) EarningsBreakdown {
	fee := l.CalculatePlatformFee(grossAmount)
	return EarningsBreakdown{
		GrossAmount:    grossAmount,
		PlatformFee:    fee,
		ProviderAmount: grossAmount - fee,
		Currency:       l.feeCfg.Currency,
		FeePercentage:  l.feeCfg.FeePercentage,
	}
}

// CreateEarningsFromCompletedBooking records the earning for a booking that
// has transitioned to completed. The operation is idempotent: an earning that
// already exists for the booking, whether seen by the pre-check or surfaced
// as a duplicate-key violation on insert, is a logged no-op. The booking's
// status is never changed here.
func (l *EarningsLedger) CreateEarningsFromCompletedBooking(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := l.bookings.GetWithDetails(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if booking == nil {
		return fmt.Errorf("booking %s: %w", bookingID, ErrBookingNotFound)
	}
	if booking.Status != models.BookingStatusCompleted {
		return fmt.Errorf("booking %s has status %q: %w", bookingID, booking.Status, ErrBookingNotCompleted)
	}

	exists, err := l.earnings.ExistsForBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("check existing earning for booking %s: %w", bookingID, err)
	}
	if exists {
		l.logger.Warn("earning already exists for booking, skipping",
			zap.String("booking_id", bookingID.String()))
		return nil
	}

	if booking.Service.Price <= 0 {
		return fmt.Errorf("booking %s: %w", bookingID, ErrMissingServicePrice)
	}

	breakdown := l.CalculateEarnings(booking.Service.Price)
	if breakdown.ProviderAmount < 0 {
		return fmt.Errorf("booking %s: gross %.2f below minimum platform fee: %w",
			bookingID, breakdown.GrossAmount, ErrMissingServicePrice)
	}

	earning := &models.Earning{
		ProviderID:  booking.ProviderID,
		BookingID:   booking.ID,
		GrossAmount: breakdown.GrossAmount,
		PlatformFee: breakdown.PlatformFee,
		Amount:      breakdown.ProviderAmount,
		Currency:    breakdown.Currency,
		Status:      models.EarningStatusPendingClearance,
		Metadata: models.EarningMetadata{
			ServiceName: booking.Service.Name,
			StudentName: booking.Student.FullName,
			CompletedAt: booking.UpdatedAt,
		},
	}

	if err := l.earnings.Create(ctx, earning); err != nil {
		// The unique constraint on booking_id is the real concurrency
		// safeguard; the pre-check above is only an optimization.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			l.logger.Warn("concurrent earning creation detected, skipping",
				zap.String("booking_id", bookingID.String()))
			return nil
		}
		return fmt.Errorf("create earning for booking %s: %w", bookingID, err)
	}

	l.logger.Info("earning created",
		zap.String("earning_id", earning.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("provider_id", booking.ProviderID.String()),
		zap.Float64("gross_amount", earning.GrossAmount),
		zap.Float64("platform_fee", earning.PlatformFee),
		zap.Float64("amount", earning.Amount),
	)
	return nil
}

// BackfillEarnings creates missing earnings for completed bookings, up to
// limit candidates, oldest first. Per-booking failures are collected, not
// fatal; only a failure of the candidate query itself is returned as an
// error.
func (l *EarningsLedger) BackfillEarnings(ctx context.Context, limit int) (*BackfillReport, error) {
	candidates, err := l.bookings.ListCompletedWithoutEarnings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list completed bookings without earnings: %w", err)
	}

	report := &BackfillReport{Candidates: len(candidates)}
	for _, booking := range candidates {
		if err := l.CreateEarningsFromCompletedBooking(ctx, booking.ID); err != nil {
			report.Errors++
			report.Failures = append(report.Failures, BackfillFailure{
				BookingID: booking.ID,
				Error:     err.Error(),
			})
			l.logger.Error("failed to backfill earning",
				zap.String("booking_id", booking.ID.String()),
				zap.Error(err))
			continue
		}
		report.Processed++
	}

	l.logger.Info("earnings backfill run finished",
		zap.Int("candidates", report.Candidates),
		zap.Int("processed", report.Processed),
		zap.Int("errors", report.Errors),
	)
	return report, nil
}

// canTransition is the closed legality table for earning statuses. Freezing
// is allowed from any state; a frozen earning stays frozen.
func canTransition(from, to string) bool {
	if to == models.EarningStatusFrozen {
		return from != models.EarningStatusFrozen
	}
	switch from {
	case models.EarningStatusPendingClearance:
		return to == models.EarningStatusAvailable
	case models.EarningStatusAvailable:
		return to == models.EarningStatusPaidOut
	case models.EarningStatusPaidOut:
		return to == models.EarningStatusAvailable
	default:
		return false
	}
}

// UpdateEarningsStatus applies one status transition. Illegal transitions are
// rejected here rather than trusted to callers. clearedAt is persisted only
// on the move to available.
func (l *EarningsLedger) UpdateEarningsStatus(ctx context.Context, earningID uuid.UUID, newStatus string, clearedAt *time.Time) error {
	earning, err := l.earnings.GetByID(ctx, earningID)
	if err != nil {
		return fmt.Errorf("load earning %s: %w", earningID, err)
	}
	if earning == nil {
		return fmt.Errorf("earning %s: %w", earningID, ErrEarningNotFound)
	}
	if !canTransition(earning.Status, newStatus) {
		return fmt.Errorf("earning %s: %s -> %s: %w", earningID, earning.Status, newStatus, ErrIllegalTransition)
	}

	if newStatus != models.EarningStatusAvailable {
		clearedAt = nil
	}
	if err := l.earnings.UpdateStatus(ctx, earningID, newStatus, clearedAt); err != nil {
		return fmt.Errorf("update earning %s: %w", earningID, err)
	}

	l.logger.Info("earning status updated",
		zap.String("earning_id", earningID.String()),
		zap.String("from", earning.Status),
		zap.String("to", newStatus),
	)
	return nil
}

// ProcessEarningsClearance advances every earning pending clearance for at
// least delayHours (default 24) to available, optionally scoped to one
// provider. Items are processed one at a time; a failing item is counted and
// logged without aborting the batch. Only a failure of the candidate query
// itself is returned as an error.
func (l *EarningsLedger) ProcessEarningsClearance(ctx context.Context, providerID *uuid.UUID, delayHours int) (*ClearanceReport, error) {
	if delayHours <= 0 {
		delayHours = 24
	}
	cutoff := time.Now().Add(-time.Duration(delayHours) * time.Hour)

	candidates, err := l.earnings.ListPendingClearance(ctx, providerID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list earnings pending clearance: %w", err)
	}

	report := &ClearanceReport{}
	for _, earning := range candidates {
		// Conditional on the row still being pending, so an earning frozen
		// after the candidate query is left alone.
		cleared, err := l.earnings.ClearPending(ctx, earning.ID, time.Now())
		if err != nil {
			report.Errors++
			report.Failures = append(report.Failures, ClearanceFailure{
				EarningID: earning.ID,
				Error:     err.Error(),
			})
			l.logger.Error("failed to clear earning",
				zap.String("earning_id", earning.ID.String()),
				zap.Error(err))
			continue
		}
		if !cleared {
			l.logger.Warn("earning no longer pending clearance, skipped",
				zap.String("earning_id", earning.ID.String()))
			continue
		}
		report.Processed++
	}

	l.logger.Info("earnings clearance run finished",
		zap.Int("processed", report.Processed),
		zap.Int("errors", report.Errors),
	)
	return report, nil
}

// GetProviderEarningsSummary computes the four balance buckets concurrently.
func (l *EarningsLedger) GetProviderEarningsSummary(ctx context.Context, providerID uuid.UUID) (*EarningsSummary, error) {
	summary := &EarningsSummary{Currency: l.feeCfg.Currency}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := l.earnings.SumLifetime(gctx, providerID)
		summary.TotalLifetime = total
		return err
	})
	g.Go(func() error {
		total, err := l.earnings.SumByStatus(gctx, providerID, models.EarningStatusAvailable)
		summary.AvailableBalance = total
		return err
	})
	g.Go(func() error {
		total, err := l.earnings.SumByStatus(gctx, providerID, models.EarningStatusPendingClearance)
		summary.PendingClearance = total
		return err
	})
	g.Go(func() error {
		total, err := l.earnings.SumByStatus(gctx, providerID, models.EarningStatusPaidOut)
		summary.PaidOut = total
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("summarize earnings for provider %s: %w", providerID, err)
	}
	return summary, nil
}
