package jobs

import (
	"context"
	"time"

	"github.com/tmuoka/servicehub/services"
	"go.uber.org/zap"
)

// NewClearanceJob returns the cron func that sweeps earnings past the
// clearance delay into the available balance. All providers, default delay.
func NewClearanceJob(ledger *services.EarningsLedger, logger *zap.Logger) func() {
	return func() {
		logger.Info("Running job: earnings clearance")

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		report, err := ledger.ProcessEarningsClearance(ctx, nil, 24)
		if err != nil {
			logger.Error("Earnings clearance job failed", zap.Error(err))
			return
		}

		if report.Processed == 0 && report.Errors == 0 {
			logger.Info("No earnings ready for clearance")
			return
		}
		logger.Info("Earnings clearance job finished",
			zap.Int("processed", report.Processed),
			zap.Int("errors", report.Errors))
	}
}
