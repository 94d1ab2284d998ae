package jobs

import (
	"context"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/logger"
)

// SweepResult summarizes one claim sweep.
type SweepResult struct {
	Lenders  int
	Receipts int
	Failed   []domain.Address
}

// SweepClaims claims pending rent for every lender with unclaimed orders.
// A failing lender is logged and skipped; its orders stay unclaimed for the
// next run.
func (jr *JobRunner) SweepClaims() {
	jr.runWithRecovery("SweepClaims", func() {
		jr.sweepClaims(context.Background())
	})
}

func (jr *JobRunner) sweepClaims(ctx context.Context) SweepResult {
	var result SweepResult
	lenders, err := jr.services.Market.PendingLenders(ctx)
	if err != nil {
		logger.Error("Failed to list lenders with pending revenue", "error", err)
		return result
	}

	for _, lender := range lenders {
		receipts, err := jr.services.Market.ClaimRentFee(ctx, lender)
		if err != nil {
			logger.Error("Failed to claim rent fee", "lender", lender, "error", err)
			result.Failed = append(result.Failed, lender)
			continue
		}
		result.Lenders++
		result.Receipts += len(receipts)
		for _, receipt := range receipts {
			logger.Debug("Claimed rent fee",
				"lender", lender,
				"payment", receipt.Payment,
				"collection", receipt.Collection,
				"orders", len(receipt.OrderIDs),
				"gross", receipt.Gross)
		}
	}

	logger.Info("Claim sweep finished",
		"lenders", result.Lenders,
		"receipts", result.Receipts,
		"failed", len(result.Failed))
	return result
}
