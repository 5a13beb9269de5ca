package sched

import (
	"context"
	"errors"
	"time"

	"brontie-core/internal/domain"
	"brontie-core/internal/infra/metrics"
	"brontie-core/internal/infra/worker"
	"brontie-core/internal/usecase"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PayoutRunner periodically sweeps pending payout items: every tick it lists
// per-merchant pending totals and submits one batch task per merchant to the
// pool. A failed merchant never aborts the others.
type PayoutRunner struct {
	interval  time.Duration
	minAmount decimal.Decimal
	payoutUC  usecase.PayoutUseCase
	pool      *worker.Pool
	log       *zerolog.Logger
}

func NewPayoutRunner(interval time.Duration, minAmount decimal.Decimal, payoutUC usecase.PayoutUseCase, pool *worker.Pool, logger *zerolog.Logger) *PayoutRunner {
	runLog := logger.With().Str("component", "PayoutRunner").Logger()
	return &PayoutRunner{
		interval:  interval,
		minAmount: minAmount,
		payoutUC:  payoutUC,
		pool:      pool,
		log:       &runLog,
	}
}

func (r *PayoutRunner) Run(ctx context.Context) error {
	r.log.Info().Dur("interval", r.interval).Msg("Starting payout runner")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Stopping payout runner")
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *PayoutRunner) sweep(ctx context.Context) {
	totals, err := r.payoutUC.PendingTotalsByMerchant(ctx, nil)
	if err != nil {
		r.log.Error().Err(err).Msg("listing pending totals failed")
		return
	}

	cutoff := time.Now().UTC()
	for _, t := range totals {
		if t.Amount.LessThan(r.minAmount) {
			metrics.IncPayoutBatch("skipped")
			r.log.Debug().
				Str("merchant_id", t.MerchantID).
				Str("amount", t.Amount.String()).
				Msg("pending total below minimum; skipping")
			continue
		}

		merchantID := t.MerchantID
		task := func(taskCtx context.Context) error {
			start := time.Now()
			res, err := r.payoutUC.RunBatch(taskCtx, merchantID, cutoff)
			metrics.ObservePayoutBatchLatency(time.Since(start).Milliseconds())
			switch {
			case errors.Is(err, domain.ErrPayoutLocked):
				metrics.IncPayoutBatch("locked")
				r.log.Debug().Str("merchant_id", merchantID).Msg("batch already running elsewhere")
				return nil
			case err != nil:
				metrics.IncPayoutBatch("failed")
				r.log.Error().Err(err).Str("merchant_id", merchantID).Msg("payout batch failed")
				return err
			}
			metrics.IncPayoutBatch("succeeded")
			metrics.IncPayoutItemsMarkedPaid(res.MarkedAsPaid)
			metrics.AddPayoutTransferCents(res.Amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart())
			r.log.Info().
				Str("merchant_id", merchantID).
				Int("marked_as_paid", res.MarkedAsPaid).
				Str("amount", res.Amount.String()).
				Str("transfer_ref", res.TransferRef).
				Msg("payout batch completed")
			return nil
		}

		if err := r.pool.Submit(task); err != nil {
			r.log.Warn().Err(err).Str("merchant_id", merchantID).Msg("payout task not scheduled")
		}
	}
}
