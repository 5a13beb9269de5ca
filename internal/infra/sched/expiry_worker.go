package sched

import (
	"context"
	"time"

	"brontie-core/internal/infra/metrics"
	"brontie-core/internal/usecase"

	"github.com/rs/zerolog"
)

// ExpiryWorker periodically expires stale issued vouchers via the use case.
type ExpiryWorker struct {
	interval   time.Duration
	expiryDays int
	voucherUC  usecase.VoucherUseCase
	log        *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, expiryDays int, voucherUC usecase.VoucherUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval:   interval,
		expiryDays: expiryDays,
		voucherUC:  voucherUC,
		log:        &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			before := time.Now().UTC().AddDate(0, 0, -w.expiryDays)
			n, err := w.voucherUC.ExpireIssuedBefore(ctx, before)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry worker error")
			}
			if n > 0 {
				metrics.IncVouchersExpired(n)
				w.log.Info().Int("count", n).Msg("stale vouchers expired")
			}
		}
	}
}
