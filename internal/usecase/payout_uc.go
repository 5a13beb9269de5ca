package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"brontie-core/internal/domain"
	"brontie-core/internal/domain/model"
	"brontie-core/internal/domain/ports/adapter"
	"brontie-core/internal/domain/ports/repository"
)

// Compile-time check
var _ PayoutUseCase = (*payoutUC)(nil)

type PayoutUseCase interface {
	// RunBatch transfers a merchant's pending balance up to the cutoff and
	// marks the covered items paid. The batch is serialized per merchant with
	// a distributed lock and is idempotent: a retried run finds no pending
	// items and marks zero.
	RunBatch(ctx context.Context, merchantID string, cutoff time.Time) (*BatchResult, error)
	// MarkPaidUpTo records an externally executed transfer: it transitions the
	// merchant's pending items redeemed up to the cutoff, atomically.
	MarkPaidUpTo(ctx context.Context, merchantID string, cutoff time.Time, transferRef string) (int, error)
	// PendingTotalsByMerchant groups pending liabilities per merchant,
	// optionally restricted by voucher redemption date.
	PendingTotalsByMerchant(ctx context.Context, redeemedIn *model.DateRange) ([]PendingTotal, error)
	// RecentPaid returns the latest paid items, newest first, for audit views.
	RecentPaid(ctx context.Context, limit int) ([]*model.PayoutItem, error)
}

type PendingTotal struct {
	MerchantID   string          `json:"merchant_id"`
	MerchantName string          `json:"merchant_name"`
	Count        int             `json:"count"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

type BatchResult struct {
	MerchantID   string          `json:"merchant_id"`
	MarkedAsPaid int             `json:"marked_as_paid"`
	CutoffDate   time.Time       `json:"cutoff_date"`
	Amount       decimal.Decimal `json:"amount"`
	TransferRef  string          `json:"transfer_ref,omitempty"`
}

type payoutUC struct {
	payouts   repository.PayoutItemRepository
	merchants repository.MerchantRepository
	tm        repository.TransactionManager
	transfers adapter.FundsTransferAdapter
	locker    adapter.Locker
	events    adapter.EventPublisher

	lockTTL time.Duration
	log     *zerolog.Logger
}

func NewPayoutUseCase(
	payouts repository.PayoutItemRepository,
	merchants repository.MerchantRepository,
	tm repository.TransactionManager,
	transfers adapter.FundsTransferAdapter,
	locker adapter.Locker,
	events adapter.EventPublisher,
	logger *zerolog.Logger,
) *payoutUC {
	return &payoutUC{
		payouts:   payouts,
		merchants: merchants,
		tm:        tm,
		transfers: transfers,
		locker:    locker,
		events:    events,
		lockTTL:   2 * time.Minute,
		log:       logger,
	}
}

func batchLockKey(merchantID string) string { return "payout:batch:" + merchantID }

func (u *payoutUC) RunBatch(ctx context.Context, merchantID string, cutoff time.Time) (*BatchResult, error) {
	if merchantID == "" {
		return nil, domain.ErrInvalidArgument
	}

	if u.locker != nil {
		token, err := u.locker.TryLock(ctx, batchLockKey(merchantID), u.lockTTL)
		if err != nil {
			return nil, domain.ErrPayoutLocked
		}
		defer func() { _ = u.locker.Unlock(ctx, batchLockKey(merchantID), token) }()
	}

	pending, err := u.payouts.ListPending(ctx, repository.NoTX, merchantID, &model.DateRange{To: &cutoff})
	if err != nil {
		return nil, err
	}
	result := &BatchResult{MerchantID: merchantID, CutoffDate: cutoff}
	if len(pending) == 0 {
		return result, nil
	}

	amount := decimal.Decimal{}
	currency := ""
	for _, p := range pending {
		amount = amount.Add(p.AmountPayable)
		if currency == "" {
			currency = p.Currency
		}
	}
	result.Amount = amount.Round(2)

	merchant, err := u.merchants.FindByID(ctx, repository.NoTX, merchantID)
	if err != nil {
		return nil, err
	}

	// Transfer first, with an idempotency key, then record status. A crash
	// after the transfer leaves the items pending; the retried run reuses the
	// provider-side idempotency window or shows up in reconciliation, never as
	// a silent double payout of marked items.
	transferRef := ""
	if u.transfers != nil {
		key := ulid.Make().String()
		res, err := u.transfers.Transfer(ctx, adapter.TransferRequest{
			MerchantID:     merchantID,
			AccountRef:     merchant.AccountRef,
			Amount:         result.Amount,
			Currency:       currency,
			IdempotencyKey: key,
			Description:    fmt.Sprintf("brontie payout up to %s", cutoff.Format("2006-01-02")),
		})
		if err != nil {
			u.log.Error().Err(err).Str("merchant_id", merchantID).Msg("payout transfer failed")
			return nil, domain.ErrTransferFailed
		}
		transferRef = res.TransferRef
	}

	marked, err := u.MarkPaidUpTo(ctx, merchantID, cutoff, transferRef)
	if err != nil {
		return nil, err
	}
	result.MarkedAsPaid = marked
	result.TransferRef = transferRef

	if u.events != nil {
		_ = u.events.Publish(ctx, "payout.paid", map[string]interface{}{
			"merchant_id":  merchantID,
			"cutoff_date":  cutoff,
			"item_count":   marked,
			"amount":       result.Amount,
			"transfer_ref": transferRef,
		})
	}
	u.log.Info().Str("merchant_id", merchantID).Int("items", marked).Str("amount", result.Amount.String()).Msg("payout batch completed")
	return result, nil
}

func (u *payoutUC) MarkPaidUpTo(ctx context.Context, merchantID string, cutoff time.Time, transferRef string) (int, error) {
	if merchantID == "" {
		return 0, domain.ErrInvalidArgument
	}
	marked := 0
	// The whole merchant batch transitions in one transaction: either every
	// selected item becomes paid or none does.
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		n, err := u.payouts.MarkPaidUpTo(ctx, tx, merchantID, cutoff, time.Now(), transferRef)
		if err != nil {
			return err
		}
		marked = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

func (u *payoutUC) PendingTotalsByMerchant(ctx context.Context, redeemedIn *model.DateRange) ([]PendingTotal, error) {
	pending, err := u.payouts.ListPending(ctx, repository.NoTX, "", redeemedIn)
	if err != nil {
		return nil, err
	}
	merchants, err := u.merchants.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(merchants))
	for _, m := range merchants {
		names[m.ID] = m.Name
	}

	byMerchant := map[string]*PendingTotal{}
	for _, p := range pending {
		t := byMerchant[p.MerchantID]
		if t == nil {
			t = &PendingTotal{MerchantID: p.MerchantID, MerchantName: names[p.MerchantID], Currency: p.Currency}
			byMerchant[p.MerchantID] = t
		}
		t.Count++
		t.Amount = t.Amount.Add(p.AmountPayable)
	}

	totals := make([]PendingTotal, 0, len(byMerchant))
	for _, t := range byMerchant {
		t.Amount = t.Amount.Round(2)
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].MerchantID < totals[j].MerchantID })
	return totals, nil
}

func (u *payoutUC) RecentPaid(ctx context.Context, limit int) ([]*model.PayoutItem, error) {
	if limit <= 0 {
		limit = 50
	}
	return u.payouts.ListRecentPaid(ctx, repository.NoTX, limit)
}
