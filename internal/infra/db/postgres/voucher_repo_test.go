//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"brontie-core/internal/domain"
	"brontie-core/internal/domain/model"
	"brontie-core/internal/domain/ports/repository"
)

// seedCatalog inserts one merchant with one gift item and returns the item.
func seedCatalog(t *testing.T, merchantID, giftItemID string) *model.GiftItem {
	t.Helper()
	ctx := context.Background()

	m, err := model.NewMerchant(merchantID, "Café "+merchantID, "acct_"+merchantID)
	if err != nil {
		t.Fatalf("NewMerchant: %v", err)
	}
	if err := NewMerchantRepo(testPool).Save(ctx, repository.NoTX, m); err != nil {
		t.Fatalf("save merchant: %v", err)
	}

	gi, err := model.NewGiftItem(giftItemID, merchantID, "Flat White", "FW", decimal.RequireFromString("10.00"), "EUR")
	if err != nil {
		t.Fatalf("NewGiftItem: %v", err)
	}
	if err := NewGiftItemRepo(testPool).Save(ctx, repository.NoTX, gi); err != nil {
		t.Fatalf("save gift item: %v", err)
	}
	return gi
}

func seedVoucher(t *testing.T, item *model.GiftItem, paymentRef string, createdAt time.Time) *model.Voucher {
	t.Helper()
	v, err := model.NewIssuedVoucher("v-"+paymentRef, paymentRef, item, "a@b.c", "d@e.f", "tok-"+paymentRef, nil)
	if err != nil {
		t.Fatalf("NewIssuedVoucher: %v", err)
	}
	v.CreatedAt = createdAt
	v.IssuedAt = &createdAt
	if err := NewVoucherRepo(testPool).Save(context.Background(), repository.NoTX, v); err != nil {
		t.Fatalf("save voucher: %v", err)
	}
	return v
}

func TestVoucherRepo_SaveAndFind(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewVoucherRepo(testPool)
	item := seedCatalog(t, "m-1", "g-1")

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := seedVoucher(t, item, "cs_1", created)

	t.Run("find by id", func(t *testing.T) {
		got, err := repo.FindByID(ctx, repository.NoTX, v.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.PaymentRef != "cs_1" || got.Status != model.VoucherStatusIssued {
			t.Fatalf("unexpected voucher: %+v", got)
		}
		if got.AmountGross != nil {
			t.Fatalf("amount_gross must stay NULL, got %s", got.AmountGross)
		}
	})

	t.Run("find by payment ref", func(t *testing.T) {
		got, err := repo.FindByPaymentRef(ctx, repository.NoTX, "cs_1")
		if err != nil {
			t.Fatalf("FindByPaymentRef: %v", err)
		}
		if got.ID != v.ID {
			t.Fatalf("want %s, got %s", v.ID, got.ID)
		}
	})

	t.Run("missing voucher maps to ErrNotFound", func(t *testing.T) {
		if _, err := repo.FindByID(ctx, repository.NoTX, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
		if _, err := repo.FindByPaymentRef(ctx, repository.NoTX, "cs_nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})

	t.Run("upsert updates the mutable columns", func(t *testing.T) {
		gross := decimal.RequireFromString("12.50")
		fee := decimal.RequireFromString("0.43")
		v.AmountGross = &gross
		v.ProcessorFee = &fee
		redeemed := created.Add(48 * time.Hour)
		if err := v.Redeem(redeemed); err != nil {
			t.Fatalf("Redeem: %v", err)
		}
		if err := repo.Save(ctx, repository.NoTX, v); err != nil {
			t.Fatalf("upsert: %v", err)
		}

		got, err := repo.FindByID(ctx, repository.NoTX, v.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.Status != model.VoucherStatusRedeemed || got.RedeemedAt == nil {
			t.Fatalf("redemption not persisted: %+v", got)
		}
		if got.AmountGross == nil || !got.AmountGross.Equal(gross) {
			t.Fatalf("amount_gross: want 12.50, got %v", got.AmountGross)
		}
		if got.ProcessorFee == nil || !got.ProcessorFee.Equal(fee) {
			t.Fatalf("processor_fee: want 0.43, got %v", got.ProcessorFee)
		}
	})
}

func TestVoucherRepo_List(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewVoucherRepo(testPool)
	item1 := seedCatalog(t, "m-1", "g-1")
	item2 := seedCatalog(t, "m-2", "g-2")

	day := func(n int) time.Time { return time.Date(2026, 3, n, 12, 0, 0, 0, time.UTC) }
	seedVoucher(t, item1, "cs_1", day(1))
	seedVoucher(t, item1, "cs_2", day(10))
	seedVoucher(t, item1, "cs_3", day(20))
	seedVoucher(t, item2, "cs_4", day(10))

	t.Run("empty merchant id and nil range return everything", func(t *testing.T) {
		got, err := repo.List(ctx, repository.NoTX, "", nil)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("want 4 vouchers, got %d", len(got))
		}
	})

	t.Run("merchant filter", func(t *testing.T) {
		got, err := repo.List(ctx, repository.NoTX, "m-2", nil)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 1 || got[0].PaymentRef != "cs_4" {
			t.Fatalf("want only cs_4, got %d rows", len(got))
		}
	})

	t.Run("created range filter is inclusive", func(t *testing.T) {
		from, to := day(10), day(20)
		got, err := repo.List(ctx, repository.NoTX, "m-1", &model.DateRange{From: &from, To: &to})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("want 2 vouchers, got %d", len(got))
		}
		if got[0].PaymentRef != "cs_2" || got[1].PaymentRef != "cs_3" {
			t.Fatalf("rows out of order: %s, %s", got[0].PaymentRef, got[1].PaymentRef)
		}
	})

	t.Run("inverted range matches nothing", func(t *testing.T) {
		from, to := day(20), day(10)
		got, err := repo.List(ctx, repository.NoTX, "m-1", &model.DateRange{From: &from, To: &to})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("want no vouchers, got %d", len(got))
		}
	})
}

func TestVoucherRepo_ListIssuedBefore(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewVoucherRepo(testPool)
	item := seedCatalog(t, "m-1", "g-1")

	day := func(n int) time.Time { return time.Date(2026, 3, n, 12, 0, 0, 0, time.UTC) }
	for n := 1; n <= 3; n++ {
		seedVoucher(t, item, fmt.Sprintf("cs_%d", n), day(n))
	}
	// a redeemed voucher never expires, however old
	old := seedVoucher(t, item, "cs_old", day(1))
	if err := old.Redeem(day(2)); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if err := repo.Save(ctx, repository.NoTX, old); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.ListIssuedBefore(ctx, repository.NoTX, day(3), 10)
	if err != nil {
		t.Fatalf("ListIssuedBefore: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 issued vouchers, got %d", len(got))
	}
	for _, v := range got {
		if v.Status != model.VoucherStatusIssued {
			t.Fatalf("non-issued voucher returned: %+v", v)
		}
	}

	t.Run("limit caps the batch", func(t *testing.T) {
		got, err := repo.ListIssuedBefore(ctx, repository.NoTX, day(3), 1)
		if err != nil {
			t.Fatalf("ListIssuedBefore: %v", err)
		}
		if len(got) != 1 || got[0].PaymentRef != "cs_1" {
			t.Fatalf("want the oldest voucher only, got %d rows", len(got))
		}
	})
}
