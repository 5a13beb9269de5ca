//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"brontie-core/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func merchantAged(t *testing.T, ageDays int, active bool, rate string) *Merchant {
	t.Helper()
	m, err := NewMerchant("m-1", "Test Café", "acct_1")
	if err != nil {
		t.Fatalf("NewMerchant: %v", err)
	}
	m.CreatedAt = time.Now().AddDate(0, 0, -ageDays)
	m.FeeSettings.IsActive = active
	if rate != "" {
		m.FeeSettings.CommissionRate = d(rate)
	}
	return m
}

func TestComputeFees(t *testing.T) {
	now := time.Now()

	t.Run("estimate without commission", func(t *testing.T) {
		m := merchantAged(t, 120, false, "")
		fees := ComputeFees(d("10.00"), m, nil, now).Rounded()

		if !fees.ProcessorFee.Equal(d("0.39")) {
			t.Fatalf("processor fee: want 0.39, got %s", fees.ProcessorFee)
		}
		if !fees.PlatformFee.IsZero() {
			t.Fatalf("platform fee: want 0, got %s", fees.PlatformFee)
		}
		if !fees.NetToMerchant.Equal(d("9.61")) {
			t.Fatalf("net to merchant: want 9.61, got %s", fees.NetToMerchant)
		}
	})

	t.Run("default commission for active mature merchant", func(t *testing.T) {
		m := merchantAged(t, 120, true, "")
		fees := ComputeFees(d("10.00"), m, nil, now)

		// platform fee is taken from net after processor: 9.61 * 0.10
		if !fees.PlatformFee.Equal(d("0.961")) {
			t.Fatalf("platform fee: want 0.961, got %s", fees.PlatformFee)
		}
		rounded := fees.Rounded()
		if !rounded.PlatformFee.Equal(d("0.96")) {
			t.Fatalf("rounded platform fee: want 0.96, got %s", rounded.PlatformFee)
		}
		if !rounded.NetToMerchant.Equal(d("8.65")) {
			t.Fatalf("rounded net: want 8.65, got %s", rounded.NetToMerchant)
		}
	})

	t.Run("explicit commission rate wins over default", func(t *testing.T) {
		m := merchantAged(t, 120, true, "0.15")
		fees := ComputeFees(d("10.00"), m, nil, now)
		want := d("9.61").Mul(d("0.15"))
		if !fees.PlatformFee.Equal(want) {
			t.Fatalf("platform fee: want %s, got %s", want, fees.PlatformFee)
		}
	})

	t.Run("age gate at 90 days", func(t *testing.T) {
		young := merchantAged(t, 89, true, "")
		if fees := ComputeFees(d("10.00"), young, nil, now); !fees.PlatformFee.IsZero() {
			t.Fatalf("89-day merchant must pay no commission, got %s", fees.PlatformFee)
		}
		old := merchantAged(t, 91, true, "")
		if fees := ComputeFees(d("10.00"), old, nil, now); fees.PlatformFee.IsZero() {
			t.Fatal("91-day active merchant must pay commission")
		}
	})

	t.Run("inactive merchant never pays commission", func(t *testing.T) {
		m := merchantAged(t, 365, false, "0.15")
		if fees := ComputeFees(d("10.00"), m, nil, now); !fees.PlatformFee.IsZero() {
			t.Fatalf("inactive merchant: want 0 platform fee, got %s", fees.PlatformFee)
		}
	})

	t.Run("stored processor fee wins over estimate", func(t *testing.T) {
		m := merchantAged(t, 120, false, "")
		stored := d("0.42")
		fees := ComputeFees(d("10.00"), m, &stored, now)
		if !fees.ProcessorFee.Equal(stored) {
			t.Fatalf("processor fee: want stored 0.42, got %s", fees.ProcessorFee)
		}
	})

	t.Run("stored zero processor fee falls back to estimate", func(t *testing.T) {
		m := merchantAged(t, 120, false, "")
		zero := decimal.Decimal{}
		fees := ComputeFees(d("10.00"), m, &zero, now)
		if !fees.ProcessorFee.Equal(d("0.39")) {
			t.Fatalf("processor fee: want estimated 0.39, got %s", fees.ProcessorFee)
		}
	})

	t.Run("zero gross yields all-zero breakdown", func(t *testing.T) {
		m := merchantAged(t, 120, true, "")
		fees := ComputeFees(decimal.Decimal{}, m, nil, now)
		if !fees.ProcessorFee.IsZero() || !fees.PlatformFee.IsZero() || !fees.NetToMerchant.IsZero() {
			t.Fatalf("zero gross: want all zero, got %+v", fees)
		}
	})

	t.Run("negative gross is clamped to zero", func(t *testing.T) {
		m := merchantAged(t, 120, true, "")
		fees := ComputeFees(d("-5.00"), m, nil, now)
		if !fees.Gross.IsZero() || !fees.NetToMerchant.IsZero() {
			t.Fatalf("negative gross: want zeros, got %+v", fees)
		}
	})

	t.Run("decomposition is conserved at full precision", func(t *testing.T) {
		m := merchantAged(t, 120, true, "0.13")
		fees := ComputeFees(d("7.77"), m, nil, now)
		sum := fees.ProcessorFee.Add(fees.PlatformFee).Add(fees.NetToMerchant)
		if !sum.Equal(fees.Gross) {
			t.Fatalf("fees do not sum to gross: %s != %s", sum, fees.Gross)
		}
	})
}

func TestDateRangeContains(t *testing.T) {
	day := func(n int) time.Time { return time.Date(2026, 3, n, 12, 0, 0, 0, time.UTC) }
	from, to := day(10), day(20)

	t.Run("nil range passes everything", func(t *testing.T) {
		var r *DateRange
		if !r.Contains(day(1)) {
			t.Fatal("nil range must contain any timestamp")
		}
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		r := &DateRange{From: &from, To: &to}
		if !r.Contains(from) || !r.Contains(to) {
			t.Fatal("range bounds must be inclusive")
		}
		if r.Contains(day(9)) || r.Contains(day(21)) {
			t.Fatal("out-of-range timestamps must be excluded")
		}
	})

	t.Run("inverted range matches nothing", func(t *testing.T) {
		r := &DateRange{From: &to, To: &from}
		if r.Contains(day(15)) || r.Contains(to) || r.Contains(from) {
			t.Fatal("inverted range must match nothing")
		}
	})

	t.Run("open-ended ranges", func(t *testing.T) {
		onlyFrom := &DateRange{From: &from}
		if !onlyFrom.Contains(day(25)) || onlyFrom.Contains(day(5)) {
			t.Fatal("from-only range mismatch")
		}
		onlyTo := &DateRange{To: &to}
		if !onlyTo.Contains(day(5)) || onlyTo.Contains(day(25)) {
			t.Fatal("to-only range mismatch")
		}
	})
}

func testVoucher(t *testing.T, createdAt time.Time) *Voucher {
	t.Helper()
	item, err := NewGiftItem("g-1", "m-1", "Flat White", "FW", d("4.20"), "EUR")
	if err != nil {
		t.Fatalf("NewGiftItem: %v", err)
	}
	v, err := NewIssuedVoucher("v-1", "cs_123", item, "a@b.c", "d@e.f", "tok-1", nil)
	if err != nil {
		t.Fatalf("NewIssuedVoucher: %v", err)
	}
	v.CreatedAt = createdAt
	v.IssuedAt = &createdAt
	return v
}

func TestVoucherClassification(t *testing.T) {
	day := func(n int) time.Time { return time.Date(2026, 3, n, 12, 0, 0, 0, time.UTC) }
	from, to := day(10), day(20)
	rng := &DateRange{From: &from, To: &to}

	t.Run("sold keyed on creation date only", func(t *testing.T) {
		v := testVoucher(t, day(15))
		if err := v.Redeem(day(25)); err != nil {
			t.Fatalf("Redeem: %v", err)
		}
		if !v.SoldIn(rng) {
			t.Fatal("voucher created in range counts as sold even if redeemed later")
		}
	})

	t.Run("terminal bucket needs both timestamps in range", func(t *testing.T) {
		// created out of range, redeemed in range -> excluded
		v := testVoucher(t, day(5))
		if err := v.Redeem(day(15)); err != nil {
			t.Fatalf("Redeem: %v", err)
		}
		if got := v.EventBucket(rng); got != BucketExcluded {
			t.Fatalf("want excluded, got %s", got)
		}

		// both in range -> redeemed
		v2 := testVoucher(t, day(12))
		if err := v2.Redeem(day(18)); err != nil {
			t.Fatalf("Redeem: %v", err)
		}
		if got := v2.EventBucket(rng); got != BucketRedeemed {
			t.Fatalf("want redeemed, got %s", got)
		}

		// created in range, redeemed after -> excluded
		v3 := testVoucher(t, day(15))
		if err := v3.Redeem(day(25)); err != nil {
			t.Fatalf("Redeem: %v", err)
		}
		if got := v3.EventBucket(rng); got != BucketExcluded {
			t.Fatalf("want excluded, got %s", got)
		}
	})

	t.Run("refunded and expired classify the same way", func(t *testing.T) {
		vr := testVoucher(t, day(12))
		if err := vr.Refund(day(14)); err != nil {
			t.Fatalf("Refund: %v", err)
		}
		if got := vr.EventBucket(rng); got != BucketRefunded {
			t.Fatalf("want refunded, got %s", got)
		}

		ve := testVoucher(t, day(12))
		if err := ve.Expire(day(19)); err != nil {
			t.Fatalf("Expire: %v", err)
		}
		if got := ve.EventBucket(rng); got != BucketExpired {
			t.Fatalf("want expired, got %s", got)
		}
	})

	t.Run("missing event timestamp excludes the voucher", func(t *testing.T) {
		v := testVoucher(t, day(12))
		v.Status = VoucherStatusRedeemed // inconsistent record, no RedeemedAt
		if got := v.EventBucket(rng); got != BucketExcluded {
			t.Fatalf("want excluded, got %s", got)
		}
	})

	t.Run("issued vouchers land in no terminal bucket", func(t *testing.T) {
		v := testVoucher(t, day(12))
		if got := v.EventBucket(rng); got != BucketExcluded {
			t.Fatalf("want excluded, got %s", got)
		}
	})

	t.Run("nil range classifies by status alone", func(t *testing.T) {
		v := testVoucher(t, day(1))
		if err := v.Redeem(day(25)); err != nil {
			t.Fatalf("Redeem: %v", err)
		}
		if got := v.EventBucket(nil); got != BucketRedeemed {
			t.Fatalf("want redeemed, got %s", got)
		}
	})
}

func TestVoucherEffectiveGross(t *testing.T) {
	now := time.Now()

	t.Run("stored amount wins", func(t *testing.T) {
		v := testVoucher(t, now)
		stored := d("6.00")
		v.AmountGross = &stored
		item, _ := NewGiftItem("g-1", "m-1", "Flat White", "FW", d("4.20"), "EUR")
		if got := v.EffectiveGross(item); !got.Equal(stored) {
			t.Fatalf("want stored 6.00, got %s", got)
		}
	})

	t.Run("falls back to item price, then zero", func(t *testing.T) {
		v := testVoucher(t, now)
		item, _ := NewGiftItem("g-1", "m-1", "Flat White", "FW", d("4.20"), "EUR")
		if got := v.EffectiveGross(item); !got.Equal(d("4.20")) {
			t.Fatalf("want item price 4.20, got %s", got)
		}
		if got := v.EffectiveGross(nil); !got.IsZero() {
			t.Fatalf("want zero without item, got %s", got)
		}
	})
}

func TestVoucherTransitions(t *testing.T) {
	now := time.Now()

	t.Run("redeem only from issued", func(t *testing.T) {
		v := testVoucher(t, now)
		if err := v.Redeem(now); err != nil {
			t.Fatalf("first redeem: %v", err)
		}
		if err := v.Redeem(now); !errors.Is(err, domain.ErrVoucherNotRedeemable) {
			t.Fatalf("second redeem: want ErrVoucherNotRedeemable, got %v", err)
		}
	})

	t.Run("refund after redeem is rejected", func(t *testing.T) {
		v := testVoucher(t, now)
		if err := v.Redeem(now); err != nil {
			t.Fatalf("Redeem: %v", err)
		}
		if err := v.Refund(now); !errors.Is(err, domain.ErrVoucherNotRedeemable) {
			t.Fatalf("want ErrVoucherNotRedeemable, got %v", err)
		}
	})

	t.Run("expire only from issued", func(t *testing.T) {
		v := testVoucher(t, now)
		if err := v.Refund(now); err != nil {
			t.Fatalf("Refund: %v", err)
		}
		if err := v.Expire(now); !errors.Is(err, domain.ErrVoucherNotRedeemable) {
			t.Fatalf("want ErrVoucherNotRedeemable, got %v", err)
		}
	})
}

func TestPayoutItem(t *testing.T) {
	now := time.Now()

	redeemedVoucher := func(t *testing.T) *Voucher {
		t.Helper()
		v := testVoucher(t, now.AddDate(0, 0, -1))
		if err := v.Redeem(now); err != nil {
			t.Fatalf("Redeem: %v", err)
		}
		return v
	}

	t.Run("created from redeemed voucher with rounded amounts", func(t *testing.T) {
		v := redeemedVoucher(t)
		m := merchantAged(t, 120, true, "")
		fees := ComputeFees(d("10.00"), m, nil, now)

		pi, err := NewPayoutItem("p-1", v, fees)
		if err != nil {
			t.Fatalf("NewPayoutItem: %v", err)
		}
		if pi.Status != PayoutItemStatusPending {
			t.Fatalf("want pending, got %s", pi.Status)
		}
		if !pi.AmountPayable.Equal(d("8.65")) {
			t.Fatalf("amount payable: want 8.65, got %s", pi.AmountPayable)
		}
		if !pi.PlatformFee.Equal(d("0.96")) {
			t.Fatalf("platform fee: want 0.96, got %s", pi.PlatformFee)
		}
	})

	t.Run("rejects non-redeemed voucher", func(t *testing.T) {
		v := testVoucher(t, now)
		if _, err := NewPayoutItem("p-1", v, FeeBreakdown{}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("paid and reversed are terminal", func(t *testing.T) {
		v := redeemedVoucher(t)
		pi, err := NewPayoutItem("p-1", v, FeeBreakdown{NetToMerchant: d("4.00")})
		if err != nil {
			t.Fatalf("NewPayoutItem: %v", err)
		}
		if err := pi.MarkPaid("tr_1", now); err != nil {
			t.Fatalf("MarkPaid: %v", err)
		}
		if pi.TransferRef != "tr_1" || pi.PaidAt == nil {
			t.Fatalf("transfer ref / paid at not recorded: %+v", pi)
		}
		if err := pi.MarkPaid("tr_2", now); !errors.Is(err, domain.ErrPayoutItemFinal) {
			t.Fatalf("second MarkPaid: want ErrPayoutItemFinal, got %v", err)
		}
		if err := pi.Reverse(); !errors.Is(err, domain.ErrPayoutItemFinal) {
			t.Fatalf("Reverse after paid: want ErrPayoutItemFinal, got %v", err)
		}
	})
}
