package model

import "time"

// DateRange is a half-open-by-convention [From, To] filter on timestamps.
// A nil *DateRange passes everything (all-time reports). A range whose To
// precedes From matches nothing, so all aggregations over it come out zero.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return false
	}
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// Bucket is a lifecycle bucket for analytics purposes.
type Bucket string

const (
	BucketSold     Bucket = "sold"
	BucketRedeemed Bucket = "redeemed"
	BucketRefunded Bucket = "refunded"
	BucketExpired  Bucket = "expired"
	BucketExcluded Bucket = "excluded"
)

// SoldIn reports whether the voucher counts toward the "sold" bucket for the
// range. Sold is keyed on creation date only: a voucher later redeemed or
// refunded still counts as sold for the period it was bought in.
func (v *Voucher) SoldIn(r *DateRange) bool {
	return r.Contains(v.CreatedAt)
}

// EventBucket classifies the voucher into at most one of the terminal buckets
// for the range. A terminal bucket requires BOTH the event timestamp and the
// creation timestamp in range, keeping period cohorts consistent: a voucher
// redeemed in-range but bought out-of-range is excluded.
func (v *Voucher) EventBucket(r *DateRange) Bucket {
	switch v.Status {
	case VoucherStatusRedeemed:
		if v.RedeemedAt != nil && r.Contains(*v.RedeemedAt) && r.Contains(v.CreatedAt) {
			return BucketRedeemed
		}
	case VoucherStatusRefunded:
		if v.RefundedAt != nil && r.Contains(*v.RefundedAt) && r.Contains(v.CreatedAt) {
			return BucketRefunded
		}
	case VoucherStatusExpired:
		if v.ExpiredAt != nil && r.Contains(*v.ExpiredAt) && r.Contains(v.CreatedAt) {
			return BucketExpired
		}
	}
	return BucketExcluded
}
