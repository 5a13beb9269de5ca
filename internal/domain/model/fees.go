package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Processor fee estimate: flat-rate-plus-percentage, used only when the real
// fee was not recorded on the voucher. Stored fees always win.
var (
	processorFeeRate = decimal.RequireFromString("0.014")
	processorFeeFlat = decimal.RequireFromString("0.25")

	// DefaultCommissionRate applies when a merchant has no explicit rate.
	DefaultCommissionRate = decimal.RequireFromString("0.10")
)

// CommissionMinAgeDays gates platform commission: merchants younger than this
// never pay commission, regardless of the activation flag.
const CommissionMinAgeDays = 90

// FeeBreakdown is the full-precision fee decomposition of one transaction.
// Values are NOT rounded; call Rounded before reporting them externally so
// rounding error does not compound across aggregations.
type FeeBreakdown struct {
	Gross             decimal.Decimal
	ProcessorFee      decimal.Decimal
	PlatformFee       decimal.Decimal
	NetAfterProcessor decimal.Decimal
	NetToMerchant     decimal.Decimal
}

// Rounded returns a copy with every amount rounded to the currency minor unit.
func (f FeeBreakdown) Rounded() FeeBreakdown {
	return FeeBreakdown{
		Gross:             f.Gross.Round(2),
		ProcessorFee:      f.ProcessorFee.Round(2),
		PlatformFee:       f.PlatformFee.Round(2),
		NetAfterProcessor: f.NetAfterProcessor.Round(2),
		NetToMerchant:     f.NetToMerchant.Round(2),
	}
}

// ComputeFees derives the fee decomposition for a single gross amount.
//
// Negative gross amounts are clamped to zero: the caller gets an all-zero
// breakdown instead of an error, so a single malformed record cannot abort a
// whole aggregation run.
//
// Commission applies only when the merchant is at least CommissionMinAgeDays
// old AND its fee settings are active; otherwise the platform fee is zero.
func ComputeFees(gross decimal.Decimal, merchant *Merchant, storedProcessorFee *decimal.Decimal, now time.Time) FeeBreakdown {
	if gross.IsNegative() {
		gross = decimal.Decimal{}
	}

	processorFee := estimateProcessorFee(gross)
	if storedProcessorFee != nil && !storedProcessorFee.IsZero() {
		processorFee = *storedProcessorFee
	}

	netAfterProcessor := gross.Sub(processorFee)

	platformFee := decimal.Decimal{}
	if merchant != nil && merchant.FeeSettings.IsActive && merchant.AgeDays(now) >= CommissionMinAgeDays {
		rate := merchant.FeeSettings.CommissionRate
		if rate.IsZero() {
			rate = DefaultCommissionRate
		}
		platformFee = netAfterProcessor.Mul(rate)
	}

	return FeeBreakdown{
		Gross:             gross,
		ProcessorFee:      processorFee,
		PlatformFee:       platformFee,
		NetAfterProcessor: netAfterProcessor,
		NetToMerchant:     netAfterProcessor.Sub(platformFee),
	}
}

func estimateProcessorFee(gross decimal.Decimal) decimal.Decimal {
	if gross.IsZero() {
		return decimal.Decimal{}
	}
	return gross.Mul(processorFeeRate).Add(processorFeeFlat)
}
