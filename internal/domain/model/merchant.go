package model

import (
	"time"

	"brontie-core/internal/domain"

	"github.com/shopspring/decimal"
)

// FeeSettings controls whether and how much platform commission a merchant pays.
// Missing settings behave as "no commission" with the default rate kept around
// for the day the merchant is activated.
type FeeSettings struct {
	IsActive       bool
	CommissionRate decimal.Decimal // fraction, e.g. 0.10; zero means "use default"
}

// Merchant is a partner café. Only the fields the fee/payout core consumes are
// modeled here; profile data lives with the external CRUD surface.
type Merchant struct {
	ID          string // UUID
	Name        string
	AccountRef  string // external payout account (e.g. Stripe connected account id)
	FeeSettings FeeSettings
	CreatedAt   time.Time
}

func NewMerchant(id, name, accountRef string) (*Merchant, error) {
	if id == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Merchant{
		ID:         id,
		Name:       name,
		AccountRef: accountRef,
		FeeSettings: FeeSettings{
			IsActive:       false,
			CommissionRate: decimal.Decimal{},
		},
		CreatedAt: time.Now(),
	}, nil
}

// AgeDays returns the merchant's age in whole days at the given instant.
func (m *Merchant) AgeDays(now time.Time) int {
	if now.Before(m.CreatedAt) {
		return 0
	}
	return int(now.Sub(m.CreatedAt).Hours() / 24)
}
