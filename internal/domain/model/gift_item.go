package model

import (
	"time"

	"brontie-core/internal/domain"

	"github.com/shopspring/decimal"
)

// GiftItem is a purchasable treat (coffee, cake) offered by one merchant.
type GiftItem struct {
	ID         string // UUID
	MerchantID string
	Name       string
	SKU        string
	Price      decimal.Decimal
	Currency   string
	CreatedAt  time.Time
}

func NewGiftItem(id, merchantID, name, sku string, price decimal.Decimal, currency string) (*GiftItem, error) {
	if id == "" || merchantID == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	if price.IsNegative() {
		return nil, domain.ErrInvalidArgument
	}
	return &GiftItem{
		ID:         id,
		MerchantID: merchantID,
		Name:       name,
		SKU:        sku,
		Price:      price,
		Currency:   currency,
		CreatedAt:  time.Now(),
	}, nil
}

// ProductKey identifies the item in product-mix groupings: SKU when present,
// otherwise the display name.
func (g *GiftItem) ProductKey() string {
	if g.SKU != "" {
		return g.SKU
	}
	return g.Name
}
