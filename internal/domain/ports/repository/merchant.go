package repository

import (
	"context"

	"brontie-core/internal/domain/model"
)

type MerchantRepository interface {
	Save(ctx context.Context, tx Tx, m *model.Merchant) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Merchant, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Merchant, error)
}
