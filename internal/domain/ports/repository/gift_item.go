package repository

import (
	"context"

	"brontie-core/internal/domain/model"
)

type GiftItemRepository interface {
	Save(ctx context.Context, tx Tx, g *model.GiftItem) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.GiftItem, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.GiftItem, error)
}
