package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"brontie-core/internal/domain"
	"brontie-core/internal/domain/model"
	"brontie-core/internal/domain/ports/repository"
)

var _ repository.GiftItemRepository = (*giftItemRepo)(nil)

type giftItemRepo struct{ pool *pgxpool.Pool }

func NewGiftItemRepo(pool *pgxpool.Pool) *giftItemRepo {
	return &giftItemRepo{pool: pool}
}

const giftItemColumns = `id, merchant_id, name, sku, price::text, currency, created_at`

func (r *giftItemRepo) Save(ctx context.Context, tx repository.Tx, g *model.GiftItem) error {
	const q = `
INSERT INTO gift_items (id, merchant_id, name, sku, price, currency, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  name=$3, sku=$4, price=$5, currency=$6;`

	_, err := execSQL(ctx, r.pool, tx, q,
		g.ID, g.MerchantID, g.Name, g.SKU, numArg(g.Price), g.Currency, g.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *giftItemRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GiftItem, error) {
	const q = `SELECT ` + giftItemColumns + ` FROM gift_items WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanGiftItem(row)
}

func (r *giftItemRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.GiftItem, error) {
	const q = `SELECT ` + giftItemColumns + ` FROM gift_items ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.GiftItem
	for rows.Next() {
		g, err := scanGiftItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func scanGiftItem(row pgx.Row) (*model.GiftItem, error) {
	g := &model.GiftItem{}
	var price string
	if err := row.Scan(&g.ID, &g.MerchantID, &g.Name, &g.SKU, &price, &g.Currency, &g.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	var err error
	if g.Price, err = numParse(price); err != nil {
		return nil, err
	}
	return g, nil
}
