package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"brontie-core/internal/domain"
	"brontie-core/internal/domain/model"
	"brontie-core/internal/domain/ports/repository"
)

var _ repository.MerchantRepository = (*merchantRepo)(nil)

type merchantRepo struct{ pool *pgxpool.Pool }

func NewMerchantRepo(pool *pgxpool.Pool) *merchantRepo {
	return &merchantRepo{pool: pool}
}

const merchantColumns = `id, name, account_ref, fee_active, commission_rate::text, created_at`

func (r *merchantRepo) Save(ctx context.Context, tx repository.Tx, m *model.Merchant) error {
	const q = `
INSERT INTO merchants (id, name, account_ref, fee_active, commission_rate, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  name=$2, account_ref=$3, fee_active=$4, commission_rate=$5;`

	_, err := execSQL(ctx, r.pool, tx, q,
		m.ID, m.Name, m.AccountRef, m.FeeSettings.IsActive, numArg(m.FeeSettings.CommissionRate), m.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *merchantRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Merchant, error) {
	const q = `SELECT ` + merchantColumns + ` FROM merchants WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanMerchant(row)
}

func (r *merchantRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Merchant, error) {
	const q = `SELECT ` + merchantColumns + ` FROM merchants ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Merchant
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func scanMerchant(row pgx.Row) (*model.Merchant, error) {
	m := &model.Merchant{}
	var rate string
	if err := row.Scan(&m.ID, &m.Name, &m.AccountRef, &m.FeeSettings.IsActive, &rate, &m.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	var err error
	if m.FeeSettings.CommissionRate, err = numParse(rate); err != nil {
		return nil, err
	}
	return m, nil
}
