package postgres

import (
	"context"
	"errors"

	domain "catalog/backend/internal/domain/product"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const variantColumns = `id, product_id, price, original_price, stock_quantity, weight_value, weight_unit`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VariantRepository persists product variants in PostgreSQL.
type VariantRepository struct {
	pool *pgxpool.Pool
}

// Ensure VariantRepository implements the domain port.
var _ domain.VariantRepository = (*VariantRepository)(nil)

// NewVariantRepository constructs a repository.
func NewVariantRepository(pool *pgxpool.Pool) *VariantRepository {
	return &VariantRepository{pool: pool}
}

// GetByID fetches a variant by id.
func (r *VariantRepository) GetByID(ctx context.Context, id int64) (*domain.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1`
	variant, err := scanVariant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVariantNotFound
		}
		return nil, err
	}
	return variant, nil
}

// List returns every variant ordered by id.
func (r *VariantRepository) List(ctx context.Context) ([]*domain.Variant, error) {
	return listVariants(ctx, r.pool, "")
}

// Delete removes a variant by id.
func (r *VariantRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM product_variants WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVariantNotFound
	}
	return nil
}

// AdjustStock adds delta to the stock in one statement. No floor is applied,
// so the stock may go negative.
func (r *VariantRepository) AdjustStock(ctx context.Context, id int64, delta int) (int, error) {
	const query = `
UPDATE product_variants
SET stock_quantity = stock_quantity + $2
WHERE id = $1
RETURNING stock_quantity
`
	var stock int
	if err := r.pool.QueryRow(ctx, query, id, delta).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrVariantNotFound
		}
		return 0, err
	}
	return stock, nil
}

func insertVariant(ctx context.Context, q querier, v *domain.Variant) error {
	const query = `
INSERT INTO product_variants (product_id, price, original_price, stock_quantity, weight_value, weight_unit)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`
	return q.QueryRow(ctx, query,
		v.ProductID,
		v.Price,
		v.OriginalPrice,
		v.StockQuantity,
		v.WeightValue,
		v.WeightUnit,
	).Scan(&v.ID)
}

func listVariants(ctx context.Context, q querier, where string, args ...any) ([]*domain.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants ` + where + ` ORDER BY id ASC`
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	variants := []*domain.Variant{}
	for rows.Next() {
		variant, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, variant)
	}
	return variants, rows.Err()
}

func scanVariant(row pgx.Row) (*domain.Variant, error) {
	var v domain.Variant
	err := row.Scan(
		&v.ID,
		&v.ProductID,
		&v.Price,
		&v.OriginalPrice,
		&v.StockQuantity,
		&v.WeightValue,
		&v.WeightUnit,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
