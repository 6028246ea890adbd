package postgres

import (
	"context"
	"errors"

	domain "catalog/backend/internal/domain/product"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, name, description, category, subcategory, ingredients, benefits,
       price, original_price, in_stock, rating, review_count, badges, image_url, created_at, updated_at`

// ProductRepository persists products and their variants in PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// Ensure ProductRepository implements the domain port.
var _ domain.Repository = (*ProductRepository)(nil)

// NewProductRepository constructs a repository.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product together with its variants.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	const query = `
INSERT INTO products (name, description, category, subcategory, ingredients, benefits,
                      price, original_price, in_stock, rating, review_count, badges,
                      image_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING id
`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			product.Name,
			product.Description,
			product.Category,
			product.Subcategory,
			product.Ingredients,
			product.Benefits,
			product.Price,
			product.OriginalPrice,
			product.InStock,
			product.Rating,
			product.ReviewCount,
			badgesOrEmpty(product.Badges),
			product.ImageURL,
			product.CreatedAt,
			product.UpdatedAt,
		).Scan(&product.ID)
		if err != nil {
			return err
		}
		for i := range product.Variants {
			product.Variants[i].ProductID = product.ID
			if err := insertVariant(ctx, tx, &product.Variants[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID fetches a product and its variants.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	variants, err := listVariants(ctx, r.pool, `WHERE product_id = $1`, id)
	if err != nil {
		return nil, err
	}
	product.Variants = derefVariants(variants)
	return product, nil
}

// List returns all products, newest first, with their variants.
func (r *ProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*domain.Product{}
	byID := map[int64]*domain.Product{}
	ids := []int64{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		product.Variants = []domain.Variant{}
		products = append(products, product)
		byID[product.ID] = product
		ids = append(ids, product.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return products, nil
	}

	variants, err := listVariants(ctx, r.pool, `WHERE product_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, v := range variants {
		if p, ok := byID[v.ProductID]; ok {
			p.Variants = append(p.Variants, *v)
		}
	}
	return products, nil
}

// Update replaces the product row and its variant set.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	const query = `
UPDATE products
SET name = $2,
    description = $3,
    category = $4,
    subcategory = $5,
    ingredients = $6,
    benefits = $7,
    price = $8,
    original_price = $9,
    in_stock = $10,
    rating = $11,
    review_count = $12,
    badges = $13,
    image_url = $14,
    updated_at = $15
WHERE id = $1
RETURNING created_at
`
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			product.ID,
			product.Name,
			product.Description,
			product.Category,
			product.Subcategory,
			product.Ingredients,
			product.Benefits,
			product.Price,
			product.OriginalPrice,
			product.InStock,
			product.Rating,
			product.ReviewCount,
			badgesOrEmpty(product.Badges),
			product.ImageURL,
			product.UpdatedAt,
		).Scan(&product.CreatedAt)
		if err != nil {
			return err
		}
		return replaceVariants(ctx, tx, product)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// Delete removes a product by id. Variants go with it through the foreign key.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM products WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func replaceVariants(ctx context.Context, tx pgx.Tx, product *domain.Product) error {
	keep := make([]int64, 0, len(product.Variants))
	for _, v := range product.Variants {
		if v.ID != 0 {
			keep = append(keep, v.ID)
		}
	}
	const prune = `DELETE FROM product_variants WHERE product_id = $1 AND NOT (id = ANY($2))`
	if _, err := tx.Exec(ctx, prune, product.ID, keep); err != nil {
		return err
	}

	const update = `
UPDATE product_variants
SET price = $3,
    original_price = $4,
    stock_quantity = $5,
    weight_value = $6,
    weight_unit = $7
WHERE id = $1 AND product_id = $2
`
	for i := range product.Variants {
		v := &product.Variants[i]
		v.ProductID = product.ID
		if v.ID != 0 {
			tag, err := tx.Exec(ctx, update, v.ID, v.ProductID, v.Price, v.OriginalPrice, v.StockQuantity, v.WeightValue, v.WeightUnit)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 1 {
				continue
			}
		}
		if err := insertVariant(ctx, tx, v); err != nil {
			return err
		}
	}
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Subcategory,
		&p.Ingredients,
		&p.Benefits,
		&p.Price,
		&p.OriginalPrice,
		&p.InStock,
		&p.Rating,
		&p.ReviewCount,
		&p.Badges,
		&p.ImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// badgesOrEmpty keeps a nil slice from being written as NULL.
func badgesOrEmpty(badges []string) []string {
	if badges == nil {
		return []string{}
	}
	return badges
}

func derefVariants(variants []*domain.Variant) []domain.Variant {
	out := make([]domain.Variant, 0, len(variants))
	for _, v := range variants {
		out = append(out, *v)
	}
	return out
}
