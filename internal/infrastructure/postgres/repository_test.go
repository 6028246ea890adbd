package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	domain "catalog/backend/internal/domain/product"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDatabase connects to TEST_DATABASE_URL and skips the test when it is unset.
func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func newProduct(name string) *domain.Product {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Product{
		Name:      name,
		Price:     decimal.RequireFromString("12.50"),
		InStock:   true,
		CreatedAt: now,
		UpdatedAt: now,
		Variants: []domain.Variant{
			{Price: decimal.RequireFromString("12.50"), StockQuantity: 10, WeightValue: "100", WeightUnit: "ML"},
			{Price: decimal.RequireFromString("20"), StockQuantity: 3, WeightValue: "250", WeightUnit: "ML"},
		},
	}
}

func TestProductRepositoryRoundTrip(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	repo := NewProductRepository(db.Pool)

	p := newProduct("Sandalwood oil")
	require.NoError(t, repo.Create(ctx, p))
	require.NotZero(t, p.ID)
	t.Cleanup(func() { _ = repo.Delete(ctx, p.ID) })

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sandalwood oil", got.Name)
	assert.True(t, got.Price.Equal(p.Price))
	assert.Nil(t, got.ImageURL)
	assert.Empty(t, got.Badges)
	require.Len(t, got.Variants, 2)

	// Keep the first variant, drop the second, add a new one.
	first := got.Variants[0]
	first.StockQuantity = 7
	ref := "/api/admin/products/images/a.png"
	got.ImageURL = &ref
	got.Subcategory = "Hair oils"
	got.Rating = decimal.RequireFromString("4.5")
	got.ReviewCount = 12
	got.Badges = []string{"bestseller", "organic"}
	got.Variants = []domain.Variant{first, {StockQuantity: 1, WeightValue: "500", WeightUnit: "ML"}}
	got.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, again.Variants, 2)
	assert.Equal(t, first.ID, again.Variants[0].ID)
	assert.Equal(t, 7, again.Variants[0].StockQuantity)
	require.NotNil(t, again.ImageURL)
	assert.Equal(t, ref, *again.ImageURL)
	assert.Equal(t, "Hair oils", again.Subcategory)
	assert.True(t, again.Rating.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, 12, again.ReviewCount)
	assert.Equal(t, []string{"bestseller", "organic"}, again.Badges)
}

func TestProductRepositoryMissing(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	repo := NewProductRepository(db.Pool)

	_, err := repo.GetByID(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p := newProduct("ghost")
	p.ID = -1
	assert.ErrorIs(t, repo.Update(ctx, p), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, -1), domain.ErrNotFound)
}

func TestVariantRepositoryAdjustStock(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	products := NewProductRepository(db.Pool)
	variants := NewVariantRepository(db.Pool)

	p := newProduct("Rose water")
	require.NoError(t, products.Create(ctx, p))
	t.Cleanup(func() { _ = products.Delete(ctx, p.ID) })
	id := p.Variants[0].ID

	stock, err := variants.AdjustStock(ctx, id, -5)
	require.NoError(t, err)
	assert.Equal(t, 5, stock)

	stock, err = variants.AdjustStock(ctx, id, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, stock)

	// Stock 3 dips below zero and comes back.
	low := p.Variants[1].ID
	stock, err = variants.AdjustStock(ctx, low, -5)
	require.NoError(t, err)
	assert.Equal(t, -2, stock)
	stock, err = variants.AdjustStock(ctx, low, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, stock)

	_, err = variants.AdjustStock(ctx, -1, 1)
	assert.ErrorIs(t, err, domain.ErrVariantNotFound)

	require.NoError(t, variants.Delete(ctx, id))
	assert.ErrorIs(t, variants.Delete(ctx, id), domain.ErrVariantNotFound)
	_, err = variants.GetByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrVariantNotFound)
}
