package product

import (
	"context"
	"io"
	"time"
)

// Repository defines persistence behaviours for products.
type Repository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id int64) error
}

// VariantRepository defines persistence behaviours for product variants.
type VariantRepository interface {
	GetByID(ctx context.Context, id int64) (*Variant, error)
	List(ctx context.Context) ([]*Variant, error)
	Delete(ctx context.Context, id int64) error
	// AdjustStock adds delta to the variant's stock and returns the new quantity.
	AdjustStock(ctx context.Context, id int64, delta int) (int, error)
}

// ImageStorage persists uploaded image files by generated filename.
type ImageStorage interface {
	Store(ctx context.Context, r io.Reader, originalName string) (string, error)
	Open(ctx context.Context, filename string) (*StoredImage, error)
	// Delete reports whether a file was actually removed. An absent file is not an error.
	Delete(ctx context.Context, filename string) (bool, error)
	List(ctx context.Context) ([]string, error)
	ProbeMediaType(filename string) string
	// FilenameFromReference returns the stored filename a reference points at, or "" if none.
	FilenameFromReference(ref string) string
}

// StoredImage is an open handle on a stored image file.
type StoredImage struct {
	Name    string
	Size    int64
	ModTime time.Time
	Content io.ReadSeekCloser
}
