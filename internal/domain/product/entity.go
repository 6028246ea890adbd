package product

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates a product could not be located.
	ErrNotFound = errors.New("product not found")
	// ErrVariantNotFound indicates a product variant could not be located.
	ErrVariantNotFound = errors.New("variant not found")
	// ErrImageNotFound indicates a stored image file is absent.
	ErrImageNotFound = errors.New("image not found")
	// ErrStorage wraps I/O failures of the image storage.
	ErrStorage = errors.New("image storage failure")
	// ErrImageDeleteFailed reports that an image file the product referenced could not be removed.
	ErrImageDeleteFailed = errors.New("failed to delete image file")
	// ErrInvalidInput marks payloads rejected by validation.
	ErrInvalidInput = errors.New("invalid product data")
)

// DefaultWeightUnit applies to variants submitted without a unit.
const DefaultWeightUnit = "ML"

var maxRating = decimal.NewFromInt(5)

// Product captures a catalog entry and its purchasable variants.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Subcategory   string          `json:"subcategory"`
	Ingredients   string          `json:"ingredients"`
	Benefits      string          `json:"benefits"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	InStock       bool            `json:"inStock"`
	Rating        decimal.Decimal `json:"rating"`
	ReviewCount   int             `json:"reviewCount" validate:"gte=0"`
	Badges        []string        `json:"badges"`
	ImageURL      *string         `json:"imageUrl"`
	Variants      []Variant       `json:"variants" validate:"dive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Variant is a specific purchasable configuration of a product with its own stock.
type Variant struct {
	ID            int64           `json:"id"`
	ProductID     int64           `json:"productId"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
	WeightValue   string          `json:"weightValue"`
	WeightUnit    string          `json:"weightUnit"`
}

// HasImage reports whether the product references a stored image.
func (p *Product) HasImage() bool {
	return p.ImageURL != nil && *p.ImageURL != ""
}

// SetImage points the product at a new image reference; an empty ref clears it.
func (p *Product) SetImage(ref string) {
	if ref == "" {
		p.ImageURL = nil
		return
	}
	p.ImageURL = &ref
}

// Normalize fills defaults and re-parents variants onto the product.
func (p *Product) Normalize() {
	for i := range p.Variants {
		p.Variants[i].ProductID = p.ID
		if p.Variants[i].WeightUnit == "" {
			p.Variants[i].WeightUnit = DefaultWeightUnit
		}
	}
	if p.ImageURL != nil && *p.ImageURL == "" {
		p.ImageURL = nil
	}
	if p.Badges == nil {
		p.Badges = []string{}
	}
}

// Validate checks the decimal fields, which carry no struct tags.
func (p *Product) Validate() error {
	if p.Price.IsNegative() || p.OriginalPrice.IsNegative() {
		return errors.New("price must not be negative")
	}
	if p.Rating.IsNegative() || p.Rating.GreaterThan(maxRating) {
		return errors.New("rating must be between 0 and 5")
	}
	for _, v := range p.Variants {
		if v.Price.IsNegative() || v.OriginalPrice.IsNegative() {
			return errors.New("variant price must not be negative")
		}
	}
	return nil
}
