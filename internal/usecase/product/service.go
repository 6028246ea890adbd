package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	domain "catalog/backend/internal/domain/product"

	"github.com/go-playground/validator/v10"
)

// ImageURLPrefix is the path under which stored images are served.
const ImageURLPrefix = "/api/admin/products/images/"

// Service encapsulates product use cases.
type Service struct {
	products domain.Repository
	variants domain.VariantRepository
	images   domain.ImageStorage
	validate *validator.Validate
	logger   *slog.Logger
	nowFunc  func() time.Time
}

// NewService constructs a product service.
func NewService(products domain.Repository, variants domain.VariantRepository, images domain.ImageStorage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		products: products,
		variants: variants,
		images:   images,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Upload is an image file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

func (u *Upload) empty() bool {
	return u == nil || u.Content == nil || u.Size == 0
}

// ImageURL builds the reference stored on a product for a stored filename.
func ImageURL(filename string) string {
	return ImageURLPrefix + filename
}

// List retrieves all products.
func (s *Service) List(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx)
}

// Get fetches a product by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// Create stores the optional image, then the product. A failed save removes the new file again.
func (s *Service) Create(ctx context.Context, p *domain.Product, image *Upload) (*domain.Product, error) {
	p.ID = 0
	if err := s.check(p); err != nil {
		return nil, err
	}

	var stored string
	if !image.empty() {
		name, err := s.images.Store(ctx, image.Content, image.Filename)
		if err != nil {
			return nil, err
		}
		stored = name
		p.SetImage(ImageURL(name))
	}

	now := s.nowFunc().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.products.Create(ctx, p); err != nil {
		if stored != "" {
			s.cleanup(ctx, "create rollback", stored)
		}
		return nil, err
	}
	return p, nil
}

// Update replaces the product with the supplied representation, forcing its id.
// With a new image the previous file is removed once the new one is saved.
func (s *Service) Update(ctx context.Context, id int64, p *domain.Product, image *Upload) (*domain.Product, error) {
	p.ID = id
	if err := s.check(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.nowFunc().UTC()

	if image.empty() {
		if err := s.products.Update(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	current, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err := s.images.Store(ctx, image.Content, image.Filename)
	if err != nil {
		return nil, err
	}
	p.SetImage(ImageURL(name))
	if err := s.products.Update(ctx, p); err != nil {
		s.cleanup(ctx, "update rollback", name)
		return nil, err
	}

	if current.HasImage() {
		if old := s.images.FilenameFromReference(*current.ImageURL); old != "" && old != name {
			s.cleanup(ctx, "replaced image", old)
		}
	}
	return p, nil
}

// Delete removes the product row. The image cleanup that precedes it is best
// effort: its result is reported in DeleteResult and never returned as an error.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	result := DeleteResult{ProductID: id, Existed: true}

	existing, err := s.products.GetByID(ctx, id)
	switch {
	case err == nil:
		if existing.HasImage() {
			result.Image = s.cleanup(ctx, "product delete", s.images.FilenameFromReference(*existing.ImageURL))
		}
	case errors.Is(err, domain.ErrNotFound):
		result.Existed = false
		return result, nil
	default:
		result.Image = CleanupResult{Outcome: CleanupIgnored, Err: err}
		s.logger.WarnContext(ctx, "image cleanup skipped", "product_id", id, "error", err)
	}

	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			result.Existed = false
			return result, nil
		}
		return result, err
	}
	return result, nil
}

// ReplaceImage swaps the product's image. The old file is deleted before the
// new one is stored; a failure afterwards is not rolled back.
func (s *Service) ReplaceImage(ctx context.Context, id int64, image *Upload) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if image.empty() {
		return p, nil
	}

	if p.HasImage() {
		if old := s.images.FilenameFromReference(*p.ImageURL); old != "" {
			if _, err := s.images.Delete(ctx, old); err != nil {
				return nil, err
			}
		}
	}

	name, err := s.images.Store(ctx, image.Content, image.Filename)
	if err != nil {
		return nil, err
	}
	p.SetImage(ImageURL(name))
	p.UpdatedAt = s.nowFunc().UTC()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RemoveImage deletes the product's image file and clears the reference.
func (s *Service) RemoveImage(ctx context.Context, id int64) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.HasImage() {
		return nil
	}
	name := s.images.FilenameFromReference(*p.ImageURL)
	if name == "" {
		return nil
	}

	removed, err := s.images.Delete(ctx, name)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s", domain.ErrImageDeleteFailed, name)
	}

	p.SetImage("")
	p.UpdatedAt = s.nowFunc().UTC()
	return s.products.Update(ctx, p)
}

// ListImages returns the serving URL of every stored image.
func (s *Service) ListImages(ctx context.Context) ([]string, error) {
	names, err := s.images.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	urls := make([]string, 0, len(names))
	for _, name := range names {
		urls = append(urls, ImageURL(name))
	}
	return urls, nil
}

// OpenImage opens a stored image by name. Only the trailing path segment of
// the name is used. The caller must close the returned content.
func (s *Service) OpenImage(ctx context.Context, name string) (*domain.StoredImage, string, error) {
	name = s.images.FilenameFromReference(name)
	if name == "" {
		return nil, "", domain.ErrImageNotFound
	}
	img, err := s.images.Open(ctx, name)
	if err != nil {
		return nil, "", err
	}
	return img, s.images.ProbeMediaType(name), nil
}

// ListVariants retrieves all variants.
func (s *Service) ListVariants(ctx context.Context) ([]*domain.Variant, error) {
	return s.variants.List(ctx)
}

// GetVariant fetches a variant by id.
func (s *Service) GetVariant(ctx context.Context, id int64) (*domain.Variant, error) {
	return s.variants.GetByID(ctx, id)
}

// AdjustVariantStock adds delta (which may be negative) to a variant's stock.
func (s *Service) AdjustVariantStock(ctx context.Context, id int64, delta int) (int, error) {
	return s.variants.AdjustStock(ctx, id, delta)
}

// DeleteVariant removes a variant. Deleting a missing variant succeeds.
func (s *Service) DeleteVariant(ctx context.Context, id int64) error {
	if err := s.variants.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrVariantNotFound) {
		return err
	}
	return nil
}

func (s *Service) check(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Normalize()
	if err := s.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func (s *Service) cleanup(ctx context.Context, reason, filename string) CleanupResult {
	result := CleanupResult{Filename: filename}
	if filename == "" {
		return result
	}
	removed, err := s.images.Delete(ctx, filename)
	switch {
	case err != nil:
		result.Outcome = CleanupIgnored
		result.Err = err
		s.logger.WarnContext(ctx, "image cleanup failed", "reason", reason, "file", filename, "error", err)
	case removed:
		result.Outcome = CleanupRemoved
	default:
		result.Outcome = CleanupAbsent
	}
	return result
}
