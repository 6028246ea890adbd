// Package memory is an in-process catalog store for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	domain "catalog/backend/internal/domain/product"
)

// Store holds products and their variants in memory.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	nextVarID int64
	items     map[int64]domain.Product
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{items: map[int64]domain.Product{}}
}

// Products returns the product repository view of the store.
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{s: s}
}

// Variants returns the variant repository view of the store.
func (s *Store) Variants() *VariantRepository {
	return &VariantRepository{s: s}
}

// ProductRepository implements domain.Repository over a Store.
type ProductRepository struct {
	s *Store
}

// VariantRepository implements domain.VariantRepository over a Store.
type VariantRepository struct {
	s *Store
}

var (
	_ domain.Repository        = (*ProductRepository)(nil)
	_ domain.VariantRepository = (*VariantRepository)(nil)
)

func clone(p domain.Product) *domain.Product {
	p.Variants = append([]domain.Variant{}, p.Variants...)
	p.Badges = append([]string{}, p.Badges...)
	if p.ImageURL != nil {
		ref := *p.ImageURL
		p.ImageURL = &ref
	}
	return &p
}

// assignVariantIDs keeps a variant id only when it already belongs to the
// stored product; every other variant gets a fresh id.
func (s *Store) assignVariantIDs(p *domain.Product, owned []domain.Variant) {
	known := make(map[int64]bool, len(owned))
	for _, v := range owned {
		known[v.ID] = true
	}
	for i := range p.Variants {
		p.Variants[i].ProductID = p.ID
		if known[p.Variants[i].ID] {
			delete(known, p.Variants[i].ID)
			continue
		}
		s.nextVarID++
		p.Variants[i].ID = s.nextVarID
	}
}

// Create inserts a product and assigns ids.
func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	p.ID = r.s.nextID
	r.s.assignVariantIDs(p, nil)
	r.s.items[p.ID] = *clone(*p)
	return nil
}

// GetByID returns a copy of the stored product.
func (r *ProductRepository) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(p), nil
}

// List returns all products, newest first.
func (r *ProductRepository) List(_ context.Context) ([]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Product, 0, len(r.s.items))
	for _, p := range r.s.items {
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Update replaces a stored product, keeping its creation time.
func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.items[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	p.CreatedAt = current.CreatedAt
	r.s.assignVariantIDs(p, current.Variants)
	r.s.items[p.ID] = *clone(*p)
	return nil
}

// Delete removes a product and its variants.
func (r *ProductRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.items, id)
	return nil
}

func (s *Store) findVariant(id int64) (int64, int, bool) {
	for pid, p := range s.items {
		for i, v := range p.Variants {
			if v.ID == id {
				return pid, i, true
			}
		}
	}
	return 0, 0, false
}

// GetByID returns a copy of a variant.
func (r *VariantRepository) GetByID(_ context.Context, id int64) (*domain.Variant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pid, i, ok := r.s.findVariant(id)
	if !ok {
		return nil, domain.ErrVariantNotFound
	}
	v := r.s.items[pid].Variants[i]
	return &v, nil
}

// List returns all variants ordered by id.
func (r *VariantRepository) List(_ context.Context) ([]*domain.Variant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Variant{}
	for _, p := range r.s.items {
		for _, v := range p.Variants {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes a variant from its product.
func (r *VariantRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pid, i, ok := r.s.findVariant(id)
	if !ok {
		return domain.ErrVariantNotFound
	}
	p := r.s.items[pid]
	p.Variants = append(p.Variants[:i:i], p.Variants[i+1:]...)
	r.s.items[pid] = p
	return nil
}

// AdjustStock adds delta to a variant's stock. The result may be negative.
func (r *VariantRepository) AdjustStock(_ context.Context, id int64, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pid, i, ok := r.s.findVariant(id)
	if !ok {
		return 0, domain.ErrVariantNotFound
	}
	p := r.s.items[pid]
	p.Variants[i].StockQuantity += delta
	return p.Variants[i].StockQuantity, nil
}
