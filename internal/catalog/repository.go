package catalog

import (
	"context"
	"sync"
)

// Repository persists catalog products.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
	Insert(ctx context.Context, p Product) error
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps products in insertion order in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	products []Product
}

// NewMemoryRepository seeds a repository with the provided products.
func NewMemoryRepository(seed ...Product) *MemoryRepository {
	repo := &MemoryRepository{products: make([]Product, 0, len(seed))}
	for _, p := range seed {
		repo.products = append(repo.products, p.Clone())
	}
	return repo
}

// List returns every product in insertion order.
func (r *MemoryRepository) List(_ context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, len(r.products))
	for i, p := range r.products {
		out[i] = p.Clone()
	}
	return out, nil
}

// Get returns the product with the given id or ErrNotFound.
func (r *MemoryRepository) Get(_ context.Context, id string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.products[i].Clone(), nil
	}
	return Product{}, ErrNotFound
}

// Insert appends a new product. Inserting an existing id replaces nothing and fails.
func (r *MemoryRepository) Insert(_ context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(p.ID) >= 0 {
		return fieldError("id", "이미 존재하는 상품 ID입니다.")
	}
	r.products = append(r.products, p.Clone())
	return nil
}

// Update replaces the stored product with the same id.
func (r *MemoryRepository) Update(_ context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(p.ID)
	if i < 0 {
		return ErrNotFound
	}
	r.products[i] = p.Clone()
	return nil
}

// Delete removes the product with the given id.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	r.products = append(r.products[:i:i], r.products[i+1:]...)
	return nil
}

func (r *MemoryRepository) indexOf(id string) int {
	for i, p := range r.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
