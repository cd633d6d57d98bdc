package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/common"
	"github.com/noah-isme/toko-cart/internal/events"
	"github.com/noah-isme/toko-cart/internal/obs"
)

// Publisher emits domain events. *events.Bus satisfies it.
type Publisher interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Service orchestrates catalog reads, admin writes, and caching.
type Service struct {
	repo   Repository
	cache  *Cache
	events Publisher
	log    zerolog.Logger
	now    func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Repo   Repository
	Cache  *Cache
	Events Publisher
	Logger zerolog.Logger
	Now    func() time.Time
}

// ProductInput is the admin payload for creating a product.
type ProductInput struct {
	Name          string         `json:"name" validate:"required"`
	Price         int64          `json:"price" validate:"gt=0"`
	Stock         int            `json:"stock" validate:"gte=0,lte=9999"`
	Discounts     []DiscountTier `json:"discounts" validate:"dive"`
	Description   string         `json:"description"`
	IsRecommended bool           `json:"isRecommended"`
}

// ProductPatch carries a partial admin update; nil fields are left untouched.
type ProductPatch struct {
	Name          *string         `json:"name" validate:"omitempty,min=1"`
	Price         *int64          `json:"price" validate:"omitempty,gt=0"`
	Stock         *int            `json:"stock" validate:"omitempty,gte=0,lte=9999"`
	Discounts     *[]DiscountTier `json:"discounts"`
	Description   *string         `json:"description"`
	IsRecommended *bool           `json:"isRecommended"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repo == nil {
		return nil, errors.New("catalog: repository is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   cfg.Repo,
		cache:  cfg.Cache,
		events: cfg.Events,
		log:    cfg.Logger,
		now:    now,
	}, nil
}

// List returns every product, served from cache when possible.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	var cached []Product
	if ok, err := s.cache.GetJSON(ctx, listCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	if err := s.cache.SetJSON(ctx, listCacheKey, products); err != nil {
		s.log.Warn().Err(err).Msg("catalog cache write failed")
	}
	return products, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, notFound(ErrNotFound)
	}
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, detailCacheKey(id), &cached); err == nil && ok {
		return cached, nil
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, notFound(err)
		}
		return Product{}, fmt.Errorf("catalog: get: %w", err)
	}
	if err := s.cache.SetJSON(ctx, detailCacheKey(id), p); err != nil {
		s.log.Warn().Err(err).Str("product_id", id).Msg("catalog cache write failed")
	}
	return p, nil
}

// Create adds a product with a freshly generated id.
func (s *Service) Create(ctx context.Context, in ProductInput) (Product, error) {
	p := Product{
		ID:            s.nextID(ctx),
		Name:          strings.TrimSpace(in.Name),
		Price:         in.Price,
		Stock:         in.Stock,
		Discounts:     in.Discounts,
		Description:   strings.TrimSpace(in.Description),
		IsRecommended: in.IsRecommended,
	}
	if err := p.Validate(); err != nil {
		obs.ObserveCatalogWrite("create", "invalid")
		return Product{}, invalid(err)
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		if errors.Is(err, ErrInvalidProduct) {
			obs.ObserveCatalogWrite("create", "invalid")
			return Product{}, invalid(err)
		}
		obs.ObserveCatalogWrite("create", "error")
		return Product{}, fmt.Errorf("catalog: create: %w", err)
	}
	obs.ObserveCatalogWrite("create", "ok")
	s.afterWrite(ctx, events.TopicProductCreated, p)
	return p, nil
}

// Update applies a partial update to an existing product.
func (s *Service) Update(ctx context.Context, id string, patch ProductPatch) (Product, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, notFound(err)
		}
		return Product{}, fmt.Errorf("catalog: update: %w", err)
	}
	next := current.Clone()
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Price != nil {
		next.Price = *patch.Price
	}
	if patch.Stock != nil {
		next.Stock = *patch.Stock
	}
	if patch.Discounts != nil {
		next.Discounts = append([]DiscountTier(nil), (*patch.Discounts)...)
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.IsRecommended != nil {
		next.IsRecommended = *patch.IsRecommended
	}
	if err := next.Validate(); err != nil {
		obs.ObserveCatalogWrite("update", "invalid")
		return Product{}, invalid(err)
	}
	if err := s.repo.Update(ctx, next); err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.ObserveCatalogWrite("update", "not_found")
			return Product{}, notFound(err)
		}
		obs.ObserveCatalogWrite("update", "error")
		return Product{}, fmt.Errorf("catalog: update: %w", err)
	}
	obs.ObserveCatalogWrite("update", "ok")
	s.afterWrite(ctx, events.TopicProductUpdated, next)
	return next, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.ObserveCatalogWrite("delete", "not_found")
			return notFound(err)
		}
		obs.ObserveCatalogWrite("delete", "error")
		return fmt.Errorf("catalog: delete: %w", err)
	}
	obs.ObserveCatalogWrite("delete", "ok")
	s.afterWrite(ctx, events.TopicProductDeleted, Product{ID: id})
	return nil
}

func (s *Service) afterWrite(ctx context.Context, topic string, p Product) {
	if err := s.cache.Invalidate(ctx, p.ID); err != nil {
		s.log.Warn().Err(err).Str("product_id", p.ID).Msg("catalog cache invalidation failed")
	}
	if s.events == nil {
		return
	}
	if _, err := s.events.Emit(ctx, topic, p.ID, p); err != nil {
		s.log.Error().Err(err).Str("topic", topic).Str("product_id", p.ID).Msg("emit catalog event")
	}
}

// nextID returns "p" followed by the current unix milliseconds, bumped until unused.
// Lookup failures end the search; Insert reports a real conflict.
func (s *Service) nextID(ctx context.Context) string {
	ms := s.now().UnixMilli()
	for {
		id := fmt.Sprintf("p%d", ms)
		if _, err := s.repo.Get(ctx, id); err != nil {
			return id
		}
		ms++
	}
}

func notFound(err error) *common.AppError {
	return common.NotFound("NOT_FOUND", "product not found", err)
}

func invalid(err error) *common.AppError {
	appErr := common.Unprocessable("VALIDATION_ERROR", err.Error(), err)
	var fe *FieldError
	if errors.As(err, &fe) {
		appErr.Message = fe.Message
		appErr.Details = map[string]any{"field": fe.Field}
	}
	return appErr
}
