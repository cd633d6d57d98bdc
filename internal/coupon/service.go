package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/common"
	"github.com/noah-isme/toko-cart/internal/events"
)

// Publisher emits domain events. *events.Bus satisfies it.
type Publisher interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// SelectionClearer drops a deleted coupon from every session that selected it.
type SelectionClearer interface {
	ClearCoupon(ctx context.Context, code string) error
}

// Service manages the coupon list.
type Service struct {
	repo      Repository
	events    Publisher
	selection SelectionClearer
	log       zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Repo      Repository
	Events    Publisher
	Selection SelectionClearer
	Logger    zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repo == nil {
		return nil, errors.New("coupon: repository is required")
	}
	return &Service{repo: cfg.Repo, events: cfg.Events, selection: cfg.Selection, log: cfg.Logger}, nil
}

// SetSelectionClearer wires the session store after construction.
func (s *Service) SetSelectionClearer(sc SelectionClearer) {
	s.selection = sc
}

// List returns all coupons.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("coupon: list: %w", err)
	}
	return coupons, nil
}

// Get returns the coupon identified by code.
func (s *Service) Get(ctx context.Context, code string) (Coupon, error) {
	c, err := s.repo.Get(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Coupon{}, notFound(err)
		}
		return Coupon{}, fmt.Errorf("coupon: get: %w", err)
	}
	return c, nil
}

// Create adds a coupon. Duplicate codes fail with DUPLICATE_COUPON_CODE.
func (s *Service) Create(ctx context.Context, c Coupon) (Coupon, Result, error) {
	c.Code = strings.TrimSpace(c.Code)
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return Coupon{}, Result{}, common.Unprocessable("VALIDATION_ERROR", "invalid coupon", err)
	}
	existing, err := s.repo.List(ctx)
	if err != nil {
		return Coupon{}, Result{}, fmt.Errorf("coupon: create: %w", err)
	}
	res := CheckDuplicate(c, existing)
	if !res.Valid {
		return Coupon{}, res, res.AppError()
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateCouponCode) {
			res = Result{Code: CodeDuplicateCouponCode, Message: msgDuplicate}
			return Coupon{}, res, res.AppError()
		}
		return Coupon{}, Result{}, fmt.Errorf("coupon: create: %w", err)
	}
	s.emit(ctx, events.TopicCouponCreated, c)
	return c, res, nil
}

// Delete removes a coupon and clears it from any session that selected it.
func (s *Service) Delete(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	c, err := s.repo.Get(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(err)
		}
		return fmt.Errorf("coupon: delete: %w", err)
	}
	if err := s.repo.Delete(ctx, code); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(err)
		}
		return fmt.Errorf("coupon: delete: %w", err)
	}
	if s.selection != nil {
		if err := s.selection.ClearCoupon(ctx, code); err != nil {
			return fmt.Errorf("coupon: clear selections: %w", err)
		}
	}
	s.emit(ctx, events.TopicCouponDeleted, c)
	return nil
}

func (s *Service) emit(ctx context.Context, topic string, c Coupon) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Emit(ctx, topic, c.Code, c); err != nil {
		s.log.Error().Err(err).Str("topic", topic).Str("coupon_code", c.Code).Msg("emit coupon event")
	}
}

// AppError converts a failed rule result into the HTTP error envelope.
func (r Result) AppError() *common.AppError {
	if r.Code == CodeDuplicateCouponCode {
		return common.Conflict(r.Code, r.Message, r.Err())
	}
	return common.Unprocessable(r.Code, r.Message, r.Err())
}

func notFound(err error) *common.AppError {
	return common.NotFound("NOT_FOUND", "coupon not found", err)
}
