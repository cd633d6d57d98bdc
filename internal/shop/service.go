// Package shop runs shopper cart sessions: it validates every mutation against
// the catalog, commits whole snapshots to the session store and reports the
// outcome to the session's notification feed.
package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/cart"
	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/common"
	"github.com/noah-isme/toko-cart/internal/coupon"
	"github.com/noah-isme/toko-cart/internal/events"
	"github.com/noah-isme/toko-cart/internal/notify"
	"github.com/noah-isme/toko-cart/internal/obs"
	"github.com/noah-isme/toko-cart/internal/pricing"
	"github.com/noah-isme/toko-cart/internal/session"
)

const (
	msgAddedToCart    = "장바구니에 담았습니다"
	msgOrderCompleted = "주문이 완료되었습니다. 주문번호: %s"
	msgEmptyCart      = "장바구니가 비어 있습니다."
)

var (
	// ErrLineNotFound indicates the product is not in the cart.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrEmptyCart indicates checkout of a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")
)

// Products resolves catalog entries. *catalog.Service satisfies it.
type Products interface {
	List(ctx context.Context) ([]catalog.Product, error)
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// Coupons resolves coupon codes. *coupon.Service satisfies it.
type Coupons interface {
	Get(ctx context.Context, code string) (coupon.Coupon, error)
}

// Publisher emits domain events. *events.Bus satisfies it.
type Publisher interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Service coordinates cart sessions.
type Service struct {
	sessions *session.Store
	products Products
	coupons  Coupons
	feed     notify.Feed
	events   Publisher
	log      zerolog.Logger
	now      func() time.Time
}

// Config groups Service dependencies.
type Config struct {
	Sessions *session.Store
	Products Products
	Coupons  Coupons
	Feed     notify.Feed
	Events   Publisher
	Logger   zerolog.Logger
	Now      func() time.Time
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	switch {
	case cfg.Sessions == nil:
		return nil, errors.New("shop: session store is required")
	case cfg.Products == nil:
		return nil, errors.New("shop: product source is required")
	case cfg.Coupons == nil:
		return nil, errors.New("shop: coupon source is required")
	}
	feed := cfg.Feed
	if feed == nil {
		feed = notify.NewMemoryFeed(notify.DefaultFeedLimit)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Service{
		sessions: cfg.Sessions,
		products: cfg.Products,
		coupons:  cfg.Coupons,
		feed:     feed,
		events:   cfg.Events,
		log:      cfg.Logger,
		now:      now,
	}
	cfg.Sessions.Subscribe(s.forgetRemoved)
	return s, nil
}

// forgetRemoved drops the notification feed of deleted and expired sessions.
func (s *Service) forgetRemoved(ctx context.Context, ch session.Change) {
	if !ch.Removed {
		return
	}
	if err := s.feed.Clear(ctx, ch.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", ch.ID).Msg("clear notification feed")
	}
}

// CreateSession starts an empty cart session.
func (s *Service) CreateSession(ctx context.Context) (View, error) {
	id, snap, err := s.sessions.Create(ctx)
	if err != nil {
		return View{}, err
	}
	s.log.Info().Str("session_id", id).Msg("cart session created")
	return s.render(ctx, id, snap)
}

// View returns the session's cart refreshed against the current catalog.
func (s *Service) View(ctx context.Context, sessionID string) (View, error) {
	snap, err := s.snapshot(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if snap.SelectedCoupon != nil {
		if _, err := s.coupons.Get(ctx, snap.SelectedCoupon.Code); errors.Is(err, coupon.ErrNotFound) {
			snap, err = s.sessions.Update(ctx, sessionID, func(cur session.Snapshot) (session.Snapshot, error) {
				return cur.WithCoupon(nil), nil
			})
			if err != nil {
				return View{}, s.sessionError(err)
			}
		}
	}
	return s.render(ctx, sessionID, snap)
}

// DeleteSession discards the session, its cart and its notifications.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.snapshot(ctx, sessionID); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, sessionID)
}

// AddToCart adds one unit of productID after checking the remaining stock.
func (s *Service) AddToCart(ctx context.Context, sessionID, productID string) (View, error) {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return View{}, err
	}
	sink := s.sink(sessionID)
	snap, err := s.sessions.Update(ctx, sessionID, func(cur session.Snapshot) (session.Snapshot, error) {
		if res := cart.ValidateAdd(p, cur.Cart); !res.Valid {
			return cur, stockError(res)
		}
		return cur.WithCart(cur.Cart.Add(p)), nil
	})
	if err != nil {
		return View{}, s.reject(ctx, sink, "add", err)
	}
	obs.ObserveCartOperation("add", "ok")
	sink.Notify(ctx, msgAddedToCart, notify.SeveritySuccess)
	return s.render(ctx, sessionID, snap)
}

// RemoveFromCart drops productID from the cart. Removing an absent product is a no-op.
func (s *Service) RemoveFromCart(ctx context.Context, sessionID, productID string) (View, error) {
	snap, err := s.sessions.Update(ctx, sessionID, func(cur session.Snapshot) (session.Snapshot, error) {
		return cur.WithCart(cur.Cart.Remove(productID)), nil
	})
	if err != nil {
		return View{}, s.sessionError(err)
	}
	obs.ObserveCartOperation("remove", "ok")
	return s.render(ctx, sessionID, snap)
}

// UpdateQuantity sets the quantity of productID. Non-positive quantities remove
// the line; quantities above the product stock are rejected.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (View, error) {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return View{}, err
	}
	sink := s.sink(sessionID)
	res := cart.ValidateQuantityChange(p, quantity)
	op := "update"
	if res.Action == cart.ActionRemove {
		op = "remove"
	}
	snap, err := s.sessions.Update(ctx, sessionID, func(cur session.Snapshot) (session.Snapshot, error) {
		if _, found := cur.Cart.Find(p.ID); !found {
			return cur, common.NotFound("CART_LINE_NOT_FOUND", "product is not in the cart", ErrLineNotFound)
		}
		switch {
		case res.Action == cart.ActionRemove:
			return cur.WithCart(cur.Cart.Remove(p.ID)), nil
		case !res.Valid:
			return cur, stockError(res)
		}
		return cur.WithCart(cur.Cart.UpdateQuantity(p.ID, quantity)), nil
	})
	if err != nil {
		return View{}, s.reject(ctx, sink, op, err)
	}
	obs.ObserveCartOperation(op, "ok")
	return s.render(ctx, sessionID, snap)
}

// ApplyCoupon selects the coupon identified by code when the cart qualifies.
func (s *Service) ApplyCoupon(ctx context.Context, sessionID, code string) (View, error) {
	c, err := s.coupons.Get(ctx, code)
	if err != nil {
		return View{}, err
	}
	products, err := s.catalogIndex(ctx)
	if err != nil {
		return View{}, err
	}
	sink := s.sink(sessionID)
	var res coupon.Result
	snap, err := s.sessions.Update(ctx, sessionID, func(cur session.Snapshot) (session.Snapshot, error) {
		totals := pricing.Aggregate(cur.Cart.Refresh(products.lookup))
		res = coupon.ValidateApplication(c, totals.TotalBeforeDiscount)
		if !res.Valid {
			return cur, res.AppError()
		}
		return cur.WithCoupon(&c), nil
	})
	if err != nil {
		if !res.Valid && res.Code != "" {
			obs.ObserveCouponApplication(string(c.DiscountType), "ineligible")
			sink.Notify(ctx, res.Message, notify.SeverityError)
			return View{}, err
		}
		return View{}, s.sessionError(err)
	}
	obs.ObserveCouponApplication(string(c.DiscountType), "applied")
	sink.Notify(ctx, res.Message, notify.SeveritySuccess)
	return s.render(ctx, sessionID, snap)
}

// ClearCoupon drops the session's coupon selection.
func (s *Service) ClearCoupon(ctx context.Context, sessionID string) (View, error) {
	snap, err := s.sessions.Update(ctx, sessionID, func(cur session.Snapshot) (session.Snapshot, error) {
		return cur.WithCoupon(nil), nil
	})
	if err != nil {
		return View{}, s.sessionError(err)
	}
	return s.render(ctx, sessionID, snap)
}

// Order is the receipt of a completed checkout.
type Order struct {
	OrderNumber string         `json:"orderNumber"`
	SessionID   string         `json:"sessionId"`
	Lines       []LineView     `json:"lines"`
	Coupon      *coupon.Coupon `json:"coupon,omitempty"`
	Totals      pricing.Totals `json:"totals"`
	ItemCount   int            `json:"itemCount"`
	CompletedAt time.Time      `json:"completedAt"`
	Message     string         `json:"message"`
}

// CompleteOrder prices the cart, empties the session and emits order.completed.
func (s *Service) CompleteOrder(ctx context.Context, sessionID string) (Order, error) {
	products, err := s.catalogIndex(ctx)
	if err != nil {
		return Order{}, err
	}
	sink := s.sink(sessionID)
	var priced View
	_, err = s.sessions.Update(ctx, sessionID, func(cur session.Snapshot) (session.Snapshot, error) {
		current := cur.WithCart(cur.Cart.Refresh(products.lookup))
		if len(current.Cart) == 0 {
			return cur, common.Unprocessable("CART_EMPTY", msgEmptyCart, ErrEmptyCart)
		}
		priced = buildView(sessionID, current, products.lookup)
		return cur.WithCart(cart.Cart{}).WithCoupon(nil), nil
	})
	if err != nil {
		return Order{}, s.reject(ctx, sink, "checkout", err)
	}

	completedAt := s.now().UTC()
	order := Order{
		OrderNumber: orderNumber(completedAt),
		SessionID:   sessionID,
		Lines:       priced.Lines,
		Coupon:      priced.SelectedCoupon,
		Totals:      priced.Totals,
		ItemCount:   priced.TotalItemCount,
		CompletedAt: completedAt,
	}
	order.Message = fmt.Sprintf(msgOrderCompleted, order.OrderNumber)

	obs.ObserveCartOperation("checkout", "ok")
	obs.ObserveOrderCompleted(order.Totals.TotalAfterDiscount)
	sink.Notify(ctx, order.Message, notify.SeveritySuccess)
	if s.events != nil {
		if _, err := s.events.Emit(ctx, events.TopicOrderCompleted, order.OrderNumber, order); err != nil {
			s.log.Error().Err(err).Str("order_number", order.OrderNumber).Msg("emit order completed")
		}
	}
	s.log.Info().
		Str("session_id", sessionID).
		Str("order_number", order.OrderNumber).
		Int64("total", order.Totals.TotalAfterDiscount).
		Msg("order completed")
	return order, nil
}

// Notifications lists the session's notification feed, newest first.
func (s *Service) Notifications(ctx context.Context, sessionID string) ([]notify.Notification, error) {
	if _, err := s.snapshot(ctx, sessionID); err != nil {
		return nil, err
	}
	items, err := s.feed.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("shop: notifications: %w", err)
	}
	return items, nil
}

// DismissNotification removes one notification from the session's feed.
func (s *Service) DismissNotification(ctx context.Context, sessionID, notificationID string) error {
	if _, err := s.snapshot(ctx, sessionID); err != nil {
		return err
	}
	if err := s.feed.Dismiss(ctx, sessionID, notificationID); err != nil {
		return fmt.Errorf("shop: dismiss notification: %w", err)
	}
	return nil
}

func (s *Service) snapshot(ctx context.Context, sessionID string) (session.Snapshot, error) {
	snap, err := s.sessions.Get(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return session.Snapshot{}, s.sessionError(err)
	}
	return snap, nil
}

func (s *Service) render(ctx context.Context, sessionID string, snap session.Snapshot) (View, error) {
	products, err := s.catalogIndex(ctx)
	if err != nil {
		return View{}, err
	}
	snap = snap.WithCart(snap.Cart.Refresh(products.lookup))
	return buildView(sessionID, snap, products.lookup), nil
}

func (s *Service) sink(sessionID string) notify.Sink {
	return notify.Multi{
		s.feed.For(sessionID),
		notify.LogSink{Logger: s.log, SessionID: sessionID},
	}
}

// reject reports a failed mutation to the shopper when it is a business rule
// violation and passes the error through.
func (s *Service) reject(ctx context.Context, sink notify.Sink, op string, err error) error {
	if appErr, ok := common.AsAppError(err); ok {
		obs.ObserveCartOperation(op, "rejected")
		if appErr.Rejected() {
			sink.Notify(ctx, appErr.Message, notify.SeverityError)
		}
		return err
	}
	obs.ObserveCartOperation(op, "error")
	return s.sessionError(err)
}

func (s *Service) sessionError(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return common.NotFound("SESSION_NOT_FOUND", "cart session not found", err)
	}
	return err
}

func stockError(res cart.Result) *common.AppError {
	return common.Conflict(res.Code, res.Message, res.Err())
}

// orderNumber is ORD-<unix millis>-<8 hex>. The random suffix keeps orders
// completed in the same millisecond apart.
func orderNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%d-%s", t.UnixMilli(), suffix)
}

type catalogIndex map[string]catalog.Product

func (idx catalogIndex) lookup(id string) (catalog.Product, bool) {
	p, ok := idx[id]
	return p, ok
}

func (s *Service) catalogIndex(ctx context.Context) (catalogIndex, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(catalogIndex, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx, nil
}
