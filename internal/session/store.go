// Package session is the single source of truth for shopper cart state. Each
// session holds one immutable Snapshot that is replaced as a whole.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/cart"
	"github.com/noah-isme/toko-cart/internal/coupon"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Snapshot is the complete state of one shopper session.
type Snapshot struct {
	Cart           cart.Cart      `json:"cart"`
	SelectedCoupon *coupon.Coupon `json:"selectedCoupon,omitempty"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// WithCart returns a copy of s holding c.
func (s Snapshot) WithCart(c cart.Cart) Snapshot {
	s.Cart = c
	return s
}

// WithCoupon returns a copy of s selecting c; nil clears the selection.
func (s Snapshot) WithCoupon(c *coupon.Coupon) Snapshot {
	if c != nil {
		cp := *c
		c = &cp
	}
	s.SelectedCoupon = c
	return s
}

// Persister stores snapshots. Implementations must treat snapshots as opaque values.
type Persister interface {
	Load(ctx context.Context, id string) (Snapshot, bool, error)
	Save(ctx context.Context, id string, snap Snapshot) error
	Delete(ctx context.Context, id string) error
	Each(ctx context.Context, fn func(id string) error) error
}

// Locker serializes replacements of one session. lock.Locker and *lock.Local satisfy it.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Change describes one committed replacement, or the removal of a session
// when Removed is set. Removals cover both Delete and idle expiry.
type Change struct {
	ID       string
	Snapshot Snapshot
	Removed  bool
}

// Observer is called after every Change.
type Observer func(ctx context.Context, ch Change)

// expiring is implemented by persisters that drop idle sessions themselves and
// can report which ones they dropped.
type expiring interface {
	onExpire(fn func(id string))
}

// Store owns every session snapshot and notifies observers on change.
type Store struct {
	persister Persister
	locker    Locker
	log       zerolog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	observers map[int]Observer
	nextObs   int
}

// Config groups Store dependencies.
type Config struct {
	Persister Persister
	Locker    Locker
	Logger    zerolog.Logger
	Now       func() time.Time
}

// NewStore constructs a Store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Persister == nil {
		return nil, errors.New("session: persister is required")
	}
	if cfg.Locker == nil {
		return nil, errors.New("session: locker is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Store{
		persister: cfg.Persister,
		locker:    cfg.Locker,
		log:       cfg.Logger,
		now:       now,
		observers: make(map[int]Observer),
	}
	if p, ok := cfg.Persister.(expiring); ok {
		p.onExpire(func(id string) {
			s.notify(context.Background(), Change{ID: id, Removed: true})
		})
	}
	return s, nil
}

// Subscribe registers obs and returns a function that removes it.
func (s *Store) Subscribe(obs Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = obs
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Create starts an empty session and returns its id.
func (s *Store) Create(ctx context.Context) (string, Snapshot, error) {
	id := uuid.NewString()
	snap := Snapshot{Cart: cart.Cart{}, UpdatedAt: s.now().UTC()}
	if err := s.persister.Save(ctx, id, snap); err != nil {
		return "", Snapshot{}, fmt.Errorf("session: create: %w", err)
	}
	s.notify(ctx, Change{ID: id, Snapshot: snap})
	return id, snap, nil
}

// Get returns the current snapshot of id.
func (s *Store) Get(ctx context.Context, id string) (Snapshot, error) {
	snap, ok, err := s.persister.Load(ctx, id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("session: load: %w", err)
	}
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

// Update reads the current snapshot, lets fn compute its replacement and commits
// it. When fn returns an error nothing is written and the error is returned.
func (s *Store) Update(ctx context.Context, id string, fn func(Snapshot) (Snapshot, error)) (Snapshot, error) {
	var committed Snapshot
	err := s.locker.WithLock(ctx, "session:"+id, 5*time.Second, func(ctx context.Context) error {
		current, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		next.UpdatedAt = s.now().UTC()
		if err := s.persister.Save(ctx, id, next); err != nil {
			return fmt.Errorf("session: save: %w", err)
		}
		committed = next
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.notify(ctx, Change{ID: id, Snapshot: committed})
	return committed, nil
}

// Delete discards a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.persister.Delete(ctx, id); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	s.notify(ctx, Change{ID: id, Removed: true})
	return nil
}

// Sweep drops expired sessions from persisters that keep them in process and
// reports each one to observers as removed. Redis expires keys on its own.
func (s *Store) Sweep(ctx context.Context) error {
	if _, ok := s.persister.(expiring); !ok {
		return nil
	}
	return s.persister.Each(ctx, func(string) error { return nil })
}

// RunJanitor calls Sweep every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("sweep expired sessions")
			}
		}
	}
}

// ClearCoupon drops the selection of code from every session holding it.
func (s *Store) ClearCoupon(ctx context.Context, code string) error {
	var ids []string
	if err := s.persister.Each(ctx, func(id string) error {
		ids = append(ids, id)
		return nil
	}); err != nil {
		return fmt.Errorf("session: scan: %w", err)
	}
	var joined error
	for _, id := range ids {
		_, err := s.Update(ctx, id, func(snap Snapshot) (Snapshot, error) {
			if !coupon.ShouldClearSelected(code, snap.SelectedCoupon) {
				return snap, errUnchanged
			}
			return snap.WithCoupon(nil), nil
		})
		if err != nil && !errors.Is(err, errUnchanged) && !errors.Is(err, ErrNotFound) {
			joined = errors.Join(joined, err)
		}
	}
	return joined
}

var errUnchanged = errors.New("session unchanged")

func (s *Store) notify(ctx context.Context, ch Change) {
	s.mu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.mu.RUnlock()
	for _, obs := range observers {
		obs(ctx, ch)
	}
	if ch.Removed {
		s.log.Debug().Str("session_id", ch.ID).Msg("session removed")
		return
	}
	s.log.Debug().Str("session_id", ch.ID).Int("lines", len(ch.Snapshot.Cart)).Msg("session snapshot replaced")
}
