package coupon

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists coupons keyed by code.
type Repository interface {
	List(ctx context.Context) ([]Coupon, error)
	Get(ctx context.Context, code string) (Coupon, error)
	Insert(ctx context.Context, c Coupon) error
	Delete(ctx context.Context, code string) error
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)

// MemoryRepository keeps coupons in insertion order.
type MemoryRepository struct {
	mu      sync.RWMutex
	coupons []Coupon
}

// NewMemoryRepository seeds a repository with the provided coupons.
func NewMemoryRepository(seed ...Coupon) *MemoryRepository {
	return &MemoryRepository{coupons: append([]Coupon(nil), seed...)}
}

// List returns every coupon.
func (r *MemoryRepository) List(_ context.Context) ([]Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Coupon(nil), r.coupons...), nil
}

// Get returns the coupon with the given code or ErrNotFound.
func (r *MemoryRepository) Get(_ context.Context, code string) (Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.coupons {
		if c.Code == code {
			return c, nil
		}
	}
	return Coupon{}, ErrNotFound
}

// Insert stores c, failing with ErrDuplicateCouponCode when the code exists.
func (r *MemoryRepository) Insert(_ context.Context, c Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res := CheckDuplicate(c, r.coupons); !res.Valid {
		return res.Err()
	}
	r.coupons = append(r.coupons, c)
	return nil
}

// Delete removes the coupon with the given code.
func (r *MemoryRepository) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.coupons {
		if c.Code == code {
			r.coupons = append(r.coupons[:i:i], r.coupons[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// PostgresRepository implements Repository backed by PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a PostgresRepository that uses the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const (
	listCoupons  = `SELECT name, code, discount_type, discount_value FROM coupons ORDER BY created_at, code`
	getCoupon    = `SELECT name, code, discount_type, discount_value FROM coupons WHERE code = $1`
	insertCoupon = `INSERT INTO coupons (name, code, discount_type, discount_value) VALUES ($1, $2, $3, $4)`
	deleteCoupon = `DELETE FROM coupons WHERE code = $1`

	uniqueViolation = "23505"
)

// List returns every coupon in creation order.
func (r *PostgresRepository) List(ctx context.Context) ([]Coupon, error) {
	rows, err := r.pool.Query(ctx, listCoupons)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	coupons, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Coupon])
	if err != nil {
		return nil, fmt.Errorf("scanning coupons: %w", err)
	}
	return coupons, nil
}

// Get returns one coupon by code.
func (r *PostgresRepository) Get(ctx context.Context, code string) (Coupon, error) {
	rows, err := r.pool.Query(ctx, getCoupon, code)
	if err != nil {
		return Coupon{}, fmt.Errorf("getting coupon %q: %w", code, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Coupon])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, fmt.Errorf("getting coupon %q: %w", code, err)
	}
	return c, nil
}

// Insert stores a coupon; the unique index on code reports duplicates.
func (r *PostgresRepository) Insert(ctx context.Context, c Coupon) error {
	_, err := r.pool.Exec(ctx, insertCoupon, c.Name, c.Code, string(c.DiscountType), c.DiscountValue)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateCouponCode
		}
		return fmt.Errorf("inserting coupon: %w", err)
	}
	return nil
}

// Delete removes a coupon by code.
func (r *PostgresRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, deleteCoupon, code)
	if err != nil {
		return fmt.Errorf("deleting coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
