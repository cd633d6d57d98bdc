package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository implements Repository backed by PostgreSQL.
// Discount rates are NUMERIC columns decoded through the shopspring decimal codec
// registered on the pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a PostgresRepository that uses the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const (
	listProducts = `SELECT id, name, price, stock, description, is_recommended
FROM products ORDER BY position, id`
	getProduct = `SELECT id, name, price, stock, description, is_recommended
FROM products WHERE id = $1`
	listTiers = `SELECT product_id, quantity, rate FROM product_discounts
WHERE product_id = ANY($1) ORDER BY product_id, quantity`
	insertProduct = `INSERT INTO products (id, name, price, stock, description, is_recommended, position)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE((SELECT MAX(position) + 1 FROM products), 0))`
	updateProduct = `UPDATE products SET name = $2, price = $3, stock = $4, description = $5,
is_recommended = $6, updated_at = now() WHERE id = $1`
	deleteProduct = `DELETE FROM products WHERE id = $1`
	deleteTiers   = `DELETE FROM product_discounts WHERE product_id = $1`
	insertTier    = `INSERT INTO product_discounts (product_id, quantity, rate) VALUES ($1, $2, $3)`
)

type productRow struct {
	ID            string
	Name          string
	Price         int64
	Stock         int
	Description   string
	IsRecommended bool
}

type tierRow struct {
	ProductID string
	Quantity  int
	Rate      decimal.Decimal
}

// List returns all products ordered by their catalog position.
func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, listProducts)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByPos[productRow])
	if err != nil {
		return nil, fmt.Errorf("scanning products: %w", err)
	}
	return r.attachTiers(ctx, products)
}

// Get returns a single product or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Product, error) {
	rows, err := r.pool.Query(ctx, getProduct, id)
	if err != nil {
		return Product{}, fmt.Errorf("getting product %q: %w", id, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[productRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("getting product %q: %w", id, err)
	}
	out, err := r.attachTiers(ctx, []productRow{row})
	if err != nil {
		return Product{}, err
	}
	return out[0], nil
}

// Insert stores a new product and its discount tiers in one transaction.
func (r *PostgresRepository) Insert(ctx context.Context, p Product) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertProduct, p.ID, p.Name, p.Price, p.Stock, p.Description, p.IsRecommended); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fieldError("id", "이미 존재하는 상품 ID입니다.")
			}
			return fmt.Errorf("inserting product: %w", err)
		}
		return writeTiers(ctx, tx, p)
	})
}

// Update replaces the product row and its tiers.
func (r *PostgresRepository) Update(ctx context.Context, p Product) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateProduct, p.ID, p.Name, p.Price, p.Stock, p.Description, p.IsRecommended)
		if err != nil {
			return fmt.Errorf("updating product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, deleteTiers, p.ID); err != nil {
			return fmt.Errorf("clearing discount tiers: %w", err)
		}
		return writeTiers(ctx, tx, p)
	})
}

// Delete removes a product; tiers cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProduct, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func writeTiers(ctx context.Context, tx pgx.Tx, p Product) error {
	if len(p.Discounts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, tier := range p.Discounts {
		batch.Queue(insertTier, p.ID, tier.Quantity, tier.Rate)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting discount tiers: %w", err)
	}
	return nil
}

func (r *PostgresRepository) attachTiers(ctx context.Context, rows []productRow) ([]Product, error) {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	tierRows, err := r.pool.Query(ctx, listTiers, ids)
	if err != nil {
		return nil, fmt.Errorf("listing discount tiers: %w", err)
	}
	tiers, err := pgx.CollectRows(tierRows, pgx.RowToStructByPos[tierRow])
	if err != nil {
		return nil, fmt.Errorf("scanning discount tiers: %w", err)
	}
	byProduct := make(map[string][]DiscountTier, len(rows))
	for _, t := range tiers {
		byProduct[t.ProductID] = append(byProduct[t.ProductID], DiscountTier{Quantity: t.Quantity, Rate: t.Rate})
	}
	products := make([]Product, len(rows))
	for i, row := range rows {
		products[i] = Product{
			ID:            row.ID,
			Name:          row.Name,
			Price:         row.Price,
			Stock:         row.Stock,
			Discounts:     byProduct[row.ID],
			Description:   row.Description,
			IsRecommended: row.IsRecommended,
		}
	}
	return products, nil
}
