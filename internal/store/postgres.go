package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled
// PostgreSQL).
//
// TODO(test): PostgresStore methods require live Postgres, covered by
// integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the schema if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaDDL)
	if err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS product_prices (
    product_id  TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    price       DOUBLE PRECISION NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS product_cookies (
    product_id  TEXT PRIMARY KEY,
    amount      INTEGER NOT NULL DEFAULT 0,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const (
	queryGetPrice = `SELECT price FROM product_prices WHERE product_id = $1`

	queryUpsertPrice = `
INSERT INTO product_prices (product_id, title, price, updated_at)
VALUES (@product_id, @title, @price, now())
ON CONFLICT (product_id) DO UPDATE
SET title = EXCLUDED.title, price = EXCLUDED.price, updated_at = now()`

	queryGetCookies = `SELECT amount FROM product_cookies WHERE product_id = $1`
)

// GetLastKnownPrice returns the persisted price for a product, or NaN
// when no row exists.
func (s *PostgresStore) GetLastKnownPrice(ctx context.Context, p *domain.Product) (float64, error) {
	if p == nil || p.ID == "" {
		return math.NaN(), nil
	}

	var price float64
	err := s.pool.QueryRow(ctx, queryGetPrice, p.ID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return math.NaN(), nil
	}
	if err != nil {
		return math.NaN(), fmt.Errorf("querying last known price: %w", err)
	}
	return price, nil
}

// StorePrice upserts the current price for a product.
func (s *PostgresStore) StorePrice(ctx context.Context, p *domain.Product, price float64) error {
	if p == nil || p.ID == "" {
		return nil
	}

	args := pgx.NamedArgs{
		"product_id": p.ID,
		"title":      p.Title,
		"price":      price,
	}
	if _, err := s.pool.Exec(ctx, queryUpsertPrice, args); err != nil {
		return fmt.Errorf("storing price: %w", err)
	}
	return nil
}

// GetCookiesAmount returns the accumulated credit count for a product,
// zero when no row exists.
func (s *PostgresStore) GetCookiesAmount(ctx context.Context, p *domain.Product) (int, error) {
	if p == nil || p.ID == "" {
		return 0, nil
	}

	var amount int
	err := s.pool.QueryRow(ctx, queryGetCookies, p.ID).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying cookies amount: %w", err)
	}
	return amount, nil
}
