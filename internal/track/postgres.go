package track

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig controls the connection pool behind PostgresProvider.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresProvider stores the catalog directly in Postgres.
type PostgresProvider struct {
	pool    pgxQuerier
	builder sq.StatementBuilderType
}

// NewPostgresProvider connects a provider using the given config.
func NewPostgresProvider(ctx context.Context, cfg PostgresConfig) (*PostgresProvider, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostgresProviderWithPool(pool)
}

// NewPostgresProviderWithPool constructs a provider from an existing pool
// (primarily for testing).
func NewPostgresProviderWithPool(pool pgxQuerier) (*PostgresProvider, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresProvider{
		pool:    pool,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// Close implements Provider.
func (p *PostgresProvider) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

// ListProducts implements Provider.
func (p *PostgresProvider) ListProducts(ctx context.Context, teamID string) ([]Product, error) {
	query := p.builder.
		Select("id", "name", "url", "channel_id", "team_id", "price").
		From("products").
		OrderBy("name ASC")
	if teamID != "" {
		query = query.Where(sq.Eq{"team_id": teamID})
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build products query: %w", err)
	}

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var product Product
		if err := rows.Scan(&product.ID, &product.Name, &product.URL, &product.ChannelID, &product.TeamID, &product.Price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// GetProduct implements Provider.
func (p *PostgresProvider) GetProduct(ctx context.Context, id string) (Product, error) {
	sql, args, err := p.builder.
		Select("id", "name", "url", "channel_id", "team_id", "price").
		From("products").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return Product{}, fmt.Errorf("build product query: %w", err)
	}

	var product Product
	err = p.pool.QueryRow(ctx, sql, args...).
		Scan(&product.ID, &product.Name, &product.URL, &product.ChannelID, &product.TeamID, &product.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// ListCompetitors implements Provider.
func (p *PostgresProvider) ListCompetitors(ctx context.Context, productID string) ([]Competitor, error) {
	sql, args, err := p.builder.
		Select("id", "product_id", "name", "url", "last_price", "last_checked").
		From("competitors").
		Where(sq.Eq{"product_id": productID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build competitors query: %w", err)
	}

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	defer rows.Close()

	var competitors []Competitor
	for rows.Next() {
		var competitor Competitor
		if err := rows.Scan(&competitor.ID, &competitor.ProductID, &competitor.Name, &competitor.URL, &competitor.LastPrice, &competitor.LastChecked); err != nil {
			return nil, fmt.Errorf("scan competitor: %w", err)
		}
		competitors = append(competitors, competitor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate competitors: %w", err)
	}
	return competitors, nil
}

// UpdateProductPrice implements Provider.
func (p *PostgresProvider) UpdateProductPrice(ctx context.Context, id string, price float64) error {
	sql, args, err := p.builder.
		Update("products").
		Set("price", price).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build product update: %w", err)
	}
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update product price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCompetitor implements Provider.
func (p *PostgresProvider) UpdateCompetitor(ctx context.Context, id string, price *float64, checkedAt time.Time) error {
	query := p.builder.
		Update("competitors").
		Set("last_checked", checkedAt.UTC()).
		Where(sq.Eq{"id": id})
	if price != nil {
		query = query.Set("last_price", *price)
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build competitor update: %w", err)
	}
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update competitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
