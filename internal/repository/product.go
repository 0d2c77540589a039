package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aurelia-shop/pricing-engine/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, sku, name, price, metal, collection,
		image_thumbnail, image_mobile, image_desktop
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, sku, name, price, metal, collection,
		image_thumbnail, image_mobile, image_desktop
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, sku, name, price, metal, collection,
		image_thumbnail, image_mobile, image_desktop
		FROM products WHERE id = ANY($1)`

	upsertProductSQL = `INSERT INTO products
		(id, sku, name, price, metal, collection,
		 image_thumbnail, image_mobile, image_desktop)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku,
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			metal = EXCLUDED.metal,
			collection = EXCLUDED.collection,
			image_thumbnail = EXCLUDED.image_thumbnail,
			image_mobile = EXCLUDED.image_mobile,
			image_desktop = EXCLUDED.image_desktop`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or replaces a catalog product. Used by the seeder.
func (r *ProductRepository) Upsert(ctx context.Context, p catalog.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.SKU, p.Name, p.Price, p.Metal, p.Collection,
		p.Image.Thumbnail, p.Image.Mobile, p.Image.Desktop,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p     catalog.Product
		price decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &price, &p.Metal, &p.Collection,
		&p.Image.Thumbnail, &p.Image.Mobile, &p.Image.Desktop,
	)
	p.Price = price
	return p, err
}
