package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkamel/storefront-core/internal/domain/catalog"
	"github.com/mkamel/storefront-core/internal/domain/order"
)

const (
	listProductsSQL = `SELECT id, name, category, price, stock FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, category, price, stock FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, category, price, stock FROM products WHERE id = ANY($1)`

	listVariantsSQL = `SELECT id, product_id, sku, price, stock
		FROM product_variants WHERE product_id = ANY($1) ORDER BY id`

	// Statement-level increments: concurrent adjustments of the same row
	// serialize inside PostgreSQL instead of losing updates.
	addProductStockSQL = `UPDATE products SET stock = stock + $2 WHERE id = $1`
	addVariantStockSQL = `UPDATE product_variants SET stock = stock + $2 WHERE id = $1`
)

var (
	_ catalog.Repository  = (*CatalogRepository)(nil)
	_ order.StockAdjuster = (*CatalogRepository)(nil)
)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns all products with their variants, ordered by ID.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanCatalogProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product with its variants.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanCatalogProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	products := []catalog.Product{p}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanCatalogProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// AddProductStock atomically increments a product's stock counter.
func (r *CatalogRepository) AddProductStock(ctx context.Context, productID string, qty int) error {
	tag, err := r.pool.Exec(ctx, addProductStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("adding stock to product %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

// AddVariantStock atomically increments a variant's stock counter.
func (r *CatalogRepository) AddVariantStock(ctx context.Context, variantID string, qty int) error {
	tag, err := r.pool.Exec(ctx, addVariantStockSQL, variantID, qty)
	if err != nil {
		return fmt.Errorf("adding stock to variant %q: %w", variantID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrVariantNotFound
	}
	return nil
}

// attachVariants loads the variants of all given products in one query.
func (r *CatalogRepository) attachVariants(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := r.pool.Query(ctx, listVariantsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing variants: %w", err)
	}
	variants, err := pgx.CollectRows(rows, scanVariant)
	if err != nil {
		return fmt.Errorf("listing variants: %w", err)
	}

	for _, v := range variants {
		i := index[v.ProductID]
		products[i].Variants = append(products[i].Variants, v)
	}
	return nil
}

func scanCatalogProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock)
	return p, err
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Price, &v.Stock)
	return v, err
}
