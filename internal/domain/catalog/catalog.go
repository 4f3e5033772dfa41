// Package catalog holds the product and variant model with their stock
// counters.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when a requested product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrVariantNotFound is returned when a requested variant does not exist.
	ErrVariantNotFound = errors.New("variant not found")
)

// Product is a catalog item. Name is the untranslated source-of-truth value;
// localized names live in translation rows keyed by {Kind: "product", ID}.
type Product struct {
	ID       string
	Name     string
	Category string
	Price    decimal.Decimal
	Stock    int
	Variants []Variant
}

// Variant is a purchasable variation of a product with its own price and
// stock counter.
type Variant struct {
	ID        string
	ProductID string
	SKU       string
	Price     decimal.Decimal
	Stock     int
}

// Repository defines read and stock-adjustment operations for the catalog.
// The stock methods satisfy order.StockAdjuster and must increment at the
// statement level so concurrent adjustments never lose updates.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)

	AddProductStock(ctx context.Context, productID string, qty int) error
	AddVariantStock(ctx context.Context, variantID string, qty int) error
}
