package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the lifecycle states of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Cancellable reports whether an order in state s may be cancelled.
// Only pending and processing orders can be cancelled.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

// Order represents a placed customer order. Line items and addresses are
// snapshots captured at checkout, not live references.
type Order struct {
	ID         string
	Number     string
	Status     Status
	Currency   string
	Subtotal   decimal.Decimal
	Total      decimal.Decimal
	Items      []LineItem
	Billing    Address
	Shipping   Address
	PaymentRef string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LineItem is one product or variant position within an order. VariantID is
// empty when the item references the base product directly.
type LineItem struct {
	ProductID   string          `json:"product_id"`
	VariantID   string          `json:"variant_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Address is a postal address snapshot stored with the order.
type Address struct {
	Name    string `json:"name"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
}

// HistoryEntry is one immutable audit record of a status transition.
// ActorID is nil for system-initiated transitions.
type HistoryEntry struct {
	ID        int64
	OrderID   string
	Status    Status
	Comment   string
	ActorID   *string
	CreatedAt time.Time
}

// Repository defines persistence operations for orders and their status
// history.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, error)

	// TransitionStatus sets the order's status and appends the matching
	// history entry in a single transaction. The most recent history row must
	// always equal the order's current status; this is the only write path
	// allowed to touch either.
	TransitionStatus(ctx context.Context, orderID string, status Status, entry HistoryEntry) error

	History(ctx context.Context, orderID string) ([]HistoryEntry, error)
}

// StockAdjuster restores inventory counters during cancellation
// compensation. Implementations must use an atomic database-level increment
// so concurrent cancellations of the same product do not lose updates.
type StockAdjuster interface {
	AddProductStock(ctx context.Context, productID string, qty int) error
	AddVariantStock(ctx context.Context, variantID string, qty int) error
}
