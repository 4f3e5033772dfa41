package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// InvalidTransitionError indicates a status change was requested from a state
// that does not permit it.
type InvalidTransitionError struct {
	OrderID string
	From    Status
	To      Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot transition from %s to %s", e.OrderID, e.From, e.To)
}

// InvalidStatusError indicates an unknown status value was supplied.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("unknown order status %q", e.Status)
}

// ItemRestoreFailure records one line item whose stock restore failed.
type ItemRestoreFailure struct {
	Item LineItem
	Err  error
}

// StockRestoreError reports line items whose inventory could not be restored
// after a cancellation committed. The cancellation itself stands; the caller
// may retry the failed items via Lifecycle.RestoreStock.
type StockRestoreError struct {
	OrderID  string
	Failed   []ItemRestoreFailure
	Restored int
}

func (e *StockRestoreError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "order %s: %d of %d stock restores failed:", e.OrderID, len(e.Failed), e.Restored+len(e.Failed))
	for _, f := range e.Failed {
		ref := f.Item.ProductID
		if f.Item.VariantID != "" {
			ref = f.Item.VariantID
		}
		fmt.Fprintf(&b, " %s: %v;", ref, f.Err)
	}
	return strings.TrimSuffix(b.String(), ";")
}

// FailedItems returns the line items that still need their stock restored.
func (e *StockRestoreError) FailedItems() []LineItem {
	items := make([]LineItem, len(e.Failed))
	for i, f := range e.Failed {
		items[i] = f.Item
	}
	return items
}
