package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// CancelComment is recorded on the history row written by Cancel when the
// caller supplies no comment of its own.
const CancelComment = "order cancelled"

// Lifecycle gates and records order status transitions and drives inventory
// compensation on cancellation.
type Lifecycle struct {
	orders Repository
	stock  StockAdjuster
	now    func() time.Time
}

// NewLifecycle creates a Lifecycle with the required collaborators.
func NewLifecycle(orders Repository, stock StockAdjuster) *Lifecycle {
	return &Lifecycle{
		orders: orders,
		stock:  stock,
		now:    time.Now,
	}
}

// UpdateStatus transitions the order to newStatus and appends exactly one
// history entry, atomically. Transitions out of terminal states are rejected,
// as is a transition to cancelled from any non-cancellable state; other
// transitions are treated as admin-authorized.
func (l *Lifecycle) UpdateStatus(ctx context.Context, orderID string, newStatus Status, comment string, actorID *string) (*Order, error) {
	if !newStatus.Valid() {
		return nil, &InvalidStatusError{Status: string(newStatus)}
	}

	o, err := l.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	if o.Status.Terminal() || (newStatus == StatusCancelled && !o.Status.Cancellable()) {
		return nil, &InvalidTransitionError{OrderID: o.ID, From: o.Status, To: newStatus}
	}

	entry := HistoryEntry{
		OrderID:   o.ID,
		Status:    newStatus,
		Comment:   comment,
		ActorID:   actorID,
		CreatedAt: l.now(),
	}
	if err := l.orders.TransitionStatus(ctx, o.ID, newStatus, entry); err != nil {
		return nil, errors.Wrap(err, "transition status")
	}

	o.Status = newStatus
	o.UpdatedAt = entry.CreatedAt
	return o, nil
}

// CancelResult holds the outcome of a successful cancellation.
type CancelResult struct {
	Order *Order
	// Restored counts line items whose stock was put back.
	Restored int
}

// Cancel cancels the order and restores the stock of every line item.
//
// The status change and its history row commit first; stock restores run
// afterwards, one atomic increment per item. A failed increment does not roll
// the cancellation back. When any restore fails, Cancel returns the result
// together with a *StockRestoreError listing the remaining items so the
// caller can retry them with RestoreStock.
func (l *Lifecycle) Cancel(ctx context.Context, orderID string, comment string, actorID *string) (*CancelResult, error) {
	o, err := l.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	if !o.Status.Cancellable() {
		return nil, &InvalidTransitionError{OrderID: o.ID, From: o.Status, To: StatusCancelled}
	}

	if comment == "" {
		comment = CancelComment
	}
	entry := HistoryEntry{
		OrderID:   o.ID,
		Status:    StatusCancelled,
		Comment:   comment,
		ActorID:   actorID,
		CreatedAt: l.now(),
	}
	if err := l.orders.TransitionStatus(ctx, o.ID, StatusCancelled, entry); err != nil {
		return nil, errors.Wrap(err, "transition status")
	}
	o.Status = StatusCancelled
	o.UpdatedAt = entry.CreatedAt

	result := &CancelResult{Order: o}
	if err := l.RestoreStock(ctx, o.ID, o.Items); err != nil {
		var sre *StockRestoreError
		if errors.As(err, &sre) {
			result.Restored = sre.Restored
		}
		return result, err
	}
	result.Restored = len(o.Items)
	return result, nil
}

// RestoreStock increments the stock of each line item's variant, or of the
// base product when the item has no variant. Failures are collected rather
// than aborting the loop, so one bad item does not block the rest; the
// returned *StockRestoreError carries the items left to retry.
func (l *Lifecycle) RestoreStock(ctx context.Context, orderID string, items []LineItem) error {
	var failed []ItemRestoreFailure
	restored := 0
	for _, item := range items {
		var err error
		if item.VariantID != "" {
			err = l.stock.AddVariantStock(ctx, item.VariantID, item.Quantity)
		} else {
			err = l.stock.AddProductStock(ctx, item.ProductID, item.Quantity)
		}
		if err != nil {
			failed = append(failed, ItemRestoreFailure{Item: item, Err: err})
			continue
		}
		restored++
	}

	if len(failed) > 0 {
		return &StockRestoreError{OrderID: orderID, Failed: failed, Restored: restored}
	}
	return nil
}
