package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	orders map[string]*Order

	transitions []HistoryEntry
	transErr    error
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) TransitionStatus(_ context.Context, orderID string, status Status, entry HistoryEntry) error {
	if m.transErr != nil {
		return m.transErr
	}
	m.orders[orderID].Status = status
	m.transitions = append(m.transitions, entry)
	return nil
}

func (m *mockOrderRepo) History(_ context.Context, orderID string) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, e := range m.transitions {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockStock struct {
	products map[string]int
	variants map[string]int
	failOn   map[string]error
}

func newMockStock() *mockStock {
	return &mockStock{
		products: make(map[string]int),
		variants: make(map[string]int),
		failOn:   make(map[string]error),
	}
}

func (m *mockStock) AddProductStock(_ context.Context, id string, qty int) error {
	if err := m.failOn[id]; err != nil {
		return err
	}
	m.products[id] += qty
	return nil
}

func (m *mockStock) AddVariantStock(_ context.Context, id string, qty int) error {
	if err := m.failOn[id]; err != nil {
		return err
	}
	m.variants[id] += qty
	return nil
}

// --- Helpers ---

func newTestOrder(id string, status Status, items ...LineItem) *Order {
	return &Order{
		ID:       id,
		Number:   "SO-" + id,
		Status:   status,
		Currency: "USD",
		Total:    decimal.RequireFromString("30.00"),
		Items:    items,
	}
}

func newLifecycle(repo *mockOrderRepo, stock *mockStock) *Lifecycle {
	l := NewLifecycle(repo, stock)
	l.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return l
}

func actor(id string) *string { return &id }

// --- Tests ---

func TestCancel_PendingOrder(t *testing.T) {
	items := []LineItem{
		{ProductID: "prod-a", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		{ProductID: "prod-b", VariantID: "var-b1", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
	}
	repo := &mockOrderRepo{orders: map[string]*Order{"1001": newTestOrder("1001", StatusPending, items...)}}
	stock := newMockStock()
	l := newLifecycle(repo, stock)

	result, err := l.Cancel(context.Background(), "1001", "", actor("7"))
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, result.Order.Status)
	assert.Equal(t, StatusCancelled, repo.orders["1001"].Status)
	assert.Equal(t, 2, result.Restored)

	require.Len(t, repo.transitions, 1)
	entry := repo.transitions[0]
	assert.Equal(t, StatusCancelled, entry.Status)
	assert.Equal(t, CancelComment, entry.Comment)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "7", *entry.ActorID)

	// Base product restored directly, variant line restored on the variant.
	assert.Equal(t, 2, stock.products["prod-a"])
	assert.Equal(t, 1, stock.variants["var-b1"])
	assert.Zero(t, stock.products["prod-b"])
}

func TestCancel_ProcessingOrder(t *testing.T) {
	repo := &mockOrderRepo{orders: map[string]*Order{
		"1": newTestOrder("1", StatusProcessing, LineItem{ProductID: "p", Quantity: 3}),
	}}
	stock := newMockStock()
	l := newLifecycle(repo, stock)

	_, err := l.Cancel(context.Background(), "1", "changed my mind", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stock.products["p"])
	assert.Equal(t, "changed my mind", repo.transitions[0].Comment)
	assert.Nil(t, repo.transitions[0].ActorID)
}

func TestCancel_RejectedFromTerminalStates(t *testing.T) {
	for _, status := range []Status{StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded} {
		t.Run(string(status), func(t *testing.T) {
			repo := &mockOrderRepo{orders: map[string]*Order{
				"1002": newTestOrder("1002", status, LineItem{ProductID: "p", Quantity: 1}),
			}}
			stock := newMockStock()
			l := newLifecycle(repo, stock)

			_, err := l.Cancel(context.Background(), "1002", "", actor("7"))

			var itErr *InvalidTransitionError
			require.ErrorAs(t, err, &itErr)
			assert.Equal(t, status, itErr.From)
			assert.Equal(t, StatusCancelled, itErr.To)

			// No mutation at all.
			assert.Equal(t, status, repo.orders["1002"].Status)
			assert.Empty(t, repo.transitions)
			assert.Empty(t, stock.products)
		})
	}
}

func TestCancel_NotFound(t *testing.T) {
	repo := &mockOrderRepo{orders: map[string]*Order{}}
	l := newLifecycle(repo, newMockStock())

	_, err := l.Cancel(context.Background(), "missing", "", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancel_TransitionWriteFails(t *testing.T) {
	repo := &mockOrderRepo{
		orders:   map[string]*Order{"1": newTestOrder("1", StatusPending, LineItem{ProductID: "p", Quantity: 1})},
		transErr: errors.New("db down"),
	}
	stock := newMockStock()
	l := newLifecycle(repo, stock)

	_, err := l.Cancel(context.Background(), "1", "", nil)
	require.Error(t, err)
	// No compensation may run if the status never committed.
	assert.Empty(t, stock.products)
}

func TestCancel_PartialStockRestoreFailure(t *testing.T) {
	items := []LineItem{
		{ProductID: "ok", Quantity: 2},
		{ProductID: "broken", Quantity: 5},
		{ProductID: "p", VariantID: "also-ok", Quantity: 1},
	}
	repo := &mockOrderRepo{orders: map[string]*Order{"1": newTestOrder("1", StatusPending, items...)}}
	stock := newMockStock()
	stock.failOn["broken"] = errors.New("product missing")
	l := newLifecycle(repo, stock)

	result, err := l.Cancel(context.Background(), "1", "", nil)

	// The cancellation stands even though one restore failed.
	require.NotNil(t, result)
	assert.Equal(t, StatusCancelled, repo.orders["1"].Status)
	require.Len(t, repo.transitions, 1)

	var sre *StockRestoreError
	require.ErrorAs(t, err, &sre)
	assert.Equal(t, 2, sre.Restored)
	require.Len(t, sre.Failed, 1)
	assert.Equal(t, "broken", sre.Failed[0].Item.ProductID)

	// Successful increments were applied.
	assert.Equal(t, 2, stock.products["ok"])
	assert.Equal(t, 1, stock.variants["also-ok"])

	// Retrying just the failed items succeeds once the cause is gone.
	delete(stock.failOn, "broken")
	require.NoError(t, l.RestoreStock(context.Background(), "1", sre.FailedItems()))
	assert.Equal(t, 5, stock.products["broken"])
}

func TestUpdateStatus_AppendsHistory(t *testing.T) {
	repo := &mockOrderRepo{orders: map[string]*Order{"1": newTestOrder("1", StatusPending)}}
	l := newLifecycle(repo, newMockStock())

	o, err := l.UpdateStatus(context.Background(), "1", StatusProcessing, "payment captured", actor("42"))
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, o.Status)

	require.Len(t, repo.transitions, 1)
	assert.Equal(t, StatusProcessing, repo.transitions[0].Status)
	assert.Equal(t, "payment captured", repo.transitions[0].Comment)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	repo := &mockOrderRepo{orders: map[string]*Order{"1": newTestOrder("1", StatusPending)}}
	l := newLifecycle(repo, newMockStock())

	_, err := l.UpdateStatus(context.Background(), "1", Status("archived"), "", nil)

	var isErr *InvalidStatusError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, "archived", isErr.Status)
}

func TestUpdateStatus_TerminalStateIsFrozen(t *testing.T) {
	repo := &mockOrderRepo{orders: map[string]*Order{"1": newTestOrder("1", StatusDelivered)}}
	l := newLifecycle(repo, newMockStock())

	_, err := l.UpdateStatus(context.Background(), "1", StatusShipped, "", nil)

	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Empty(t, repo.transitions)
}

func TestUpdateStatus_CancelledGatedLikeCancel(t *testing.T) {
	repo := &mockOrderRepo{orders: map[string]*Order{"1": newTestOrder("1", StatusShipped)}}
	l := newLifecycle(repo, newMockStock())

	_, err := l.UpdateStatus(context.Background(), "1", StatusCancelled, "", nil)

	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, StatusShipped, itErr.From)
}

func TestStatus_Predicates(t *testing.T) {
	tests := []struct {
		status      Status
		terminal    bool
		cancellable bool
	}{
		{StatusPending, false, true},
		{StatusProcessing, false, true},
		{StatusShipped, false, false},
		{StatusDelivered, true, false},
		{StatusCancelled, true, false},
		{StatusRefunded, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.Valid())
			assert.Equal(t, tt.terminal, tt.status.Terminal())
			assert.Equal(t, tt.cancellable, tt.status.Cancellable())
		})
	}
	assert.False(t, Status("bogus").Valid())
}
