//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mkamel/storefront-core/internal/domain/catalog"
	"github.com/mkamel/storefront-core/internal/domain/order"
	"github.com/mkamel/storefront-core/internal/domain/translation"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "store",
				"POSTGRES_PASSWORD": "store",
				"POSTGRES_DB":       "store",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://store:store@%s:%s/store?sslmode=disable", host, port.Port())
	pool, err := NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func seedOrder(t *testing.T, pool *pgxpool.Pool, id string, status order.Status) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO products (id, name, price, stock) VALUES ('p1', 'Widget', 10.00, 3)
		ON CONFLICT (id) DO NOTHING`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO product_variants (id, product_id, sku, price, stock)
		VALUES ('v1', 'p1', 'W-1', 10.00, 1) ON CONFLICT (id) DO NOTHING`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx,
		`INSERT INTO orders (id, number, status, subtotal, total, items) VALUES ($1, $2, $3, 30.00, 30.00,
			'[{"product_id":"p1","product_name":"Widget","quantity":2,"unit_price":"10.00"},
			  {"product_id":"p1","variant_id":"v1","product_name":"Widget","quantity":1,"unit_price":"10.00"}]')`,
		id, "SO-"+id, status)
	require.NoError(t, err)
}

func TestOrderRepository(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	repo := NewOrderRepository(pool)

	seedOrder(t, pool, "o1", order.StatusPending)

	t.Run("GetByID", func(t *testing.T) {
		o, err := repo.GetByID(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, "SO-o1", o.Number)
		assert.Equal(t, order.StatusPending, o.Status)
		require.Len(t, o.Items, 2)
		assert.Equal(t, "v1", o.Items[1].VariantID)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		require.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("TransitionStatus", func(t *testing.T) {
		actor := "7"
		err := repo.TransitionStatus(ctx, "o1", order.StatusCancelled, order.HistoryEntry{
			OrderID:   "o1",
			Status:    order.StatusCancelled,
			Comment:   "cancelled by customer",
			ActorID:   &actor,
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)

		o, err := repo.GetByID(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, o.Status)

		history, err := repo.History(ctx, "o1")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, order.StatusCancelled, history[0].Status)
		require.NotNil(t, history[0].ActorID)
		assert.Equal(t, "7", *history[0].ActorID)
	})

	t.Run("TransitionStatus_NotFound", func(t *testing.T) {
		err := repo.TransitionStatus(ctx, "missing", order.StatusCancelled, order.HistoryEntry{
			OrderID: "missing", Status: order.StatusCancelled, CreatedAt: time.Now(),
		})
		require.ErrorIs(t, err, order.ErrNotFound)
	})
}

func TestCatalogRepository_StockIncrements(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	repo := NewCatalogRepository(pool)

	seedOrder(t, pool, "o1", order.StatusPending)

	require.NoError(t, repo.AddProductStock(ctx, "p1", 2))
	require.NoError(t, repo.AddVariantStock(ctx, "v1", 1))

	p, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, 2, p.Variants[0].Stock)

	require.ErrorIs(t, repo.AddProductStock(ctx, "nope", 1), catalog.ErrProductNotFound)
	require.ErrorIs(t, repo.AddVariantStock(ctx, "nope", 1), catalog.ErrVariantNotFound)
}

func TestTranslationRepository(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	repo := NewTranslationRepository(pool)

	faq := translation.EntityRef{Kind: "faq", ID: "5"}
	fields := map[string]string{"question": "What is shipping?"}

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := repo.Get(ctx, faq, "en")
		require.ErrorIs(t, err, translation.ErrNotFound)
	})

	t.Run("Upsert_Idempotent", func(t *testing.T) {
		_, err := repo.Upsert(ctx, faq, "en", fields)
		require.NoError(t, err)
		_, err = repo.Upsert(ctx, faq, "en", fields)
		require.NoError(t, err)

		var count int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT count(*) FROM translations WHERE entity_kind = 'faq' AND entity_id = '5'`).Scan(&count))
		assert.Equal(t, 1, count)

		row, err := repo.Get(ctx, faq, "en")
		require.NoError(t, err)
		assert.Equal(t, fields, row.Fields)
	})

	t.Run("Exists", func(t *testing.T) {
		ok, err := repo.Exists(ctx, faq, "en")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Exists(ctx, faq, "ar")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
