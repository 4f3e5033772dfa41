// Command seed-db loads catalog, translation, and order fixtures into the
// database. The fixture file is JSON, optionally gzip-compressed (.gz).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mkamel/storefront-core/internal/storage/postgres"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Variants []struct {
		ID    string          `json:"id"`
		SKU   string          `json:"sku"`
		Price decimal.Decimal `json:"price"`
		Stock int             `json:"stock"`
	} `json:"variants"`
}

type translationJSON struct {
	Kind   string            `json:"kind"`
	ID     string            `json:"id"`
	Locale string            `json:"locale"`
	Fields map[string]string `json:"fields"`
}

type orderJSON struct {
	ID         string          `json:"id"`
	Number     string          `json:"number"`
	Status     string          `json:"status"`
	Currency   string          `json:"currency"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Total      decimal.Decimal `json:"total"`
	Items      json.RawMessage `json:"items"`
	Billing    json.RawMessage `json:"billing_address"`
	Shipping   json.RawMessage `json:"shipping_address"`
	PaymentRef string          `json:"payment_ref"`
}

type seedFile struct {
	Products     []productJSON     `json:"products"`
	Translations []translationJSON `json:"translations"`
	Orders       []orderJSON       `json:"orders"`
}

func main() {
	var (
		databaseURL string
		fixturePath string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&fixturePath, "fixtures", "db/seed/fixtures.json", "path to fixtures JSON file (.json or .json.gz)")
	flag.Parse()

	// Dev convenience: pick up DATABASE_URL from a local .env if present.
	_ = godotenv.Load()
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL required: pass -database-url or set DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, fixturePath); err != nil {
		slog.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL, fixturePath string) error {
	fixtures, err := loadFixtures(fixturePath)
	if err != nil {
		return errors.Wrap(err, "load fixtures")
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Products must land before translations and orders reference them.
	if err := seedProducts(ctx, pool, fixtures.Products); err != nil {
		return err
	}
	slog.Info("seeded products", "count", len(fixtures.Products))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return seedTranslations(gctx, pool, fixtures.Translations) })
	g.Go(func() error { return seedOrders(gctx, pool, fixtures.Orders) })
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("seeded fixtures",
		"translations", len(fixtures.Translations),
		"orders", len(fixtures.Orders),
	)
	return nil
}

// loadFixtures reads the fixture file, transparently decompressing .gz input.
func loadFixtures(path string) (*seedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "gzip reader")
		}
		defer zr.Close()
		r = zr
	}

	var fixtures seedFile
	if err := json.NewDecoder(r).Decode(&fixtures); err != nil {
		return nil, errors.Wrap(err, "decode fixtures")
	}
	return &fixtures, nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	const (
		productSQL = `INSERT INTO products (id, name, category, price, stock)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, category = EXCLUDED.category,
				price = EXCLUDED.price, stock = EXCLUDED.stock`
		variantSQL = `INSERT INTO product_variants (id, product_id, sku, price, stock)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				sku = EXCLUDED.sku, price = EXCLUDED.price, stock = EXCLUDED.stock`
	)

	for _, p := range products {
		if _, err := pool.Exec(ctx, productSQL, p.ID, p.Name, p.Category, p.Price, p.Stock); err != nil {
			return errors.Wrapf(err, "seed product %s", p.ID)
		}
		for _, v := range p.Variants {
			if _, err := pool.Exec(ctx, variantSQL, v.ID, p.ID, v.SKU, v.Price, v.Stock); err != nil {
				return errors.Wrapf(err, "seed variant %s", v.ID)
			}
		}
	}
	return nil
}

func seedTranslations(ctx context.Context, pool *pgxpool.Pool, translations []translationJSON) error {
	const upsertSQL = `INSERT INTO translations (entity_kind, entity_id, locale, fields)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_kind, entity_id, locale) DO UPDATE SET
			fields = EXCLUDED.fields, updated_at = now()`

	for _, tr := range translations {
		fields, err := json.Marshal(tr.Fields)
		if err != nil {
			return errors.Wrapf(err, "encode translation %s/%s", tr.Kind, tr.ID)
		}
		if _, err := pool.Exec(ctx, upsertSQL, tr.Kind, tr.ID, tr.Locale, fields); err != nil {
			return errors.Wrapf(err, "seed translation %s/%s[%s]", tr.Kind, tr.ID, tr.Locale)
		}
	}
	return nil
}

func seedOrders(ctx context.Context, pool *pgxpool.Pool, orders []orderJSON) error {
	const (
		orderSQL = `INSERT INTO orders (id, number, status, currency, subtotal, total,
				items, billing_address, shipping_address, payment_ref)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING`
		historySQL = `INSERT INTO order_status_history (order_id, status, comment)
			SELECT $1, $2, 'order created'
			WHERE NOT EXISTS (SELECT 1 FROM order_status_history WHERE order_id = $1)`
	)

	for _, o := range orders {
		status := o.Status
		if status == "" {
			status = "pending"
		}
		_, err := pool.Exec(ctx, orderSQL,
			o.ID, o.Number, status, o.Currency, o.Subtotal, o.Total,
			o.Items, o.Billing, o.Shipping, o.PaymentRef,
		)
		if err != nil {
			return errors.Wrapf(err, "seed order %s", o.ID)
		}
		if _, err := pool.Exec(ctx, historySQL, o.ID, status); err != nil {
			return errors.Wrapf(err, "seed order %s history", o.ID)
		}
	}
	return nil
}
