package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkamel/storefront-core/internal/domain/translation"
)

const (
	getTranslationSQL = `SELECT fields, updated_at FROM translations
		WHERE entity_kind = $1 AND entity_id = $2 AND locale = $3`

	translationExistsSQL = `SELECT EXISTS (
		SELECT 1 FROM translations WHERE entity_kind = $1 AND entity_id = $2 AND locale = $3)`

	upsertTranslationSQL = `INSERT INTO translations (entity_kind, entity_id, locale, fields, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_kind, entity_id, locale)
		DO UPDATE SET fields = EXCLUDED.fields, updated_at = EXCLUDED.updated_at`
)

var _ translation.Repository = (*TranslationRepository)(nil)

// TranslationRepository implements translation.Repository backed by
// PostgreSQL.
type TranslationRepository struct {
	pool *pgxpool.Pool
}

// NewTranslationRepository returns a TranslationRepository that uses the
// given pool.
func NewTranslationRepository(pool *pgxpool.Pool) *TranslationRepository {
	return &TranslationRepository{pool: pool}
}

// Get returns the translation row for (entity, locale), or
// translation.ErrNotFound.
func (r *TranslationRepository) Get(ctx context.Context, entity translation.EntityRef, locale string) (*translation.Row, error) {
	var (
		raw       []byte
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, getTranslationSQL, entity.Kind, entity.ID, locale).
		Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, translation.ErrNotFound
		}
		return nil, fmt.Errorf("getting translation %s/%s[%s]: %w", entity.Kind, entity.ID, locale, err)
	}

	fields := make(map[string]string)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding translation fields: %w", err)
	}
	return &translation.Row{
		Entity:    entity,
		Locale:    locale,
		Fields:    fields,
		UpdatedAt: updatedAt,
	}, nil
}

// Exists reports whether a row exists for (entity, locale) without fetching
// its fields.
func (r *TranslationRepository) Exists(ctx context.Context, entity translation.EntityRef, locale string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, translationExistsSQL, entity.Kind, entity.ID, locale).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking translation %s/%s[%s]: %w", entity.Kind, entity.ID, locale, err)
	}
	return exists, nil
}

// Upsert creates or replaces the row for (entity, locale).
func (r *TranslationRepository) Upsert(ctx context.Context, entity translation.EntityRef, locale string, fields map[string]string) (*translation.Row, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding translation fields: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.pool.Exec(ctx, upsertTranslationSQL, entity.Kind, entity.ID, locale, raw, now)
	if err != nil {
		return nil, fmt.Errorf("upserting translation %s/%s[%s]: %w", entity.Kind, entity.ID, locale, err)
	}
	return &translation.Row{
		Entity:    entity,
		Locale:    locale,
		Fields:    fields,
		UpdatedAt: now,
	}, nil
}
