// Package translation resolves per-locale content for storefront entities
// with a single-hop fallback to a configured default locale.
package translation

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Repository.Get when no row exists for the
// (entity, locale) pair. The resolver treats it as a fallback trigger, never
// as a failure.
var ErrNotFound = errors.New("translation not found")

// EntityRef identifies a translatable entity by kind and id, e.g.
// {Kind: "faq", ID: "5"} or {Kind: "product", ID: <uuid>}.
type EntityRef struct {
	Kind string
	ID   string
}

// Row is the stored translation for one (entity, locale) pair. At most one
// row exists per pair; Upsert is the only write path.
type Row struct {
	Entity    EntityRef
	Locale    string
	Fields    map[string]string
	UpdatedAt time.Time
}

// Field returns the named field's value and whether it is present and
// non-empty.
func (r *Row) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Repository defines persistence operations for translation rows.
type Repository interface {
	// Get returns the row for (entity, locale), or ErrNotFound.
	Get(ctx context.Context, entity EntityRef, locale string) (*Row, error)

	// Exists reports whether a row exists for (entity, locale) without
	// fetching its fields.
	Exists(ctx context.Context, entity EntityRef, locale string) (bool, error)

	// Upsert creates the row for (entity, locale) or replaces the existing
	// row's fields, preserving the one-row-per-pair invariant.
	Upsert(ctx context.Context, entity EntityRef, locale string, fields map[string]string) (*Row, error)
}
