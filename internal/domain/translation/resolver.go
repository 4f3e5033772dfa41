package translation

import (
	"context"

	"github.com/go-faster/errors"
)

// Resolver returns the best-available localized value for an entity's field.
// Fallback is exactly one hop deep: the requested locale, then the configured
// default. Nothing deeper is consulted.
type Resolver struct {
	repo     Repository
	fallback string
}

// NewResolver creates a Resolver with the given fallback locale.
func NewResolver(repo Repository, fallbackLocale string) *Resolver {
	return &Resolver{repo: repo, fallback: fallbackLocale}
}

// FallbackLocale returns the configured default locale.
func (r *Resolver) FallbackLocale() string {
	return r.fallback
}

// Resolve looks up field for entity in the requested locale, falling back to
// the default locale when the row or the field is missing. ok is false when
// neither locale has a value; that is not an error. err is only non-nil on
// storage failure.
func (r *Resolver) Resolve(ctx context.Context, entity EntityRef, field, locale string) (value string, ok bool, err error) {
	if locale == "" {
		locale = r.fallback
	}

	row, err := r.repo.Get(ctx, entity, locale)
	switch {
	case err == nil:
		if v, found := row.Field(field); found {
			return v, true, nil
		}
	case !errors.Is(err, ErrNotFound):
		return "", false, errors.Wrap(err, "get translation")
	}

	if locale == r.fallback {
		return "", false, nil
	}

	row, err = r.repo.Get(ctx, entity, r.fallback)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "get fallback translation")
	}
	v, found := row.Field(field)
	return v, found, nil
}

// ResolveAll returns the merged field set for entity: the fallback locale's
// fields overlaid with the requested locale's. Missing rows contribute
// nothing; two misses yield an empty map.
func (r *Resolver) ResolveAll(ctx context.Context, entity EntityRef, locale string) (map[string]string, error) {
	if locale == "" {
		locale = r.fallback
	}

	merged := make(map[string]string)
	if locale != r.fallback {
		base, err := r.repo.Get(ctx, entity, r.fallback)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "get fallback translation")
		}
		if err == nil {
			for k, v := range base.Fields {
				if v != "" {
					merged[k] = v
				}
			}
		}
	}

	row, err := r.repo.Get(ctx, entity, locale)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "get translation")
	}
	if err == nil {
		for k, v := range row.Fields {
			if v != "" {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

// Exists reports whether a translation row exists for (entity, locale)
// without consulting the fallback.
func (r *Resolver) Exists(ctx context.Context, entity EntityRef, locale string) (bool, error) {
	if locale == "" {
		locale = r.fallback
	}
	return r.repo.Exists(ctx, entity, locale)
}

// Upsert writes the fields for (entity, locale) through the repository's
// single write path.
func (r *Resolver) Upsert(ctx context.Context, entity EntityRef, locale string, fields map[string]string) (*Row, error) {
	if locale == "" {
		locale = r.fallback
	}
	row, err := r.repo.Upsert(ctx, entity, locale, fields)
	if err != nil {
		return nil, errors.Wrap(err, "upsert translation")
	}
	return row, nil
}
