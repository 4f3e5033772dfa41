package handler

import (
	"net/http"
	"sort"

	"github.com/go-faster/jx"

	"github.com/mkamel/storefront-core/internal/domain/translation"
	"github.com/mkamel/storefront-core/pkg/httpmiddleware"
)

// GetContent returns the translated view of an entity in the request locale:
// the fallback locale's fields overlaid with the requested locale's, plus
// resolution metadata.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entity := translation.EntityRef{Kind: r.PathValue("kind"), ID: r.PathValue("id")}
	locale := httpmiddleware.LocaleFromContext(ctx)
	if locale == "" {
		locale = h.resolver.FallbackLocale()
	}

	exists, err := h.resolver.Exists(ctx, entity, locale)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	fields, err := h.resolver.ResolveAll(ctx, entity, locale)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if len(fields) == 0 {
		writeError(w, http.StatusNotFound, "no content for "+entity.Kind+"/"+entity.ID)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(entity.Kind)
	e.FieldStart("id")
	e.Str(entity.ID)
	e.FieldStart("locale")
	e.Str(locale)
	e.FieldStart("fallbackLocale")
	e.Str(h.resolver.FallbackLocale())
	e.FieldStart("fallbackUsed")
	e.Bool(!exists && locale != h.resolver.FallbackLocale())
	e.FieldStart("fields")
	encodeFields(&e, fields)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// PutTranslation creates or replaces the translation row for the entity and
// locale in the path. The body is a flat object of field values.
func (h *Handler) PutTranslation(w http.ResponseWriter, r *http.Request) {
	entity := translation.EntityRef{Kind: r.PathValue("kind"), ID: r.PathValue("id")}
	locale := httpmiddleware.NormalizeLocale(r.PathValue("locale"))
	if locale == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid locale")
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := make(map[string]string)
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		v, err := d.Str()
		if err != nil {
			return err
		}
		fields[key] = v
		return nil
	}); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a flat object of string fields")
		return
	}
	if len(fields) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "at least one field required")
		return
	}

	row, err := h.resolver.Upsert(r.Context(), entity, locale, fields)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(row.Entity.Kind)
	e.FieldStart("id")
	e.Str(row.Entity.ID)
	e.FieldStart("locale")
	e.Str(row.Locale)
	e.FieldStart("fields")
	encodeFields(&e, row.Fields)
	e.FieldStart("updatedAt")
	e.Str(row.UpdatedAt.Format(timeFormat))
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// encodeFields writes a field map in stable key order.
func encodeFields(e *jx.Encoder, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e.ObjStart()
	for _, k := range keys {
		e.FieldStart(k)
		e.Str(fields[k])
	}
	e.ObjEnd()
}
