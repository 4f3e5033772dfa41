package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/mkamel/storefront-core/internal/domain/catalog"
	"github.com/mkamel/storefront-core/internal/domain/order"
)

// maxBodyBytes caps request bodies; nothing this API accepts is large.
const maxBodyBytes = 1 << 20

// writeJSON sends the encoder's buffer with the given status code.
func writeJSON(w http.ResponseWriter, code int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// writeError sends the shared {code, message} error envelope.
func writeError(w http.ResponseWriter, code int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, code, &e)
}

// writeDomainError maps domain errors onto HTTP responses: missing entities
// to 404, rejected transitions to 409, bad input to 422, everything else to
// an opaque 500 (logged, not leaked).
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrVariantNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var itErr *order.InvalidTransitionError
	if errors.As(err, &itErr) {
		writeError(w, http.StatusConflict, itErr.Error())
		return
	}

	var isErr *order.InvalidStatusError
	if errors.As(err, &isErr) {
		writeError(w, http.StatusUnprocessableEntity, isErr.Error())
		return
	}

	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// readBody reads and returns the request body, enforcing maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return body, nil
}
