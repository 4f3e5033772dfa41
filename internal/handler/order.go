package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/mkamel/storefront-core/internal/domain/order"
)

// GetOrder returns an order with its line items, address snapshots, and full
// status history.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	o, err := h.orders.GetByID(ctx, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	history, err := h.orders.History(ctx, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o, history)
	writeJSON(w, http.StatusOK, &e)
}

// statusRequest is the body of POST /api/orders/{id}/status.
type statusRequest struct {
	Status  string
	Comment string
}

func decodeStatusRequest(body []byte) (statusRequest, error) {
	var req statusRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "status":
			req.Status, err = d.Str()
		case "comment":
			req.Comment, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// UpdateOrderStatus transitions an order to the requested status, recording
// the actor and comment on the history row.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := decodeStatusRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status required")
		return
	}

	o, err := h.lifecycle.UpdateStatus(r.Context(), r.PathValue("id"), order.Status(req.Status), req.Comment, actorID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o, nil)
	writeJSON(w, http.StatusOK, &e)
}

// cancelRequest is the optional body of POST /api/orders/{id}/cancel.
type cancelRequest struct {
	Comment string
}

func decodeCancelRequest(body []byte) (cancelRequest, error) {
	var req cancelRequest
	if len(body) == 0 {
		return req, nil
	}
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "comment":
			req.Comment, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// CancelOrder cancels an order and restores its line items' stock. When some
// stock restores fail, the cancellation stands and the response reports the
// failed items so the caller can retry.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := decodeCancelRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.lifecycle.Cancel(r.Context(), r.PathValue("id"), req.Comment, actorID(r))
	if err != nil {
		var sre *order.StockRestoreError
		if !errors.As(err, &sre) {
			writeDomainError(w, r, err)
			return
		}
		// Partial failure: cancelled, but some stock was not restored.
		var e jx.Encoder
		e.ObjStart()
		e.FieldStart("order")
		encodeOrder(&e, result.Order, nil)
		e.FieldStart("stock_restore")
		encodeRestoreReport(&e, sre)
		e.ObjEnd()
		writeJSON(w, http.StatusOK, &e)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("order")
	encodeOrder(&e, result.Order, nil)
	e.FieldStart("stock_restore")
	e.ObjStart()
	e.FieldStart("restored")
	e.Int(result.Restored)
	e.ObjEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

func encodeOrder(e *jx.Encoder, o *order.Order, history []order.HistoryEntry) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("number")
	e.Str(o.Number)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("currency")
	e.Str(o.Currency)
	e.FieldStart("subtotal")
	e.Str(o.Subtotal.StringFixed(2))
	e.FieldStart("total")
	e.Str(o.Total.StringFixed(2))

	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.ProductID)
		if item.VariantID != "" {
			e.FieldStart("variantId")
			e.Str(item.VariantID)
		}
		e.FieldStart("productName")
		e.Str(item.ProductName)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("unitPrice")
		e.Str(item.UnitPrice.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("billingAddress")
	encodeAddress(e, o.Billing)
	e.FieldStart("shippingAddress")
	encodeAddress(e, o.Shipping)

	if o.PaymentRef != "" {
		e.FieldStart("paymentRef")
		e.Str(o.PaymentRef)
	}
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.Format(timeFormat))
	e.FieldStart("updatedAt")
	e.Str(o.UpdatedAt.Format(timeFormat))

	if history != nil {
		e.FieldStart("history")
		e.ArrStart()
		for _, entry := range history {
			e.ObjStart()
			e.FieldStart("status")
			e.Str(string(entry.Status))
			if entry.Comment != "" {
				e.FieldStart("comment")
				e.Str(entry.Comment)
			}
			e.FieldStart("actorId")
			if entry.ActorID != nil {
				e.Str(*entry.ActorID)
			} else {
				e.Null()
			}
			e.FieldStart("createdAt")
			e.Str(entry.CreatedAt.Format(timeFormat))
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

func encodeAddress(e *jx.Encoder, a order.Address) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(a.Name)
	e.FieldStart("line1")
	e.Str(a.Line1)
	if a.Line2 != "" {
		e.FieldStart("line2")
		e.Str(a.Line2)
	}
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("country")
	e.Str(a.Country)
	if a.Phone != "" {
		e.FieldStart("phone")
		e.Str(a.Phone)
	}
	e.ObjEnd()
}

func encodeRestoreReport(e *jx.Encoder, sre *order.StockRestoreError) {
	e.ObjStart()
	e.FieldStart("restored")
	e.Int(sre.Restored)
	e.FieldStart("failed")
	e.ArrStart()
	for _, f := range sre.Failed {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(f.Item.ProductID)
		if f.Item.VariantID != "" {
			e.FieldStart("variantId")
			e.Str(f.Item.VariantID)
		}
		e.FieldStart("quantity")
		e.Int(f.Item.Quantity)
		e.FieldStart("error")
		e.Str(f.Err.Error())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
