package quote

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/storefront"
)

// Handler exposes quoting over HTTP.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

type batchRequest struct {
	Items []pricing.Selection `json:"items" validate:"required,min=1,max=100,dive"`
}

type batchItem struct {
	Quote *pricing.Quote    `json:"quote,omitempty"`
	Error *common.ErrorBody `json:"error,omitempty"`
}

type invalidateRequest struct {
	ProductIDs []string `json:"productIds" validate:"dive,required"`
}

// Create prices one selection.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload pricing.Selection
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	q, err := h.Svc.Quote(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Batch prices several selections; each item reports its own outcome.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var payload batchRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	results, err := h.Svc.QuoteBatch(r.Context(), payload.Items)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]batchItem, len(results))
	for i, res := range results {
		if res.Err != nil {
			appErr := classify(res.Err)
			items[i].Error = &common.ErrorBody{Code: appErr.Code, Message: appErr.Message}
			continue
		}
		q := res.Quote
		items[i].Quote = &q
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// ProductQuote prices the product in the path using variant, size and quantity
// query parameters. Quantity defaults to one.
func (h *Handler) ProductQuote(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	qty := 1
	if raw := strings.TrimSpace(query.Get("quantity")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, common.ValidationError("quantity must be a number", nil))
			return
		}
		qty = n
	}
	sel := pricing.Selection{
		ProductID: chi.URLParam(r, "id"),
		Variant:   query.Get("variant"),
		Size:      query.Get("size"),
		Quantity:  qty,
	}
	if err := common.ValidateStruct(sel); err != nil {
		h.writeError(w, err)
		return
	}
	q, err := h.Svc.Quote(r.Context(), sel)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Invalidate drops cached snapshots so the next quote reads the storefront.
func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var payload invalidateRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Svc.Invalidate(r.Context(), payload.ProductIDs...); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func classify(err error) *common.AppError {
	switch {
	case storefront.StatusCode(err) == http.StatusNotFound:
		return common.NewAppError("PRODUCT_NOT_FOUND", "product not found", http.StatusNotFound, err)
	case errors.Is(err, ErrSourceNotConfigured):
		return common.NewAppError("INTERNAL", "quote service not configured", http.StatusInternalServerError, err)
	default:
		return common.Classify(err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	appErr := classify(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.Logger.Error().Err(err).Str("code", appErr.Code).Msg("quote request failed")
	}
	common.WriteAppError(w, appErr)
}
