package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-storefront/internal/admin"
	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/settings"
)

const maxBody = 1 << 20

var (
	errBadRequest          = errors.New("invalid request body")
	errUnsupportedLanguage = errors.New("unsupported language")
)

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := classify(err)
	writeJSON(w, code, errorBody{
		Error:     kind,
		Message:   err.Error(),
		Status:    code,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// classify checks sentinels before backend errors: a failed submission
// wraps the backend's StatusError.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, admin.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, cart.ErrOutOfStock):
		return http.StatusConflict, "out_of_stock"
	case errors.Is(err, cart.ErrVariantRequired):
		return http.StatusUnprocessableEntity, "variant_required"
	case errors.Is(err, cart.ErrLineMismatch):
		return http.StatusConflict, "line_mismatch"
	case errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity, "invalid_quantity"
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusUnprocessableEntity, "empty_cart"
	case errors.Is(err, checkout.ErrInvalidCustomer):
		return http.StatusUnprocessableEntity, "invalid_customer"
	case errors.Is(err, admin.ErrInvalidProduct):
		return http.StatusUnprocessableEntity, "invalid_product"
	case errors.Is(err, admin.ErrInvalidStatus):
		return http.StatusUnprocessableEntity, "invalid_status"
	case errors.Is(err, errUnsupportedLanguage):
		return http.StatusUnprocessableEntity, "unsupported_language"
	case errors.Is(err, cart.ErrIndexOutOfRange):
		return http.StatusNotFound, "index_out_of_range"
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "product_not_found"
	case errors.Is(err, admin.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, checkout.ErrOrderSubmissionFailed):
		return http.StatusBadGateway, "order_submission_failed"
	case errors.Is(err, catalog.ErrLoadFailed), errors.Is(err, settings.ErrLoadFailed):
		return http.StatusBadGateway, "load_failed"
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusBadGateway, "backend_unavailable"
	}
	var se *backend.StatusError
	if errors.As(err, &se) {
		return http.StatusBadGateway, "backend_error"
	}
	return http.StatusInternalServerError, "internal"
}
