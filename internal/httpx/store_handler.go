package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/settings"
	"github.com/ariefcatur/go-storefront/internal/shop"
	"github.com/ariefcatur/go-storefront/internal/state"
)

// StoreHandler serves the shopper-facing JSON API.
type StoreHandler struct {
	Catalog  *catalog.Cache
	Settings *settings.Cache
	Carts    *cart.Sessions
	State    state.Backend
	Checkout *checkout.Orchestrator
	Log      *zap.Logger

	submits singleflight.Group
}

func (h *StoreHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Post("/catalog/reload", h.reloadCatalog)
	r.Get("/settings", h.getSettings)

	r.Get("/cart", h.getCart)
	r.Delete("/cart", h.clearCart)
	r.Post("/cart/items", h.addItem)
	r.Put("/cart/items/{index}", h.updateItem)
	r.Delete("/cart/items/{index}", h.removeItem)
	r.Post("/cart/buy-now", h.buyNow)
	r.Post("/checkout", h.checkout)

	r.Get("/language", h.getLanguage)
	r.Put("/language", h.setLanguage)
}

type cartView struct {
	Items     []shop.LineItem `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func viewOf(s *cart.Store) cartView {
	return cartView{Items: s.Items(), Total: s.Total(), ItemCount: s.ItemCount()}
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (q addItemReq) quantity() int {
	if q.Quantity == nil {
		return 1
	}
	return *q.Quantity
}

type checkoutReq struct {
	CustomerInfo  shop.CustomerInfo  `json:"customer_info"`
	PaymentMethod shop.PaymentMethod `json:"payment_method"`
}

type settingsView struct {
	shop.Settings
	WhatsAppLink string `json:"whatsapp_link,omitempty"`
}

func (h *StoreHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.Search(r.URL.Query().Get("q")))
}

func (h *StoreHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.FindByID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *StoreHandler) reloadCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Load(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products":  h.Catalog.Len(),
		"loaded_at": h.Catalog.LoadedAt().UTC().Format(time.RFC3339),
	})
}

func (h *StoreHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settingsView{Settings: h.Settings.Current(), WhatsAppLink: h.Settings.WhatsAppLink()})
}

func (h *StoreHandler) getCart(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(ctx context.Context, s *cart.Store) error { return nil })
}

func (h *StoreHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(ctx context.Context, s *cart.Store) error { return s.Clear(ctx) })
}

func (h *StoreHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.FindByID(req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.withCart(w, r, func(ctx context.Context, s *cart.Store) error {
		return s.Add(ctx, p, req.quantity(), req.Size, req.Color)
	})
}

// buyNow is quick buy: the cart is replaced by this single line.
func (h *StoreHandler) buyNow(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.FindByID(req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.withCart(w, r, func(ctx context.Context, s *cart.Store) error {
		return s.Replace(ctx, p, req.quantity(), req.Size, req.Color)
	})
}

func (h *StoreHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.withCart(w, r, func(ctx context.Context, s *cart.Store) error {
		items := s.Items()
		if index < 0 || index >= len(items) {
			return cart.ErrIndexOutOfRange
		}
		p, err := h.Catalog.FindByID(items[index].ProductID)
		if err != nil {
			return err
		}
		return s.SetQuantity(ctx, index, p, req.Quantity)
	})
}

func (h *StoreHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.withCart(w, r, func(ctx context.Context, s *cart.Store) error {
		return s.Remove(ctx, index)
	})
}

// checkout submits the session's cart. Duplicate submits for one session
// that arrive while a submission is in flight share its outcome.
func (h *StoreHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(string(req.PaymentMethod)) == "" {
		req.PaymentMethod = shop.PaymentCashOnDelivery
	}

	sid := SessionID(r.Context())
	ctx := r.Context()
	v, err, shared := h.submits.Do(sid, func() (any, error) {
		var receipt shop.OrderReceipt
		err := h.Carts.With(ctx, sid, func(s *cart.Store) error {
			var err error
			receipt, err = h.Checkout.Submit(ctx, s, req.CustomerInfo, req.PaymentMethod)
			return err
		})
		return receipt, err
	})
	if shared {
		logging.OrNop(h.Log).Info("duplicate checkout joined in-flight submission", zap.String("session", sid))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v.(shop.OrderReceipt))
}

func (h *StoreHandler) getLanguage(w http.ResponseWriter, r *http.Request) {
	st := state.Scoped(h.State, SessionID(r.Context()))
	lang := ""
	if v, err := st.Get(r.Context(), state.KeyLanguage); err == nil && supportedLanguage(string(v)) {
		lang = string(v)
	} else if err != nil && !errors.Is(err, state.ErrNotFound) {
		logging.OrNop(h.Log).Warn("read language failed", zap.Error(err))
	}
	if lang == "" {
		lang = preferredLanguage(r.Header.Get("Accept-Language"))
	}
	writeJSON(w, http.StatusOK, map[string]string{"language": lang})
}

func (h *StoreHandler) setLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	lang := strings.ToLower(strings.TrimSpace(req.Language))
	if !supportedLanguage(lang) {
		writeError(w, r, errUnsupportedLanguage)
		return
	}
	st := state.Scoped(h.State, SessionID(r.Context()))
	if err := st.Set(r.Context(), state.KeyLanguage, []byte(lang)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"language": lang})
}

// withCart runs fn under the session lock and answers with the resulting cart.
func (h *StoreHandler) withCart(w http.ResponseWriter, r *http.Request, fn func(context.Context, *cart.Store) error) {
	ctx := r.Context()
	var view cartView
	err := h.Carts.With(ctx, SessionID(ctx), func(s *cart.Store) error {
		if err := fn(ctx, s); err != nil {
			return err
		}
		view = viewOf(s)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func indexParam(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, cart.ErrIndexOutOfRange
	}
	return i, nil
}
