package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/admin"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/settings"
	"github.com/ariefcatur/go-storefront/internal/shop"
	"github.com/ariefcatur/go-storefront/internal/state"
)

// AdminHandler serves the management console. Everything except login and
// logout requires the session's admin flag.
type AdminHandler struct {
	Console  *admin.Console
	State    state.Backend
	Catalog  *catalog.Cache
	Settings *settings.Cache
	Log      *zap.Logger
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/dashboard", h.dashboard)
		r.Post("/products", h.saveProduct)
		r.Put("/products/{id}", h.saveProduct)
		r.Delete("/products/{id}", h.deleteProduct)
		r.Get("/orders", h.listOrders)
		r.Put("/orders/{id}", h.updateOrder)
		r.Post("/settings", h.saveSettings)
	})
}

func (h *AdminHandler) session(r *http.Request) state.Store {
	return state.Scoped(h.State, SessionID(r.Context()))
}

func (h *AdminHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Console.Authenticated(r.Context(), h.session(r)) {
			writeError(w, r, admin.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Console.Login(r.Context(), h.session(r), req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

func (h *AdminHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Console.Logout(r.Context(), h.session(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Console.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// saveProduct handles both create (no id) and update.
func (h *AdminHandler) saveProduct(w http.ResponseWriter, r *http.Request) {
	var in admin.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	p, err := h.Console.SaveProduct(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.refreshCatalog(r)
	code := http.StatusOK
	if id == "" {
		code = http.StatusCreated
	}
	writeJSON(w, code, p)
}

func (h *AdminHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Console.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	h.refreshCatalog(r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Console.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *AdminHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status shop.Status `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Console.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]shop.Status{"status": req.Status})
}

func (h *AdminHandler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var s shop.Settings
	if err := decodeJSON(r, &s); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Console.SaveSettings(r.Context(), s); err != nil {
		writeError(w, r, err)
		return
	}
	if h.Settings != nil {
		if err := h.Settings.Load(r.Context()); err != nil {
			logging.OrNop(h.Log).Warn("settings refresh after save failed", zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// refreshCatalog reloads the storefront's view after a product change. A
// failed reload only leaves the storefront stale.
func (h *AdminHandler) refreshCatalog(r *http.Request) {
	if h.Catalog == nil {
		return
	}
	if err := h.Catalog.Load(r.Context()); err != nil {
		logging.OrNop(h.Log).Warn("catalog refresh after admin change failed", zap.Error(err))
	}
}
