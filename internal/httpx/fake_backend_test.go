package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront/internal/shop"
)

// fakeREST is an in-memory stand-in for the storefront REST backend.
type fakeREST struct {
	mu        sync.Mutex
	products  []shop.Product
	orders    []shop.Order
	settings  shop.Settings
	keys      []string
	failOrder bool
	received  chan struct{} // signalled on every POST /orders when set
	release   chan struct{} // POST /orders waits on it when set
}

func newFakeREST() *fakeREST {
	return &fakeREST{
		products: []shop.Product{
			{ID: "p1", Name: "Silver Ring", Price: decimal.NewFromInt(100), Stock: 5, Images: []string{"ring.jpg"}},
			{ID: "p2", Name: "Leather Bracelet", Price: decimal.NewFromInt(80), Stock: 10, Sizes: []string{"S", "M"}, Colors: []string{"black"}},
			{ID: "p3", Name: "Card Wallet", Price: decimal.NewFromInt(250), Stock: 0},
		},
		settings: shop.Settings{WhatsAppNumber: "+20 100 000 0000"},
	}
}

func (f *fakeREST) router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			writeJSON(w, http.StatusOK, f.products)
		})
		r.Post("/products", func(w http.ResponseWriter, r *http.Request) {
			var p shop.Product
			_ = json.NewDecoder(r.Body).Decode(&p)
			f.mu.Lock()
			p.ID = fmt.Sprintf("p%d", len(f.products)+1)
			f.products = append(f.products, p)
			f.mu.Unlock()
			writeJSON(w, http.StatusCreated, p)
		})
		r.Delete("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			id := chi.URLParam(r, "id")
			for i, p := range f.products {
				if p.ID == id {
					f.products = append(f.products[:i], f.products[i+1:]...)
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			http.Error(w, "not found", http.StatusNotFound)
		})
		r.Get("/settings", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			writeJSON(w, http.StatusOK, f.settings)
		})
		r.Post("/settings/bulk", func(w http.ResponseWriter, r *http.Request) {
			var s shop.Settings
			_ = json.NewDecoder(r.Body).Decode(&s)
			f.mu.Lock()
			f.settings = s
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		})
		r.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			writeJSON(w, http.StatusOK, f.orders)
		})
		r.Post("/orders", f.createOrder)
		r.Put("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Status shop.Status `json:"status"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			defer f.mu.Unlock()
			for i := range f.orders {
				if f.orders[i].ID == chi.URLParam(r, "id") {
					f.orders[i].Status = body.Status
					w.WriteHeader(http.StatusOK)
					return
				}
			}
			http.Error(w, "order not found", http.StatusNotFound)
		})
		r.Post("/admin/login", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Password string `json:"password"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Password != "secret" {
				writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
		})
	})
	return r
}

func (f *fakeREST) createOrder(w http.ResponseWriter, r *http.Request) {
	var req shop.OrderRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	received, release := f.received, f.release
	f.mu.Unlock()
	if received != nil {
		received <- struct{}{}
	}
	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, r.Header.Get("Idempotency-Key"))
	if f.failOrder {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	n := len(f.orders) + 1
	o := shop.Order{
		ID:            fmt.Sprintf("o%d", n),
		OrderID:       fmt.Sprintf("ORD-%d", n),
		CustomerInfo:  req.CustomerInfo,
		Items:         req.Items,
		Total:         req.Total,
		PaymentMethod: req.PaymentMethod,
		Status:        shop.StatusPending,
		Date:          "2026-10-16",
	}
	f.orders = append(f.orders, o)
	writeJSON(w, http.StatusCreated, shop.OrderReceipt{OrderID: o.OrderID, Date: o.Date, Total: o.Total})
}

func (f *fakeREST) orderCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}
