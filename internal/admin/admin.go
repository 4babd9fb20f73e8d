// Package admin is the management side of the storefront: products, orders
// and settings, behind a per-session login flag.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/shop"
	"github.com/ariefcatur/go-storefront/internal/state"
)

var (
	ErrUnauthorized   = errors.New("admin: not authenticated")
	ErrInvalidProduct = errors.New("admin: invalid product")
	ErrInvalidStatus  = errors.New("admin: invalid status change")
	ErrOrderNotFound  = errors.New("admin: order not found")
)

const recentOrders = 5

type Backend interface {
	AdminLogin(ctx context.Context, password string) (bool, error)
	ListProducts(ctx context.Context) ([]shop.Product, error)
	CreateProduct(ctx context.Context, p shop.Product) error
	UpdateProduct(ctx context.Context, id string, p shop.Product) error
	DeleteProduct(ctx context.Context, id string) error
	ListOrders(ctx context.Context) ([]shop.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status shop.Status) error
	SaveSettings(ctx context.Context, s shop.Settings) error
}

type Console struct {
	be       Backend
	log      *zap.Logger
	validate *validator.Validate
}

func New(be Backend, log *zap.Logger) *Console {
	return &Console{be: be, log: logging.OrNop(log), validate: validator.New()}
}

// Login checks password with the backend and, on success, flags the session.
// A wrong password returns ErrUnauthorized.
func (c *Console) Login(ctx context.Context, st state.Store, password string) error {
	ok, err := c.be.AdminLogin(ctx, password)
	if err != nil {
		return fmt.Errorf("admin login: %w", err)
	}
	if !ok {
		c.log.Info("admin login rejected")
		return ErrUnauthorized
	}
	if err := st.Set(ctx, state.KeyAdmin, []byte("true")); err != nil {
		return fmt.Errorf("admin login: store flag: %w", err)
	}
	c.log.Info("admin login")
	return nil
}

func (c *Console) Logout(ctx context.Context, st state.Store) error {
	return st.Delete(ctx, state.KeyAdmin)
}

// Authenticated reports whether the session carries the login flag.
// Read errors count as logged out.
func (c *Console) Authenticated(ctx context.Context, st state.Store) bool {
	v, err := st.Get(ctx, state.KeyAdmin)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			c.log.Warn("read admin flag failed", zap.Error(err))
		}
		return false
	}
	return string(v) == "true"
}

// ProductInput is the product form. Sizes arrive comma separated.
type ProductInput struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"salePrice"`
	Stock       int              `json:"stock" validate:"gte=0"`
	Images      []string         `json:"images" validate:"min=1"`
	Sizes       string           `json:"sizes"`
	Colors      []string         `json:"colors"`
}

// Normalize trims the form and turns it into a product.
func (in ProductInput) Normalize() shop.Product {
	p := shop.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Stock:       in.Stock,
		Images:      nonEmpty(in.Images),
		Sizes:       nonEmpty(strings.Split(in.Sizes, ",")),
		Colors:      nonEmpty(in.Colors),
	}
	if in.SalePrice != nil && !in.SalePrice.IsZero() {
		sp := *in.SalePrice
		p.SalePrice = &sp
	}
	return p
}

// SaveProduct creates the product when id is empty and updates it otherwise.
func (c *Console) SaveProduct(ctx context.Context, id string, in ProductInput) (shop.Product, error) {
	p := in.Normalize()

	check := in
	check.Name = p.Name
	check.Images = p.Images
	if err := c.validate.Struct(check); err != nil {
		return shop.Product{}, fmt.Errorf("%w: %s", ErrInvalidProduct, fieldList(err))
	}
	if p.Price.IsNegative() {
		return shop.Product{}, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if p.SalePrice != nil && p.SalePrice.IsNegative() {
		return shop.Product{}, fmt.Errorf("%w: sale price must not be negative", ErrInvalidProduct)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		if err := c.be.CreateProduct(ctx, p); err != nil {
			return shop.Product{}, err
		}
		c.log.Info("product created", zap.String("name", p.Name))
		return p, nil
	}
	if err := c.be.UpdateProduct(ctx, id, p); err != nil {
		return shop.Product{}, err
	}
	p.ID = id
	c.log.Info("product updated", zap.String("product_id", id))
	return p, nil
}

func (c *Console) DeleteProduct(ctx context.Context, id string) error {
	if err := c.be.DeleteProduct(ctx, id); err != nil {
		return err
	}
	c.log.Info("product deleted", zap.String("product_id", id))
	return nil
}

func (c *Console) ListOrders(ctx context.Context) ([]shop.Order, error) {
	return c.be.ListOrders(ctx)
}

// UpdateOrderStatus sets the order's status to any known status, whatever
// it was before. id is the backend order id used in /orders/{id}.
func (c *Console) UpdateOrderStatus(ctx context.Context, id string, status shop.Status) error {
	if !status.Known() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, status)
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty id", ErrOrderNotFound)
	}
	if err := c.be.UpdateOrderStatus(ctx, id, status); err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return fmt.Errorf("%w: %s: %w", ErrOrderNotFound, id, err)
		}
		return err
	}
	c.log.Info("order status updated", zap.String("id", id), zap.String("status", string(status)))
	return nil
}

func (c *Console) SaveSettings(ctx context.Context, s shop.Settings) error {
	s.WhatsAppNumber = strings.TrimSpace(s.WhatsAppNumber)
	s.FacebookURL = strings.TrimSpace(s.FacebookURL)
	s.InstagramURL = strings.TrimSpace(s.InstagramURL)
	s.HeroTitle = strings.TrimSpace(s.HeroTitle)
	s.HeroSubtitle = strings.TrimSpace(s.HeroSubtitle)
	s.HeroColor = strings.TrimSpace(s.HeroColor)
	return c.be.SaveSettings(ctx, s)
}

type Dashboard struct {
	TotalProducts   int          `json:"total_products"`
	TotalOrders     int          `json:"total_orders"`
	PendingOrders   int          `json:"pending_orders"`
	InStockProducts int          `json:"in_stock_products"`
	RecentOrders    []shop.Order `json:"recent_orders"`
}

// Dashboard computes the overview counters. Recent orders are the first
// five in backend order.
func (c *Console) Dashboard(ctx context.Context) (Dashboard, error) {
	products, err := c.be.ListProducts(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	orders, err := c.be.ListOrders(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{TotalProducts: len(products), TotalOrders: len(orders)}
	for _, p := range products {
		if p.InStock() {
			d.InStockProducts++
		}
	}
	for _, o := range orders {
		if o.Status == shop.StatusPending {
			d.PendingOrders++
		}
	}
	n := min(len(orders), recentOrders)
	d.RecentOrders = append([]shop.Order{}, orders[:n]...)
	return d, nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fieldList(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
