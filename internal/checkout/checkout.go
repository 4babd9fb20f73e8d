// Package checkout turns a session's cart into a submitted order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/shop"
)

var (
	ErrEmptyCart             = errors.New("checkout: cart is empty")
	ErrInvalidCustomer       = errors.New("checkout: customer info incomplete")
	ErrOrderSubmissionFailed = errors.New("checkout: order submission failed")
)

// Cart is the part of *cart.Store checkout reads and clears.
type Cart interface {
	Items() []shop.LineItem
	Len() int
	Total() decimal.Decimal
	Clear(ctx context.Context) error
}

type Catalog interface {
	FindByID(id string) (shop.Product, error)
}

// OrderCreator performs the single POST /orders round trip.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req shop.OrderRequest, idempotencyKey string) (shop.OrderReceipt, error)
}

// Publisher announces placed orders. Failures never undo an order.
type Publisher interface {
	OrderPlaced(ctx context.Context, receipt shop.OrderReceipt, req shop.OrderRequest) error
}

type Orchestrator struct {
	orders   OrderCreator
	catalog  Catalog
	events   Publisher
	validate *validator.Validate
	log      *zap.Logger
	newKey   func() string
}

type Option func(*Orchestrator)

// WithPublisher enables OrderPlaced events.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.events = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = logging.OrNop(l) }
}

func New(orders OrderCreator, cat Catalog, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		orders:   orders,
		catalog:  cat,
		validate: validator.New(),
		log:      zap.NewNop(),
		newKey:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit sends the cart as one order. The cart is cleared only after the
// backend confirms with an order id; on any failure it is left untouched.
// There is no retry.
func (o *Orchestrator) Submit(ctx context.Context, c Cart, customer shop.CustomerInfo, payment shop.PaymentMethod) (shop.OrderReceipt, error) {
	if c.Len() == 0 {
		return shop.OrderReceipt{}, ErrEmptyCart
	}
	if err := o.validate.Struct(customer.Trimmed()); err != nil {
		return shop.OrderReceipt{}, fmt.Errorf("%w: %s", ErrInvalidCustomer, missingFields(err))
	}

	items := c.Items()
	if err := o.revalidate(items); err != nil {
		return shop.OrderReceipt{}, err
	}

	req := shop.OrderRequest{
		CustomerInfo:  customer,
		Items:         toOrderItems(items),
		Total:         c.Total(),
		PaymentMethod: payment,
	}

	key := o.newKey()
	log := o.log.With(zap.String("idempotency_key", key))

	receipt, err := o.orders.CreateOrder(ctx, req, key)
	if err != nil {
		log.Warn("order submission failed", zap.Error(err))
		return shop.OrderReceipt{}, fmt.Errorf("%w: %w", ErrOrderSubmissionFailed, err)
	}
	if strings.TrimSpace(receipt.OrderID) == "" {
		log.Warn("order submission returned no order id")
		return shop.OrderReceipt{}, fmt.Errorf("%w: backend returned no order id", ErrOrderSubmissionFailed)
	}
	if receipt.Total.IsZero() {
		receipt.Total = req.Total
	}

	if err := c.Clear(ctx); err != nil {
		// The order exists; the stale cart is the lesser problem.
		log.Error("clear cart after order failed", zap.String("order_id", receipt.OrderID), zap.Error(err))
	}

	log.Info("order placed",
		zap.String("order_id", receipt.OrderID),
		zap.String("total", req.Total.String()),
		zap.Int("lines", len(req.Items)))

	if o.events != nil {
		if err := o.events.OrderPlaced(ctx, receipt, req); err != nil {
			log.Warn("publish order placed failed", zap.String("order_id", receipt.OrderID), zap.Error(err))
		}
	}
	return receipt, nil
}

// revalidate checks each line against the cached product. Lines whose
// product is no longer cached go through as they are.
func (o *Orchestrator) revalidate(items []shop.LineItem) error {
	if o.catalog == nil {
		return nil
	}
	for _, it := range items {
		p, err := o.catalog.FindByID(it.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if it.Quantity > p.Stock {
			return fmt.Errorf("%w: %s has %d left, cart holds %d", cart.ErrOutOfStock, it.Name, p.Stock, it.Quantity)
		}
	}
	return nil
}

func toOrderItems(items []shop.LineItem) []shop.OrderItem {
	out := make([]shop.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, shop.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.UnitPrice,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
		})
	}
	return out
}

func missingFields(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, strings.ToLower(fe.Field()))
	}
	return strings.Join(names, ", ")
}
