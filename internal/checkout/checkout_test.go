package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/shop"
	"github.com/ariefcatur/go-storefront/internal/state"
)

type fakeOrders struct {
	calls   int
	lastReq shop.OrderRequest
	lastKey string
	receipt shop.OrderReceipt
	err     error
}

func (f *fakeOrders) CreateOrder(_ context.Context, req shop.OrderRequest, key string) (shop.OrderReceipt, error) {
	f.calls++
	f.lastReq = req
	f.lastKey = key
	return f.receipt, f.err
}

type fakeCatalog map[string]shop.Product

func (f fakeCatalog) FindByID(id string) (shop.Product, error) {
	p, ok := f[id]
	if !ok {
		return shop.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

type fakePublisher struct {
	published []shop.OrderReceipt
	err       error
}

func (f *fakePublisher) OrderPlaced(_ context.Context, r shop.OrderReceipt, _ shop.OrderRequest) error {
	f.published = append(f.published, r)
	return f.err
}

var customer = shop.CustomerInfo{Name: "Omar", Phone: "01000000000", Governorate: "Giza", Address: "12 Nile St"}

func ring() shop.Product {
	return shop.Product{ID: "p1", Name: "Ring", Price: decimal.NewFromInt(100), Stock: 5, Images: []string{"r.jpg"}}
}

func filledCart(t *testing.T) *cart.Store {
	t.Helper()
	c := cart.New(state.Scoped(state.NewMemory(), "s1"), nil)
	require.NoError(t, c.Add(context.Background(), ring(), 2, "", ""))
	return c
}

func TestSubmit_Success(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrders{receipt: shop.OrderReceipt{OrderID: "ORD-1", Date: "2026-10-16"}}
	pub := &fakePublisher{}
	o := New(orders, fakeCatalog{"p1": ring()}, WithPublisher(pub))
	o.newKey = func() string { return "k-1" }
	c := filledCart(t)

	receipt, err := o.Submit(ctx, c, customer, shop.PaymentInstaPay)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", receipt.OrderID)
	assert.True(t, receipt.Total.Equal(decimal.NewFromInt(200)))

	assert.Equal(t, 1, orders.calls)
	assert.Equal(t, "k-1", orders.lastKey)
	assert.Equal(t, customer, orders.lastReq.CustomerInfo)
	assert.Equal(t, shop.PaymentInstaPay, orders.lastReq.PaymentMethod)
	assert.True(t, orders.lastReq.Total.Equal(decimal.NewFromInt(200)))
	require.Len(t, orders.lastReq.Items, 1)
	assert.Equal(t, shop.OrderItem{ProductID: "p1", Name: "Ring", Price: decimal.NewFromInt(100), Quantity: 2}, orders.lastReq.Items[0])

	assert.Equal(t, 0, c.Len())
	assert.True(t, c.Total().IsZero())
	require.Len(t, pub.published, 1)
	assert.Equal(t, "ORD-1", pub.published[0].OrderID)
}

func TestSubmit_NetworkFailureKeepsCart(t *testing.T) {
	orders := &fakeOrders{err: errors.New("connection refused")}
	pub := &fakePublisher{}
	o := New(orders, fakeCatalog{}, WithPublisher(pub))
	c := filledCart(t)

	receipt, err := o.Submit(context.Background(), c, customer, shop.PaymentCashOnDelivery)
	assert.ErrorIs(t, err, ErrOrderSubmissionFailed)
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, receipt.OrderID)
	assert.Equal(t, 1, orders.calls)
	assert.Equal(t, 2, c.ItemCount())
	assert.Empty(t, pub.published)
}

func TestSubmit_EmptyOrderIDIsFailure(t *testing.T) {
	orders := &fakeOrders{receipt: shop.OrderReceipt{}}
	o := New(orders, nil)
	c := filledCart(t)

	_, err := o.Submit(context.Background(), c, customer, shop.PaymentCashOnDelivery)
	assert.ErrorIs(t, err, ErrOrderSubmissionFailed)
	assert.Equal(t, 1, c.Len())
}

func TestSubmit_Preconditions(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrders{receipt: shop.OrderReceipt{OrderID: "x"}}
	o := New(orders, nil)

	empty := cart.New(state.Scoped(state.NewMemory(), "s1"), nil)
	_, err := o.Submit(ctx, empty, customer, shop.PaymentCashOnDelivery)
	assert.ErrorIs(t, err, ErrEmptyCart)

	bad := customer
	bad.Address = "   "
	bad.Phone = ""
	_, err = o.Submit(ctx, filledCart(t), bad, shop.PaymentCashOnDelivery)
	assert.ErrorIs(t, err, ErrInvalidCustomer)
	assert.ErrorContains(t, err, "phone")
	assert.ErrorContains(t, err, "address")

	assert.Zero(t, orders.calls)
}

func TestSubmit_StockRevalidation(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrders{receipt: shop.OrderReceipt{OrderID: "ORD-2"}}
	low := ring()
	low.Stock = 1
	c := filledCart(t)

	_, err := New(orders, fakeCatalog{"p1": low}).Submit(ctx, c, customer, shop.PaymentCashOnDelivery)
	assert.ErrorIs(t, err, cart.ErrOutOfStock)
	assert.Zero(t, orders.calls)
	assert.Equal(t, 1, c.Len())

	// product gone from the catalog: submitted as-is
	_, err = New(orders, fakeCatalog{}).Submit(ctx, c, customer, shop.PaymentCashOnDelivery)
	require.NoError(t, err)
	assert.Equal(t, 1, orders.calls)
}

func TestSubmit_PublishFailureDoesNotFailOrder(t *testing.T) {
	orders := &fakeOrders{receipt: shop.OrderReceipt{OrderID: "ORD-3"}}
	o := New(orders, nil, WithPublisher(&fakePublisher{err: errors.New("kafka down")}))
	c := filledCart(t)

	receipt, err := o.Submit(context.Background(), c, customer, shop.PaymentCashOnDelivery)
	require.NoError(t, err)
	assert.Equal(t, "ORD-3", receipt.OrderID)
	assert.Equal(t, 0, c.Len())
}

func TestSubmit_FreshKeyPerCall(t *testing.T) {
	orders := &fakeOrders{err: errors.New("timeout")}
	o := New(orders, nil)
	c := filledCart(t)

	_, _ = o.Submit(context.Background(), c, customer, shop.PaymentCashOnDelivery)
	first := orders.lastKey
	_, _ = o.Submit(context.Background(), c, customer, shop.PaymentCashOnDelivery)
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, orders.lastKey)
}
