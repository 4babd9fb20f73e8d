package admin

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/shop"
	"github.com/ariefcatur/go-storefront/internal/state"
)

type fakeBackend struct {
	password string
	loginErr error

	products []shop.Product
	orders   []shop.Order

	created  []shop.Product
	updated  map[string]shop.Product
	deleted  []string
	statuses map[string]shop.Status
	settings *shop.Settings
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		password: "secret",
		updated:  map[string]shop.Product{},
		statuses: map[string]shop.Status{},
	}
}

func (f *fakeBackend) AdminLogin(_ context.Context, pw string) (bool, error) {
	if f.loginErr != nil {
		return false, f.loginErr
	}
	return pw == f.password, nil
}

func (f *fakeBackend) ListProducts(context.Context) ([]shop.Product, error) { return f.products, nil }

func (f *fakeBackend) CreateProduct(_ context.Context, p shop.Product) error {
	f.created = append(f.created, p)
	return nil
}

func (f *fakeBackend) UpdateProduct(_ context.Context, id string, p shop.Product) error {
	f.updated[id] = p
	return nil
}

func (f *fakeBackend) DeleteProduct(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) ListOrders(context.Context) ([]shop.Order, error) { return f.orders, nil }

func (f *fakeBackend) UpdateOrderStatus(_ context.Context, id string, s shop.Status) error {
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Status = s
			f.statuses[id] = s
			return nil
		}
	}
	return &backend.StatusError{Op: "update order status", Code: http.StatusNotFound}
}

func (f *fakeBackend) SaveSettings(_ context.Context, s shop.Settings) error {
	f.settings = &s
	return nil
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	c := New(be, nil)
	st := state.Scoped(state.NewMemory(), "s1")

	assert.False(t, c.Authenticated(ctx, st))
	assert.ErrorIs(t, c.Login(ctx, st, "nope"), ErrUnauthorized)
	assert.False(t, c.Authenticated(ctx, st))

	require.NoError(t, c.Login(ctx, st, "secret"))
	assert.True(t, c.Authenticated(ctx, st))

	other := state.Scoped(state.NewMemory(), "s2")
	assert.False(t, c.Authenticated(ctx, other))

	require.NoError(t, c.Logout(ctx, st))
	assert.False(t, c.Authenticated(ctx, st))

	be.loginErr = errors.New("backend down")
	err := c.Login(ctx, st, "secret")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestSaveProduct_NormalisesForm(t *testing.T) {
	be := newFakeBackend()
	c := New(be, nil)
	sale := decimal.NewFromInt(90)

	p, err := c.SaveProduct(context.Background(), "", ProductInput{
		Name:      "  Steel Ring ",
		Price:     decimal.NewFromInt(120),
		SalePrice: &sale,
		Stock:     3,
		Images:    []string{" a.jpg ", "", "  "},
		Sizes:     "S, M ,, L",
		Colors:    []string{" black", ""},
	})
	require.NoError(t, err)
	require.Len(t, be.created, 1)
	assert.Equal(t, "Steel Ring", p.Name)
	assert.Equal(t, []string{"a.jpg"}, be.created[0].Images)
	assert.Equal(t, []string{"S", "M", "L"}, be.created[0].Sizes)
	assert.Equal(t, []string{"black"}, be.created[0].Colors)
	require.NotNil(t, be.created[0].SalePrice)
	assert.True(t, be.created[0].SalePrice.Equal(sale))
}

func TestSaveProduct_UpdateAndZeroSale(t *testing.T) {
	be := newFakeBackend()
	c := New(be, nil)
	zero := decimal.Zero

	p, err := c.SaveProduct(context.Background(), "p7", ProductInput{
		Name: "Wallet", Price: decimal.NewFromInt(300), SalePrice: &zero, Images: []string{"w.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "p7", p.ID)
	assert.Nil(t, be.updated["p7"].SalePrice)
	assert.Empty(t, be.created)
}

func TestSaveProduct_Rejects(t *testing.T) {
	neg := decimal.NewFromInt(-1)
	cases := map[string]ProductInput{
		"no name":        {Name: " ", Price: decimal.NewFromInt(1), Images: []string{"a"}},
		"no image":       {Name: "x", Price: decimal.NewFromInt(1), Images: []string{"  "}},
		"negative stock": {Name: "x", Price: decimal.NewFromInt(1), Stock: -2, Images: []string{"a"}},
		"negative price": {Name: "x", Price: neg, Images: []string{"a"}},
		"negative sale":  {Name: "x", Price: decimal.NewFromInt(1), SalePrice: &neg, Images: []string{"a"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			be := newFakeBackend()
			_, err := New(be, nil).SaveProduct(context.Background(), "", in)
			assert.ErrorIs(t, err, ErrInvalidProduct)
			assert.Empty(t, be.created)
		})
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	be.orders = []shop.Order{
		{ID: "o1", OrderID: "ORD-1", Status: shop.StatusPending},
		{ID: "o2", OrderID: "ORD-2", Status: shop.StatusDelivered},
	}
	c := New(be, nil)

	require.NoError(t, c.UpdateOrderStatus(ctx, "o1", shop.StatusConfirmed))
	assert.Equal(t, shop.StatusConfirmed, be.statuses["o1"])

	assert.ErrorIs(t, c.UpdateOrderStatus(ctx, "o1", shop.Status("Lost")), ErrInvalidStatus)
	assert.ErrorIs(t, c.UpdateOrderStatus(ctx, "o9", shop.StatusShipped), ErrOrderNotFound)
	assert.ErrorIs(t, c.UpdateOrderStatus(ctx, " ", shop.StatusShipped), ErrOrderNotFound)
}

func TestUpdateOrderStatus_CorrectsAnyDirection(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	be.orders = []shop.Order{{ID: "o1", Status: shop.StatusPending}}
	c := New(be, nil)

	for _, tc := range []struct{ from, to shop.Status }{
		{shop.StatusCancelled, shop.StatusPending},
		{shop.StatusShipped, shop.StatusConfirmed},
		{shop.StatusPending, shop.StatusDelivered},
		{shop.StatusDelivered, shop.StatusDelivered},
	} {
		be.orders[0].Status = tc.from
		delete(be.statuses, "o1")
		require.NoError(t, c.UpdateOrderStatus(ctx, "o1", tc.to), "%s -> %s", tc.from, tc.to)
		assert.Equal(t, tc.to, be.statuses["o1"], "%s -> %s sent", tc.from, tc.to)
	}
}

func TestDashboard(t *testing.T) {
	be := newFakeBackend()
	be.products = []shop.Product{{ID: "a", Stock: 2}, {ID: "b", Stock: 0}, {ID: "c", Stock: 1}}
	for i, s := range []shop.Status{
		shop.StatusPending, shop.StatusShipped, shop.StatusPending,
		shop.StatusCancelled, shop.StatusPending, shop.StatusDelivered, shop.StatusConfirmed,
	} {
		be.orders = append(be.orders, shop.Order{OrderID: string(rune('A' + i)), Status: s})
	}

	d, err := New(be, nil).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, d.TotalProducts)
	assert.Equal(t, 7, d.TotalOrders)
	assert.Equal(t, 3, d.PendingOrders)
	assert.Equal(t, 2, d.InStockProducts)
	require.Len(t, d.RecentOrders, 5)
	assert.Equal(t, "A", d.RecentOrders[0].OrderID)
	assert.Equal(t, "E", d.RecentOrders[4].OrderID)
}

func TestSaveSettingsAndDelete(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	c := New(be, nil)

	require.NoError(t, c.SaveSettings(ctx, shop.Settings{WhatsAppNumber: " +20 1 ", HeroColor: "#111111 "}))
	require.NotNil(t, be.settings)
	assert.Equal(t, "+20 1", be.settings.WhatsAppNumber)
	assert.Equal(t, "#111111", be.settings.HeroColor)

	require.NoError(t, c.DeleteProduct(ctx, "p3"))
	assert.Equal(t, []string{"p3"}, be.deleted)
}
