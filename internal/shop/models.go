package shop

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// The REST backend and the persisted cart both carry prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID          string           `json:"_id,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"salePrice,omitempty"`
	Stock       int              `json:"stock"`
	Images      []string         `json:"images,omitempty"`
	Sizes       []string         `json:"sizes,omitempty"`
	Colors      []string         `json:"colors,omitempty"`
}

// UnmarshalJSON accepts both `_id` and `id`, and the legacy single `image_url`.
func (p *Product) UnmarshalJSON(b []byte) error {
	type plain Product
	var aux struct {
		plain
		AltID    string `json:"id"`
		ImageURL string `json:"image_url"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = Product(aux.plain)
	if p.ID == "" {
		p.ID = aux.AltID
	}
	if len(p.Images) == 0 && strings.TrimSpace(aux.ImageURL) != "" {
		p.Images = []string{strings.TrimSpace(aux.ImageURL)}
	}
	return nil
}

// OnSale reports whether a non-zero sale price is set below the list price.
// A zero sale price means "no sale"; a negative one from older backend data
// still counts.
func (p Product) OnSale() bool {
	return p.SalePrice != nil && !p.SalePrice.IsZero() && p.SalePrice.LessThan(p.Price)
}

// EffectivePrice is the unit price a cart captures when the product is added.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.OnSale() {
		return *p.SalePrice
	}
	return p.Price
}

func (p Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

func (p Product) InStock() bool { return p.Stock > 0 }

func (p Product) HasSize(size string) bool { return contains(p.Sizes, size) }

func (p Product) HasColor(color string) bool { return contains(p.Colors, color) }

func contains(set []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Key identifies a cart line: the same product in the same size and color is one line.
type Key struct {
	ProductID string
	Size      string
	Color     string
}

type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	ImageURL  string          `json:"image_url"`
}

func (li LineItem) Key() Key {
	return Key{ProductID: li.ProductID, Size: li.Size, Color: li.Color}
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type CustomerInfo struct {
	Name        string `json:"name" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
	Governorate string `json:"governorate" validate:"required"`
	Address     string `json:"address" validate:"required"`
	Notes       string `json:"notes"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (c CustomerInfo) Trimmed() CustomerInfo {
	return CustomerInfo{
		Name:        strings.TrimSpace(c.Name),
		Phone:       strings.TrimSpace(c.Phone),
		Governorate: strings.TrimSpace(c.Governorate),
		Address:     strings.TrimSpace(c.Address),
		Notes:       strings.TrimSpace(c.Notes),
	}
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentInstaPay       PaymentMethod = "instapay"
)

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	CustomerInfo  CustomerInfo    `json:"customer_info"`
	Items         []OrderItem     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

// OrderReceipt is what the backend returns for a created order.
type OrderReceipt struct {
	OrderID string          `json:"order_id"`
	Date    string          `json:"date,omitempty"`
	Total   decimal.Decimal `json:"total"`
}

// Order is the admin view of a stored order.
type Order struct {
	ID            string          `json:"_id"`
	OrderID       string          `json:"order_id"`
	CustomerInfo  CustomerInfo    `json:"customer_info"`
	Items         []OrderItem     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        Status          `json:"status"`
	Date          string          `json:"date,omitempty"`
}

// Ref is the identifier used in /orders/{id}.
func (o Order) Ref() string {
	if o.ID != "" {
		return o.ID
	}
	return o.OrderID
}

type Settings struct {
	WhatsAppNumber string `json:"whatsapp_number,omitempty"`
	FacebookURL    string `json:"facebook_url,omitempty"`
	InstagramURL   string `json:"instagram_url,omitempty"`
	HeroTitle      string `json:"hero_title,omitempty"`
	HeroSubtitle   string `json:"hero_subtitle,omitempty"`
	HeroColor      string `json:"hero_color,omitempty"`
}
