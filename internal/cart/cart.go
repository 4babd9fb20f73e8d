// Package cart owns a session's line items and their persisted mirror.
//
// Every mutation builds the next cart, writes it to the session state and
// only then swaps it in, so a failed write leaves the cart as it was.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/shop"
	"github.com/ariefcatur/go-storefront/internal/state"
)

var (
	ErrOutOfStock      = errors.New("cart: out of stock")
	ErrVariantRequired = errors.New("cart: size or color required")
	ErrIndexOutOfRange = errors.New("cart: index out of range")
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")
	ErrLineMismatch    = errors.New("cart: line holds a different product")
)

type Store struct {
	st    state.Store
	log   *zap.Logger
	items []shop.LineItem
}

// New returns an empty cart bound to st. Call Load to read the persisted one.
func New(st state.Store, log *zap.Logger) *Store {
	return &Store{st: st, log: logging.OrNop(log), items: []shop.LineItem{}}
}

// Load replaces the in-memory cart with the persisted one. Missing, unreadable
// or malformed data gives an empty cart.
func (s *Store) Load(ctx context.Context) {
	s.items = []shop.LineItem{}

	raw, err := s.st.Get(ctx, state.KeyCart)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			s.log.Warn("cart read failed, starting empty", zap.Error(err))
		}
		return
	}

	var items []shop.LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.Warn("cart data malformed, starting empty", zap.Error(err))
		return
	}
	for _, it := range items {
		if it.ProductID == "" || it.Quantity < 1 {
			s.log.Warn("cart data malformed, starting empty",
				zap.String("product_id", it.ProductID), zap.Int("quantity", it.Quantity))
			return
		}
	}
	if items != nil {
		s.items = items
	}
}

// Add puts quantity units of product into the cart. A line with the same
// product, size and color is incremented instead of duplicated; the merged
// quantity must still fit the stock.
func (s *Store) Add(ctx context.Context, p shop.Product, quantity int, size, color string) error {
	line, err := newLine(p, quantity, size, color)
	if err != nil {
		return err
	}

	next := s.Items()
	for i := range next {
		if next[i].Key() != line.Key() {
			continue
		}
		merged := next[i].Quantity + quantity
		if merged > p.Stock {
			return fmt.Errorf("%w: %d in cart plus %d exceeds stock %d", ErrOutOfStock, next[i].Quantity, quantity, p.Stock)
		}
		next[i].Quantity = merged
		return s.commit(ctx, next)
	}
	return s.commit(ctx, append(next, line))
}

// Replace is quick buy: the cart becomes exactly this one line.
func (s *Store) Replace(ctx context.Context, p shop.Product, quantity int, size, color string) error {
	line, err := newLine(p, quantity, size, color)
	if err != nil {
		return err
	}
	return s.commit(ctx, []shop.LineItem{line})
}

// SetQuantity overwrites the quantity of the line at index. p must be the
// line's product; its stock bounds the new quantity.
func (s *Store) SetQuantity(ctx context.Context, index int, p shop.Product, quantity int) error {
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if s.items[index].ProductID != p.ID {
		return fmt.Errorf("%w: line %d holds %s, not %s", ErrLineMismatch, index, s.items[index].ProductID, p.ID)
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if p.Stock <= 0 || quantity > p.Stock {
		return fmt.Errorf("%w: requested %d, stock %d", ErrOutOfStock, quantity, p.Stock)
	}

	next := s.Items()
	next[index].Quantity = quantity
	return s.commit(ctx, next)
}

func (s *Store) Remove(ctx context.Context, index int) error {
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	next := make([]shop.LineItem, 0, len(s.items)-1)
	next = append(next, s.items[:index]...)
	next = append(next, s.items[index+1:]...)
	return s.commit(ctx, next)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.commit(ctx, []shop.LineItem{})
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []shop.LineItem {
	out := make([]shop.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int { return len(s.items) }

func (s *Store) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// ItemCount is the number of units across all lines.
func (s *Store) ItemCount() int {
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s *Store) commit(ctx context.Context, next []shop.LineItem) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("cart: encode: %w", err)
	}
	if err := s.st.Set(ctx, state.KeyCart, raw); err != nil {
		return fmt.Errorf("cart: persist: %w", err)
	}
	s.items = next
	return nil
}

func newLine(p shop.Product, quantity int, size, color string) (shop.LineItem, error) {
	if quantity < 1 {
		return shop.LineItem{}, ErrInvalidQuantity
	}
	if !p.InStock() {
		return shop.LineItem{}, fmt.Errorf("%w: %s", ErrOutOfStock, p.ID)
	}
	if quantity > p.Stock {
		return shop.LineItem{}, fmt.Errorf("%w: requested %d, stock %d", ErrOutOfStock, quantity, p.Stock)
	}

	// Selections for a dimension the product does not have are dropped so
	// they cannot split one product into several lines.
	if len(p.Sizes) > 0 {
		if !p.HasSize(size) {
			return shop.LineItem{}, fmt.Errorf("%w: size", ErrVariantRequired)
		}
	} else {
		size = ""
	}
	if len(p.Colors) > 0 {
		if !p.HasColor(color) {
			return shop.LineItem{}, fmt.Errorf("%w: color", ErrVariantRequired)
		}
	} else {
		color = ""
	}

	return shop.LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.EffectivePrice(),
		Quantity:  quantity,
		Size:      size,
		Color:     color,
		ImageURL:  p.MainImage(),
	}, nil
}
