// Package catalog holds the product list fetched from the backend.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/shop"
)

var (
	ErrLoadFailed = errors.New("catalog: load failed")
	ErrNotFound   = errors.New("catalog: product not found")
)

// Source lists every product; *backend.Client satisfies it.
type Source interface {
	ListProducts(ctx context.Context) ([]shop.Product, error)
}

// Cache is a read-through snapshot of the catalog. It never invalidates on
// its own: a new snapshot replaces the old one only after a successful Load.
type Cache struct {
	src Source
	log *zap.Logger
	now func() time.Time
	sfg singleflight.Group

	mu       sync.RWMutex
	products []shop.Product
	byID     map[string]int
	loadedAt time.Time
}

func New(src Source, log *zap.Logger) *Cache {
	return &Cache{src: src, log: logging.OrNop(log), now: time.Now}
}

// Load fetches the full catalog. On failure the previous snapshot stays in
// place and ErrLoadFailed is returned. Concurrent calls share one fetch.
func (c *Cache) Load(ctx context.Context) error {
	_, err, _ := c.sfg.Do("products", func() (interface{}, error) {
		products, err := c.src.ListProducts(ctx)
		if err != nil {
			c.log.Warn("catalog load failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}

		byID := make(map[string]int, len(products))
		for i, p := range products {
			byID[p.ID] = i
		}

		c.mu.Lock()
		c.products = products
		c.byID = byID
		c.loadedAt = c.now()
		c.mu.Unlock()

		c.log.Info("catalog loaded", zap.Int("products", len(products)))
		return nil, nil
	})
	return err
}

func (c *Cache) FindByID(id string) (shop.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return shop.Product{}, ErrNotFound
	}
	return c.products[i], nil
}

// All returns a copy of the snapshot in backend order.
func (c *Cache) All() []shop.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]shop.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Search filters by case-insensitive name substring. An empty query returns everything.
func (c *Cache) Search(query string) []shop.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.All()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]shop.Product, 0)
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// LoadedAt is the time of the last successful load, zero if none.
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
