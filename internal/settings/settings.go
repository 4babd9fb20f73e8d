// Package settings caches the storefront settings served by the backend.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/shop"
)

var ErrLoadFailed = errors.New("settings: load failed")

const (
	DefaultHeroTitle    = "Premium Men's Accessories"
	DefaultHeroSubtitle = "Rings, Bracelets & Wallets"
	DefaultHeroColor    = "#667eea"
)

type Source interface {
	GetSettings(ctx context.Context) (shop.Settings, error)
}

type Cache struct {
	src Source
	log *zap.Logger

	mu     sync.RWMutex
	cur    shop.Settings
	loaded bool
}

func New(src Source, log *zap.Logger) *Cache {
	return &Cache{src: src, log: logging.OrNop(log)}
}

// Load fetches the settings. A failure keeps whatever was loaded before.
func (c *Cache) Load(ctx context.Context) error {
	s, err := c.src.GetSettings(ctx)
	if err != nil {
		c.log.Warn("settings load failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	c.Set(s)
	return nil
}

// Set replaces the cached settings, e.g. after an admin save.
func (c *Cache) Set(s shop.Settings) {
	c.mu.Lock()
	c.cur = s
	c.loaded = true
	c.mu.Unlock()
}

func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Current returns the settings with hero defaults filled in.
func (c *Cache) Current() shop.Settings {
	c.mu.RLock()
	s := c.cur
	c.mu.RUnlock()
	return WithDefaults(s)
}

// WhatsAppLink is the wa.me chat link for the store number, or "" when none is set.
func (c *Cache) WhatsAppLink() string {
	return WhatsAppLink(c.Current().WhatsAppNumber)
}

func WithDefaults(s shop.Settings) shop.Settings {
	if strings.TrimSpace(s.HeroTitle) == "" {
		s.HeroTitle = DefaultHeroTitle
	}
	if strings.TrimSpace(s.HeroSubtitle) == "" {
		s.HeroSubtitle = DefaultHeroSubtitle
	}
	if strings.TrimSpace(s.HeroColor) == "" {
		s.HeroColor = DefaultHeroColor
	}
	return s
}

// WhatsAppLink keeps only the digits of number.
func WhatsAppLink(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	return "https://wa.me/" + digits
}
