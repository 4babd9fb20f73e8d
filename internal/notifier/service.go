// Package notifier follows up on placed orders: one WhatsApp chat link per
// order, logged for the shop staff.
package notifier

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/settings"
	"github.com/ariefcatur/go-storefront/internal/shop"
)

type Service struct {
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// HandleOrderPlaced is the consumer handler for storefront.order.placed.
// Redelivered events are recognised by event id and skipped. Malformed events
// are logged and dropped; only a failed dedup check is returned, so the
// consumer retries the event until Redis answers.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	log := logging.OrNop(s.Log)

	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		log.Warn("malformed event dropped", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != shop.EventOrderPlaced {
		return nil
	}
	p, err := kafkax.UnwrapPayload[shop.OrderPlacedPayload](env.Payload)
	if err != nil {
		log.Warn("malformed payload dropped", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	first, err := redisx.MarkOnce(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if !first {
		log.Debug("duplicate event skipped", zap.String("event_id", env.EventID))
		return nil
	}

	log.Info("order follow-up",
		zap.String("order_id", p.OrderID),
		zap.String("customer", p.CustomerName),
		zap.String("governorate", p.Governorate),
		zap.String("total", p.Total.String()),
		zap.String("payment_method", string(p.PaymentMethod)),
		zap.Int("items", p.ItemCount),
		zap.String("whatsapp", settings.WhatsAppLink(p.CustomerPhone)),
		zap.String("trace_id", env.TraceID),
	)
	return nil
}
