package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-storefront/internal/shop"
)

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"

	orderPlacedVersion = 1
)

type publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// Emitter wraps storefront events in envelopes and publishes them.
type Emitter struct {
	p       publisher
	service string
	now     func() time.Time
	newID   func() string
}

func NewEmitter(p *Producer, service string) *Emitter {
	return newEmitter(p, service)
}

func newEmitter(p publisher, service string) *Emitter {
	return &Emitter{p: p, service: service, now: time.Now, newID: uuid.NewString}
}

// OrderPlaced publishes the confirmed order keyed by its order id. The
// request id of ctx, if any, becomes the trace id.
func (e *Emitter) OrderPlaced(ctx context.Context, receipt shop.OrderReceipt, req shop.OrderRequest) error {
	count := 0
	for _, it := range req.Items {
		count += it.Quantity
	}
	payload := shop.OrderPlacedPayload{
		OrderID:       receipt.OrderID,
		Date:          receipt.Date,
		Total:         req.Total,
		PaymentMethod: req.PaymentMethod,
		ItemCount:     count,
		CustomerName:  req.CustomerInfo.Name,
		CustomerPhone: req.CustomerInfo.Phone,
		Governorate:   req.CustomerInfo.Governorate,
	}
	env := shop.Envelope{
		EventID:       e.newID(),
		EventType:     shop.EventOrderPlaced,
		EventVersion:  orderPlacedVersion,
		OccurredAt:    e.now().UTC(),
		Producer:      e.service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: receipt.OrderID,
		Payload:       MustMarshal(payload),
	}
	return e.p.Publish(ctx, shop.PartitionKey(receipt.OrderID), MustMarshal(env),
		kafka.Header{Key: HeaderEventType, Value: []byte(shop.EventOrderPlaced)},
		kafka.Header{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(orderPlacedVersion))},
	)
}
