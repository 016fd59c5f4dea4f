package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/obiagwu/vendara-backend/pkg/enums"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/logger"
	"github.com/obiagwu/vendara-backend/pkg/metrics"
	"github.com/obiagwu/vendara-backend/pkg/outbox"
	"github.com/obiagwu/vendara-backend/pkg/outbox/idempotency"
	"github.com/obiagwu/vendara-backend/pkg/outbox/payloads"
)

const routingConsumer = "order-routing"

// Consumer watches order.created events and routes new orders to warehouses
// and vendor dashboards.
type Consumer struct {
	svc          Service
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	metrics      *metrics.ConsumerMetrics
	logg         *logger.Logger
}

// NewConsumer builds the routing consumer.
func NewConsumer(svc Service, subscription *pubsub.Subscriber, manager *idempotency.Manager, consumerMetrics *metrics.ConsumerMetrics, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("warehouse service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("routing subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:          svc,
		subscription: subscription,
		idempotency:  manager,
		metrics:      consumerMetrics,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderCreated) {
		c.metrics.IncSkipped(routingConsumer, eventType)
		return true
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		c.metrics.IncSkipped(routingConsumer, eventType)
		return true
	}

	if _, err := uuid.Parse(envelope.EventID); err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		c.metrics.IncSkipped(routingConsumer, eventType)
		return true
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, routingConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		c.metrics.IncFailed(routingConsumer, eventType)
		return false
	}
	if already {
		c.metrics.IncSkipped(routingConsumer, eventType)
		return true
	}

	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, routingConsumer, envelope.EventID)
		return false
	}

	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID.String())

	start := time.Now()
	if err := c.svc.AddOrderToWarehouse(ctx, payload.OrderID); err != nil {
		c.logg.Error(logCtx, "order routing failed", err)
		c.metrics.IncFailed(routingConsumer, eventType)
		if pkgerrors.IsRetryable(err) {
			_ = c.idempotency.Delete(ctx, routingConsumer, envelope.EventID)
			return false
		}
		return true
	}
	c.metrics.ObserveDuration(routingConsumer, eventType, time.Since(start))
	c.metrics.IncHandled(routingConsumer, eventType)
	c.logg.Info(logCtx, "order routed to warehouse")
	return true
}
