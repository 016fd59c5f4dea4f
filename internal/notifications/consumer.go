package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/obiagwu/vendara-backend/pkg/db/models"
	"github.com/obiagwu/vendara-backend/pkg/enums"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/logger"
	"github.com/obiagwu/vendara-backend/pkg/metrics"
	"github.com/obiagwu/vendara-backend/pkg/outbox"
	"github.com/obiagwu/vendara-backend/pkg/outbox/idempotency"
	"github.com/obiagwu/vendara-backend/pkg/outbox/payloads"
)

const paymentNotificationConsumer = "payment-notifications"

type orderReader interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

// Consumer watches payment.completed events and tells each vendor with items
// on the order that it has been paid.
type Consumer struct {
	svc          Service
	orders       orderReader
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	metrics      *metrics.ConsumerMetrics
	logg         *logger.Logger
}

// NewConsumer builds the payment notification consumer.
func NewConsumer(svc Service, orders orderReader, subscription *pubsub.Subscriber, manager *idempotency.Manager, consumerMetrics *metrics.ConsumerMetrics, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notification service required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:          svc,
		orders:       orders,
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

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventPaymentCompleted) {
		c.metrics.IncSkipped(paymentNotificationConsumer, eventType)
		return true
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		c.metrics.IncSkipped(paymentNotificationConsumer, eventType)
		return true
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		c.metrics.IncSkipped(paymentNotificationConsumer, eventType)
		return true
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, paymentNotificationConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		c.metrics.IncFailed(paymentNotificationConsumer, eventType)
		return false
	}
	if already {
		c.metrics.IncSkipped(paymentNotificationConsumer, eventType)
		return true
	}

	var payload payloads.PaymentCompletedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, paymentNotificationConsumer, envelope.EventID)
		return false
	}
	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID.String())

	start := time.Now()
	if err := c.notifyVendors(ctx, payload); err != nil {
		c.logg.Error(logCtx, "vendor notification failed", err)
		c.metrics.IncFailed(paymentNotificationConsumer, eventType)
		if pkgerrors.IsRetryable(err) {
			_ = c.idempotency.Delete(ctx, paymentNotificationConsumer, envelope.EventID)
			return false
		}
		return true
	}

	c.metrics.ObserveDuration(paymentNotificationConsumer, eventType, time.Since(start))
	c.metrics.IncHandled(paymentNotificationConsumer, eventType)
	c.logg.Info(logCtx, "vendors notified of paid order")
	return true
}

func (c *Consumer) notifyVendors(ctx context.Context, payload payloads.PaymentCompletedEvent) error {
	order, err := c.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return err
	}

	itemsByVendor := make(map[uuid.UUID]int)
	for _, item := range order.Items {
		if item.Product == nil {
			return fmt.Errorf("order item %s is missing its product", item.ID)
		}
		itemsByVendor[item.Product.VendorID] += item.Quantity
	}

	for vendorID, count := range itemsByVendor {
		message := fmt.Sprintf("Order %s was paid. %d of your items are ready for fulfillment.", order.Code, count)
		if err := c.svc.Notify(ctx, vendorID, enums.NotificationTypePayment, "Order paid", message); err != nil {
			return err
		}
	}
	return nil
}
