package settlement

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

const settlementConsumer = "vendor-settlement"

// Consumer drives the async settlement pipeline: bank submissions trigger
// verification, successful verifications trigger recipient registration.
type Consumer struct {
	svc          Service
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	metrics      *metrics.ConsumerMetrics
	logg         *logger.Logger
}

// NewConsumer builds the settlement consumer.
func NewConsumer(svc Service, subscription *pubsub.Subscriber, manager *idempotency.Manager, consumerMetrics *metrics.ConsumerMetrics, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("settlement subscription required")
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

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventVendorBankSubmitted) && eventType != string(enums.EventVendorVerified) {
		c.metrics.IncSkipped(settlementConsumer, eventType)
		return true
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		c.metrics.IncSkipped(settlementConsumer, eventType)
		return true
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		c.metrics.IncSkipped(settlementConsumer, eventType)
		return true
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, settlementConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		c.metrics.IncFailed(settlementConsumer, eventType)
		return false
	}
	if already {
		c.metrics.IncSkipped(settlementConsumer, eventType)
		return true
	}

	vendorID, err := vendorIDFromEnvelope(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, settlementConsumer, envelope.EventID)
		return false
	}
	logCtx = c.logg.WithVendorID(logCtx, vendorID.String())

	start := time.Now()
	switch eventType {
	case string(enums.EventVendorBankSubmitted):
		err = c.svc.VerifyVendorAccount(ctx, vendorID)
	case string(enums.EventVendorVerified):
		err = c.svc.CreateRecipientAccount(ctx, vendorID)
	}
	if err != nil {
		c.logg.Error(logCtx, "settlement step failed", err)
		c.metrics.IncFailed(settlementConsumer, eventType)
		if pkgerrors.IsRetryable(err) {
			_ = c.idempotency.Delete(ctx, settlementConsumer, envelope.EventID)
			return false
		}
		return true
	}

	c.metrics.ObserveDuration(settlementConsumer, eventType, time.Since(start))
	c.metrics.IncHandled(settlementConsumer, eventType)
	c.logg.Info(logCtx, "settlement step handled")
	return true
}

func vendorIDFromEnvelope(eventType string, data json.RawMessage) (uuid.UUID, error) {
	switch eventType {
	case string(enums.EventVendorBankSubmitted):
		var payload payloads.VendorBankSubmittedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return uuid.Nil, err
		}
		return payload.VendorID, nil
	case string(enums.EventVendorVerified):
		var payload payloads.VendorVerifiedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return uuid.Nil, err
		}
		return payload.VendorID, nil
	default:
		return uuid.Nil, fmt.Errorf("unsupported event type %q", eventType)
	}
}
