// Package idempotency guards consumers against duplicate event delivery.
package idempotency

import (
	"context"
	"time"

	"github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/redis"
)

// Manager records processed event IDs per consumer so redelivered messages
// can be acked without side effects.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds a Manager. TTL bounds how long a processed marker lives;
// it must exceed the broker's maximum redelivery window.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

func (m *Manager) key(consumer, eventID string) string {
	return m.store.IdempotencyKey(consumer, eventID)
}

// CheckAndMarkProcessed atomically marks the event as processed for the given
// consumer. Returns true if this call won the marker and the event should be
// handled, false if it was already processed.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	if consumer == "" || eventID == "" {
		return false, errors.New(errors.CodeValidation, "consumer and event id are required")
	}
	ok, err := m.store.SetNX(ctx, m.key(consumer, eventID), "1", m.ttl)
	if err != nil {
		return false, errors.Wrap(errors.CodeDependency, err, "idempotency check failed")
	}
	return ok, nil
}

// Delete removes the marker so a failed handler can be retried on redelivery.
func (m *Manager) Delete(ctx context.Context, consumer, eventID string) error {
	if err := m.store.Del(ctx, m.key(consumer, eventID)); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "idempotency delete failed")
	}
	return nil
}
