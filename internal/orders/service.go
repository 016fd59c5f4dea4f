// Package orders converts a user's cart items into an immutable order. The
// conversion is all-or-nothing: every referenced cart item must exist and
// belong to the caller, and every write lands in one transaction.
package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/internal/cart"
	"github.com/obiagwu/vendara-backend/internal/pricing"
	"github.com/obiagwu/vendara-backend/pkg/db/models"
	"github.com/obiagwu/vendara-backend/pkg/enums"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/outbox"
	"github.com/obiagwu/vendara-backend/pkg/outbox/payloads"
)

const pendingItemStatus = enums.FulfillmentPending

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes order assembly and lookups.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*models.Order, error)
	GetByID(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo    Repository
	carts   cart.Repository
	pricing pricing.Engine
	tx      txRunner
	events  eventEmitter
}

// NewService builds an order service backed by the provided stack.
func NewService(repo Repository, carts cart.Repository, engine pricing.Engine, tx txRunner, events eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:    repo,
		carts:   carts,
		pricing: engine,
		tx:      tx,
		events:  events,
	}, nil
}

// CreateOrderInput captures the checkout payload.
type CreateOrderInput struct {
	CartItemIDs    []uuid.UUID
	AddressID      uuid.UUID
	DeliveryModeID uuid.UUID
}

// Create assembles an order from the referenced cart items. The stock
// reservations held by the cart items transfer to the new order items; the
// cart rows are deleted without a release. Failure at any step rolls the
// whole assembly back.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(input.CartItemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one cart item is required")
	}
	if input.AddressID == uuid.Nil || input.DeliveryModeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id and delivery mode id are required")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		carts := s.carts.WithTx(tx)

		if _, err := repo.FindAddress(ctx, userID, input.AddressID); err != nil {
			return err
		}
		if _, err := repo.FindDeliveryMode(ctx, input.DeliveryModeID); err != nil {
			return err
		}

		items, err := carts.FindByIDs(ctx, userID, input.CartItemIDs)
		if err != nil {
			return err
		}
		if len(items) != len(dedupe(input.CartItemIDs)) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "one or more cart items not found")
		}

		status, err := repo.GetOrCreateItemStatus(ctx, pendingItemStatus)
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:             uuid.New(),
			Code:           newOrderCode(),
			UserID:         userID,
			AddressID:      input.AddressID,
			DeliveryModeID: input.DeliveryModeID,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		orderItems := make([]models.OrderItem, 0, len(items))
		consumed := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			orderItems = append(orderItems, models.OrderItem{
				ID:            uuid.New(),
				OrderID:       order.ID,
				ProductID:     item.ProductID,
				SellingUnitID: item.SellingUnitID,
				Quantity:      item.Quantity,
				TrackingID:    newTrackingID(),
				StatusID:      status.ID,
			})
			consumed = append(consumed, item.ID)
		}
		if err := repo.CreateOrderItems(ctx, orderItems); err != nil {
			return err
		}

		if err := s.pricing.WithTx(tx).ApplyPromosToOrder(ctx, order.ID, time.Now()); err != nil {
			return err
		}

		deleted, err := carts.DeleteByIDs(ctx, consumed)
		if err != nil {
			return err
		}
		if deleted != int64(len(consumed)) {
			// A competing order consumed some of these rows between our read
			// and delete; committing would back one reservation with two
			// orders' items.
			return pkgerrors.New(pkgerrors.CodeConflict, "one or more cart items were already consumed")
		}

		err = s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.OrderCreatedEvent{
				OrderID:   order.ID,
				OrderCode: order.Code,
				UserID:    userID,
			},
		})
		if err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, created.ID)
}

func (s *service) GetByID(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and order id are required")
	}
	return s.repo.FindByIDForUser(ctx, userID, orderID)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// newOrderCode returns a short human-readable order code like ORD-9F2C41AB.
func newOrderCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:8])
}

func newTrackingID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TRK-" + strings.ToUpper(raw[:12])
}
