package warehouse

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/internal/orders"
	"github.com/obiagwu/vendara-backend/pkg/db/models"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service routes assembled orders: it attaches the order to the warehouse
// serving its shipping state and fans the items out to each vendor's
// fulfillment dashboard.
type Service interface {
	AddOrderToWarehouse(ctx context.Context, orderID uuid.UUID) error
	ListVendorItems(ctx context.Context, vendorID uuid.UUID) ([]models.VendorOrderItem, error)
}

type service struct {
	repo   Repository
	orders orders.Repository
	tx     txRunner
	logg   *logger.Logger
}

// NewService wires the warehouse routing service.
func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil || ordersRepo == nil || tx == nil || logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "warehouse: missing dependency")
	}
	return &service{repo: repo, orders: ordersRepo, tx: tx, logg: logg}, nil
}

// AddOrderToWarehouse is idempotent: vendor attachments upsert on their
// composite key and the warehouse assignment overwrites with the same value.
// A state without a warehouse is logged and skipped rather than failed, so
// the order still reaches vendor dashboards.
func (s *service) AddOrderToWarehouse(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	rows := make([]models.VendorOrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.Product == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "order item is missing its product")
		}
		rows = append(rows, models.VendorOrderItem{
			VendorID:    item.Product.VendorID,
			OrderItemID: item.ID,
			OrderID:     order.ID,
		})
	}

	var warehouseID *uuid.UUID
	if order.Address != nil {
		found, err := s.repo.FindByState(ctx, order.Address.State)
		if err != nil {
			return err
		}
		if found != nil {
			warehouseID = &found.ID
		}
	}
	if warehouseID == nil {
		state := ""
		if order.Address != nil {
			state = order.Address.State
		}
		ctx = s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"state":    state,
		})
		s.logg.Warn(ctx, "no warehouse serves the order's state; routing items without one")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if warehouseID != nil {
			if err := repo.AssignOrder(ctx, order.ID, *warehouseID); err != nil {
				return err
			}
		}
		return repo.AttachVendorItems(ctx, rows)
	})
}

func (s *service) ListVendorItems(ctx context.Context, vendorID uuid.UUID) ([]models.VendorOrderItem, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	return s.repo.ListVendorItems(ctx, vendorID)
}
