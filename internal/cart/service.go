// Package cart manages a user's pending selections. Cart mutations are
// reservation-paired: adding or growing an item reserves stock in the same
// transaction, shrinking or removing it releases stock.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/internal/inventory"
	"github.com/obiagwu/vendara-backend/pkg/db/models"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart operations.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateItemInput) (*models.CartItem, error)
	Update(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	Delete(ctx context.Context, userID, itemID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.CartItem, string, error)
}

type service struct {
	repo  Repository
	stock inventory.Service
	tx    txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, stock inventory.Service, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, stock: stock, tx: tx}, nil
}

// CreateItemInput captures the payload for adding a product to the cart.
type CreateItemInput struct {
	ProductID     uuid.UUID
	SellingUnitID uuid.UUID
	Quantity      int
}

// Create validates the selection, reserves stock and persists the item in one
// transaction.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateItemInput) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.ProductID == uuid.Nil || input.SellingUnitID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and selling unit id are required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var created *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		stock := s.stock.WithTx(tx)

		unit, err := stock.GetSellingUnit(ctx, input.SellingUnitID)
		if err != nil {
			return err
		}
		if unit.ProductID != input.ProductID {
			return pkgerrors.New(pkgerrors.CodeValidation, "selling unit does not belong to product")
		}
		if unit.Product != nil && !unit.Product.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
		}

		if err := stock.Reserve(ctx, input.SellingUnitID, input.Quantity); err != nil {
			return err
		}

		item := &models.CartItem{
			ID:            uuid.New(),
			UserID:        userID,
			ProductID:     input.ProductID,
			SellingUnitID: input.SellingUnitID,
			Quantity:      input.Quantity,
		}
		if err := s.repo.WithTx(tx).Create(ctx, item); err != nil {
			return err
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update moves the item to the new quantity, reserving or releasing only the
// difference. A failed reservation leaves the item untouched.
func (s *service) Update(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if userID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and item id are required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var updated *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stock := s.stock.WithTx(tx)

		item, err := repo.FindByID(ctx, userID, itemID)
		if err != nil {
			return err
		}

		delta := quantity - item.Quantity
		switch {
		case delta > 0:
			if err := stock.Reserve(ctx, item.SellingUnitID, delta); err != nil {
				return err
			}
		case delta < 0:
			if err := stock.Release(ctx, item.SellingUnitID, -delta); err != nil {
				return err
			}
		}

		moved, err := repo.UpdateQuantity(ctx, item.ID, item.Quantity, quantity)
		if err != nil {
			return err
		}
		if moved == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart item changed concurrently")
		}
		item.Quantity = quantity
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the item and returns its full reserved quantity to stock.
func (s *service) Delete(ctx context.Context, userID, itemID uuid.UUID) error {
	if userID == uuid.Nil || itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and item id are required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stock := s.stock.WithTx(tx)

		item, err := repo.FindByID(ctx, userID, itemID)
		if err != nil {
			return err
		}

		if err := stock.Release(ctx, item.SellingUnitID, item.Quantity); err != nil {
			// The unit may have been removed from the catalog; the cart row
			// still has to go.
			if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				return err
			}
		}
		deleted, err := repo.Delete(ctx, item.ID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			// A concurrent removal already released the stock; rolling back
			// keeps this release from double-counting.
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil
	})
}

// List returns the user's cart page, optionally filtered by product name.
func (s *service) List(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.CartItem, string, error) {
	if userID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	items, next, err := s.repo.List(ctx, userID, filter, params)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return items, next, nil
}
