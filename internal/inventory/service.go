// Package inventory is the stock ledger. Every change to a selling unit's
// remaining size flows through here, paired with the cart or order mutation
// that caused it.
package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/pkg/db/models"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
)

// Service exposes guarded stock movements.
type Service interface {
	// WithTx returns a service bound to the caller's transaction so the stock
	// movement commits or rolls back with the paired cart/order mutation.
	WithTx(tx *gorm.DB) Service
	GetSellingUnit(ctx context.Context, id uuid.UUID) (*models.SellingUnit, error)
	Reserve(ctx context.Context, sellingUnitID uuid.UUID, qty int) error
	Release(ctx context.Context, sellingUnitID uuid.UUID, qty int) error
}

type service struct {
	repo Repository
}

// NewService wires an inventory service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) GetSellingUnit(ctx context.Context, id uuid.UUID) (*models.SellingUnit, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selling unit id is required")
	}
	return s.repo.GetSellingUnit(ctx, id)
}

func (s *service) Reserve(ctx context.Context, sellingUnitID uuid.UUID, qty int) error {
	if sellingUnitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "selling unit id is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return s.repo.Reserve(ctx, sellingUnitID, qty)
}

func (s *service) Release(ctx context.Context, sellingUnitID uuid.UUID, qty int) error {
	if sellingUnitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "selling unit id is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return s.repo.Release(ctx, sellingUnitID, qty)
}
