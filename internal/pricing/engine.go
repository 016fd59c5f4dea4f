// Package pricing evaluates promo codes against order items and records
// discounts. Combination rule: at most ONE promo is applied per order item,
// the one yielding the largest discount; ties break toward the earliest
// created promo. Stacking multiple codes on one item is deliberately not
// supported.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/pkg/db/models"
	"github.com/obiagwu/vendara-backend/pkg/enums"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
)

// Engine applies promos and computes discounted order totals.
type Engine interface {
	WithTx(tx *gorm.DB) Engine
	ApplyPromosToOrder(ctx context.Context, orderID uuid.UUID, at time.Time) error
	OrderItemsTotal(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type engine struct {
	repo Repository
}

// NewEngine wires a pricing engine with the provided repository.
func NewEngine(repo Repository) (Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	return &engine{repo: repo}, nil
}

func (e *engine) WithTx(tx *gorm.DB) Engine {
	if tx == nil {
		return e
	}
	return &engine{repo: e.repo.WithTx(tx)}
}

// Applicable reports whether the promo covers the product at the given time.
func Applicable(promo models.PromoCode, productID, productVendorID uuid.UUID, at time.Time) bool {
	if at.Before(promo.ActiveFrom) || at.After(promo.ActiveTo) {
		return false
	}
	if promo.VendorID != productVendorID {
		return false
	}
	switch promo.Scope {
	case enums.PromoScopeVendorWide:
		return true
	case enums.PromoScopeProductList:
		for _, p := range promo.Products {
			if p.ProductID == productID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// DiscountMinor computes the promo's discount on a line, rounded half-up to
// the nearest minor unit.
func DiscountMinor(priceMinor int64, qty int, percentOff decimal.Decimal) int64 {
	line := decimal.NewFromInt(priceMinor).Mul(decimal.NewFromInt(int64(qty)))
	return line.Mul(percentOff).Div(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ApplyPromosToOrder evaluates every order item against the vendors' active
// promos and persists the chosen applications. Safe to re-run: already
// recorded applications are left untouched and never doubled.
func (e *engine) ApplyPromosToOrder(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	items, err := e.repo.LoadOrderItems(ctx, orderID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	vendorSet := map[uuid.UUID]struct{}{}
	for _, item := range items {
		if item.Product != nil {
			vendorSet[item.Product.VendorID] = struct{}{}
		}
	}
	vendorIDs := make([]uuid.UUID, 0, len(vendorSet))
	for id := range vendorSet {
		vendorIDs = append(vendorIDs, id)
	}

	promos, err := e.repo.FindActiveForVendors(ctx, vendorIDs, at)
	if err != nil {
		return err
	}
	if len(promos) == 0 {
		return nil
	}

	for _, item := range items {
		if item.Product == nil || item.SellingUnit == nil {
			continue
		}
		best, discount := pickBestPromo(promos, item, at, orderID)
		if best == nil || discount <= 0 {
			continue
		}

		if best.SingleUse {
			claimed, err := e.repo.MarkConsumed(ctx, best.ID, orderID)
			if err != nil {
				return err
			}
			if !claimed {
				continue
			}
		}

		err = e.repo.ApplyToOrderItem(ctx, models.OrderItemPromo{
			OrderItemID:   item.ID,
			PromoCodeID:   best.ID,
			DiscountMinor: discount,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// pickBestPromo returns the single applicable promo with the largest
// discount; ties break toward the earliest created promo.
func pickBestPromo(promos []models.PromoCode, item models.OrderItem, at time.Time, orderID uuid.UUID) (*models.PromoCode, int64) {
	candidates := make([]models.PromoCode, 0, len(promos))
	for _, promo := range promos {
		if promo.SingleUse && promo.ConsumedByOrder != nil && *promo.ConsumedByOrder != orderID {
			continue
		}
		if Applicable(promo, item.ProductID, item.Product.VendorID, at) {
			candidates = append(candidates, promo)
		}
	}
	if len(candidates) == 0 {
		return nil, 0
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		di := DiscountMinor(item.SellingUnit.PriceMinor, item.Quantity, candidates[i].PercentOff)
		dj := DiscountMinor(item.SellingUnit.PriceMinor, item.Quantity, candidates[j].PercentOff)
		if di != dj {
			return di > dj
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	best := candidates[0]
	return &best, DiscountMinor(item.SellingUnit.PriceMinor, item.Quantity, best.PercentOff)
}

// OrderItemsTotal returns the discounted sum over the order's items in minor
// units. Delivery fees are added by the caller.
func (e *engine) OrderItemsTotal(ctx context.Context, orderID uuid.UUID) (int64, error) {
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	items, err := e.repo.LoadOrderItems(ctx, orderID)
	if err != nil {
		return 0, err
	}

	var gross int64
	for _, item := range items {
		if item.SellingUnit == nil {
			return 0, pkgerrors.New(pkgerrors.CodeInternal, "order item missing selling unit")
		}
		gross += item.SellingUnit.PriceMinor * int64(item.Quantity)
	}

	discounts, err := e.repo.SumDiscountsForOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}

	total := gross - discounts
	if total < 0 {
		total = 0
	}
	return total, nil
}
