package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/obiagwu/vendara-backend/pkg/db/models"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/pagination"
)

// Repository persists cart items. Every read is scoped to the owning user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.CartItem) error
	FindByID(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error)
	FindByIDs(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]models.CartItem, error)
	UpdateQuantity(ctx context.Context, itemID uuid.UUID, fromQuantity, quantity int) (int64, error)
	Delete(ctx context.Context, itemID uuid.UUID) (int64, error)
	DeleteByIDs(ctx context.Context, itemIDs []uuid.UUID) (int64, error)
	List(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.CartItem, string, error)
}

// ListFilter narrows a cart listing.
type ListFilter struct {
	ProductName string
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID locks the row for the caller's transaction so concurrent
// mutations of the same item serialize instead of racing on stale state.
func (r *repository) FindByID(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Product").
		Preload("SellingUnit").
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByIDs(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]models.CartItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Product").
		Preload("SellingUnit").
		Where("user_id = ? AND id IN ?", userID, itemIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateQuantity is a compare-and-set on the previously read quantity. A zero
// row count means a concurrent mutation won and the caller must abort.
func (r *repository) UpdateQuantity(ctx context.Context, itemID uuid.UUID, fromQuantity, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND quantity = ?", itemID, fromQuantity).
		Update("quantity", quantity)
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, itemID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteByIDs(ctx context.Context, itemIDs []uuid.UUID) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.CartItem, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Preload("Product").
		Preload("SellingUnit").
		Where("cart_items.user_id = ?", userID)

	if name := strings.TrimSpace(filter.ProductName); name != "" {
		query = query.
			Joins("JOIN products ON products.id = cart_items.product_id").
			Where("LOWER(products.name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(cart_items.created_at < ?) OR (cart_items.created_at = ? AND cart_items.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var items []models.CartItem
	err = query.
		Order("cart_items.created_at DESC, cart_items.id DESC").
		Limit(limit + 1).
		Find(&items).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return items, nextCursor, nil
}
