package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/internal/inventory"
	"github.com/obiagwu/vendara-backend/pkg/db/models"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS selling_units (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  unit TEXT NOT NULL,
  size INTEGER NOT NULL DEFAULT 0,
  price_minor INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  selling_unit_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

func newCartService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	stock, err := inventory.NewService(inventory.NewRepository(db))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(db), stock, gormTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func seedUnit(t *testing.T, db *gorm.DB, name string, size int, active bool) *models.SellingUnit {
	t.Helper()

	product := &models.Product{
		ID:       uuid.New(),
		VendorID: uuid.New(),
		Name:     name,
		IsActive: active,
	}
	require.NoError(t, db.Create(product).Error)

	unit := &models.SellingUnit{
		ID:         uuid.New(),
		ProductID:  product.ID,
		Unit:       "bag",
		Size:       size,
		PriceMinor: 1500,
	}
	require.NoError(t, db.Create(unit).Error)
	return unit
}

func unitSize(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()

	var unit models.SellingUnit
	require.NoError(t, db.Where("id = ?", id).First(&unit).Error)
	return unit.Size
}

func TestCartLifecycleKeepsStockBalanced(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	userID := uuid.New()
	unit := seedUnit(t, db, "Yam Flour", 5, true)

	item, err := svc.Create(context.Background(), userID, CreateItemInput{
		ProductID:     unit.ProductID,
		SellingUnitID: unit.ID,
		Quantity:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, unitSize(t, db, unit.ID))

	// Growing past the remaining stock must fail and leave everything as is.
	_, err = svc.Update(context.Background(), userID, item.ID, 6)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 2, unitSize(t, db, unit.ID))

	kept, err := svc.Update(context.Background(), userID, item.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, kept.Quantity)
	assert.Equal(t, 0, unitSize(t, db, unit.ID))

	require.NoError(t, svc.Delete(context.Background(), userID, item.ID))
	assert.Equal(t, 5, unitSize(t, db, unit.ID))

	_, err = svc.Update(context.Background(), userID, item.ID, 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	unit := seedUnit(t, db, "Retired SKU", 10, false)

	_, err := svc.Create(context.Background(), uuid.New(), CreateItemInput{
		ProductID:     unit.ProductID,
		SellingUnitID: unit.ID,
		Quantity:      1,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 10, unitSize(t, db, unit.ID))
}

func TestCreateRejectsMismatchedSellingUnit(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	unit := seedUnit(t, db, "Palm Oil", 4, true)
	other := seedUnit(t, db, "Groundnut Oil", 4, true)

	_, err := svc.Create(context.Background(), uuid.New(), CreateItemInput{
		ProductID:     other.ProductID,
		SellingUnitID: unit.ID,
		Quantity:      1,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestUpdateScopedToOwner(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	owner := uuid.New()
	unit := seedUnit(t, db, "Cocoa Beans", 8, true)

	item, err := svc.Create(context.Background(), owner, CreateItemInput{
		ProductID:     unit.ProductID,
		SellingUnitID: unit.ID,
		Quantity:      2,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), uuid.New(), item.ID, 3)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	err = svc.Delete(context.Background(), uuid.New(), item.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestListFiltersByProductName(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	userID := uuid.New()

	ginger := seedUnit(t, db, "Dried Ginger", 10, true)
	pepper := seedUnit(t, db, "Cameroon Pepper", 10, true)

	_, err := svc.Create(context.Background(), userID, CreateItemInput{
		ProductID:     ginger.ProductID,
		SellingUnitID: ginger.ID,
		Quantity:      1,
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), userID, CreateItemInput{
		ProductID:     pepper.ProductID,
		SellingUnitID: pepper.ID,
		Quantity:      2,
	})
	require.NoError(t, err)

	all, next, err := svc.List(context.Background(), userID, ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Empty(t, next)

	filtered, _, err := svc.List(context.Background(), userID, ListFilter{ProductName: "ginger"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, ginger.ProductID, filtered[0].ProductID)
}

func TestListPaginates(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		unit := seedUnit(t, db, "Bulk Item", 10, true)
		_, err := svc.Create(context.Background(), userID, CreateItemInput{
			ProductID:     unit.ProductID,
			SellingUnitID: unit.ID,
			Quantity:      1,
		})
		require.NoError(t, err)
	}

	first, next, err := svc.List(context.Background(), userID, ListFilter{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, first, 2)
	require.NotEmpty(t, next)

	second, last, err := svc.List(context.Background(), userID, ListFilter{}, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Empty(t, last)
}

// racingCartRepo applies a competing quantity write between the read and the
// caller's own write, so the stale-delta path is exercised deterministically.
type racingCartRepo struct {
	Repository
	competingQuantity int
}

func (r racingCartRepo) WithTx(tx *gorm.DB) Repository {
	return racingCartRepo{Repository: r.Repository.WithTx(tx), competingQuantity: r.competingQuantity}
}

func (r racingCartRepo) FindByID(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := r.Repository.FindByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := r.Repository.UpdateQuantity(ctx, itemID, item.Quantity, r.competingQuantity); err != nil {
		return nil, err
	}
	return item, nil
}

func TestUpdateAbortsWhenItemChangedConcurrently(t *testing.T) {
	db := setupCartTestDB(t)
	stock, err := inventory.NewService(inventory.NewRepository(db))
	require.NoError(t, err)
	repo := racingCartRepo{Repository: NewRepository(db), competingQuantity: 5}
	svc, err := NewService(repo, stock, gormTxRunner{db: db})
	require.NoError(t, err)

	userID := uuid.New()
	unit := seedUnit(t, db, "Palm Oil", 10, true)
	item, err := svc.Create(context.Background(), userID, CreateItemInput{
		ProductID:     unit.ProductID,
		SellingUnitID: unit.ID,
		Quantity:      3,
	})
	require.NoError(t, err)
	require.Equal(t, 7, unitSize(t, db, unit.ID))

	// Both writers saw quantity 3 and target 5; only one delta may land.
	_, err = svc.Update(context.Background(), userID, item.ID, 5)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	// The losing update rolled back whole: no leaked reservation.
	assert.Equal(t, 7, unitSize(t, db, unit.ID))
	var kept models.CartItem
	require.NoError(t, db.Where("id = ?", item.ID).First(&kept).Error)
	assert.Equal(t, 3, kept.Quantity)
}

// vanishingCartRepo removes the row right after the read, as a concurrent
// delete would.
type vanishingCartRepo struct {
	Repository
}

func (r vanishingCartRepo) WithTx(tx *gorm.DB) Repository {
	return vanishingCartRepo{Repository: r.Repository.WithTx(tx)}
}

func (r vanishingCartRepo) FindByID(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := r.Repository.FindByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := r.Repository.Delete(ctx, itemID); err != nil {
		return nil, err
	}
	return item, nil
}

func TestDeleteAbortsWhenItemAlreadyRemoved(t *testing.T) {
	db := setupCartTestDB(t)
	stock, err := inventory.NewService(inventory.NewRepository(db))
	require.NoError(t, err)
	svc, err := NewService(vanishingCartRepo{Repository: NewRepository(db)}, stock, gormTxRunner{db: db})
	require.NoError(t, err)

	userID := uuid.New()
	unit := seedUnit(t, db, "Dried Fish", 10, true)
	item, err := svc.Create(context.Background(), userID, CreateItemInput{
		ProductID:     unit.ProductID,
		SellingUnitID: unit.ID,
		Quantity:      3,
	})
	require.NoError(t, err)
	require.Equal(t, 7, unitSize(t, db, unit.ID))

	err = svc.Delete(context.Background(), userID, item.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	// The release rolled back with the delete: stock stays reserved once.
	assert.Equal(t, 7, unitSize(t, db, unit.ID))
}
