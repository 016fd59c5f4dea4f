package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/pkg/db/models"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
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
);`}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

func seedSellingUnit(t *testing.T, db *gorm.DB, size int) *models.SellingUnit {
	t.Helper()

	product := &models.Product{
		ID:       uuid.New(),
		VendorID: uuid.New(),
		Name:     "Dried Hibiscus",
		IsActive: true,
	}
	require.NoError(t, db.Create(product).Error)

	unit := &models.SellingUnit{
		ID:         uuid.New(),
		ProductID:  product.ID,
		Unit:       "carton",
		Size:       size,
		PriceMinor: 2500,
	}
	require.NoError(t, db.Create(unit).Error)
	return unit
}

func currentSize(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()

	var unit models.SellingUnit
	require.NoError(t, db.Where("id = ?", id).First(&unit).Error)
	return unit.Size
}

func TestReserveDecrementsStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	unit := seedSellingUnit(t, db, 5)

	require.NoError(t, svc.Reserve(context.Background(), unit.ID, 3))
	assert.Equal(t, 2, currentSize(t, db, unit.ID))
}

func TestReserveRejectsOverdraft(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	unit := seedSellingUnit(t, db, 2)

	err = svc.Reserve(context.Background(), unit.ID, 5)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 2, currentSize(t, db, unit.ID))
}

func TestReserveExactRemainingStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	unit := seedSellingUnit(t, db, 4)

	require.NoError(t, svc.Reserve(context.Background(), unit.ID, 4))
	assert.Equal(t, 0, currentSize(t, db, unit.ID))

	err = svc.Reserve(context.Background(), unit.ID, 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
}

func TestReleaseRestoresStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	unit := seedSellingUnit(t, db, 5)

	require.NoError(t, svc.Reserve(context.Background(), unit.ID, 3))
	require.NoError(t, svc.Release(context.Background(), unit.ID, 3))
	assert.Equal(t, 5, currentSize(t, db, unit.ID))
}

func TestReserveUnknownUnit(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	err = svc.Reserve(context.Background(), uuid.New(), 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestReserveValidatesInput(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	err = svc.Reserve(context.Background(), uuid.Nil, 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	unit := seedSellingUnit(t, db, 5)
	err = svc.Reserve(context.Background(), unit.ID, 0)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
