package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/pkg/db/models"
	"github.com/obiagwu/vendara-backend/pkg/enums"
)

func setupPricingTestDB(t *testing.T) *gorm.DB {
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
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  selling_unit_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  tracking_id TEXT NOT NULL,
  status_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS promo_codes (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  code TEXT NOT NULL,
  percent_off TEXT NOT NULL,
  scope TEXT NOT NULL DEFAULT 'vendor_wide',
  active_from DATETIME NOT NULL,
  active_to DATETIME NOT NULL,
  single_use INTEGER NOT NULL DEFAULT 0,
  consumed_by_order TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS promo_code_products (
  promo_code_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  created_at DATETIME,
  PRIMARY KEY (promo_code_id, product_id)
);`, `
CREATE TABLE IF NOT EXISTS order_item_promos (
  order_item_id TEXT NOT NULL,
  promo_code_id TEXT NOT NULL,
  discount_minor INTEGER NOT NULL,
  created_at DATETIME,
  PRIMARY KEY (order_item_id, promo_code_id)
);`}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

type pricingFixture struct {
	db      *gorm.DB
	engine  Engine
	vendor  uuid.UUID
	product *models.Product
	unit    *models.SellingUnit
	orderID uuid.UUID
	item    *models.OrderItem
}

func newPricingFixture(t *testing.T, priceMinor int64, qty int) *pricingFixture {
	t.Helper()

	db := setupPricingTestDB(t)
	eng, err := NewEngine(NewRepository(db))
	require.NoError(t, err)

	vendorID := uuid.New()
	product := &models.Product{
		ID:       uuid.New(),
		VendorID: vendorID,
		Name:     "Raw Cashew",
		IsActive: true,
	}
	require.NoError(t, db.Create(product).Error)

	unit := &models.SellingUnit{
		ID:         uuid.New(),
		ProductID:  product.ID,
		Unit:       "sack",
		Size:       100,
		PriceMinor: priceMinor,
	}
	require.NoError(t, db.Create(unit).Error)

	orderID := uuid.New()
	item := &models.OrderItem{
		ID:            uuid.New(),
		OrderID:       orderID,
		ProductID:     product.ID,
		SellingUnitID: unit.ID,
		Quantity:      qty,
		TrackingID:    uuid.NewString(),
		StatusID:      uuid.New(),
	}
	require.NoError(t, db.Create(item).Error)

	return &pricingFixture{
		db:      db,
		engine:  eng,
		vendor:  vendorID,
		product: product,
		unit:    unit,
		orderID: orderID,
		item:    item,
	}
}

func (f *pricingFixture) seedPromo(t *testing.T, percent int64, scope enums.PromoScope, singleUse bool) *models.PromoCode {
	t.Helper()

	promo := &models.PromoCode{
		ID:         uuid.New(),
		VendorID:   f.vendor,
		Code:       uuid.NewString()[:8],
		PercentOff: decimal.NewFromInt(percent),
		Scope:      scope,
		ActiveFrom: time.Now().Add(-time.Hour),
		ActiveTo:   time.Now().Add(time.Hour),
		SingleUse:  singleUse,
	}
	require.NoError(t, f.db.Create(promo).Error)
	return promo
}

func TestVendorWidePromoDiscountsTotal(t *testing.T) {
	// 100.00 order with a 10% vendor-wide promo charges 90.00.
	f := newPricingFixture(t, 10000, 1)
	f.seedPromo(t, 10, enums.PromoScopeVendorWide, false)

	require.NoError(t, f.engine.ApplyPromosToOrder(context.Background(), f.orderID, time.Now()))

	total, err := f.engine.OrderItemsTotal(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), total)
}

func TestApplyPromosIsIdempotent(t *testing.T) {
	f := newPricingFixture(t, 10000, 1)
	f.seedPromo(t, 10, enums.PromoScopeVendorWide, false)

	require.NoError(t, f.engine.ApplyPromosToOrder(context.Background(), f.orderID, time.Now()))
	require.NoError(t, f.engine.ApplyPromosToOrder(context.Background(), f.orderID, time.Now()))

	var count int64
	require.NoError(t, f.db.Model(&models.OrderItemPromo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	total, err := f.engine.OrderItemsTotal(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), total)
}

func TestExpiredPromoIgnored(t *testing.T) {
	f := newPricingFixture(t, 5000, 2)
	promo := f.seedPromo(t, 25, enums.PromoScopeVendorWide, false)
	require.NoError(t, f.db.Model(promo).Updates(map[string]any{
		"active_from": time.Now().Add(-48 * time.Hour),
		"active_to":   time.Now().Add(-24 * time.Hour),
	}).Error)

	require.NoError(t, f.engine.ApplyPromosToOrder(context.Background(), f.orderID, time.Now()))

	total, err := f.engine.OrderItemsTotal(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), total)
}

func TestProductListPromoScopes(t *testing.T) {
	f := newPricingFixture(t, 4000, 1)
	promo := f.seedPromo(t, 50, enums.PromoScopeProductList, false)

	// Promo lists a different product, so nothing applies.
	require.NoError(t, f.db.Create(&models.PromoCodeProduct{
		PromoCodeID: promo.ID,
		ProductID:   uuid.New(),
	}).Error)
	require.NoError(t, f.engine.ApplyPromosToOrder(context.Background(), f.orderID, time.Now()))

	total, err := f.engine.OrderItemsTotal(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), total)

	// Listing the ordered product brings the promo into scope.
	require.NoError(t, f.db.Create(&models.PromoCodeProduct{
		PromoCodeID: promo.ID,
		ProductID:   f.product.ID,
	}).Error)
	require.NoError(t, f.engine.ApplyPromosToOrder(context.Background(), f.orderID, time.Now()))

	total, err = f.engine.OrderItemsTotal(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), total)
}

func TestBestSinglePromoWins(t *testing.T) {
	f := newPricingFixture(t, 10000, 1)
	f.seedPromo(t, 10, enums.PromoScopeVendorWide, false)
	f.seedPromo(t, 20, enums.PromoScopeVendorWide, false)

	require.NoError(t, f.engine.ApplyPromosToOrder(context.Background(), f.orderID, time.Now()))

	var count int64
	require.NoError(t, f.db.Model(&models.OrderItemPromo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	total, err := f.engine.OrderItemsTotal(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), total)
}

func TestSingleUsePromoConsumedElsewhere(t *testing.T) {
	f := newPricingFixture(t, 10000, 1)
	promo := f.seedPromo(t, 10, enums.PromoScopeVendorWide, true)

	other := uuid.New()
	require.NoError(t, f.db.Model(promo).Update("consumed_by_order", other).Error)

	require.NoError(t, f.engine.ApplyPromosToOrder(context.Background(), f.orderID, time.Now()))

	total, err := f.engine.OrderItemsTotal(context.Background(), f.orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), total)
}

func TestDiscountMinorRounds(t *testing.T) {
	assert.Equal(t, int64(1000), DiscountMinor(10000, 1, decimal.NewFromInt(10)))
	assert.Equal(t, int64(333), DiscountMinor(9999, 1, decimal.NewFromFloat(3.33)))
	assert.Equal(t, int64(50), DiscountMinor(33, 3, decimal.NewFromInt(50)))
}
