package orders

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/internal/cart"
	"github.com/obiagwu/vendara-backend/internal/pricing"
	"github.com/obiagwu/vendara-backend/pkg/db/models"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
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
);`, `
CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  street TEXT NOT NULL,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS delivery_modes (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  fee_minor INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_item_statuses (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  address_id TEXT NOT NULL,
  delivery_mode_id TEXT NOT NULL,
  warehouse_id TEXT,
  completed INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  selling_unit_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  tracking_id TEXT NOT NULL UNIQUE,
  status_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  reference TEXT NOT NULL UNIQUE,
  order_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  amount_minor INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  gateway_ref TEXT,
  completed_at DATETIME,
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

type orderFixture struct {
	db      *gorm.DB
	svc     Service
	emitter *stubEmitter
	userID  uuid.UUID
	address *models.Address
	mode    *models.DeliveryMode
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	db := setupOrdersTestDB(t)
	engine, err := pricing.NewEngine(pricing.NewRepository(db))
	require.NoError(t, err)

	emitter := &stubEmitter{}
	svc, err := NewService(NewRepository(db), cart.NewRepository(db), engine, gormTxRunner{db: db}, emitter)
	require.NoError(t, err)

	userID := uuid.New()
	address := &models.Address{
		ID:     uuid.New(),
		UserID: userID,
		Street: "4 Marina Rd",
		City:   "Lagos",
		State:  "Lagos",
	}
	require.NoError(t, db.Create(address).Error)

	mode := &models.DeliveryMode{
		ID:       uuid.New(),
		Name:     "door-" + uuid.NewString()[:8],
		FeeMinor: 500,
	}
	require.NoError(t, db.Create(mode).Error)

	return &orderFixture{
		db:      db,
		svc:     svc,
		emitter: emitter,
		userID:  userID,
		address: address,
		mode:    mode,
	}
}

func (f *orderFixture) seedCartItem(t *testing.T, qty int) *models.CartItem {
	t.Helper()

	product := &models.Product{
		ID:       uuid.New(),
		VendorID: uuid.New(),
		Name:     "Shea Butter",
		IsActive: true,
	}
	require.NoError(t, f.db.Create(product).Error)

	unit := &models.SellingUnit{
		ID:         uuid.New(),
		ProductID:  product.ID,
		Unit:       "tub",
		Size:       10,
		PriceMinor: 3000,
	}
	require.NoError(t, f.db.Create(unit).Error)

	item := &models.CartItem{
		ID:            uuid.New(),
		UserID:        f.userID,
		ProductID:     product.ID,
		SellingUnitID: unit.ID,
		Quantity:      qty,
	}
	require.NoError(t, f.db.Create(item).Error)
	return item
}

func TestCreateOrderConvertsCartItems(t *testing.T) {
	f := newOrderFixture(t)
	first := f.seedCartItem(t, 2)
	second := f.seedCartItem(t, 3)

	order, err := f.svc.Create(context.Background(), f.userID, CreateOrderInput{
		CartItemIDs:    []uuid.UUID{first.ID, second.ID},
		AddressID:      f.address.ID,
		DeliveryModeID: f.mode.ID,
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	assert.True(t, strings.HasPrefix(order.Code, "ORD-"))
	assert.False(t, order.Completed)

	quantities := map[uuid.UUID]int{}
	for _, item := range order.Items {
		assert.True(t, strings.HasPrefix(item.TrackingID, "TRK-"))
		quantities[item.SellingUnitID] = item.Quantity
	}
	assert.Equal(t, 2, quantities[first.SellingUnitID])
	assert.Equal(t, 3, quantities[second.SellingUnitID])

	// Consumed cart items are gone; the reservation transferred, so stock is
	// untouched.
	var cartCount int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("user_id = ?", f.userID).Count(&cartCount).Error)
	assert.Zero(t, cartCount)

	var unit models.SellingUnit
	require.NoError(t, f.db.Where("id = ?", first.SellingUnitID).First(&unit).Error)
	assert.Equal(t, 10, unit.Size)

	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, order.ID, f.emitter.events[0].AggregateID)
}

func TestCreateOrderAllOrNothing(t *testing.T) {
	f := newOrderFixture(t)
	item := f.seedCartItem(t, 2)

	_, err := f.svc.Create(context.Background(), f.userID, CreateOrderInput{
		CartItemIDs:    []uuid.UUID{item.ID, uuid.New()},
		AddressID:      f.address.ID,
		DeliveryModeID: f.mode.ID,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	var cartCount int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("id = ?", item.ID).Count(&cartCount).Error)
	assert.Equal(t, int64(1), cartCount)

	assert.Empty(t, f.emitter.events)
}

func TestCreateOrderChecksAddressOwnership(t *testing.T) {
	f := newOrderFixture(t)
	item := f.seedCartItem(t, 1)

	stranger := &models.Address{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Street: "1 Other St",
		City:   "Abuja",
		State:  "FCT",
	}
	require.NoError(t, f.db.Create(stranger).Error)

	_, err := f.svc.Create(context.Background(), f.userID, CreateOrderInput{
		CartItemIDs:    []uuid.UUID{item.ID},
		AddressID:      stranger.ID,
		DeliveryModeID: f.mode.ID,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestGetByIDScopedToOwner(t *testing.T) {
	f := newOrderFixture(t)
	item := f.seedCartItem(t, 1)

	order, err := f.svc.Create(context.Background(), f.userID, CreateOrderInput{
		CartItemIDs:    []uuid.UUID{item.ID},
		AddressID:      f.address.ID,
		DeliveryModeID: f.mode.ID,
	})
	require.NoError(t, err)

	found, err := f.svc.GetByID(context.Background(), f.userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Code, found.Code)

	_, err = f.svc.GetByID(context.Background(), uuid.New(), order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

// consumedCartRepo drops the cart rows just before the assembly's own delete,
// the way a competing order's committed delete would land.
type consumedCartRepo struct {
	cart.Repository
}

func (r consumedCartRepo) WithTx(tx *gorm.DB) cart.Repository {
	return consumedCartRepo{Repository: r.Repository.WithTx(tx)}
}

func (r consumedCartRepo) DeleteByIDs(ctx context.Context, itemIDs []uuid.UUID) (int64, error) {
	if _, err := r.Repository.DeleteByIDs(ctx, itemIDs); err != nil {
		return 0, err
	}
	return r.Repository.DeleteByIDs(ctx, itemIDs)
}

func TestCreateOrderAbortsWhenCartRowsAlreadyConsumed(t *testing.T) {
	f := newOrderFixture(t)
	item := f.seedCartItem(t, 2)

	engine, err := pricing.NewEngine(pricing.NewRepository(f.db))
	require.NoError(t, err)
	svc, err := NewService(
		NewRepository(f.db),
		consumedCartRepo{Repository: cart.NewRepository(f.db)},
		engine,
		gormTxRunner{db: f.db},
		f.emitter,
	)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), f.userID, CreateOrderInput{
		CartItemIDs:    []uuid.UUID{item.ID},
		AddressID:      f.address.ID,
		DeliveryModeID: f.mode.ID,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	// Nothing committed: the reservation backs at most one order's items.
	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	var itemCount int64
	require.NoError(t, f.db.Model(&models.OrderItem{}).Count(&itemCount).Error)
	assert.Zero(t, itemCount)

	assert.Empty(t, f.emitter.events)
}
