package settlement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/internal/notifications"
	"github.com/obiagwu/vendara-backend/pkg/db/models"
	"github.com/obiagwu/vendara-backend/pkg/enums"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/outbox"
	"github.com/obiagwu/vendara-backend/pkg/paystack"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubBankGateway struct {
	resolveCalls    int
	recipientCalls  int
	deactivateCalls int

	resolved     *paystack.ResolvedAccount
	resolveErr   error
	recipient    *paystack.RecipientResult
	recipientErr error
	deactivated  []string
}

func (g *stubBankGateway) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error) {
	g.resolveCalls++
	if g.resolveErr != nil {
		return nil, g.resolveErr
	}
	return g.resolved, nil
}

func (g *stubBankGateway) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (*paystack.RecipientResult, error) {
	g.recipientCalls++
	if g.recipientErr != nil {
		return nil, g.recipientErr
	}
	if g.recipient != nil {
		return g.recipient, nil
	}
	return &paystack.RecipientResult{RecipientCode: "RCP_" + uuid.NewString()[:8]}, nil
}

func (g *stubBankGateway) DeactivateTransferRecipient(ctx context.Context, recipientCode string) error {
	g.deactivateCalls++
	g.deactivated = append(g.deactivated, recipientCode)
	return nil
}

func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{`
CREATE TABLE IF NOT EXISTS vendor_bank_details (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL UNIQUE,
  account_name TEXT NOT NULL,
  account_number TEXT NOT NULL,
  bank_code TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS vendor_verifications (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL UNIQUE,
  is_verified INTEGER NOT NULL DEFAULT 0,
  resolved_account_name TEXT,
  note TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS recipients (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  recipient_code TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  read_at DATETIME,
  created_at DATETIME
);`}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

type settlementFixture struct {
	db      *gorm.DB
	svc     Service
	gateway *stubBankGateway
	emitter *stubEmitter
	vendor  uuid.UUID
}

func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()

	db := setupSettlementTestDB(t)
	notifier, err := notifications.NewService(notifications.NewRepository(db))
	require.NoError(t, err)

	gateway := &stubBankGateway{}
	emitter := &stubEmitter{}
	svc, err := NewService(NewRepository(db), gateway, notifier, gormTxRunner{db: db}, emitter)
	require.NoError(t, err)

	return &settlementFixture{db: db, svc: svc, gateway: gateway, emitter: emitter, vendor: uuid.New()}
}

func (f *settlementFixture) submit(t *testing.T, name string) {
	t.Helper()

	_, err := f.svc.SubmitBankDetail(context.Background(), f.vendor, BankDetailInput{
		AccountName:   name,
		AccountNumber: "0123456789",
		BankCode:      "058",
	})
	require.NoError(t, err)
}

func (f *settlementFixture) notificationCount(t *testing.T) int64 {
	t.Helper()

	var count int64
	require.NoError(t, f.db.Model(&models.Notification{}).Where("vendor_id = ?", f.vendor).Count(&count).Error)
	return count
}

func TestNameMatches(t *testing.T) {
	assert.True(t, NameMatches("John Doe", "DOE JOHN A"))
	assert.True(t, NameMatches("john doe", "John Middle Doe"))
	assert.False(t, NameMatches("Jane Smith", "JOHN DOE"))
	assert.False(t, NameMatches("John Doe Junior", "JOHN DOE"))
	assert.False(t, NameMatches("", "JOHN DOE"))
}

func TestSubmitBankDetailEmitsAndResetsVerification(t *testing.T) {
	f := newSettlementFixture(t)
	f.submit(t, "John Doe")

	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, enums.EventVendorBankSubmitted, f.emitter.events[0].EventType)

	// Resubmission replaces the claim in place and resets the outcome.
	f.gateway.resolved = &paystack.ResolvedAccount{AccountName: "DOE JOHN A", AccountNumber: "0123456789"}
	require.NoError(t, f.svc.VerifyVendorAccount(context.Background(), f.vendor))

	f.submit(t, "John A Doe")

	var details int64
	require.NoError(t, f.db.Model(&models.VendorBankDetail{}).Count(&details).Error)
	assert.Equal(t, int64(1), details)

	var verification models.VendorVerification
	require.NoError(t, f.db.Where("vendor_id = ?", f.vendor).First(&verification).Error)
	assert.False(t, verification.IsVerified)
}

func TestVerifyVendorAccountMatchChain(t *testing.T) {
	f := newSettlementFixture(t)
	f.submit(t, "John Doe")
	f.gateway.resolved = &paystack.ResolvedAccount{AccountName: "DOE JOHN A", AccountNumber: "0123456789"}

	require.NoError(t, f.svc.VerifyVendorAccount(context.Background(), f.vendor))

	var verification models.VendorVerification
	require.NoError(t, f.db.Where("vendor_id = ?", f.vendor).First(&verification).Error)
	assert.True(t, verification.IsVerified)
	require.NotNil(t, verification.ResolvedAccountName)
	assert.Equal(t, "DOE JOHN A", *verification.ResolvedAccountName)

	// bank_submitted from the fixture plus vendor.verified from the match.
	require.Len(t, f.emitter.events, 2)
	assert.Equal(t, enums.EventVendorVerified, f.emitter.events[1].EventType)
	assert.Equal(t, int64(1), f.notificationCount(t))
}

func TestVerifyVendorAccountMismatchStopsWithoutRetry(t *testing.T) {
	f := newSettlementFixture(t)
	f.submit(t, "Jane Smith")
	f.gateway.resolved = &paystack.ResolvedAccount{AccountName: "JOHN DOE", AccountNumber: "0123456789"}

	// Mismatch is final: nil is returned so the message is not redelivered.
	require.NoError(t, f.svc.VerifyVendorAccount(context.Background(), f.vendor))

	var verification models.VendorVerification
	require.NoError(t, f.db.Where("vendor_id = ?", f.vendor).First(&verification).Error)
	assert.False(t, verification.IsVerified)
	require.NotNil(t, verification.Note)

	// Only vendor.bank_submitted was emitted; no vendor.verified follows.
	assert.Len(t, f.emitter.events, 1)
	assert.Equal(t, int64(1), f.notificationCount(t))
}

func TestVerifyVendorAccountTransientErrorPropagates(t *testing.T) {
	f := newSettlementFixture(t)
	f.submit(t, "John Doe")
	f.gateway.resolveErr = pkgerrors.New(pkgerrors.CodeDependency, "bank resolution timed out")

	err := f.svc.VerifyVendorAccount(context.Background(), f.vendor)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	// Nothing was recorded so redelivery starts clean.
	var verification models.VendorVerification
	require.NoError(t, f.db.Where("vendor_id = ?", f.vendor).First(&verification).Error)
	assert.False(t, verification.IsVerified)
	assert.Equal(t, int64(0), f.notificationCount(t))
}

func TestVerifyVendorAccountDeclinedRecordsFailure(t *testing.T) {
	f := newSettlementFixture(t)
	f.submit(t, "John Doe")
	f.gateway.resolveErr = pkgerrors.New(pkgerrors.CodeGatewayDeclined, "could not resolve account")

	require.NoError(t, f.svc.VerifyVendorAccount(context.Background(), f.vendor))

	var verification models.VendorVerification
	require.NoError(t, f.db.Where("vendor_id = ?", f.vendor).First(&verification).Error)
	assert.False(t, verification.IsVerified)
	assert.Equal(t, int64(1), f.notificationCount(t))
}

func TestCreateRecipientAccountReplacesActiveRecipient(t *testing.T) {
	f := newSettlementFixture(t)
	f.submit(t, "John Doe")
	f.gateway.resolved = &paystack.ResolvedAccount{AccountName: "DOE JOHN A", AccountNumber: "0123456789"}
	require.NoError(t, f.svc.VerifyVendorAccount(context.Background(), f.vendor))

	require.NoError(t, f.svc.CreateRecipientAccount(context.Background(), f.vendor))
	require.NoError(t, f.svc.CreateRecipientAccount(context.Background(), f.vendor))

	var active []models.Recipient
	require.NoError(t, f.db.Where("vendor_id = ? AND active = ?", f.vendor, true).Find(&active).Error)
	require.Len(t, active, 1)

	var total int64
	require.NoError(t, f.db.Model(&models.Recipient{}).Where("vendor_id = ?", f.vendor).Count(&total).Error)
	assert.Equal(t, int64(2), total)

	// The first recipient was deactivated at the gateway before being replaced.
	assert.Equal(t, 1, f.gateway.deactivateCalls)
	assert.Equal(t, 2, f.gateway.recipientCalls)
}

func TestCreateRecipientAccountRequiresVerification(t *testing.T) {
	f := newSettlementFixture(t)
	f.submit(t, "John Doe")

	err := f.svc.CreateRecipientAccount(context.Background(), f.vendor)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Zero(t, f.gateway.recipientCalls)
}
