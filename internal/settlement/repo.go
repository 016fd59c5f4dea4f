package settlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/obiagwu/vendara-backend/pkg/db/models"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
)

// Repository persists bank details, verification outcomes and payout
// recipients. One bank detail and one verification row per vendor; recipients
// accumulate but only one stays active.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertBankDetail(ctx context.Context, detail *models.VendorBankDetail) error
	FindBankDetail(ctx context.Context, vendorID uuid.UUID) (*models.VendorBankDetail, error)
	UpsertVerification(ctx context.Context, verification *models.VendorVerification) error
	FindVerification(ctx context.Context, vendorID uuid.UUID) (*models.VendorVerification, error)
	FindActiveRecipient(ctx context.Context, vendorID uuid.UUID) (*models.Recipient, error)
	DeactivateRecipient(ctx context.Context, recipientID uuid.UUID) error
	CreateRecipient(ctx context.Context, recipient *models.Recipient) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) UpsertBankDetail(ctx context.Context, detail *models.VendorBankDetail) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vendor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"account_name", "account_number", "bank_code", "updated_at",
			}),
		}).
		Create(detail).Error
}

func (r *repository) FindBankDetail(ctx context.Context, vendorID uuid.UUID) (*models.VendorBankDetail, error) {
	var detail models.VendorBankDetail
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		First(&detail).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bank detail not found")
		}
		return nil, err
	}
	return &detail, nil
}

func (r *repository) UpsertVerification(ctx context.Context, verification *models.VendorVerification) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vendor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"is_verified", "resolved_account_name", "note", "updated_at",
			}),
		}).
		Create(verification).Error
}

func (r *repository) FindVerification(ctx context.Context, vendorID uuid.UUID) (*models.VendorVerification, error) {
	var verification models.VendorVerification
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		First(&verification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor verification not found")
		}
		return nil, err
	}
	return &verification, nil
}

func (r *repository) FindActiveRecipient(ctx context.Context, vendorID uuid.UUID) (*models.Recipient, error) {
	var recipient models.Recipient
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND active = ?", vendorID, true).
		Order("created_at DESC").
		First(&recipient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recipient, nil
}

func (r *repository) DeactivateRecipient(ctx context.Context, recipientID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Recipient{}).
		Where("id = ?", recipientID).
		Update("active", false).Error
}

func (r *repository) CreateRecipient(ctx context.Context, recipient *models.Recipient) error {
	return r.db.WithContext(ctx).Create(recipient).Error
}
