package notifications

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/pkg/db/models"
	"github.com/obiagwu/vendara-backend/pkg/enums"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/pagination"
)

// Service manages in-app notifications. Settlement and payment workers use
// Notify as their only channel back to vendors.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Notify(ctx context.Context, vendorID uuid.UUID, kind enums.NotificationType, title, message string) error
	List(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Notification, string, error)
	MarkRead(ctx context.Context, vendorID, notificationID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds the notification service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications: repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Notify(ctx context.Context, vendorID uuid.UUID, kind enums.NotificationType, title, message string) error {
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(message) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title and message are required")
	}

	return s.repo.Create(ctx, &models.Notification{
		ID:       uuid.New(),
		VendorID: vendorID,
		Type:     kind,
		Title:    title,
		Message:  message,
	})
}

func (s *service) List(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Notification, string, error) {
	if vendorID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	return s.repo.ListForVendor(ctx, vendorID, params)
}

func (s *service) MarkRead(ctx context.Context, vendorID, notificationID uuid.UUID) error {
	if vendorID == uuid.Nil || notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id and notification id are required")
	}
	return s.repo.MarkRead(ctx, vendorID, notificationID)
}
