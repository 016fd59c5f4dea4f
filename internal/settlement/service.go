package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/internal/notifications"
	"github.com/obiagwu/vendara-backend/pkg/db/models"
	"github.com/obiagwu/vendara-backend/pkg/enums"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/outbox"
	"github.com/obiagwu/vendara-backend/pkg/outbox/payloads"
	"github.com/obiagwu/vendara-backend/pkg/paystack"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// BankGateway is the slice of the payment processor settlement depends on.
type BankGateway interface {
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error)
	CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (*paystack.RecipientResult, error)
	DeactivateTransferRecipient(ctx context.Context, recipientCode string) error
}

// BankDetailInput is a vendor's claimed payout account.
type BankDetailInput struct {
	AccountName   string
	AccountNumber string
	BankCode      string
}

// Service runs the vendor settlement onboarding pipeline. Submission is
// synchronous; verification and recipient registration happen asynchronously
// off domain events, reporting outcomes through in-app notifications only.
type Service interface {
	SubmitBankDetail(ctx context.Context, vendorID uuid.UUID, input BankDetailInput) (*models.VendorBankDetail, error)
	VerifyVendorAccount(ctx context.Context, vendorID uuid.UUID) error
	CreateRecipientAccount(ctx context.Context, vendorID uuid.UUID) error
}

type service struct {
	repo     Repository
	gateway  BankGateway
	notifier notifications.Service
	tx       txRunner
	events   eventEmitter
}

// NewService wires the settlement service.
func NewService(repo Repository, gateway BankGateway, notifier notifications.Service, tx txRunner, events eventEmitter) (Service, error) {
	if repo == nil || gateway == nil || notifier == nil || tx == nil || events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement: missing dependency")
	}
	return &service{repo: repo, gateway: gateway, notifier: notifier, tx: tx, events: events}, nil
}

// SubmitBankDetail stores the claimed account and schedules verification.
// Resubmitting replaces the previous claim and resets any earlier outcome.
func (s *service) SubmitBankDetail(ctx context.Context, vendorID uuid.UUID, input BankDetailInput) (*models.VendorBankDetail, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	name := strings.TrimSpace(input.AccountName)
	number := strings.TrimSpace(input.AccountNumber)
	bankCode := strings.TrimSpace(input.BankCode)
	if name == "" || number == "" || bankCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account name, account number and bank code are required")
	}

	detail := &models.VendorBankDetail{
		ID:            uuid.New(),
		VendorID:      vendorID,
		AccountName:   name,
		AccountNumber: number,
		BankCode:      bankCode,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.UpsertBankDetail(ctx, detail); err != nil {
			return err
		}

		// A fresh claim invalidates any prior verification outcome.
		pending := "pending verification"
		if err := repo.UpsertVerification(ctx, &models.VendorVerification{
			ID:       uuid.New(),
			VendorID: vendorID,
			Note:     &pending,
		}); err != nil {
			return err
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorBankSubmitted,
			AggregateType: enums.AggregateVendor,
			AggregateID:   vendorID,
			Data: payloads.VendorBankSubmittedEvent{
				VendorID:     vendorID,
				BankDetailID: detail.ID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindBankDetail(ctx, vendorID)
}

// VerifyVendorAccount resolves the claimed account with the bank and matches
// names. A mismatch is a final outcome: it is recorded, the vendor is
// notified, and nil is returned so the caller does not redeliver. Only
// transient gateway failures propagate.
func (s *service) VerifyVendorAccount(ctx context.Context, vendorID uuid.UUID) error {
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}

	detail, err := s.repo.FindBankDetail(ctx, vendorID)
	if err != nil {
		return err
	}

	resolved, err := s.gateway.ResolveAccount(ctx, detail.AccountNumber, detail.BankCode)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeGatewayDeclined) {
			reason := "the bank could not resolve the account number"
			return s.recordMismatch(ctx, vendorID, nil, reason)
		}
		return err
	}

	if !NameMatches(detail.AccountName, resolved.AccountName) {
		reason := fmt.Sprintf("account name %q does not match the bank record", detail.AccountName)
		return s.recordMismatch(ctx, vendorID, &resolved.AccountName, reason)
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.UpsertVerification(ctx, &models.VendorVerification{
			ID:                  uuid.New(),
			VendorID:            vendorID,
			IsVerified:          true,
			ResolvedAccountName: &resolved.AccountName,
		}); err != nil {
			return err
		}

		if err := s.notifier.WithTx(tx).Notify(ctx, vendorID, enums.NotificationTypeSettlement,
			"Bank account verified",
			"Your payout account was verified and is being registered for settlements."); err != nil {
			return err
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorVerified,
			AggregateType: enums.AggregateVendor,
			AggregateID:   vendorID,
			Data:          payloads.VendorVerifiedEvent{VendorID: vendorID},
		})
	})
}

func (s *service) recordMismatch(ctx context.Context, vendorID uuid.UUID, resolvedName *string, reason string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.UpsertVerification(ctx, &models.VendorVerification{
			ID:                  uuid.New(),
			VendorID:            vendorID,
			IsVerified:          false,
			ResolvedAccountName: resolvedName,
			Note:                &reason,
		}); err != nil {
			return err
		}

		return s.notifier.WithTx(tx).Notify(ctx, vendorID, enums.NotificationTypeSettlement,
			"Bank account verification failed",
			"We could not verify your payout account: "+reason+". Please review your bank details and submit them again.")
	})
}

// CreateRecipientAccount registers the verified account as the payout
// destination, replacing any previously active recipient gateway-first.
func (s *service) CreateRecipientAccount(ctx context.Context, vendorID uuid.UUID) error {
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}

	verification, err := s.repo.FindVerification(ctx, vendorID)
	if err != nil {
		return err
	}
	if !verification.IsVerified {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "vendor bank account is not verified")
	}

	detail, err := s.repo.FindBankDetail(ctx, vendorID)
	if err != nil {
		return err
	}

	prior, err := s.repo.FindActiveRecipient(ctx, vendorID)
	if err != nil {
		return err
	}
	if prior != nil {
		if err := s.gateway.DeactivateTransferRecipient(ctx, prior.RecipientCode); err != nil {
			return err
		}
		if err := s.repo.DeactivateRecipient(ctx, prior.ID); err != nil {
			return err
		}
	}

	result, err := s.gateway.CreateTransferRecipient(ctx, detail.AccountName, detail.AccountNumber, detail.BankCode)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.CreateRecipient(ctx, &models.Recipient{
			ID:            uuid.New(),
			VendorID:      vendorID,
			RecipientCode: result.RecipientCode,
			Active:        true,
		}); err != nil {
			return err
		}

		return s.notifier.WithTx(tx).Notify(ctx, vendorID, enums.NotificationTypeSettlement,
			"Payout account registered",
			"Your bank account is registered for settlements.")
	})
}

// NameMatches reports whether every token of the claimed name appears in the
// bank-resolved name, ignoring case and order. Banks often return extra
// tokens (middle names, initials), so the claimed name only needs to be a
// subset: "John Doe" matches "DOE JOHN A".
func NameMatches(claimed, resolved string) bool {
	claimedTokens := strings.Fields(strings.ToLower(claimed))
	if len(claimedTokens) == 0 {
		return false
	}

	resolvedTokens := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(resolved)) {
		resolvedTokens[token] = struct{}{}
	}

	for _, token := range claimedTokens {
		if _, ok := resolvedTokens[token]; !ok {
			return false
		}
	}
	return true
}
