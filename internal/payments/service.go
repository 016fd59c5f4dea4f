// Package payments drives the order charge lifecycle against the payment
// gateway. Statuses move pending -> processing -> completed|failed, with
// refunded reachable only from completed; every move is a guarded
// compare-and-set so redelivered verifications cannot double-transition.
package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/internal/orders"
	"github.com/obiagwu/vendara-backend/internal/pricing"
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

// Gateway is the slice of the payment processor the service depends on.
type Gateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResult, error)
	CreateRefund(ctx context.Context, reference string, amountMinor int64) (*paystack.RefundResult, error)
}

// Service exposes the charge lifecycle.
type Service interface {
	CreateOrderCharge(ctx context.Context, userID, orderID uuid.UUID, email string) (*ChargeResult, error)
	VerifyCharge(ctx context.Context, reference string) (*models.Payment, error)
	Refund(ctx context.Context, reference string, amountMinor int64, notes string) (*models.Payment, error)
}

// ChargeResult carries the payment row plus the hosted checkout handle.
type ChargeResult struct {
	Payment          *models.Payment
	AuthorizationURL string
}

type service struct {
	repo    Repository
	orders  orders.Repository
	pricing pricing.Engine
	gateway Gateway
	tx      txRunner
	events  eventEmitter
}

// NewService builds a payments service backed by the provided stack.
func NewService(repo Repository, ordersRepo orders.Repository, engine pricing.Engine, gateway Gateway, tx txRunner, events eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:    repo,
		orders:  ordersRepo,
		pricing: engine,
		gateway: gateway,
		tx:      tx,
		events:  events,
	}, nil
}

// CreateOrderCharge computes the discounted order total, ensures a payment
// row exists and asks the gateway for a checkout handle. No funds move here.
// Re-calling for an unpaid order reuses the existing reference.
func (s *service) CreateOrderCharge(ctx context.Context, userID, orderID uuid.UUID, email string) (*ChargeResult, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and order id are required")
	}
	if strings.TrimSpace(email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	order, err := s.orders.FindByIDForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch existing.Status {
		case enums.PaymentStatusCompleted, enums.PaymentStatusRefunded:
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		case enums.PaymentStatusFailed:
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment for order already failed")
		}
	}

	itemsTotal, err := s.pricing.OrderItemsTotal(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var fee int64
	if order.DeliveryMode != nil {
		fee = order.DeliveryMode.FeeMinor
	}
	total := itemsTotal + fee
	if total <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	payment := existing
	if payment == nil {
		payment = &models.Payment{
			ID:          uuid.New(),
			Reference:   newChargeReference(),
			OrderID:     orderID,
			UserID:      userID,
			AmountMinor: total,
			Status:      enums.PaymentStatusPending,
		}
		if err := s.repo.Create(ctx, payment); err != nil {
			return nil, err
		}
	}

	init, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       email,
		AmountMinor: payment.AmountMinor,
		Reference:   payment.Reference,
	})
	if err != nil {
		return nil, err
	}

	if payment.Status == enums.PaymentStatusPending {
		moved, err := s.repo.TransitionStatus(ctx, payment.ID, enums.PaymentStatusPending, enums.PaymentStatusProcessing, map[string]any{
			"gateway_ref": init.AccessCode,
		})
		if err != nil {
			return nil, err
		}
		if moved {
			payment.Status = enums.PaymentStatusProcessing
			payment.GatewayRef = &init.AccessCode
		}
	}

	return &ChargeResult{
		Payment:          payment,
		AuthorizationURL: init.AuthorizationURL,
	}, nil
}

// VerifyCharge settles the payment from the gateway's view of the reference.
// Idempotent: verifying an already completed payment returns it unchanged
// with no new side effects.
func (s *service) VerifyCharge(ctx context.Context, reference string) (*models.Payment, error) {
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	payment, err := s.repo.FindByReference(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if payment.Status == enums.PaymentStatusCompleted || payment.Status == enums.PaymentStatusRefunded {
		return payment, nil
	}

	result, err := s.gateway.VerifyTransaction(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	if !result.Succeeded() {
		if err := s.failPayment(ctx, payment); err != nil {
			return nil, err
		}
		return s.repo.FindByReference(ctx, trimmed)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByReference(ctx, trimmed)
		if err != nil {
			return err
		}
		if current.Status == enums.PaymentStatusCompleted || current.Status == enums.PaymentStatusRefunded {
			return nil
		}
		if current.Status == enums.PaymentStatusPending {
			if _, err := repo.TransitionStatus(ctx, current.ID, enums.PaymentStatusPending, enums.PaymentStatusProcessing, nil); err != nil {
				return err
			}
		}

		now := time.Now()
		updates := map[string]any{"completed_at": now}
		if result.GatewayRef != "" {
			updates["gateway_ref"] = result.GatewayRef
		}
		moved, err := repo.TransitionStatus(ctx, current.ID, enums.PaymentStatusProcessing, enums.PaymentStatusCompleted, updates)
		if err != nil {
			return err
		}
		if !moved {
			// Lost the race to another verification; nothing left to do.
			return nil
		}

		if auth := result.Authorization; auth.Reusable && auth.Signature != "" {
			err = repo.SaveCard(ctx, &models.SavedCard{
				ID:                uuid.New(),
				UserID:            current.UserID,
				Signature:         auth.Signature,
				AuthorizationCode: auth.AuthorizationCode,
				CardType:          auth.CardType,
				Last4:             auth.Last4,
			})
			if err != nil {
				return err
			}
		}

		if err := s.orders.WithTx(tx).MarkCompleted(ctx, current.OrderID); err != nil {
			return err
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCompleted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   current.ID,
			Actor:         &outbox.ActorRef{UserID: current.UserID},
			Data: payloads.PaymentCompletedEvent{
				PaymentID:   current.ID,
				OrderID:     current.OrderID,
				Reference:   current.Reference,
				AmountMinor: current.AmountMinor,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByReference(ctx, trimmed)
}

// Refund pushes a refund to the gateway first and records it locally only on
// gateway success. A gateway failure leaves no local trace.
func (s *service) Refund(ctx context.Context, reference string, amountMinor int64, notes string) (*models.Payment, error) {
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	if amountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	payment, err := s.repo.FindByReference(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed payments can be refunded")
	}
	if amountMinor > payment.AmountMinor {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds payment total")
	}

	result, err := s.gateway.CreateRefund(ctx, trimmed, amountMinor)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		moved, err := repo.TransitionStatus(ctx, payment.ID, enums.PaymentStatusCompleted, enums.PaymentStatusRefunded, nil)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is no longer refundable")
		}

		var notesPtr *string
		if trimmedNotes := strings.TrimSpace(notes); trimmedNotes != "" {
			notesPtr = &trimmedNotes
		}
		return repo.CreateRefund(ctx, &models.Refund{
			ID:            uuid.New(),
			PaymentID:     payment.ID,
			AmountMinor:   amountMinor,
			DeductedMinor: result.DeductedMinor,
			Notes:         notesPtr,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByReference(ctx, trimmed)
}

func (s *service) failPayment(ctx context.Context, payment *models.Payment) error {
	if payment.Status == enums.PaymentStatusPending {
		if _, err := s.repo.TransitionStatus(ctx, payment.ID, enums.PaymentStatusPending, enums.PaymentStatusProcessing, nil); err != nil {
			return err
		}
	}
	_, err := s.repo.TransitionStatus(ctx, payment.ID, enums.PaymentStatusProcessing, enums.PaymentStatusFailed, nil)
	return err
}

// newChargeReference returns the internal reference handed to the gateway.
func newChargeReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY-" + strings.ToUpper(raw[:16])
}
