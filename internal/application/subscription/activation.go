package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

// VerifySignature valida la firma de pago del checkout. No modifica estado.
func (s *Service) VerifySignature(orderID, paymentID, signature string) bool {
	return s.gateway.VerifyPaymentSignature(orderID, paymentID, signature) == nil
}

type lockFunc func(subs repository.SubscriptionRepository) (*entity.Subscription, error)

// ActivateSubscription activa la suscripción bajo bloqueo de fila. Idempotente: si ya está ACTIVE no hace nada.
// Suscripción, pago y bandera premium de la organización se escriben en la misma transacción.
func (s *Service) ActivateSubscription(ctx context.Context, subscriptionID, paymentID, signature, source string) (bool, error) {
	return s.activate(ctx, func(subs repository.SubscriptionRepository) (*entity.Subscription, error) {
		return subs.GetForUpdate(ctx, subscriptionID)
	}, paymentID, signature, source)
}

// ActivateByOrder como ActivateSubscription pero ubicando la suscripción por su orden vigente.
func (s *Service) ActivateByOrder(ctx context.Context, orderID, paymentID, signature, source string) (bool, error) {
	return s.activate(ctx, func(subs repository.SubscriptionRepository) (*entity.Subscription, error) {
		return subs.GetForUpdateByOrderID(ctx, orderID)
	}, paymentID, signature, source)
}

func (s *Service) activate(ctx context.Context, lock lockFunc, paymentID, signature, source string) (bool, error) {
	var (
		activated bool
		sub       *entity.Subscription
	)
	err := s.tx.RunBilling(ctx, func(subs repository.SubscriptionRepository, payments repository.PaymentRepository, orgs repository.OrganizationRepository) error {
		var err error
		sub, err = lock(subs)
		if err != nil {
			return fmt.Errorf("bloquear suscripción: %w", err)
		}
		if sub == nil {
			return domain.ErrSubscriptionNotFound
		}
		if sub.IsActive() {
			return nil
		}

		now := time.Now()
		sub.Status = entity.SubscriptionActive
		sub.PaymentID = paymentID
		sub.Signature = signature
		sub.ActivatedAt = &now
		sub.UpdatedAt = now
		if err := subs.Update(ctx, sub); err != nil {
			return fmt.Errorf("actualizar suscripción: %w", err)
		}
		if err := orgs.SetPremium(ctx, sub.OrganizationID, true); err != nil {
			return fmt.Errorf("marcar organización premium: %w", err)
		}
		if err := capturePayment(ctx, payments, sub, paymentID, now); err != nil {
			return err
		}
		activated = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !activated {
		return false, nil
	}

	s.metrics.Activated(source)
	s.log.Info().
		Str("organization_id", sub.OrganizationID).
		Str("subscription_id", sub.ID).
		Str("order_id", sub.OrderID).
		Str("source", source).
		Msg("suscripción activada")
	s.notifyAdmins(ctx, sub.OrganizationID, ports.TemplateSubscriptionActivated, map[string]string{
		"order_id":   sub.OrderID,
		"payment_id": paymentID,
		"amount":     sub.Amount.StringFixed(2),
		"currency":   sub.Currency,
	})
	return true, nil
}

func capturePayment(ctx context.Context, payments repository.PaymentRepository, sub *entity.Subscription, paymentID string, now time.Time) error {
	p, err := payments.GetBySubscriptionAndOrder(ctx, sub.ID, sub.OrderID)
	if err != nil {
		return fmt.Errorf("cargar pago: %w", err)
	}
	if p == nil {
		err = payments.Create(ctx, &entity.Payment{
			ID:             uuid.NewString(),
			SubscriptionID: sub.ID,
			OrderID:        sub.OrderID,
			PaymentID:      paymentID,
			Status:         entity.PaymentCaptured,
			Amount:         sub.Amount,
			Currency:       sub.Currency,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("registrar pago: %w", err)
		}
		return nil
	}
	p.PaymentID = paymentID
	p.Status = entity.PaymentCaptured
	p.ErrorDescription = ""
	p.UpdatedAt = now
	if err := payments.Update(ctx, p); err != nil {
		return fmt.Errorf("actualizar pago: %w", err)
	}
	return nil
}

// ConfirmPayment callback del checkout: verifica la firma y activa.
func (s *Service) ConfirmPayment(ctx context.Context, actor policy.Actor, in dto.PaymentCallbackRequest) (*dto.SubscriptionStatusResponse, error) {
	if !s.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		s.log.Warn().Str("order_id", in.OrderID).Msg("firma de pago inválida en callback")
		return nil, domain.ErrInvalidSignature
	}
	sub, err := s.subs.GetByOrderID(ctx, in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("cargar suscripción: %w", err)
	}
	if sub == nil || !policy.Can(actor, policy.BillingPurchase, policy.InOrganization(sub.OrganizationID)) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if _, err := s.ActivateByOrder(ctx, in.OrderID, in.PaymentID, in.Signature, SourceCallback); err != nil {
		return nil, err
	}
	return s.Status(ctx, actor, in.OrderID)
}
