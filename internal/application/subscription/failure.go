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

const defaultFailureReason = "pago rechazado por la pasarela"

// HandlePaymentFailure marca FAILED la suscripción de la orden si no está ACTIVE y deja el pago en FAILED.
// Sin paymentID lo busca en los pagos de la orden en la pasarela.
func (s *Service) HandlePaymentFailure(ctx context.Context, orderID, paymentID, reason string) (bool, error) {
	if paymentID == "" {
		paymentID = s.lookupFailedPayment(ctx, orderID)
	}
	return s.failOrder(ctx, orderID, paymentID, reason, false)
}

// ReportPaymentFailure callback de falla del checkout.
func (s *Service) ReportPaymentFailure(ctx context.Context, actor policy.Actor, in dto.PaymentFailureRequest) (*dto.SubscriptionStatusResponse, error) {
	sub, err := s.subs.GetByOrderID(ctx, in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("cargar suscripción: %w", err)
	}
	if sub == nil || !policy.Can(actor, policy.BillingPurchase, policy.InOrganization(sub.OrganizationID)) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if _, err := s.HandlePaymentFailure(ctx, in.OrderID, in.PaymentID, in.Reason); err != nil {
		return nil, err
	}
	return s.Status(ctx, actor, in.OrderID)
}

func (s *Service) lookupFailedPayment(ctx context.Context, orderID string) string {
	payments, err := s.gateway.ListPayments(ctx, orderID)
	if err != nil {
		s.log.Warn().Err(err).Str("order_id", orderID).Msg("no se pudieron consultar los pagos de la orden")
		return ""
	}
	for _, p := range payments {
		if p.Status == ports.GatewayPaymentFailed {
			return p.ID
		}
	}
	if len(payments) > 0 {
		return payments[0].ID
	}
	return ""
}

// failOrder aplica la falla bajo bloqueo de fila. Con revertActive una suscripción ACTIVE
// activada por este mismo pago (o sin pago registrado) vuelve a FAILED y pierde premium;
// si fue activada por otro pago se deja intacta.
func (s *Service) failOrder(ctx context.Context, orderID, paymentID, reason string, revertActive bool) (bool, error) {
	if reason == "" {
		reason = defaultFailureReason
	}
	var (
		changed bool
		sub     *entity.Subscription
	)
	err := s.tx.RunBilling(ctx, func(subs repository.SubscriptionRepository, payments repository.PaymentRepository, orgs repository.OrganizationRepository) error {
		var err error
		sub, err = subs.GetForUpdateByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("bloquear suscripción: %w", err)
		}
		if sub == nil {
			return domain.ErrSubscriptionNotFound
		}
		if sub.IsActive() {
			if !revertActive || (sub.PaymentID != "" && paymentID != "" && sub.PaymentID != paymentID) {
				s.log.Warn().Str("subscription_id", sub.ID).Str("order_id", orderID).Str("payment_id", paymentID).
					Msg("falla de pago sobre suscripción activa ignorada")
				return nil
			}
			sub.ActivatedAt = nil
		}

		now := time.Now()
		changed = sub.Status != entity.SubscriptionFailed
		sub.Status = entity.SubscriptionFailed
		if paymentID != "" {
			sub.PaymentID = paymentID
		}
		sub.UpdatedAt = now
		if err := subs.Update(ctx, sub); err != nil {
			return fmt.Errorf("actualizar suscripción: %w", err)
		}
		if err := orgs.SetPremium(ctx, sub.OrganizationID, false); err != nil {
			return fmt.Errorf("revertir premium: %w", err)
		}
		return failPayment(ctx, payments, sub, paymentID, reason, now)
	})
	if err != nil {
		return false, err
	}
	if changed {
		s.log.Info().Str("organization_id", sub.OrganizationID).Str("subscription_id", sub.ID).Str("order_id", orderID).
			Str("reason", reason).Msg("suscripción marcada como fallida")
		s.notifyAdmins(ctx, sub.OrganizationID, ports.TemplatePaymentFailed, map[string]string{
			"order_id": orderID,
			"reason":   reason,
		})
	}
	return changed, nil
}

func failPayment(ctx context.Context, payments repository.PaymentRepository, sub *entity.Subscription, paymentID, reason string, now time.Time) error {
	p, err := payments.GetBySubscriptionAndOrder(ctx, sub.ID, sub.OrderID)
	if err != nil {
		return fmt.Errorf("cargar pago: %w", err)
	}
	if p == nil {
		err = payments.Create(ctx, &entity.Payment{
			ID:               uuid.NewString(),
			SubscriptionID:   sub.ID,
			OrderID:          sub.OrderID,
			PaymentID:        paymentID,
			Status:           entity.PaymentFailed,
			Amount:           sub.Amount,
			Currency:         sub.Currency,
			ErrorDescription: reason,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err != nil {
			return fmt.Errorf("registrar pago: %w", err)
		}
		return nil
	}
	if paymentID != "" {
		p.PaymentID = paymentID
	}
	p.Status = entity.PaymentFailed
	p.ErrorDescription = reason
	p.UpdatedAt = now
	if err := payments.Update(ctx, p); err != nil {
		return fmt.Errorf("actualizar pago: %w", err)
	}
	return nil
}
