package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

// MinorToMajor convierte unidad mínima (paise) a unidad mayor.
func MinorToMajor(amountMinor int64) decimal.Decimal {
	return decimal.New(amountMinor, -2)
}

// CreateOrder crea una orden en la pasarela y reinicia la suscripción de la organización en PENDING_PAYMENT.
// Dentro de la ventana de enfriamiento devuelve la orden pendiente en vez de crear otra.
func (s *Service) CreateOrder(ctx context.Context, actor policy.Actor) (*dto.CreateOrderResponse, error) {
	orgID := actor.OrganizationID
	if !policy.Can(actor, policy.BillingPurchase, policy.InOrganization(orgID)) {
		return nil, domain.ErrForbidden
	}

	current, err := s.subs.GetByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("cargar suscripción: %w", err)
	}
	if current != nil && current.IsActive() {
		return nil, domain.ErrSubscriptionActive
	}

	if resp := s.cooldownOrder(ctx, orgID, current); resp != nil {
		return resp, nil
	}

	order, err := s.gateway.CreateOrder(ctx, s.cfg.PlanAmountMinor, s.cfg.Currency, map[string]string{
		"organization_id": orgID,
		"plan_type":       entity.PlanLifetime,
	})
	if err != nil {
		s.log.Error().Err(err).Str("organization_id", orgID).Msg("la pasarela rechazó la creación de la orden")
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	currency := order.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	amountMinor := order.AmountMinor
	if amountMinor == 0 {
		amountMinor = s.cfg.PlanAmountMinor
	}

	now := time.Now()
	sub := &entity.Subscription{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		PlanType:       entity.PlanLifetime,
		Status:         entity.SubscriptionPendingPayment,
		OrderID:        order.ID,
		Amount:         MinorToMajor(amountMinor),
		Currency:       currency,
		OrderCreatedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.tx.RunBilling(ctx, func(subs repository.SubscriptionRepository, payments repository.PaymentRepository, _ repository.OrganizationRepository) error {
		if err := subs.UpsertPending(ctx, sub); err != nil {
			return err
		}
		return payments.Create(ctx, &entity.Payment{
			ID:             uuid.NewString(),
			SubscriptionID: sub.ID,
			OrderID:        order.ID,
			Status:         entity.PaymentCreated,
			Amount:         sub.Amount,
			Currency:       currency,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	})
	if err != nil {
		s.log.Error().Err(err).Str("organization_id", orgID).Str("order_id", order.ID).Msg("no se pudo registrar la orden")
		return nil, err
	}

	if s.expiring != nil && s.cfg.OrderCooldown > 0 {
		rec := ports.ExpiringRecord{
			Purpose:   ports.PurposeOrderCooldown,
			SubjectID: orgID,
			Value:     order.ID,
			ExpiresAt: now.Add(s.cfg.OrderCooldown),
		}
		if err := s.expiring.Put(ctx, rec); err != nil {
			s.log.Warn().Err(err).Str("organization_id", orgID).Msg("no se pudo registrar el enfriamiento de la orden")
		}
	}

	s.log.Info().Str("organization_id", orgID).Str("subscription_id", sub.ID).Str("order_id", order.ID).Msg("orden creada")
	return &dto.CreateOrderResponse{OrderID: order.ID, AmountMinor: amountMinor, Currency: currency, KeyID: s.cfg.KeyID}, nil
}

func (s *Service) cooldownOrder(ctx context.Context, orgID string, current *entity.Subscription) *dto.CreateOrderResponse {
	if s.expiring == nil || current == nil || current.Status != entity.SubscriptionPendingPayment {
		return nil
	}
	rec, err := s.expiring.Get(ctx, ports.PurposeOrderCooldown, orgID)
	if err != nil {
		s.log.Warn().Err(err).Str("organization_id", orgID).Msg("no se pudo leer el enfriamiento de la orden")
		return nil
	}
	if rec == nil || rec.Value != current.OrderID {
		return nil
	}
	return &dto.CreateOrderResponse{
		OrderID:     current.OrderID,
		AmountMinor: current.Amount.Shift(2).IntPart(),
		Currency:    current.Currency,
		KeyID:       s.cfg.KeyID,
	}
}

// Status estado de la suscripción dueña de la orden, visible para miembros de la organización.
func (s *Service) Status(ctx context.Context, actor policy.Actor, orderID string) (*dto.SubscriptionStatusResponse, error) {
	sub, err := s.subs.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("cargar suscripción: %w", err)
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	if !policy.Can(actor, policy.BillingView, policy.InOrganization(sub.OrganizationID)) {
		// Otra organización: no se revela que la orden existe.
		return nil, domain.ErrSubscriptionNotFound
	}
	org, err := s.orgs.GetByID(ctx, sub.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("cargar organización: %w", err)
	}
	if org == nil {
		return nil, domain.ErrOrganizationNotFound
	}
	return &dto.SubscriptionStatusResponse{
		OrderID:            sub.OrderID,
		SubscriptionStatus: string(sub.Status),
		IsPremium:          org.IsPremium,
		ActivatedAt:        sub.ActivatedAt,
	}, nil
}
