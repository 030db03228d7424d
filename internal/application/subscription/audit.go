package subscription

import (
	"context"
	"fmt"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
)

// ListSubscriptions auditoría de suscripciones (solo super-admin).
func (s *Service) ListSubscriptions(ctx context.Context, actor policy.Actor, page dto.PageRequest) ([]dto.SubscriptionResponse, error) {
	if !policy.Can(actor, policy.BillingAudit, policy.Target{}) {
		return nil, domain.ErrForbidden
	}
	page.DefaultPage()
	list, err := s.subs.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("listar suscripciones: %w", err)
	}
	out := make([]dto.SubscriptionResponse, 0, len(list))
	for _, sub := range list {
		out = append(out, ToSubscriptionResponse(sub))
	}
	return out, nil
}

// ListPayments auditoría de pagos (solo super-admin).
func (s *Service) ListPayments(ctx context.Context, actor policy.Actor, page dto.PageRequest) ([]dto.PaymentResponse, error) {
	if !policy.Can(actor, policy.BillingAudit, policy.Target{}) {
		return nil, domain.ErrForbidden
	}
	page.DefaultPage()
	list, err := s.payments.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("listar pagos: %w", err)
	}
	out := make([]dto.PaymentResponse, 0, len(list))
	for _, p := range list {
		out = append(out, dto.PaymentResponse{
			ID:               p.ID,
			SubscriptionID:   p.SubscriptionID,
			OrderID:          p.OrderID,
			PaymentID:        p.PaymentID,
			Status:           string(p.Status),
			Amount:           p.Amount,
			Currency:         p.Currency,
			ErrorDescription: p.ErrorDescription,
			CreatedAt:        p.CreatedAt,
		})
	}
	return out, nil
}

// ListWebhookEvents auditoría de eventos recibidos (solo super-admin).
func (s *Service) ListWebhookEvents(ctx context.Context, actor policy.Actor, page dto.PageRequest) ([]dto.WebhookEventResponse, error) {
	if !policy.Can(actor, policy.BillingAudit, policy.Target{}) {
		return nil, domain.ErrForbidden
	}
	page.DefaultPage()
	list, err := s.events.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("listar eventos: %w", err)
	}
	out := make([]dto.WebhookEventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, dto.WebhookEventResponse{
			EventID:         e.EventID,
			EventType:       e.EventType,
			IsVerified:      e.IsVerified,
			Processed:       e.Processed,
			ProcessedAt:     e.ProcessedAt,
			ProcessingError: e.ProcessingError,
			Attempts:        e.Attempts,
			CreatedAt:       e.CreatedAt,
		})
	}
	return out, nil
}

// ToSubscriptionResponse mapea la entidad a su DTO.
func ToSubscriptionResponse(sub *entity.Subscription) dto.SubscriptionResponse {
	return dto.SubscriptionResponse{
		ID:             sub.ID,
		OrganizationID: sub.OrganizationID,
		PlanType:       sub.PlanType,
		Status:         string(sub.Status),
		OrderID:        sub.OrderID,
		PaymentID:      sub.PaymentID,
		Amount:         sub.Amount,
		Currency:       sub.Currency,
		ActivatedAt:    sub.ActivatedAt,
		CreatedAt:      sub.CreatedAt,
		UpdatedAt:      sub.UpdatedAt,
	}
}
