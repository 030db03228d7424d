package subscription

import (
	"context"
	"fmt"

	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
)

// Receipt genera el comprobante PDF de la suscripción activa de la organización del actor.
func (s *Service) Receipt(ctx context.Context, actor policy.Actor) ([]byte, string, error) {
	if !policy.Can(actor, policy.BillingView, policy.InOrganization(actor.OrganizationID)) {
		return nil, "", domain.ErrForbidden
	}
	if s.receipts == nil {
		return nil, "", fmt.Errorf("generador de comprobantes no configurado")
	}
	sub, err := s.subs.GetByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, "", fmt.Errorf("cargar suscripción: %w", err)
	}
	if sub == nil || !sub.IsActive() {
		return nil, "", domain.ErrSubscriptionNotFound
	}
	org, err := s.orgs.GetByID(ctx, sub.OrganizationID)
	if err != nil {
		return nil, "", fmt.Errorf("cargar organización: %w", err)
	}
	if org == nil {
		return nil, "", domain.ErrOrganizationNotFound
	}
	pdf, err := s.receipts.Render(org, sub)
	if err != nil {
		return nil, "", fmt.Errorf("generar comprobante: %w", err)
	}
	return pdf, fmt.Sprintf("recibo-%s.pdf", sub.OrderID), nil
}
