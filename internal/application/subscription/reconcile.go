package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// ReconcilePendingOrders consulta en la pasarela las suscripciones PENDING_PAYMENT más viejas que
// ReconcileAfter. Orden pagada: activa con el pago capturado/autorizado. Orden intentada sin pago
// más allá de FailedOrderTTL: FAILED. Una falla en una orden no detiene el barrido.
func (s *Service) ReconcilePendingOrders(ctx context.Context) (dto.ReconcileReport, error) {
	var report dto.ReconcileReport
	now := time.Now()
	pending, err := s.subs.ListPendingBefore(ctx, now.Add(-s.cfg.ReconcileAfter), s.cfg.SweepLimit)
	if err != nil {
		return report, fmt.Errorf("listar suscripciones pendientes: %w", err)
	}

	for _, sub := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++
		outcome, err := s.reconcileOne(ctx, sub, now)
		if err != nil {
			outcome = ReconcileError
			report.Errors++
			s.log.Error().Err(err).
				Str("subscription_id", sub.ID).
				Str("order_id", sub.OrderID).
				Msg("conciliación de la orden fallida")
		}
		switch outcome {
		case ReconcileActivated:
			report.Activated++
		case ReconcileFailed:
			report.Failed++
		}
		s.metrics.Reconciled(outcome)
	}

	s.log.Info().
		Int("checked", report.Checked).
		Int("activated", report.Activated).
		Int("failed", report.Failed).
		Int("errors", report.Errors).
		Msg("conciliación terminada")
	return report, nil
}

func (s *Service) reconcileOne(ctx context.Context, sub *entity.Subscription, now time.Time) (string, error) {
	order, err := s.gateway.FetchOrder(ctx, sub.OrderID)
	if err != nil {
		return "", err
	}

	switch order.Status {
	case ports.GatewayOrderPaid:
		payments, err := s.gateway.ListPayments(ctx, sub.OrderID)
		if err != nil {
			return "", err
		}
		paymentID := settledPayment(payments)
		if paymentID == "" {
			s.log.Warn().Str("order_id", sub.OrderID).Msg("orden pagada sin pago capturado ni autorizado")
			return ReconcilePending, nil
		}
		activated, err := s.ActivateByOrder(ctx, sub.OrderID, paymentID, "", SourceReconcile)
		if err != nil {
			if errors.Is(err, domain.ErrSubscriptionNotFound) {
				// La organización pidió otra orden entre el listado y el bloqueo.
				return ReconcilePending, nil
			}
			return "", err
		}
		if activated {
			return ReconcileActivated, nil
		}
		return ReconcilePending, nil

	case ports.GatewayOrderAttempted:
		if now.Sub(sub.OrderCreatedAt) < s.cfg.FailedOrderTTL {
			return ReconcilePending, nil
		}
		changed, err := s.failOrder(ctx, sub.OrderID, "", "orden sin pago dentro del plazo", false)
		if err != nil {
			if errors.Is(err, domain.ErrSubscriptionNotFound) {
				return ReconcilePending, nil
			}
			return "", err
		}
		if changed {
			return ReconcileFailed, nil
		}
		return ReconcilePending, nil

	default:
		return ReconcilePending, nil
	}
}

// settledPayment primer pago capturado; si no hay, el primero autorizado.
func settledPayment(payments []ports.GatewayPayment) string {
	for _, p := range payments {
		if p.Status == ports.GatewayPaymentCaptured {
			return p.ID
		}
	}
	for _, p := range payments {
		if p.Status == ports.GatewayPaymentAuthorized {
			return p.ID
		}
	}
	return ""
}

// ReplayStaleEvents reencola eventos verificados y sin procesar más viejos que ReplayAfter.
// Los que ya acumularon ReplayMaxAttempts fallos quedan para revisión manual.
func (s *Service) ReplayStaleEvents(ctx context.Context) (int, error) {
	events, err := s.events.ListUnprocessed(ctx, time.Now().Add(-s.cfg.ReplayAfter), s.cfg.SweepLimit)
	if err != nil {
		return 0, fmt.Errorf("listar eventos pendientes: %w", err)
	}
	n := 0
	for _, e := range events {
		if !e.IsVerified {
			continue
		}
		if e.Attempts >= s.cfg.ReplayMaxAttempts {
			s.log.Warn().Str("event_id", e.EventID).Int("attempts", e.Attempts).
				Str("error", e.ProcessingError).Msg("evento agotó sus reintentos; no se reencola")
			continue
		}
		if err := s.queue.Enqueue(ctx, ports.WebhookJob{EventID: e.EventID, Attempt: 1}); err != nil {
			s.log.Error().Err(err).Str("event_id", e.EventID).Msg("no se pudo reencolar el evento")
			continue
		}
		n++
	}
	if n > 0 {
		s.log.Info().Int("events", n).Msg("eventos pendientes reencolados")
	}
	return n, nil
}
