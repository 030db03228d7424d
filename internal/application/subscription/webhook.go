package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// Tipos de evento atendidos.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
)

// webhookPayload subconjunto del cuerpo de un webhook de la pasarela.
type webhookPayload struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (p *webhookPayload) orderID() string {
	if p.Payload.Payment.Entity.OrderID != "" {
		return p.Payload.Payment.Entity.OrderID
	}
	return p.Payload.Order.Entity.ID
}

// WebhookReceipt resultado de la recepción de un webhook.
type WebhookReceipt struct {
	EventID   string
	Duplicate bool
}

// ProcessWebhookEvent verifica la firma sobre el cuerpo crudo, registra el evento una sola vez
// y lo entrega a la cola. Un evento ya registrado devuelve Duplicate sin reprocesar.
func (s *Service) ProcessWebhookEvent(ctx context.Context, rawBody []byte, signature, eventID string) (*WebhookReceipt, error) {
	if err := s.gateway.VerifyWebhookSignature(rawBody, signature); err != nil {
		s.metrics.WebhookReceived(WebhookInvalidSignature)
		s.log.Warn().Str("event_id", eventID).Msg("webhook con firma inválida descartado")
		return nil, domain.ErrInvalidSignature
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: cuerpo de webhook ilegible", domain.ErrInvalidInput)
	}
	if eventID == "" {
		eventID = payload.ID
	}
	if eventID == "" {
		eventID = "evt_" + uuid.NewString()
	}

	event := &entity.WebhookEvent{
		ID:         uuid.NewString(),
		EventID:    eventID,
		EventType:  payload.Event,
		Payload:    rawBody,
		Signature:  signature,
		IsVerified: true,
		CreatedAt:  time.Now(),
	}
	inserted, err := s.events.InsertIfAbsent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("registrar evento: %w", err)
	}
	if !inserted {
		s.metrics.WebhookReceived(WebhookDuplicate)
		s.log.Info().Str("event_id", eventID).Msg("webhook duplicado ignorado")
		return &WebhookReceipt{EventID: eventID, Duplicate: true}, nil
	}

	s.metrics.WebhookReceived(WebhookAccepted)
	if err := s.queue.Enqueue(ctx, ports.WebhookJob{EventID: eventID, Attempt: 1}); err != nil {
		// El evento ya es durable; el barrido de eventos pendientes lo reencola.
		s.log.Error().Err(err).Str("event_id", eventID).Msg("no se pudo encolar el webhook")
	}
	s.log.Info().Str("event_id", eventID).Str("event_type", payload.Event).Msg("webhook aceptado")
	return &WebhookReceipt{EventID: eventID}, nil
}

// HandleStoredEvent procesa un evento registrado. Si ya fue procesado no hace nada.
// Ante un error lo registra en el evento y lo devuelve para que el worker reintente.
func (s *Service) HandleStoredEvent(ctx context.Context, eventID string) error {
	event, err := s.events.GetByEventID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("cargar evento: %w", err)
	}
	if event == nil {
		return domain.ErrWebhookEventNotFound
	}
	if event.Processed {
		return nil
	}

	if err := s.dispatch(ctx, event); err != nil {
		s.metrics.ProcessingFailed(event.EventType)
		if recErr := s.events.RecordFailure(ctx, eventID, err.Error()); recErr != nil {
			s.log.Error().Err(recErr).Str("event_id", eventID).Msg("no se pudo registrar la falla del evento")
		}
		return err
	}

	if err := s.events.MarkProcessed(ctx, eventID, time.Now()); err != nil {
		return fmt.Errorf("marcar evento procesado: %w", err)
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *entity.WebhookEvent) error {
	var payload webhookPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decodificar payload: %w", err)
	}
	orderID := payload.orderID()
	paymentID := payload.Payload.Payment.Entity.ID
	log := s.log.WithFields(map[string]string{"event_id": event.EventID, "event_type": event.EventType, "order_id": orderID})

	switch event.EventType {
	case EventPaymentCaptured, EventOrderPaid:
		if orderID == "" {
			log.Warn().Msg("evento sin orden; se marca procesado")
			return nil
		}
		_, err := s.ActivateByOrder(ctx, orderID, paymentID, "", SourceWebhook)
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			// El webhook pudo adelantarse al commit de la orden; la conciliación lo recupera.
			log.Warn().Msg("suscripción no encontrada para el evento")
			return nil
		}
		return err
	case EventPaymentFailed:
		if orderID == "" {
			log.Warn().Msg("evento sin orden; se marca procesado")
			return nil
		}
		_, err := s.failOrder(ctx, orderID, paymentID, payload.Payload.Payment.Entity.ErrorDescription, true)
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			log.Warn().Msg("suscripción no encontrada para el evento")
			return nil
		}
		return err
	default:
		log.Debug().Msg("tipo de evento ignorado")
		return nil
	}
}
