package entity

import "time"

// WebhookEvent evento crudo de la pasarela; EventID es la clave de idempotencia.
// Solo los campos de procesamiento cambian después de insertarlo.
type WebhookEvent struct {
	ID              string
	EventID         string
	EventType       string
	Payload         []byte
	Signature       string
	IsVerified      bool
	Processed       bool
	ProcessedAt     *time.Time
	ProcessingError string
	Attempts        int
	CreatedAt       time.Time
}
