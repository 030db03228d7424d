package ports

import (
	"context"
	"time"
)

// WebhookJob trabajo de procesamiento de un evento ya persistido.
type WebhookJob struct {
	EventID string `json:"event_id"`
	Attempt int    `json:"attempt"`
}

// WebhookQueue cola asíncrona entre el endpoint de webhooks y el worker.
type WebhookQueue interface {
	Enqueue(ctx context.Context, job WebhookJob) error
	// EnqueueAfter programa un reintento para dentro de delay.
	EnqueueAfter(ctx context.Context, job WebhookJob, delay time.Duration) error
	// Dequeue bloquea hasta timeout; devuelve nil, nil si no hubo trabajo.
	Dequeue(ctx context.Context, timeout time.Duration) (*WebhookJob, error)
}
