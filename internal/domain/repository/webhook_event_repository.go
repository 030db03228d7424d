package repository

import (
	"context"
	"time"

	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// WebhookEventRepository define el puerto de persistencia para WebhookEvent.
type WebhookEventRepository interface {
	// InsertIfAbsent inserta el evento salvo que su EventID ya exista; inserted=false en ese caso.
	InsertIfAbsent(ctx context.Context, event *entity.WebhookEvent) (inserted bool, err error)
	GetByEventID(ctx context.Context, eventID string) (*entity.WebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID string, at time.Time) error
	// RecordFailure guarda el error e incrementa el contador de intentos.
	RecordFailure(ctx context.Context, eventID, message string) error
	ListUnprocessed(ctx context.Context, createdBefore time.Time, limit int) ([]*entity.WebhookEvent, error)
	List(ctx context.Context, limit, offset int) ([]*entity.WebhookEvent, error)
}
