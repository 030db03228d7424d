package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

var _ repository.WebhookEventRepository = (*WebhookEventRepo)(nil)

// WebhookEventRepo eventos crudos de la pasarela; event_id es la clave de idempotencia.
type WebhookEventRepo struct {
	q Querier
}

// NewWebhookEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWebhookEventRepository(q Querier) *WebhookEventRepo {
	return &WebhookEventRepo{q: q}
}

const webhookEventColumns = `id, event_id, event_type, payload, signature, is_verified, processed, processed_at,
	processing_error, attempts, created_at`

func scanWebhookEvent(row pgx.Row) (*entity.WebhookEvent, error) {
	var e entity.WebhookEvent
	err := row.Scan(&e.ID, &e.EventID, &e.EventType, &e.Payload, &e.Signature, &e.IsVerified, &e.Processed,
		&e.ProcessedAt, &e.ProcessingError, &e.Attempts, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// InsertIfAbsent inserta el evento salvo que su event_id ya exista; inserted=false en ese caso.
func (r *WebhookEventRepo) InsertIfAbsent(ctx context.Context, e *entity.WebhookEvent) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO webhook_events (id, event_id, event_type, payload, signature, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING`,
		e.ID, e.EventID, e.EventType, e.Payload, e.Signature, e.IsVerified, e.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert webhook event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WebhookEventRepo) GetByEventID(ctx context.Context, eventID string) (*entity.WebhookEvent, error) {
	e, err := scanWebhookEvent(r.q.QueryRow(ctx, `SELECT `+webhookEventColumns+` FROM webhook_events WHERE event_id = $1`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	return e, nil
}

func (r *WebhookEventRepo) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE webhook_events SET processed = TRUE, processed_at = $2, processing_error = ''
		WHERE event_id = $1`, eventID, at)
	if err != nil {
		return fmt.Errorf("mark webhook processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWebhookEventNotFound
	}
	return nil
}

// RecordFailure guarda el último error e incrementa los intentos.
func (r *WebhookEventRepo) RecordFailure(ctx context.Context, eventID, message string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE webhook_events SET processing_error = $2, attempts = attempts + 1
		WHERE event_id = $1`, eventID, message)
	if err != nil {
		return fmt.Errorf("record webhook failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWebhookEventNotFound
	}
	return nil
}

// ListUnprocessed eventos verificados sin procesar, creados antes de createdBefore, más antiguos primero.
func (r *WebhookEventRepo) ListUnprocessed(ctx context.Context, createdBefore time.Time, limit int) ([]*entity.WebhookEvent, error) {
	return r.list(ctx, `SELECT `+webhookEventColumns+` FROM webhook_events
		WHERE is_verified AND NOT processed AND created_at < $1
		ORDER BY created_at LIMIT $2`, createdBefore, limit)
}

func (r *WebhookEventRepo) List(ctx context.Context, limit, offset int) ([]*entity.WebhookEvent, error) {
	return r.list(ctx, `SELECT `+webhookEventColumns+` FROM webhook_events
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *WebhookEventRepo) list(ctx context.Context, query string, args ...any) ([]*entity.WebhookEvent, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list webhook events: %w", err)
	}
	defer rows.Close()
	var list []*entity.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook event: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
