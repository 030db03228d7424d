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

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

// SubscriptionRepo implementación de SubscriptionRepository (usable con pool o tx).
// Los GetForUpdate solo tienen efecto dentro de una tx.
type SubscriptionRepo struct {
	q Querier
}

// NewSubscriptionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSubscriptionRepository(q Querier) *SubscriptionRepo {
	return &SubscriptionRepo{q: q}
}

const subscriptionColumns = `id, organization_id, plan_type, status, order_id, payment_id, signature, amount, currency,
	activated_at, order_created_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*entity.Subscription, error) {
	var s entity.Subscription
	err := row.Scan(&s.ID, &s.OrganizationID, &s.PlanType, &s.Status, &s.OrderID, &s.PaymentID, &s.Signature,
		&s.Amount, &s.Currency, &s.ActivatedAt, &s.OrderCreatedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepo) getOne(ctx context.Context, what, query string, arg any) (*entity.Subscription, error) {
	s, err := scanSubscription(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription by %s: %w", what, err)
	}
	return s, nil
}

func (r *SubscriptionRepo) GetByOrganization(ctx context.Context, organizationID string) (*entity.Subscription, error) {
	return r.getOne(ctx, "organization", `SELECT `+subscriptionColumns+` FROM subscriptions WHERE organization_id = $1`, organizationID)
}

func (r *SubscriptionRepo) GetByOrderID(ctx context.Context, orderID string) (*entity.Subscription, error) {
	return r.getOne(ctx, "order", `SELECT `+subscriptionColumns+` FROM subscriptions WHERE order_id = $1`, orderID)
}

// GetForUpdate bloquea la fila de la suscripción (SELECT FOR UPDATE).
func (r *SubscriptionRepo) GetForUpdate(ctx context.Context, id string) (*entity.Subscription, error) {
	return r.getOne(ctx, "id", `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1 FOR UPDATE`, id)
}

// GetForUpdateByOrderID bloquea la fila de la suscripción de la orden.
func (r *SubscriptionRepo) GetForUpdateByOrderID(ctx context.Context, orderID string) (*entity.Subscription, error) {
	return r.getOne(ctx, "order", `SELECT `+subscriptionColumns+` FROM subscriptions WHERE order_id = $1 FOR UPDATE`, orderID)
}

// UpsertPending crea la suscripción de la organización o reemplaza su orden vigente.
// Nunca pisa una suscripción ACTIVE. Deja en sub el id y created_at de la fila resultante.
func (r *SubscriptionRepo) UpsertPending(ctx context.Context, sub *entity.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, organization_id, plan_type, status, order_id, payment_id, signature,
			amount, currency, order_created_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '', '', $6, $7, $8, $9, $10)
		ON CONFLICT (organization_id) DO UPDATE SET
			status = EXCLUDED.status,
			order_id = EXCLUDED.order_id,
			payment_id = '',
			signature = '',
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			activated_at = NULL,
			order_created_at = EXCLUDED.order_created_at,
			updated_at = EXCLUDED.updated_at
		WHERE subscriptions.status <> 'ACTIVE'
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		sub.ID, sub.OrganizationID, sub.PlanType, sub.Status, sub.OrderID,
		sub.Amount, sub.Currency, sub.OrderCreatedAt, sub.CreatedAt, sub.UpdatedAt,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrSubscriptionActive
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order_id duplicado", domain.ErrConflict)
		}
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// Update guarda el estado de la máquina y los datos del pago.
func (r *SubscriptionRepo) Update(ctx context.Context, sub *entity.Subscription) error {
	query := `
		UPDATE subscriptions SET status = $2, payment_id = $3, signature = $4, activated_at = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, sub.ID, sub.Status, sub.PaymentID, sub.Signature, sub.ActivatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

// ListPendingBefore órdenes PENDING_PAYMENT creadas antes de before, más antiguas primero.
func (r *SubscriptionRepo) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*entity.Subscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE status = 'PENDING_PAYMENT' AND order_created_at < $1
		ORDER BY order_created_at LIMIT $2`, before, limit)
}

func (r *SubscriptionRepo) List(ctx context.Context, limit, offset int) ([]*entity.Subscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *SubscriptionRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Subscription, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()
	var list []*entity.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
