package repository

import (
	"context"
	"time"

	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// SubscriptionRepository define el puerto de persistencia para Subscription.
type SubscriptionRepository interface {
	GetByOrganization(ctx context.Context, organizationID string) (*entity.Subscription, error)
	GetByOrderID(ctx context.Context, orderID string) (*entity.Subscription, error)
	// GetForUpdate y GetForUpdateByOrderID bloquean la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Subscription, error)
	GetForUpdateByOrderID(ctx context.Context, orderID string) (*entity.Subscription, error)
	// UpsertPending crea o reinicia la suscripción de la organización con una orden nueva.
	// Devuelve domain.ErrSubscriptionActive si la fila existente ya está ACTIVE.
	UpsertPending(ctx context.Context, sub *entity.Subscription) error
	Update(ctx context.Context, sub *entity.Subscription) error
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*entity.Subscription, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Subscription, error)
}
