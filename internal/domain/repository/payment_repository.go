package repository

import (
	"context"

	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// PaymentRepository define el puerto de persistencia para Payment.
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	// GetBySubscriptionAndOrder devuelve el registro más reciente de esa orden.
	GetBySubscriptionAndOrder(ctx context.Context, subscriptionID, orderID string) (*entity.Payment, error)
	Update(ctx context.Context, payment *entity.Payment) error
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*entity.Payment, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Payment, error)
}
