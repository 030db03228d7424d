package repository

import (
	"context"

	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// OrganizationRepository define el puerto de persistencia para Organization (DIP).
// Las lecturas devuelven nil, nil cuando la fila no existe.
type OrganizationRepository interface {
	Create(ctx context.Context, org *entity.Organization) error
	GetByID(ctx context.Context, id string) (*entity.Organization, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Organization, error)
	Update(ctx context.Context, org *entity.Organization) error
	// SetPremium solo lo invoca la máquina de suscripción.
	SetPremium(ctx context.Context, id string, premium bool) error
}
