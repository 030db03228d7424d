package repository

import (
	"context"
	"time"

	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// UserFilter filtro de listado de usuarios.
type UserFilter struct {
	OrganizationID string
	Role           entity.Role
	OnlyDeleted    bool
	Limit          int
	Offset         int
}

// UserRepository define el puerto de persistencia para User (DIP).
type UserRepository interface {
	// Create devuelve domain.ErrEmailAlreadyExists si el email ya existe.
	Create(ctx context.Context, user *entity.User) error
	// GetByID incluye usuarios borrados lógicamente.
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// GetByEmail solo usuarios vivos.
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	List(ctx context.Context, filter UserFilter) ([]*entity.User, error)
	ExistsSuperAdmin(ctx context.Context) (bool, error)
	SoftDelete(ctx context.Context, id string, at time.Time, deletedBy, batchID string) error
	Restore(ctx context.Context, id string) error
}
