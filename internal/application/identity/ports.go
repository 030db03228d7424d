// Package identity gestiona organizaciones y cuentas de usuario, incluido el borrado en cascada y su restauración.
package identity

import (
	"context"

	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

// TxRunner ejecuta fn en una transacción con los repos que participan del borrado en cascada.
type TxRunner interface {
	RunIdentity(ctx context.Context, fn func(
		users repository.UserRepository,
		tasks repository.TaskRepository,
		comments repository.CommentRepository,
	) error) error
}

// CacheInvalidator invalida la caché de un tenant tras cambios que afectan la visibilidad de tareas.
type CacheInvalidator interface {
	InvalidateQuietly(ctx context.Context, organizationID string)
}
