package repository

import (
	"context"
	"time"

	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// SubtaskStats conteo de subtareas vivas de una tarea.
type SubtaskStats struct {
	Active     int
	Incomplete int
}

// TaskRepository define el puerto de persistencia para Task.
type TaskRepository interface {
	// Create devuelve domain.ErrDuplicateTitle si choca el índice (organización, asignado, título).
	Create(ctx context.Context, task *entity.Task) error
	GetByID(ctx context.Context, id string) (*entity.Task, error)
	// GetForUpdate bloquea la fila (SELECT ... FOR UPDATE) dentro de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Task, error)
	List(ctx context.Context, filter entity.TaskFilter) ([]*entity.Task, error)
	Update(ctx context.Context, task *entity.Task) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	ExistsTitle(ctx context.Context, organizationID, assigneeID, titleKey string) (bool, error)
	SubtaskStats(ctx context.Context, parentID string) (SubtaskStats, error)
	// SoftDeleteByUser marca las tareas vivas donde el usuario es dueño o asignado y las subtareas vivas de ellas.
	SoftDeleteByUser(ctx context.Context, userID string, at time.Time, batchID string) (int64, error)
	// RestoreBatch devuelve domain.ErrDuplicateTitle si una tarea del lote choca con otra viva.
	RestoreBatch(ctx context.Context, batchID string) (int64, error)
}
