// Package task implementa tareas, subtareas, comentarios e historial dentro de una organización.
package task

import (
	"context"

	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

// TxRunner ejecuta fn en una transacción con los repos de tareas e historial.
type TxRunner interface {
	RunTasks(ctx context.Context, fn func(tasks repository.TaskRepository, history repository.TaskHistoryRepository) error) error
}
