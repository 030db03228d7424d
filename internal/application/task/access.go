package task

import (
	"context"
	"fmt"

	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

// loadTask carga una tarea viva y evalúa la acción. Las tareas de otra organización
// se reportan como inexistentes.
func loadTask(ctx context.Context, tasks repository.TaskRepository, actor policy.Actor, id string, action policy.Action) (*entity.Task, error) {
	t, err := tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cargar tarea: %w", err)
	}
	if t == nil || t.IsDeleted() {
		return nil, domain.ErrTaskNotFound
	}
	if !policy.Can(actor, action, policy.OnTask(t)) {
		if actor.Role != entity.RoleSuperAdmin && t.OrganizationID != actor.OrganizationID {
			return nil, domain.ErrTaskNotFound
		}
		return nil, policy.Denied(actor)
	}
	return t, nil
}
