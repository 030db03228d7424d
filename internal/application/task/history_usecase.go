package task

import (
	"context"
	"fmt"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

// HistoryUseCase lectura del historial de cambios.
type HistoryUseCase struct {
	tasks   repository.TaskRepository
	history repository.TaskHistoryRepository
}

// NewHistoryUseCase construye el caso de uso.
func NewHistoryUseCase(tasks repository.TaskRepository, history repository.TaskHistoryRepository) *HistoryUseCase {
	return &HistoryUseCase{tasks: tasks, history: history}
}

// List historial de la tarea, más reciente primero.
func (uc *HistoryUseCase) List(ctx context.Context, actor policy.Actor, taskID string, page dto.PageRequest) (*dto.TaskHistoryListResponse, error) {
	if _, err := loadTask(ctx, uc.tasks, actor, taskID, policy.HistoryView); err != nil {
		return nil, err
	}
	page.DefaultPage()
	list, err := uc.history.ListByTask(ctx, taskID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("listar historial: %w", err)
	}
	resp := &dto.TaskHistoryListResponse{
		Items: make([]dto.TaskHistoryResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, h := range list {
		resp.Items = append(resp.Items, toHistoryResponse(h))
	}
	return resp, nil
}
