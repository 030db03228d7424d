package repository

import (
	"context"

	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// TaskHistoryRepository historial append-only: no hay Update ni Delete.
type TaskHistoryRepository interface {
	Append(ctx context.Context, entry *entity.TaskHistory) error
	ListByTask(ctx context.Context, taskID string, limit, offset int) ([]*entity.TaskHistory, error)
}
