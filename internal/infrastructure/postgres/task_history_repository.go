package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

var _ repository.TaskHistoryRepository = (*TaskHistoryRepo)(nil)

// TaskHistoryRepo historial append-only: no expone update ni delete.
type TaskHistoryRepo struct {
	q Querier
}

// NewTaskHistoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTaskHistoryRepository(q Querier) *TaskHistoryRepo {
	return &TaskHistoryRepo{q: q}
}

func (r *TaskHistoryRepo) Append(ctx context.Context, h *entity.TaskHistory) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO task_history (id, task_id, actor_id, old_status, new_status, old_priority, new_priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		h.ID, h.TaskID, h.ActorID, h.OldStatus, h.NewStatus, h.OldPriority, h.NewPriority, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert task history: %w", err)
	}
	return nil
}

func (r *TaskHistoryRepo) ListByTask(ctx context.Context, taskID string, limit, offset int) ([]*entity.TaskHistory, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, task_id, actor_id, old_status, new_status, old_priority, new_priority, created_at
		FROM task_history WHERE task_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, taskID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list task history: %w", err)
	}
	defer rows.Close()
	var list []*entity.TaskHistory
	for rows.Next() {
		var h entity.TaskHistory
		if err := rows.Scan(&h.ID, &h.TaskID, &h.ActorID, &h.OldStatus, &h.NewStatus, &h.OldPriority, &h.NewPriority, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task history: %w", err)
		}
		list = append(list, &h)
	}
	return list, rows.Err()
}
