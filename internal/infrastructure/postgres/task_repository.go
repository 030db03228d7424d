package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

var _ repository.TaskRepository = (*TaskRepo)(nil)

// TaskRepo implementación de TaskRepository (usable con pool o tx).
type TaskRepo struct {
	q Querier
}

// NewTaskRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTaskRepository(q Querier) *TaskRepo {
	return &TaskRepo{q: q}
}

const taskColumns = `id, organization_id, owner_id, assignee_id, parent_task_id, title, title_key, description,
	status, priority, deadline, deleted_at, deletion_batch_id, created_at, updated_at`

func scanTask(row pgx.Row) (*entity.Task, error) {
	var (
		t             entity.Task
		parent, batch *string
	)
	err := row.Scan(&t.ID, &t.OrganizationID, &t.OwnerID, &t.AssigneeID, &parent, &t.Title, &t.TitleKey, &t.Description,
		&t.Status, &t.Priority, &t.Deadline, &t.DeletedAt, &batch, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.ParentTaskID, t.DeletionBatchID = deref(parent), deref(batch)
	return &t, nil
}

func (r *TaskRepo) getOne(ctx context.Context, query, id string) (*entity.Task, error) {
	t, err := scanTask(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// Create persiste una tarea. La unicidad del título por asignado la garantiza un índice parcial.
func (r *TaskRepo) Create(ctx context.Context, t *entity.Task) error {
	query := `
		INSERT INTO tasks (id, organization_id, owner_id, assignee_id, parent_task_id, title, title_key, description,
			status, priority, deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.OrganizationID, t.OwnerID, t.AssigneeID, nullable(t.ParentTaskID), t.Title, t.TitleKey, t.Description,
		t.Status, t.Priority, t.Deadline, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTitle
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetByID obtiene una tarea (incluidas las borradas).
func (r *TaskRepo) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	return r.getOne(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
}

// GetForUpdate obtiene la tarea y bloquea la fila hasta el fin de la tx (SELECT FOR UPDATE).
func (r *TaskRepo) GetForUpdate(ctx context.Context, id string) (*entity.Task, error) {
	return r.getOne(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
}

// List tareas vivas de la organización según el filtro, más recientes primero.
func (r *TaskRepo) List(ctx context.Context, f entity.TaskFilter) ([]*entity.Task, error) {
	args := []any{f.OrganizationID}
	conds := []string{"organization_id = $1", "deleted_at IS NULL"}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}
	if f.VisibleTo != "" {
		add("(owner_id = ? OR assignee_id = ?)", f.VisibleTo)
	}
	if f.ParentTaskID != "" {
		add("parent_task_id = ?", f.ParentTaskID)
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.Priority != "" {
		add("priority = ?", f.Priority)
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		taskColumns, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	var list []*entity.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Update guarda los campos mutables de la tarea.
func (r *TaskRepo) Update(ctx context.Context, t *entity.Task) error {
	query := `
		UPDATE tasks SET assignee_id = $2, status = $3, priority = $4, deadline = $5, description = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, query, t.ID, t.AssigneeID, t.Status, t.Priority, t.Deadline, t.Description, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTitle
		}
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// SoftDelete marca la tarea como borrada.
func (r *TaskRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE tasks SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("soft delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// ExistsTitle indica si el asignado ya tiene una tarea viva con esa clave de título.
func (r *TaskRepo) ExistsTitle(ctx context.Context, organizationID, assigneeID, titleKey string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tasks
			WHERE organization_id = $1 AND assignee_id = $2 AND title_key = $3 AND deleted_at IS NULL
		)`, organizationID, assigneeID, titleKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists task title: %w", err)
	}
	return exists, nil
}

// SubtaskStats cuenta subtareas vivas y cuántas de ellas no están completadas.
func (r *TaskRepo) SubtaskStats(ctx context.Context, parentID string) (repository.SubtaskStats, error) {
	var st repository.SubtaskStats
	err := r.q.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE status <> 'COMPLETED')
		FROM tasks WHERE parent_task_id = $1 AND deleted_at IS NULL`, parentID).Scan(&st.Active, &st.Incomplete)
	if err != nil {
		return st, fmt.Errorf("subtask stats: %w", err)
	}
	return st, nil
}

// SoftDeleteByUser borra las tareas vivas donde el usuario es dueño o asignado, y las subtareas
// vivas que cuelgan de ellas, todo con el mismo lote.
func (r *TaskRepo) SoftDeleteByUser(ctx context.Context, userID string, at time.Time, batchID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE tasks SET deleted_at = $2, deletion_batch_id = $3, updated_at = $2
		WHERE (owner_id = $1 OR assignee_id = $1) AND deleted_at IS NULL`, userID, at, batchID)
	if err != nil {
		return 0, fmt.Errorf("soft delete tasks by user: %w", err)
	}
	children, err := r.q.Exec(ctx, `
		UPDATE tasks SET deleted_at = $1, deletion_batch_id = $2, updated_at = $1
		WHERE deleted_at IS NULL
		  AND parent_task_id IN (SELECT id FROM tasks WHERE deletion_batch_id = $2)`, at, batchID)
	if err != nil {
		return 0, fmt.Errorf("soft delete orphan subtasks: %w", err)
	}
	return tag.RowsAffected() + children.RowsAffected(), nil
}

// RestoreBatch revierte el borrado de las tareas del lote. Si mientras tanto se creó una tarea
// viva con el mismo título para el mismo asignado, devuelve domain.ErrDuplicateTitle.
func (r *TaskRepo) RestoreBatch(ctx context.Context, batchID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE tasks SET deleted_at = NULL, deletion_batch_id = NULL, updated_at = now()
		WHERE deletion_batch_id = $1 AND deleted_at IS NOT NULL`, batchID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrDuplicateTitle
		}
		return 0, fmt.Errorf("restore tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}
