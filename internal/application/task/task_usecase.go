package task

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/taskvault-api/internal/application/cache"
	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

const listView = "tasks"

// TaskUseCase casos de uso de tareas y subtareas.
type TaskUseCase struct {
	tx    TxRunner
	tasks repository.TaskRepository
	users repository.UserRepository
	cache *cache.TenantCache
	log   *logger.Logger
}

// NewTaskUseCase construye el caso de uso.
func NewTaskUseCase(tx TxRunner, tasks repository.TaskRepository, users repository.UserRepository, c *cache.TenantCache, log *logger.Logger) *TaskUseCase {
	return &TaskUseCase{tx: tx, tasks: tasks, users: users, cache: c, log: log.Named("tasks")}
}

// Create crea una tarea, o una subtarea si viene ParentTaskID.
func (uc *TaskUseCase) Create(ctx context.Context, actor policy.Actor, in dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: el título es obligatorio", domain.ErrInvalidInput)
	}
	now := time.Now()
	if in.Deadline != nil && !in.Deadline.After(now) {
		return nil, domain.ErrDeadlineInPast
	}
	priority := entity.PriorityMedium
	if in.Priority != "" {
		priority = entity.TaskPriority(in.Priority)
		if !priority.Valid() {
			return nil, fmt.Errorf("%w: prioridad desconocida", domain.ErrInvalidInput)
		}
	}

	parentID := strings.TrimSpace(in.ParentTaskID)
	if parentID != "" {
		if err := uc.authorizeSubtask(ctx, actor, parentID); err != nil {
			return nil, err
		}
	} else if !policy.Can(actor, policy.TaskCreate, policy.InOrganization(actor.OrganizationID)) {
		return nil, policy.Denied(actor)
	}

	assigneeID, err := uc.resolveAssignee(ctx, actor, strings.TrimSpace(in.AssigneeID))
	if err != nil {
		return nil, err
	}

	t := &entity.Task{
		ID:             uuid.NewString(),
		OrganizationID: actor.OrganizationID,
		OwnerID:        actor.UserID,
		AssigneeID:     assigneeID,
		ParentTaskID:   parentID,
		Title:          title,
		TitleKey:       TitleKey(title),
		Description:    strings.TrimSpace(in.Description),
		Status:         entity.TaskPending,
		Priority:       priority,
		Deadline:       in.Deadline,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	exists, err := uc.tasks.ExistsTitle(ctx, t.OrganizationID, t.AssigneeID, t.TitleKey)
	if err != nil {
		return nil, fmt.Errorf("validar título: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateTitle
	}
	if err := uc.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	uc.cache.InvalidateQuietly(ctx, t.OrganizationID)

	resp := ToTaskResponse(t)
	return &resp, nil
}

func (uc *TaskUseCase) authorizeSubtask(ctx context.Context, actor policy.Actor, parentID string) error {
	parent, err := uc.tasks.GetByID(ctx, parentID)
	if err != nil {
		return fmt.Errorf("cargar tarea padre: %w", err)
	}
	if parent == nil || parent.IsDeleted() || parent.OrganizationID != actor.OrganizationID {
		return fmt.Errorf("%w: tarea padre inexistente", domain.ErrInvalidInput)
	}
	if parent.IsSubtask() {
		return fmt.Errorf("%w: una subtarea no puede tener subtareas", domain.ErrInvalidInput)
	}
	var ownerRole entity.Role
	owner, err := uc.users.GetByID(ctx, parent.OwnerID)
	if err != nil {
		return fmt.Errorf("cargar dueño de la tarea padre: %w", err)
	}
	if owner != nil {
		ownerRole = owner.Role
	}
	if !policy.Can(actor, policy.SubtaskCreate, policy.OnParentTask(parent, ownerRole)) {
		return policy.Denied(actor)
	}
	return nil
}

// resolveAssignee USER solo se asigna a sí mismo; TENANT_ADMIN asigna a un usuario activo de su organización.
func (uc *TaskUseCase) resolveAssignee(ctx context.Context, actor policy.Actor, requested string) (string, error) {
	if requested == "" || requested == actor.UserID {
		return actor.UserID, nil
	}
	if actor.Role != entity.RoleTenantAdmin {
		return "", fmt.Errorf("%w: solo puede asignarse tareas a sí mismo", domain.ErrForbidden)
	}
	u, err := uc.users.GetByID(ctx, requested)
	if err != nil {
		return "", fmt.Errorf("cargar asignado: %w", err)
	}
	if u == nil || u.IsDeleted() || !u.IsActive || u.OrganizationID != actor.OrganizationID {
		return "", fmt.Errorf("%w: el asignado debe ser un usuario activo de la organización", domain.ErrInvalidInput)
	}
	return u.ID, nil
}

// List lista las tareas visibles para el actor, paginadas y cacheadas por generación del tenant.
func (uc *TaskUseCase) List(ctx context.Context, actor policy.Actor, in dto.ListTasksRequest) (*dto.TaskListResponse, error) {
	scope := policy.ListScope(actor, policy.TaskList)
	if scope == policy.ScopeNone {
		return nil, policy.Denied(actor)
	}
	in.DefaultPage()
	filter := entity.TaskFilter{
		OrganizationID: actor.OrganizationID,
		ParentTaskID:   in.ParentTaskID,
		Status:         entity.TaskStatus(in.Status),
		Priority:       entity.TaskPriority(in.Priority),
		Limit:          in.Limit,
		Offset:         in.Offset,
	}
	if scope == policy.ScopeParticipant {
		filter.VisibleTo = actor.UserID
	}

	key, err := uc.cache.Key(ctx, cache.KeyParams{
		OrganizationID: actor.OrganizationID,
		UserID:         actor.UserID,
		View:           listView,
		Query: map[string]string{
			"status":         in.Status,
			"priority":       in.Priority,
			"parent_task_id": in.ParentTaskID,
			"limit":          strconv.Itoa(in.Limit),
			"offset":         strconv.Itoa(in.Offset),
		},
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("organization_id", actor.OrganizationID).Msg("caché no disponible; se consulta la base")
		key = ""
	}
	var cached dto.TaskListResponse
	if key != "" && uc.cache.Fetch(ctx, key, &cached) {
		return &cached, nil
	}

	list, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listar tareas: %w", err)
	}
	resp := &dto.TaskListResponse{
		Items: make([]dto.TaskResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset},
	}
	for _, t := range list {
		resp.Items = append(resp.Items, ToTaskResponse(t))
	}
	if key != "" {
		uc.cache.Store(ctx, key, resp)
	}
	return resp, nil
}

// Get devuelve una tarea visible para el actor.
func (uc *TaskUseCase) Get(ctx context.Context, actor policy.Actor, id string) (*dto.TaskResponse, error) {
	t, err := loadTask(ctx, uc.tasks, actor, id, policy.TaskView)
	if err != nil {
		return nil, err
	}
	resp := ToTaskResponse(t)
	return &resp, nil
}

// Update cambia estado, prioridad o fecha límite con la fila bloqueada. El historial se escribe
// en la misma transacción y solo si cambió el estado o la prioridad.
func (uc *TaskUseCase) Update(ctx context.Context, actor policy.Actor, id string, in dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	if in.Status == nil && in.Priority == nil && in.Deadline == nil {
		return nil, fmt.Errorf("%w: debe indicar al menos un campo", domain.ErrInvalidInput)
	}
	if in.Status != nil && !entity.TaskStatus(*in.Status).Valid() {
		return nil, fmt.Errorf("%w: estado desconocido", domain.ErrInvalidInput)
	}
	if in.Priority != nil && !entity.TaskPriority(*in.Priority).Valid() {
		return nil, fmt.Errorf("%w: prioridad desconocida", domain.ErrInvalidInput)
	}
	now := time.Now()
	if in.Deadline != nil && !in.Deadline.After(now) {
		return nil, domain.ErrDeadlineInPast
	}
	if _, err := loadTask(ctx, uc.tasks, actor, id, policy.TaskUpdate); err != nil {
		return nil, err
	}

	var updated *entity.Task
	err := uc.tx.RunTasks(ctx, func(tasks repository.TaskRepository, history repository.TaskHistoryRepository) error {
		t, err := tasks.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("bloquear tarea: %w", err)
		}
		if t == nil || t.IsDeleted() {
			return domain.ErrTaskNotFound
		}

		oldStatus, oldPriority := t.Status, t.Priority
		changed := false
		if in.Status != nil && entity.TaskStatus(*in.Status) != t.Status {
			t.Status = entity.TaskStatus(*in.Status)
			changed = true
		}
		if in.Priority != nil && entity.TaskPriority(*in.Priority) != t.Priority {
			t.Priority = entity.TaskPriority(*in.Priority)
			changed = true
		}
		if in.Deadline != nil && (t.Deadline == nil || !t.Deadline.Equal(*in.Deadline)) {
			d := *in.Deadline
			t.Deadline = &d
			changed = true
		}
		if !changed {
			return domain.ErrNoChanges
		}

		if t.Status == entity.TaskCompleted && oldStatus != entity.TaskCompleted {
			stats, err := tasks.SubtaskStats(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("contar subtareas: %w", err)
			}
			if stats.Incomplete > 0 {
				return domain.ErrIncompleteSubtasks
			}
		}

		t.UpdatedAt = now
		if err := tasks.Update(ctx, t); err != nil {
			return fmt.Errorf("actualizar tarea: %w", err)
		}
		if t.Status != oldStatus || t.Priority != oldPriority {
			entry := &entity.TaskHistory{
				ID:          uuid.NewString(),
				TaskID:      t.ID,
				ActorID:     actor.UserID,
				OldStatus:   oldStatus,
				NewStatus:   t.Status,
				OldPriority: oldPriority,
				NewPriority: t.Priority,
				CreatedAt:   now,
			}
			if err := history.Append(ctx, entry); err != nil {
				return fmt.Errorf("registrar historial: %w", err)
			}
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.cache.InvalidateQuietly(ctx, updated.OrganizationID)

	resp := ToTaskResponse(updated)
	return &resp, nil
}

// Delete borra lógicamente la tarea; se rechaza si tiene subtareas vivas.
func (uc *TaskUseCase) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if _, err := loadTask(ctx, uc.tasks, actor, id, policy.TaskDelete); err != nil {
		return err
	}
	var orgID string
	err := uc.tx.RunTasks(ctx, func(tasks repository.TaskRepository, _ repository.TaskHistoryRepository) error {
		t, err := tasks.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("bloquear tarea: %w", err)
		}
		if t == nil || t.IsDeleted() {
			return domain.ErrTaskNotFound
		}
		stats, err := tasks.SubtaskStats(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("contar subtareas: %w", err)
		}
		if stats.Active > 0 {
			return domain.ErrActiveSubtasks
		}
		orgID = t.OrganizationID
		return tasks.SoftDelete(ctx, t.ID, time.Now())
	})
	if err != nil {
		return err
	}
	uc.cache.InvalidateQuietly(ctx, orgID)
	return nil
}
