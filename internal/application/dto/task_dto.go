package dto

import "time"

// CreateTaskRequest entrada para crear una tarea o subtarea (ParentTaskID).
type CreateTaskRequest struct {
	Title        string     `json:"title" validate:"required,min=1,max=255"`
	Description  string     `json:"description" validate:"omitempty,max=5000"`
	Priority     string     `json:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	AssigneeID   string     `json:"assignee_id"`
	ParentTaskID string     `json:"parent_task_id"`
	Deadline     *time.Time `json:"deadline"`
}

// UpdateTaskRequest al menos un campo debe venir informado.
type UpdateTaskRequest struct {
	Status   *string    `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority *string    `json:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	Deadline *time.Time `json:"deadline"`
}

// ListTasksRequest filtros del listado de tareas.
type ListTasksRequest struct {
	PageRequest
	Status       string `query:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority     string `query:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	ParentTaskID string `query:"parent_task_id"`
}

// TaskResponse salida de una tarea.
type TaskResponse struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	OwnerID        string     `json:"owner_id"`
	AssigneeID     string     `json:"assignee_id"`
	ParentTaskID   string     `json:"parent_task_id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TaskListResponse lista paginada de tareas.
type TaskListResponse struct {
	Items []TaskResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// CommentRequest cuerpo de creación/edición de comentario.
type CommentRequest struct {
	Message string `json:"message" validate:"required,min=1,max=5000"`
}

// CommentResponse salida de un comentario.
type CommentResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentListResponse lista paginada de comentarios.
type CommentListResponse struct {
	Items []CommentResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// TaskHistoryResponse cambio de estado/prioridad.
type TaskHistoryResponse struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	ActorID     string    `json:"actor_id"`
	OldStatus   string    `json:"old_status,omitempty"`
	NewStatus   string    `json:"new_status,omitempty"`
	OldPriority string    `json:"old_priority,omitempty"`
	NewPriority string    `json:"new_priority,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskHistoryListResponse lista paginada del historial.
type TaskHistoryListResponse struct {
	Items []TaskHistoryResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}
