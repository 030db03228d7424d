package entity

import "time"

// TaskStatus estado de una tarea.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// Valid indica si el estado es conocido.
func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskInProgress || s == TaskCompleted
}

// TaskPriority prioridad de una tarea.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "HIGH"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityLow    TaskPriority = "LOW"
)

// Valid indica si la prioridad es conocida.
func (p TaskPriority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Task tarea o subtarea (ParentTaskID no vacío, profundidad máxima 1).
type Task struct {
	ID              string
	OrganizationID  string
	OwnerID         string
	AssigneeID      string
	ParentTaskID    string
	Title           string
	TitleKey        string // título normalizado para la unicidad sin distinguir mayúsculas
	Description     string
	Status          TaskStatus
	Priority        TaskPriority
	Deadline        *time.Time
	DeletedAt       *time.Time
	DeletionBatchID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsSubtask indica si la tarea cuelga de otra.
func (t *Task) IsSubtask() bool { return t.ParentTaskID != "" }

// IsDeleted indica si la tarea fue eliminada lógicamente.
func (t *Task) IsDeleted() bool { return t.DeletedAt != nil }

// TaskFilter filtro de listado; VisibleTo restringe a tareas donde el usuario es dueño o asignado.
type TaskFilter struct {
	OrganizationID string
	VisibleTo      string
	ParentTaskID   string
	Status         TaskStatus
	Priority       TaskPriority
	Limit          int
	Offset         int
}
