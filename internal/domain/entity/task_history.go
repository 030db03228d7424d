package entity

import "time"

// TaskHistory entrada inmutable del historial: se crea solo cuando cambia el estado o la prioridad.
type TaskHistory struct {
	ID          string
	TaskID      string
	ActorID     string
	OldStatus   TaskStatus
	NewStatus   TaskStatus
	OldPriority TaskPriority
	NewPriority TaskPriority
	CreatedAt   time.Time
}
