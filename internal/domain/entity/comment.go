package entity

import "time"

// Comment comentario de un usuario sobre una tarea.
type Comment struct {
	ID              string
	TaskID          string
	UserID          string
	Message         string
	DeletedAt       *time.Time
	DeletionBatchID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
