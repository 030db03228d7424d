package dto

import "time"

// CreateUserRequest entrada para crear un usuario (password en texto, se hashea en use case).
// Para super-admin OrganizationID es obligatorio; tenant-admin siempre crea en su organización.
type CreateUserRequest struct {
	OrganizationID string `json:"organization_id" validate:"omitempty,min=1"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	Name           string `json:"name" validate:"required,min=1,max=200"`
}

// UpdateUserRequest campos opcionales editables.
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	IsActive *bool   `json:"is_active"`
}

// ListUsersRequest filtros del listado de usuarios.
type ListUsersRequest struct {
	PageRequest
	OrganizationID string `query:"organization_id"`
	Deleted        bool   `query:"deleted"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID              string     `json:"id"`
	OrganizationID  string     `json:"organization_id,omitempty"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            string     `json:"role"`
	IsActive        bool       `json:"is_active"`
	IsEmailVerified bool       `json:"is_email_verified"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UserListResponse lista paginada de usuarios.
type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// DeleteUserResponse resumen del borrado en cascada.
type DeleteUserResponse struct {
	UserID          string `json:"user_id"`
	TasksDeleted    int64  `json:"tasks_deleted"`
	CommentsDeleted int64  `json:"comments_deleted"`
}
