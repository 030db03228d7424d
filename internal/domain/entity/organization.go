package entity

import "time"

// Organization representa un tenant: raíz de aislamiento de usuarios y tareas.
type Organization struct {
	ID        string
	Name      string
	IsActive  bool // false bloquea toda acción de TENANT_ADMIN y USER
	IsPremium bool // solo lo modifica la activación de la suscripción
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsDeleted indica si la organización fue eliminada lógicamente.
func (o *Organization) IsDeleted() bool { return o.DeletedAt != nil }
