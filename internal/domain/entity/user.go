package entity

import "time"

// Role rol fijo de la jerarquía SUPER_ADMIN > TENANT_ADMIN > USER.
type Role string

// Roles válidos para User.
const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleTenantAdmin Role = "TENANT_ADMIN"
	RoleUser        Role = "USER"
)

// Valid indica si el rol es uno de los tres conocidos.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleUser:
		return true
	}
	return false
}

// MaxPasswordBytes límite de bcrypt; un password más largo no se puede hashear.
const MaxPasswordBytes = 72

// Quién originó un borrado lógico de usuario.
const (
	DeletedBySelf  = "self"
	DeletedByAdmin = "admin"
)

// User representa un usuario del sistema. OrganizationID vacío solo para SUPER_ADMIN.
type User struct {
	ID              string
	OrganizationID  string
	Email           string
	PasswordHash    string // bcrypt hash, nunca plano en dominio después de persistir
	Name            string
	Role            Role
	IsActive        bool
	IsEmailVerified bool
	DeletedAt       *time.Time
	DeletedBy       string // self | admin
	DeletionBatchID string // lote que agrupa las filas borradas en cascada
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsDeleted indica si el usuario fue eliminado lógicamente.
func (u *User) IsDeleted() bool { return u.DeletedAt != nil }
