// Package policy evalúa permisos (actor, acción, objetivo) -> permitir/denegar.
//
// Es puro: no hace I/O, solo lee los campos ya cargados del actor y del objetivo.
// Las reglas viven en una única tabla (acción, rol) -> alcance + predicado, y la misma
// tabla alimenta el filtro de listados (ListScope) para que listado y objeto no diverjan.
package policy

import (
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// Action acción que se quiere ejecutar.
type Action string

const (
	OrganizationCreate Action = "organization:create"
	OrganizationList   Action = "organization:list"
	OrganizationView   Action = "organization:view"
	OrganizationManage Action = "organization:manage"

	UserCreate  Action = "user:create"
	UserList    Action = "user:list"
	UserView    Action = "user:view"
	UserUpdate  Action = "user:update"
	UserDelete  Action = "user:delete"
	UserRestore Action = "user:restore"

	TaskCreate    Action = "task:create"
	TaskList      Action = "task:list"
	TaskView      Action = "task:view"
	TaskUpdate    Action = "task:update"
	TaskDelete    Action = "task:delete"
	SubtaskCreate Action = "task:create-subtask"

	CommentList   Action = "comment:list"
	CommentCreate Action = "comment:create"
	CommentUpdate Action = "comment:update"
	CommentDelete Action = "comment:delete"

	HistoryView Action = "history:view"

	BillingPurchase Action = "billing:purchase"
	BillingView     Action = "billing:view"
	BillingAudit    Action = "billing:audit"
)

// Scope alcance de datos sobre el que una regla aplica.
type Scope int

const (
	// ScopeNone la acción no está permitida para el rol.
	ScopeNone Scope = iota
	// ScopeSystem sin restricción de tenant (solo super-admin, gestión de plataforma).
	ScopeSystem
	// ScopeOrganization todo lo de la organización del actor.
	ScopeOrganization
	// ScopeParticipant solo tareas donde el actor es dueño o asignado.
	ScopeParticipant
)

// Actor quién ejecuta la acción, con su estado actual.
type Actor struct {
	UserID             string
	OrganizationID     string
	Role               entity.Role
	Active             bool // usuario activo y no borrado
	OrganizationActive bool
}

// NewActor construye el actor desde el usuario y su organización (nil para super-admin).
func NewActor(u *entity.User, org *entity.Organization) Actor {
	a := Actor{
		UserID:         u.ID,
		OrganizationID: u.OrganizationID,
		Role:           u.Role,
		Active:         u.IsActive && !u.IsDeleted(),
	}
	if org != nil {
		a.OrganizationActive = org.IsActive && !org.IsDeleted()
	}
	return a
}

// Target objeto sobre el que se evalúa la acción. Solo se llenan los campos relevantes.
type Target struct {
	OrganizationID string

	Task            *entity.Task
	ParentOwnerRole entity.Role // rol del dueño de la tarea padre (SubtaskCreate)

	Comment *entity.Comment

	User                   *entity.User
	UserOrganizationActive bool
	NewRole                entity.Role // rol de la cuenta a crear (UserCreate)
}

// InOrganization objetivo acotado a una organización.
func InOrganization(orgID string) Target { return Target{OrganizationID: orgID} }

// OnTask objetivo: una tarea (también para comentarios e historial de la tarea).
func OnTask(t *entity.Task) Target { return Target{Task: t} }

// OnParentTask objetivo: la tarea padre de una subtarea a crear.
func OnParentTask(parent *entity.Task, ownerRole entity.Role) Target {
	return Target{Task: parent, ParentOwnerRole: ownerRole}
}

// OnComment objetivo: un comentario de una tarea.
func OnComment(t *entity.Task, c *entity.Comment) Target { return Target{Task: t, Comment: c} }

// OnUser objetivo: otra cuenta de usuario y el estado actual de su organización.
func OnUser(u *entity.User, orgActive bool) Target {
	return Target{User: u, UserOrganizationActive: orgActive}
}

// NewAccount objetivo: una cuenta por crear en orgID con el rol dado.
func NewAccount(orgID string, role entity.Role, orgActive bool) Target {
	return Target{OrganizationID: orgID, NewRole: role, UserOrganizationActive: orgActive}
}

func (t Target) organizationID() string {
	switch {
	case t.Task != nil:
		return t.Task.OrganizationID
	case t.User != nil:
		return t.User.OrganizationID
	default:
		return t.OrganizationID
	}
}

type predicate func(a Actor, t Target) bool

type rule struct {
	scope Scope
	check predicate
}

var rules = map[Action]map[entity.Role]rule{
	OrganizationCreate: {entity.RoleSuperAdmin: {scope: ScopeSystem}},
	OrganizationList:   {entity.RoleSuperAdmin: {scope: ScopeSystem}},
	OrganizationManage: {entity.RoleSuperAdmin: {scope: ScopeSystem}},
	OrganizationView: {
		entity.RoleSuperAdmin:  {scope: ScopeSystem},
		entity.RoleTenantAdmin: {scope: ScopeOrganization},
		entity.RoleUser:        {scope: ScopeOrganization},
	},

	UserCreate: {
		entity.RoleSuperAdmin: {scope: ScopeSystem, check: func(_ Actor, t Target) bool {
			return t.NewRole == entity.RoleTenantAdmin && t.OrganizationID != "" && t.UserOrganizationActive
		}},
		entity.RoleTenantAdmin: {scope: ScopeOrganization, check: func(_ Actor, t Target) bool {
			return t.NewRole == entity.RoleUser
		}},
	},
	UserList: {
		entity.RoleSuperAdmin:  {scope: ScopeSystem},
		entity.RoleTenantAdmin: {scope: ScopeOrganization},
	},
	UserView:    peerRules(false),
	UserUpdate:  peerRules(false),
	UserDelete:  peerRules(true),
	UserRestore: peerRules(true),

	TaskCreate: {
		entity.RoleTenantAdmin: {scope: ScopeOrganization},
		entity.RoleUser:        {scope: ScopeOrganization},
	},
	TaskList:      tenantRules(),
	TaskView:      tenantRules(),
	TaskUpdate:    tenantRules(),
	HistoryView:   tenantRules(),
	CommentList:   tenantRules(),
	CommentCreate: tenantRules(),
	TaskDelete: {
		entity.RoleTenantAdmin: {scope: ScopeOrganization},
		entity.RoleUser: {scope: ScopeParticipant, check: func(a Actor, t Target) bool {
			return t.Task.OwnerID == a.UserID && t.Task.AssigneeID == a.UserID
		}},
	},
	SubtaskCreate: {
		entity.RoleTenantAdmin: {scope: ScopeOrganization, check: func(_ Actor, t Target) bool {
			return !t.Task.IsSubtask() && t.ParentOwnerRole == entity.RoleTenantAdmin
		}},
		entity.RoleUser: {scope: ScopeParticipant, check: func(a Actor, t Target) bool {
			return !t.Task.IsSubtask() && t.Task.OwnerID == a.UserID
		}},
	},
	CommentUpdate: ownCommentRules(),
	CommentDelete: ownCommentRules(),

	BillingPurchase: {entity.RoleTenantAdmin: {scope: ScopeOrganization}},
	BillingView: {
		entity.RoleTenantAdmin: {scope: ScopeOrganization},
		entity.RoleUser:        {scope: ScopeOrganization},
	},
	BillingAudit: {entity.RoleSuperAdmin: {scope: ScopeSystem}},
}

// tenantRules: TENANT_ADMIN ve toda la organización, USER solo sus tareas.
func tenantRules() map[entity.Role]rule {
	return map[entity.Role]rule{
		entity.RoleTenantAdmin: {scope: ScopeOrganization},
		entity.RoleUser:        {scope: ScopeParticipant},
	}
}

func ownCommentRules() map[entity.Role]rule {
	return map[entity.Role]rule{
		entity.RoleTenantAdmin: {scope: ScopeOrganization},
		entity.RoleUser: {scope: ScopeParticipant, check: func(a Actor, t Target) bool {
			return t.Comment != nil && t.Comment.UserID == a.UserID
		}},
	}
}

// peerRules: super-admin solo sobre TENANT_ADMIN, tenant-admin solo sobre USER de su organización.
// Con requireActiveOrg también se exige que la organización del objetivo siga activa.
func peerRules(requireActiveOrg bool) map[entity.Role]rule {
	peer := func(role entity.Role) predicate {
		return func(a Actor, t Target) bool {
			if t.User == nil {
				return false
			}
			if t.User.ID == a.UserID {
				return true
			}
			if requireActiveOrg && !t.UserOrganizationActive {
				return false
			}
			return t.User.Role == role
		}
	}
	self := func(a Actor, t Target) bool { return t.User != nil && t.User.ID == a.UserID }
	return map[entity.Role]rule{
		entity.RoleSuperAdmin:  {scope: ScopeSystem, check: peer(entity.RoleTenantAdmin)},
		entity.RoleTenantAdmin: {scope: ScopeOrganization, check: peer(entity.RoleUser)},
		entity.RoleUser:        {scope: ScopeOrganization, check: self},
	}
}

// Can indica si el actor puede ejecutar la acción sobre el objetivo.
func Can(a Actor, action Action, t Target) bool {
	if !a.Active {
		return false
	}
	// Organización desactivada: bloquea todo salvo al super-admin, antes de cualquier regla.
	if a.Role != entity.RoleSuperAdmin && (a.OrganizationID == "" || !a.OrganizationActive) {
		return false
	}
	r, ok := rules[action][a.Role]
	if !ok {
		return false
	}
	if !inScope(r.scope, a, t) {
		return false
	}
	return r.check == nil || r.check(a, t)
}

// Denied error para una acción denegada: distingue la organización desactivada del resto.
func Denied(a Actor) error {
	if a.Role != entity.RoleSuperAdmin && a.OrganizationID != "" && !a.OrganizationActive {
		return domain.ErrOrganizationInactive
	}
	return domain.ErrForbidden
}

// ListScope alcance con el que el actor puede listar para la acción (ScopeNone = prohibido).
func ListScope(a Actor, action Action) Scope {
	if !a.Active {
		return ScopeNone
	}
	if a.Role != entity.RoleSuperAdmin && (a.OrganizationID == "" || !a.OrganizationActive) {
		return ScopeNone
	}
	r, ok := rules[action][a.Role]
	if !ok {
		return ScopeNone
	}
	return r.scope
}

func inScope(s Scope, a Actor, t Target) bool {
	switch s {
	case ScopeSystem:
		return true
	case ScopeOrganization:
		return t.organizationID() == a.OrganizationID
	case ScopeParticipant:
		if t.Task == nil || t.Task.OrganizationID != a.OrganizationID {
			return false
		}
		return t.Task.OwnerID == a.UserID || t.Task.AssigneeID == a.UserID
	default:
		return false
	}
}
