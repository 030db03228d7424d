package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

const (
	orgA = "org-a"
	orgB = "org-b"
)

func superAdmin() policy.Actor {
	return policy.Actor{UserID: "sa", Role: entity.RoleSuperAdmin, Active: true}
}

func tenantAdmin(org string) policy.Actor {
	return policy.Actor{UserID: "ta-" + org, OrganizationID: org, Role: entity.RoleTenantAdmin, Active: true, OrganizationActive: true}
}

func member(id, org string) policy.Actor {
	return policy.Actor{UserID: id, OrganizationID: org, Role: entity.RoleUser, Active: true, OrganizationActive: true}
}

func task(org, owner, assignee string) *entity.Task {
	return &entity.Task{ID: "t1", OrganizationID: org, OwnerID: owner, AssigneeID: assignee}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tareas
// ──────────────────────────────────────────────────────────────────────────────

func TestCan_SuperAdminNuncaTocaTareas(t *testing.T) {
	tk := task(orgA, "u1", "u1")
	for _, action := range []policy.Action{policy.TaskView, policy.TaskUpdate, policy.TaskDelete, policy.CommentCreate, policy.HistoryView} {
		assert.False(t, policy.Can(superAdmin(), action, policy.OnTask(tk)), "super-admin no debe poder %s", action)
	}
	assert.False(t, policy.Can(superAdmin(), policy.TaskCreate, policy.InOrganization(orgA)))
	assert.Equal(t, policy.ScopeNone, policy.ListScope(superAdmin(), policy.TaskList))
}

func TestCan_TenantAdminAccesoTotalEnSuOrganizacion(t *testing.T) {
	tk := task(orgA, "u1", "u2")
	for _, action := range []policy.Action{policy.TaskView, policy.TaskUpdate, policy.TaskDelete, policy.CommentList, policy.HistoryView} {
		assert.True(t, policy.Can(tenantAdmin(orgA), action, policy.OnTask(tk)), "tenant-admin debe poder %s", action)
	}
	assert.Equal(t, policy.ScopeOrganization, policy.ListScope(tenantAdmin(orgA), policy.TaskList))
}

func TestCan_CrossTenantSiempreDenegado(t *testing.T) {
	tk := task(orgB, "ta-org-a", "ta-org-a")
	assert.False(t, policy.Can(tenantAdmin(orgA), policy.TaskView, policy.OnTask(tk)))
	assert.False(t, policy.Can(member("ta-org-a", orgA), policy.TaskView, policy.OnTask(tk)),
		"aunque el id coincida, otra organización se deniega")
	assert.False(t, policy.Can(tenantAdmin(orgA), policy.UserView, policy.OnUser(&entity.User{ID: "x", OrganizationID: orgB, Role: entity.RoleUser}, true)))
}

func TestCan_OrganizacionDesactivadaBloqueaAntesDeReglas(t *testing.T) {
	admin := tenantAdmin(orgA)
	admin.OrganizationActive = false
	user := member("u1", orgA)
	user.OrganizationActive = false
	tk := task(orgA, "u1", "u1")

	assert.False(t, policy.Can(admin, policy.TaskView, policy.OnTask(tk)))
	assert.False(t, policy.Can(user, policy.TaskView, policy.OnTask(tk)))
	assert.False(t, policy.Can(user, policy.UserView, policy.OnUser(&entity.User{ID: "u1", OrganizationID: orgA}, false)),
		"ni siquiera el acceso a sí mismo pasa con la organización desactivada")
	assert.Equal(t, policy.ScopeNone, policy.ListScope(admin, policy.TaskList))
}

func TestCan_UsuarioSoloVeTareasPropiasOAsignadas(t *testing.T) {
	u := member("u1", orgA)
	cases := []struct {
		name string
		task *entity.Task
		want bool
	}{
		{"dueño", task(orgA, "u1", "u2"), true},
		{"asignado", task(orgA, "u2", "u1"), true},
		{"ajena", task(orgA, "u2", "u3"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, policy.Can(u, policy.TaskView, policy.OnTask(tc.task)))
			assert.Equal(t, tc.want, policy.Can(u, policy.TaskUpdate, policy.OnTask(tc.task)))
			assert.Equal(t, tc.want, policy.Can(u, policy.CommentCreate, policy.OnTask(tc.task)))
		})
	}
	assert.Equal(t, policy.ScopeParticipant, policy.ListScope(u, policy.TaskList))
}

func TestCan_UsuarioBorraSoloSiEsDuenoYAsignado(t *testing.T) {
	u := member("u1", orgA)
	assert.True(t, policy.Can(u, policy.TaskDelete, policy.OnTask(task(orgA, "u1", "u1"))))
	assert.False(t, policy.Can(u, policy.TaskDelete, policy.OnTask(task(orgA, "u2", "u1"))),
		"el asignado no puede borrar una tarea creada por otro")
	assert.False(t, policy.Can(u, policy.TaskDelete, policy.OnTask(task(orgA, "u1", "u2"))),
		"el dueño no puede borrar una tarea asignada a otro")
}

func TestCan_CreacionDeSubtareas(t *testing.T) {
	u := member("u1", orgA)
	own := task(orgA, "u1", "u2")
	assigned := task(orgA, "u2", "u1")
	assert.True(t, policy.Can(u, policy.SubtaskCreate, policy.OnParentTask(own, entity.RoleUser)))
	assert.False(t, policy.Can(u, policy.SubtaskCreate, policy.OnParentTask(assigned, entity.RoleUser)))

	adminParent := task(orgA, "ta-org-a", "u1")
	userParent := task(orgA, "u1", "u1")
	assert.True(t, policy.Can(tenantAdmin(orgA), policy.SubtaskCreate, policy.OnParentTask(adminParent, entity.RoleTenantAdmin)))
	assert.False(t, policy.Can(tenantAdmin(orgA), policy.SubtaskCreate, policy.OnParentTask(userParent, entity.RoleUser)))

	nested := task(orgA, "u1", "u1")
	nested.ParentTaskID = "root"
	assert.False(t, policy.Can(u, policy.SubtaskCreate, policy.OnParentTask(nested, entity.RoleUser)), "profundidad máxima 1")
}

// ──────────────────────────────────────────────────────────────────────────────
// Comentarios
// ──────────────────────────────────────────────────────────────────────────────

func TestCan_UsuarioSoloEditaSusComentarios(t *testing.T) {
	u := member("u1", orgA)
	tk := task(orgA, "u1", "u2")
	mine := &entity.Comment{ID: "c1", TaskID: tk.ID, UserID: "u1"}
	other := &entity.Comment{ID: "c2", TaskID: tk.ID, UserID: "u2"}

	assert.True(t, policy.Can(u, policy.CommentUpdate, policy.OnComment(tk, mine)))
	assert.True(t, policy.Can(u, policy.CommentDelete, policy.OnComment(tk, mine)))
	assert.False(t, policy.Can(u, policy.CommentUpdate, policy.OnComment(tk, other)))
	assert.True(t, policy.Can(tenantAdmin(orgA), policy.CommentDelete, policy.OnComment(tk, other)))
}

// ──────────────────────────────────────────────────────────────────────────────
// Gestión de usuarios (regla de pares)
// ──────────────────────────────────────────────────────────────────────────────

func TestCan_ReglaDePares(t *testing.T) {
	ta := &entity.User{ID: "ta2", OrganizationID: orgA, Role: entity.RoleTenantAdmin}
	usr := &entity.User{ID: "u9", OrganizationID: orgA, Role: entity.RoleUser}
	otherSA := &entity.User{ID: "sa2", Role: entity.RoleSuperAdmin}

	assert.True(t, policy.Can(superAdmin(), policy.UserView, policy.OnUser(ta, true)))
	assert.False(t, policy.Can(superAdmin(), policy.UserView, policy.OnUser(usr, true)), "super-admin no gestiona USER")
	assert.False(t, policy.Can(superAdmin(), policy.UserDelete, policy.OnUser(otherSA, true)))

	assert.True(t, policy.Can(tenantAdmin(orgA), policy.UserDelete, policy.OnUser(usr, true)))
	assert.False(t, policy.Can(tenantAdmin(orgA), policy.UserDelete, policy.OnUser(ta, true)), "tenant-admin no gestiona a otro tenant-admin")

	self := member("u9", orgA)
	assert.True(t, policy.Can(self, policy.UserView, policy.OnUser(usr, true)), "acceso a sí mismo siempre permitido")
	assert.False(t, policy.Can(self, policy.UserView, policy.OnUser(&entity.User{ID: "u8", OrganizationID: orgA, Role: entity.RoleUser}, true)))
}

func TestCan_RestaurarRevisaOrganizacionDelObjetivo(t *testing.T) {
	now := time.Now()
	ta := &entity.User{ID: "ta2", OrganizationID: orgA, Role: entity.RoleTenantAdmin, DeletedAt: &now}
	assert.True(t, policy.Can(superAdmin(), policy.UserRestore, policy.OnUser(ta, true)))
	assert.False(t, policy.Can(superAdmin(), policy.UserRestore, policy.OnUser(ta, false)))
	assert.False(t, policy.Can(superAdmin(), policy.UserDelete, policy.OnUser(ta, false)))
	assert.True(t, policy.Can(superAdmin(), policy.UserView, policy.OnUser(ta, false)), "ver no exige organización activa")
}

func TestCan_CrearCuentas(t *testing.T) {
	assert.True(t, policy.Can(superAdmin(), policy.UserCreate, policy.NewAccount(orgA, entity.RoleTenantAdmin, true)))
	assert.False(t, policy.Can(superAdmin(), policy.UserCreate, policy.NewAccount(orgA, entity.RoleTenantAdmin, false)))
	assert.False(t, policy.Can(superAdmin(), policy.UserCreate, policy.NewAccount(orgA, entity.RoleUser, true)))
	assert.True(t, policy.Can(tenantAdmin(orgA), policy.UserCreate, policy.NewAccount(orgA, entity.RoleUser, true)))
	assert.False(t, policy.Can(tenantAdmin(orgA), policy.UserCreate, policy.NewAccount(orgA, entity.RoleTenantAdmin, true)))
	assert.False(t, policy.Can(tenantAdmin(orgA), policy.UserCreate, policy.NewAccount(orgB, entity.RoleUser, true)))
}

func TestCan_ActorInactivoNoPuedeNada(t *testing.T) {
	sa := superAdmin()
	sa.Active = false
	assert.False(t, policy.Can(sa, policy.OrganizationList, policy.Target{}))
}

func TestCan_Facturacion(t *testing.T) {
	assert.True(t, policy.Can(tenantAdmin(orgA), policy.BillingPurchase, policy.InOrganization(orgA)))
	assert.False(t, policy.Can(member("u1", orgA), policy.BillingPurchase, policy.InOrganization(orgA)))
	assert.True(t, policy.Can(member("u1", orgA), policy.BillingView, policy.InOrganization(orgA)))
	assert.False(t, policy.Can(tenantAdmin(orgA), policy.BillingAudit, policy.Target{}))
	assert.True(t, policy.Can(superAdmin(), policy.BillingAudit, policy.Target{}))
}

func TestDenied_DistingueOrganizacionInactiva(t *testing.T) {
	admin := tenantAdmin(orgA)
	assert.ErrorIs(t, policy.Denied(admin), domain.ErrForbidden)
	admin.OrganizationActive = false
	assert.ErrorIs(t, policy.Denied(admin), domain.ErrOrganizationInactive)
	assert.ErrorIs(t, policy.Denied(admin), domain.ErrForbidden)
	assert.ErrorIs(t, policy.Denied(superAdmin()), domain.ErrForbidden)
}
