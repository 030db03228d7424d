package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taskvault-api/internal/application/cache"
	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/application/task"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/internal/testutil"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

type env struct {
	store    *testutil.Store
	cache    *testutil.MemoryCache
	tasks    *task.TaskUseCase
	comments *task.CommentUseCase
	history  *task.HistoryUseCase

	admin, alice, bob, outsider policy.Actor
	inactiveID                  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := testutil.NewStore()
	mem := testutil.NewMemoryCache()
	tc := cache.NewTenantCache(mem, time.Minute, logger.Nop())

	orgA := &entity.Organization{Name: "A", IsActive: true}
	orgB := &entity.Organization{Name: "B", IsActive: true}
	require.NoError(t, store.Organizations().Create(ctx, orgA))
	require.NoError(t, store.Organizations().Create(ctx, orgB))

	mk := func(org *entity.Organization, email string, role entity.Role, active bool) *entity.User {
		u := &entity.User{OrganizationID: org.ID, Email: email, Name: email, Role: role, IsActive: active}
		require.NoError(t, store.Users().Create(ctx, u))
		return u
	}
	admin := mk(orgA, "admin@a.test", entity.RoleTenantAdmin, true)
	alice := mk(orgA, "alice@a.test", entity.RoleUser, true)
	bob := mk(orgA, "bob@a.test", entity.RoleUser, true)
	inactive := mk(orgA, "off@a.test", entity.RoleUser, false)
	outsider := mk(orgB, "admin@b.test", entity.RoleTenantAdmin, true)

	return &env{
		store:      store,
		cache:      mem,
		tasks:      task.NewTaskUseCase(store, store.Tasks(), store.Users(), tc, logger.Nop()),
		comments:   task.NewCommentUseCase(store.Tasks(), store.Comments()),
		history:    task.NewHistoryUseCase(store.Tasks(), store.History()),
		admin:      policy.NewActor(admin, orgA),
		alice:      policy.NewActor(alice, orgA),
		bob:        policy.NewActor(bob, orgA),
		outsider:   policy.NewActor(outsider, orgB),
		inactiveID: inactive.ID,
	}
}

func (e *env) create(t *testing.T, actor policy.Actor, in dto.CreateTaskRequest) *dto.TaskResponse {
	t.Helper()
	resp, err := e.tasks.Create(context.Background(), actor, in)
	require.NoError(t, err)
	return resp
}

func strp(s string) *string { return &s }

// ──────────────────────────────────────────────────────────────────────────────
// Creación
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_ValoresPorDefecto(t *testing.T) {
	e := newEnv(t)
	got := e.create(t, e.alice, dto.CreateTaskRequest{Title: "  Preparar informe  "})

	assert.Equal(t, "Preparar informe", got.Title)
	assert.Equal(t, string(entity.TaskPending), got.Status)
	assert.Equal(t, string(entity.PriorityMedium), got.Priority)
	assert.Equal(t, e.alice.UserID, got.OwnerID)
	assert.Equal(t, e.alice.UserID, got.AssigneeID)
}

func TestCreate_TituloDuplicadoPorAsignado(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.create(t, e.admin, dto.CreateTaskRequest{Title: "Revisar", AssigneeID: e.alice.UserID})

	_, err := e.tasks.Create(ctx, e.admin, dto.CreateTaskRequest{Title: "  REVISAR ", AssigneeID: e.alice.UserID})
	assert.ErrorIs(t, err, domain.ErrDuplicateTitle)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = e.tasks.Create(ctx, e.admin, dto.CreateTaskRequest{Title: "Revisar", AssigneeID: e.bob.UserID})
	assert.NoError(t, err, "otro asignado puede tener el mismo título")
}

func TestCreate_ReglasDeAsignacion(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.tasks.Create(ctx, e.alice, dto.CreateTaskRequest{Title: "x", AssigneeID: e.bob.UserID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.tasks.Create(ctx, e.admin, dto.CreateTaskRequest{Title: "x", AssigneeID: e.inactiveID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.tasks.Create(ctx, e.admin, dto.CreateTaskRequest{Title: "x", AssigneeID: e.outsider.UserID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreate_Validaciones(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	past := time.Now().Add(-time.Hour)

	_, err := e.tasks.Create(ctx, e.alice, dto.CreateTaskRequest{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = e.tasks.Create(ctx, e.alice, dto.CreateTaskRequest{Title: "x", Deadline: &past})
	assert.ErrorIs(t, err, domain.ErrDeadlineInPast)

	sa := policy.Actor{UserID: "sa", Role: entity.RoleSuperAdmin, Active: true}
	_, err = e.tasks.Create(ctx, sa, dto.CreateTaskRequest{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreate_Subtareas(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	own := e.create(t, e.alice, dto.CreateTaskRequest{Title: "raíz"})

	sub, err := e.tasks.Create(ctx, e.alice, dto.CreateTaskRequest{Title: "hija", ParentTaskID: own.ID})
	require.NoError(t, err)
	assert.Equal(t, own.ID, sub.ParentTaskID)

	_, err = e.tasks.Create(ctx, e.alice, dto.CreateTaskRequest{Title: "nieta", ParentTaskID: sub.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "profundidad máxima 1")

	_, err = e.tasks.Create(ctx, e.admin, dto.CreateTaskRequest{Title: "del admin", ParentTaskID: own.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden, "tenant-admin solo cuelga de tareas de administradores")

	adminRoot := e.create(t, e.admin, dto.CreateTaskRequest{Title: "raíz admin"})
	_, err = e.tasks.Create(ctx, e.admin, dto.CreateTaskRequest{Title: "hija admin", ParentTaskID: adminRoot.ID})
	assert.NoError(t, err)

	_, err = e.tasks.Create(ctx, e.outsider, dto.CreateTaskRequest{Title: "ajena", ParentTaskID: own.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Actualización e historial
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdate_NoCompletaConSubtareasPendientes(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	parent := e.create(t, e.alice, dto.CreateTaskRequest{Title: "padre"})
	child := e.create(t, e.alice, dto.CreateTaskRequest{Title: "hija", ParentTaskID: parent.ID})

	_, err := e.tasks.Update(ctx, e.alice, parent.ID, dto.UpdateTaskRequest{Status: strp("COMPLETED")})
	assert.ErrorIs(t, err, domain.ErrIncompleteSubtasks)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.tasks.Update(ctx, e.alice, child.ID, dto.UpdateTaskRequest{Status: strp("COMPLETED")})
	require.NoError(t, err)
	got, err := e.tasks.Update(ctx, e.alice, parent.ID, dto.UpdateTaskRequest{Status: strp("COMPLETED")})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", got.Status)
}

func TestUpdate_HistorialSoloParaEstadoOPrioridad(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tk := e.create(t, e.alice, dto.CreateTaskRequest{Title: "t"})
	future := time.Now().Add(48 * time.Hour)

	_, err := e.tasks.Update(ctx, e.alice, tk.ID, dto.UpdateTaskRequest{Deadline: &future})
	require.NoError(t, err)
	_, err = e.tasks.Update(ctx, e.alice, tk.ID, dto.UpdateTaskRequest{Status: strp("IN_PROGRESS"), Priority: strp("HIGH")})
	require.NoError(t, err)

	hist, err := e.history.List(ctx, e.alice, tk.ID, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, hist.Items, 1)
	h := hist.Items[0]
	assert.Equal(t, "PENDING", h.OldStatus)
	assert.Equal(t, "IN_PROGRESS", h.NewStatus)
	assert.Equal(t, "MEDIUM", h.OldPriority)
	assert.Equal(t, "HIGH", h.NewPriority)
	assert.Equal(t, e.alice.UserID, h.ActorID)
}

func TestUpdate_SinCambiosOSinCampos(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tk := e.create(t, e.alice, dto.CreateTaskRequest{Title: "t"})

	_, err := e.tasks.Update(ctx, e.alice, tk.ID, dto.UpdateTaskRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = e.tasks.Update(ctx, e.alice, tk.ID, dto.UpdateTaskRequest{Status: strp("PENDING")})
	assert.ErrorIs(t, err, domain.ErrNoChanges)
}

func TestUpdate_AsignadoPuedeActualizarAjenoNo(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tk := e.create(t, e.admin, dto.CreateTaskRequest{Title: "t", AssigneeID: e.alice.UserID})

	_, err := e.tasks.Update(ctx, e.alice, tk.ID, dto.UpdateTaskRequest{Status: strp("IN_PROGRESS")})
	assert.NoError(t, err)
	_, err = e.tasks.Update(ctx, e.bob, tk.ID, dto.UpdateTaskRequest{Status: strp("COMPLETED")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = e.tasks.Get(ctx, e.outsider, tk.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "otra organización no ve la tarea")
}

// ──────────────────────────────────────────────────────────────────────────────
// Borrado
// ──────────────────────────────────────────────────────────────────────────────

func TestDelete_ConSubtareaActivaEsConflicto(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	parent := e.create(t, e.alice, dto.CreateTaskRequest{Title: "padre"})
	child := e.create(t, e.alice, dto.CreateTaskRequest{Title: "hija", ParentTaskID: parent.ID})

	err := e.tasks.Delete(ctx, e.alice, parent.ID)
	assert.ErrorIs(t, err, domain.ErrActiveSubtasks)

	require.NoError(t, e.tasks.Delete(ctx, e.alice, child.ID))
	require.NoError(t, e.tasks.Delete(ctx, e.alice, parent.ID))
	_, err = e.tasks.Get(ctx, e.alice, parent.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestDelete_UsuarioSoloSiEsDuenoYAsignado(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	assigned := e.create(t, e.admin, dto.CreateTaskRequest{Title: "asignada", AssigneeID: e.alice.UserID})
	own := e.create(t, e.alice, dto.CreateTaskRequest{Title: "propia"})

	assert.ErrorIs(t, e.tasks.Delete(ctx, e.alice, assigned.ID), domain.ErrForbidden)
	assert.NoError(t, e.tasks.Delete(ctx, e.alice, own.ID))
	assert.NoError(t, e.tasks.Delete(ctx, e.admin, assigned.ID))
}

// ──────────────────────────────────────────────────────────────────────────────
// Listado y caché
// ──────────────────────────────────────────────────────────────────────────────

func TestList_UsuarioSoloVeSusTareas(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.create(t, e.alice, dto.CreateTaskRequest{Title: "de alice"})
	e.create(t, e.bob, dto.CreateTaskRequest{Title: "de bob"})
	e.create(t, e.admin, dto.CreateTaskRequest{Title: "para alice", AssigneeID: e.alice.UserID})

	got, err := e.tasks.List(ctx, e.alice, dto.ListTasksRequest{})
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	all, err := e.tasks.List(ctx, e.admin, dto.ListTasksRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)

	other, err := e.tasks.List(ctx, e.outsider, dto.ListTasksRequest{})
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}

func TestList_MutacionInvalidaLaCache(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.create(t, e.alice, dto.CreateTaskRequest{Title: "uno"})

	first, err := e.tasks.List(ctx, e.alice, dto.ListTasksRequest{})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	entries := e.cache.Len()

	again, err := e.tasks.List(ctx, e.alice, dto.ListTasksRequest{})
	require.NoError(t, err)
	require.Len(t, again.Items, 1)
	assert.Equal(t, first.Items[0].ID, again.Items[0].ID)
	assert.Equal(t, entries, e.cache.Len(), "la segunda lectura sale de la caché")

	e.create(t, e.alice, dto.CreateTaskRequest{Title: "dos"})
	after, err := e.tasks.List(ctx, e.alice, dto.ListTasksRequest{})
	require.NoError(t, err)
	assert.Len(t, after.Items, 2)
}

func TestList_OrganizacionInactiva(t *testing.T) {
	e := newEnv(t)
	actor := e.alice
	actor.OrganizationActive = false
	_, err := e.tasks.List(context.Background(), actor, dto.ListTasksRequest{})
	assert.ErrorIs(t, err, domain.ErrOrganizationInactive)
}

// ──────────────────────────────────────────────────────────────────────────────
// Comentarios
// ──────────────────────────────────────────────────────────────────────────────

func TestComments_SoloElAutorEdita(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tk := e.create(t, e.admin, dto.CreateTaskRequest{Title: "t", AssigneeID: e.alice.UserID})

	mine, err := e.comments.Create(ctx, e.alice, tk.ID, dto.CommentRequest{Message: "hecho"})
	require.NoError(t, err)
	adminC, err := e.comments.Create(ctx, e.admin, tk.ID, dto.CommentRequest{Message: "gracias"})
	require.NoError(t, err)

	_, err = e.comments.Update(ctx, e.alice, tk.ID, adminC.ID, dto.CommentRequest{Message: "editado"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = e.comments.Update(ctx, e.alice, tk.ID, mine.ID, dto.CommentRequest{Message: "hecho"})
	assert.ErrorIs(t, err, domain.ErrNoChanges)
	_, err = e.comments.Update(ctx, e.alice, tk.ID, mine.ID, dto.CommentRequest{Message: "hecho y revisado"})
	assert.NoError(t, err)

	_, err = e.comments.Create(ctx, e.bob, tk.ID, dto.CommentRequest{Message: "hola"})
	assert.ErrorIs(t, err, domain.ErrForbidden, "bob no participa de la tarea")

	require.NoError(t, e.comments.Delete(ctx, e.admin, tk.ID, mine.ID))
	list, err := e.comments.List(ctx, e.alice, tk.ID, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, adminC.ID, list.Items[0].ID)
}
