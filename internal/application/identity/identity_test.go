package identity_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/taskvault-api/internal/application/cache"
	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/application/identity"
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
	store *testutil.Store
	cache *cache.TenantCache
	orgs  *identity.OrganizationUseCase
	users *identity.UserUseCase

	orgA, orgB           *entity.Organization
	super, admin, alice  policy.Actor
	outsider             policy.Actor
	aliceUser, adminUser *entity.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := testutil.NewStore()
	tc := cache.NewTenantCache(testutil.NewMemoryCache(), time.Minute, logger.Nop())

	orgA := &entity.Organization{Name: "A", IsActive: true, CreatedAt: time.Now()}
	orgB := &entity.Organization{Name: "B", IsActive: true, CreatedAt: time.Now()}
	require.NoError(t, store.Organizations().Create(ctx, orgA))
	require.NoError(t, store.Organizations().Create(ctx, orgB))

	mk := func(orgID, email string, role entity.Role) *entity.User {
		u := &entity.User{OrganizationID: orgID, Email: email, Name: email, Role: role, IsActive: true, CreatedAt: time.Now()}
		require.NoError(t, store.Users().Create(ctx, u))
		return u
	}
	super := mk("", "root@sys.test", entity.RoleSuperAdmin)
	admin := mk(orgA.ID, "admin@a.test", entity.RoleTenantAdmin)
	alice := mk(orgA.ID, "alice@a.test", entity.RoleUser)
	outsider := mk(orgB.ID, "admin@b.test", entity.RoleTenantAdmin)

	return &env{
		store:     store,
		cache:     tc,
		orgs:      identity.NewOrganizationUseCase(store.Organizations(), tc, logger.Nop()),
		users:     identity.NewUserUseCase(store, store.Users(), store.Organizations(), tc, logger.Nop()),
		orgA:      orgA,
		orgB:      orgB,
		super:     policy.NewActor(super, nil),
		admin:     policy.NewActor(admin, orgA),
		alice:     policy.NewActor(alice, orgA),
		outsider:  policy.NewActor(outsider, orgB),
		aliceUser: alice,
		adminUser: admin,
	}
}

func boolp(b bool) *bool     { return &b }
func strp(s string) *string { return &s }

// ──────────────────────────────────────────────────────────────────────────────
// Organizaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestOrganizationCreate_SoloSuperAdmin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	got, err := e.orgs.Create(ctx, e.super, dto.CreateOrganizationRequest{Name: "  Nueva  "})
	require.NoError(t, err)
	assert.Equal(t, "Nueva", got.Name)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsPremium)

	_, err = e.orgs.Create(ctx, e.admin, dto.CreateOrganizationRequest{Name: "X"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestOrganizationGet_MiembroSoloLaPropia(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	got, err := e.orgs.Get(ctx, e.alice, e.orgA.ID)
	require.NoError(t, err)
	assert.Equal(t, e.orgA.ID, got.ID)

	_, err = e.orgs.Get(ctx, e.alice, e.orgB.ID)
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)

	_, err = e.orgs.Get(ctx, e.super, e.orgB.ID)
	assert.NoError(t, err)
}

func TestOrganizationUpdate_DesactivarBloqueaAlTenant(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	got, err := e.orgs.Update(ctx, e.super, e.orgA.ID, dto.UpdateOrganizationRequest{IsActive: boolp(false)})
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = e.orgs.Update(ctx, e.super, e.orgA.ID, dto.UpdateOrganizationRequest{IsActive: boolp(false)})
	assert.ErrorIs(t, err, domain.ErrNoChanges)

	org, err := e.store.Organizations().GetByID(ctx, e.orgA.ID)
	require.NoError(t, err)
	admin, err := e.store.Users().GetByID(ctx, e.adminUser.ID)
	require.NoError(t, err)
	actor := policy.NewActor(admin, org)

	_, err = e.users.List(ctx, actor, dto.ListUsersRequest{})
	assert.ErrorIs(t, err, domain.ErrOrganizationInactive)
}

func TestOrganizationDelete_DesapareceDelListado(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	require.NoError(t, e.orgs.Delete(ctx, e.super, e.orgB.ID))

	list, err := e.orgs.List(ctx, e.super, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, e.orgA.ID, list.Items[0].ID)

	_, err = e.orgs.Get(ctx, e.super, e.orgB.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Usuarios: alta y listado
// ──────────────────────────────────────────────────────────────────────────────

func TestUserCreate_RolSegunCreador(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	ta, err := e.users.Create(ctx, e.super, dto.CreateUserRequest{
		OrganizationID: e.orgB.ID, Email: " Jefe@B.test ", Password: "secreto123", Name: "Jefe",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.RoleTenantAdmin), ta.Role)
	assert.Equal(t, "jefe@b.test", ta.Email)

	u, err := e.users.Create(ctx, e.admin, dto.CreateUserRequest{
		OrganizationID: e.orgB.ID, Email: "nuevo@a.test", Password: "secreto123", Name: "Nuevo",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.RoleUser), u.Role)
	assert.Equal(t, e.orgA.ID, u.OrganizationID, "el tenant-admin siempre crea en su organización")

	stored, err := e.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secreto123")))

	_, err = e.users.Create(ctx, e.alice, dto.CreateUserRequest{Email: "x@a.test", Password: "secreto123", Name: "X"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUserCreate_Validaciones(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.users.Create(ctx, e.super, dto.CreateUserRequest{Email: "a@b.test", Password: "secreto123", Name: "A"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.users.Create(ctx, e.super, dto.CreateUserRequest{OrganizationID: "nope", Email: "a@b.test", Password: "secreto123", Name: "A"})
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)

	_, err = e.users.Create(ctx, e.admin, dto.CreateUserRequest{Email: "ALICE@a.test", Password: "secreto123", Name: "A"})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// 40 runas de 2 bytes: pasa max=72 del validador pero excede el límite de bcrypt
	_, err = e.users.Create(ctx, e.admin, dto.CreateUserRequest{Email: "nuevo@a.test", Password: strings.Repeat("ñ", 40), Name: "A"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUserCreate_OrganizacionInactiva(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	_, err := e.orgs.Update(ctx, e.super, e.orgB.ID, dto.UpdateOrganizationRequest{IsActive: boolp(false)})
	require.NoError(t, err)

	_, err = e.users.Create(ctx, e.super, dto.CreateUserRequest{
		OrganizationID: e.orgB.ID, Email: "jefe@b.test", Password: "secreto123", Name: "Jefe",
	})
	assert.ErrorIs(t, err, domain.ErrOrganizationInactive)
}

func TestUserList_AlcancePorRol(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	list, err := e.users.List(ctx, e.super, dto.ListUsersRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2, "el super-admin ve los tenant-admins")
	for _, u := range list.Items {
		assert.Equal(t, string(entity.RoleTenantAdmin), u.Role)
	}

	list, err = e.users.List(ctx, e.admin, dto.ListUsersRequest{OrganizationID: e.orgB.ID})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, e.alice.UserID, list.Items[0].ID)

	_, err = e.users.List(ctx, e.alice, dto.ListUsersRequest{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// ──────────────────────────────────────────────────────────────────────────────
// Usuarios: consulta y edición
// ──────────────────────────────────────────────────────────────────────────────

func TestUserGet_AislamientoDeTenant(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.users.Get(ctx, e.outsider, e.alice.UserID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = e.users.Get(ctx, e.alice, e.admin.UserID)
	assert.ErrorIs(t, err, domain.ErrForbidden, "un USER solo se ve a sí mismo")

	got, err := e.users.Get(ctx, e.alice, e.alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, e.alice.UserID, got.ID)
}

func TestUserUpdate_NoPuedeDesactivarseASiMismo(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.users.Update(ctx, e.admin, e.admin.UserID, dto.UpdateUserRequest{IsActive: boolp(false)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err := e.users.Update(ctx, e.admin, e.alice.UserID, dto.UpdateUserRequest{IsActive: boolp(false)})
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = e.users.Update(ctx, e.admin, e.alice.UserID, dto.UpdateUserRequest{Name: strp(e.aliceUser.Name)})
	assert.ErrorIs(t, err, domain.ErrNoChanges)
}

// ──────────────────────────────────────────────────────────────────────────────
// Borrado en cascada y restauración
// ──────────────────────────────────────────────────────────────────────────────

func seedTask(t *testing.T, e *env, owner, assignee, title string) *entity.Task {
	t.Helper()
	task := &entity.Task{
		OrganizationID: e.orgA.ID, OwnerID: owner, AssigneeID: assignee, Title: title, TitleKey: title,
		Status: entity.TaskPending, Priority: entity.PriorityMedium, CreatedAt: time.Now(),
	}
	require.NoError(t, e.store.Tasks().Create(context.Background(), task))
	return task
}

func TestUserDelete_CascadaYRestauracion(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	assigned := seedTask(t, e, e.admin.UserID, e.alice.UserID, "asignada")
	own := seedTask(t, e, e.alice.UserID, e.alice.UserID, "propia")
	other := seedTask(t, e, e.admin.UserID, e.admin.UserID, "ajena")
	c := &entity.Comment{TaskID: other.ID, UserID: e.alice.UserID, Message: "hola", CreatedAt: time.Now()}
	require.NoError(t, e.store.Comments().Create(ctx, c))

	res, err := e.users.Delete(ctx, e.admin, e.alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.TasksDeleted)
	assert.Equal(t, int64(1), res.CommentsDeleted)

	stored, err := e.store.Users().GetByID(ctx, e.alice.UserID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted())
	assert.Equal(t, entity.DeletedByAdmin, stored.DeletedBy)

	for _, id := range []string{assigned.ID, own.ID} {
		tk, err := e.store.Tasks().GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, tk.IsDeleted())
	}
	tk, err := e.store.Tasks().GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, tk.IsDeleted())

	_, err = e.users.Get(ctx, e.admin, e.alice.UserID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	deleted, err := e.users.List(ctx, e.admin, dto.ListUsersRequest{Deleted: true})
	require.NoError(t, err)
	require.Len(t, deleted.Items, 1)

	restored, err := e.users.Restore(ctx, e.admin, e.alice.UserID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)

	for _, id := range []string{assigned.ID, own.ID} {
		tk, err := e.store.Tasks().GetByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, tk.IsDeleted())
	}
	cm, err := e.store.Comments().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, cm.DeletedAt)

	_, err = e.users.Restore(ctx, e.admin, e.alice.UserID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserDelete_CascadaIncluyeSubtareasHuerfanas(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	parent := seedTask(t, e, e.admin.UserID, e.alice.UserID, "padre")
	child := seedTask(t, e, e.admin.UserID, e.admin.UserID, "hija")
	child.ParentTaskID = parent.ID
	require.NoError(t, e.store.Tasks().Update(ctx, child))

	res, err := e.users.Delete(ctx, e.admin, e.alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.TasksDeleted)

	tk, err := e.store.Tasks().GetByID(ctx, child.ID)
	require.NoError(t, err)
	assert.True(t, tk.IsDeleted(), "la subtarea no queda viva bajo un padre borrado")

	_, err = e.users.Restore(ctx, e.admin, e.alice.UserID)
	require.NoError(t, err)
	tk, err = e.store.Tasks().GetByID(ctx, child.ID)
	require.NoError(t, err)
	assert.False(t, tk.IsDeleted())
}

func TestUserRestore_TituloOcupadoEsConflicto(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	// Tarea del admin asignada a alice; al borrar al admin el título queda libre
	seedTask(t, e, e.admin.UserID, e.alice.UserID, "informe")
	_, err := e.users.Delete(ctx, e.super, e.admin.UserID)
	require.NoError(t, err)
	seedTask(t, e, e.alice.UserID, e.alice.UserID, "informe")

	_, err = e.users.Restore(ctx, e.super, e.admin.UserID)
	assert.ErrorIs(t, err, domain.ErrDuplicateTitle)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Nada se restauró: el admin sigue borrado y no hay dos tareas vivas con el mismo título
	stored, err := e.store.Users().GetByID(ctx, e.admin.UserID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted())
	live, err := e.store.Tasks().List(ctx, entity.TaskFilter{OrganizationID: e.orgA.ID})
	require.NoError(t, err)
	count := 0
	for _, tk := range live {
		if tk.AssigneeID == e.alice.UserID && tk.TitleKey == "informe" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestUserDelete_PropioMarcaSelf(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.users.Delete(ctx, e.alice, e.alice.UserID)
	require.NoError(t, err)

	stored, err := e.store.Users().GetByID(ctx, e.alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletedBySelf, stored.DeletedBy)
}

func TestUserDelete_ReglaDePares(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.users.Delete(ctx, e.alice, e.admin.UserID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.users.Delete(ctx, e.outsider, e.alice.UserID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = e.users.Delete(ctx, e.super, e.alice.UserID)
	assert.ErrorIs(t, err, domain.ErrForbidden, "el super-admin solo gestiona tenant-admins")

	_, err = e.users.Delete(ctx, e.super, e.admin.UserID)
	assert.NoError(t, err)
}

func TestUserDelete_FalloRevierteLaCascada(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	own := seedTask(t, e, e.alice.UserID, e.alice.UserID, "propia")
	e.store.FailOn("users.soft_delete", errors.New("db caída"))

	_, err := e.users.Delete(ctx, e.admin, e.alice.UserID)
	require.Error(t, err)

	tk, err := e.store.Tasks().GetByID(ctx, own.ID)
	require.NoError(t, err)
	assert.False(t, tk.IsDeleted())
}
