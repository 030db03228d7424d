package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/taskvault-api/internal/application/auth"
	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/internal/testutil"
	"github.com/jhoicas/taskvault-api/pkg/jwt"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

const secret = "test-secret"

type env struct {
	store     *testutil.Store
	blacklist *testutil.MemoryBlacklist
	expiring  *testutil.MemoryExpiringStore
	notifier  *testutil.RecordingNotifier
	uc        *auth.AuthUseCase
	org       *entity.Organization
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := testutil.NewStore()
	e := &env{
		store:     store,
		blacklist: testutil.NewMemoryBlacklist(),
		expiring:  testutil.NewMemoryExpiringStore(),
		notifier:  &testutil.RecordingNotifier{},
		org:       &entity.Organization{Name: "A", IsActive: true},
	}
	require.NoError(t, store.Organizations().Create(context.Background(), e.org))
	e.uc = auth.NewAuthUseCase(store.Users(), store.Organizations(), e.blacklist, e.expiring, e.notifier,
		auth.JWTConfig{Secret: secret, ExpMinutes: 60, Issuer: "taskvault-test"}, logger.Nop())
	return e
}

func (e *env) user(t *testing.T, email string, role entity.Role, active bool) *entity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secreto123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &entity.User{Email: email, PasswordHash: string(hash), Name: "N", Role: role, IsActive: active}
	if role != entity.RoleSuperAdmin {
		u.OrganizationID = e.org.ID
	}
	require.NoError(t, e.store.Users().Create(context.Background(), u))
	return u
}

// ──────────────────────────────────────────────────────────────────────────────
// Login
// ──────────────────────────────────────────────────────────────────────────────

func TestLogin_TokenConClaims(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "alice@a.test", entity.RoleUser, true)

	resp, err := e.uc.Login(context.Background(), dto.LoginRequest{Email: "ALICE@a.test", Password: "secreto123"})
	require.NoError(t, err)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, u.ID, resp.User.ID)

	tok, err := jwt.Parse(secret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, tok.UserID)
	assert.Equal(t, e.org.ID, tok.OrganizationID)
	assert.Equal(t, string(entity.RoleUser), tok.Role)
	assert.NotEmpty(t, tok.JTI)
}

func TestLogin_Rechazos(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.user(t, "alice@a.test", entity.RoleUser, true)
	e.user(t, "off@a.test", entity.RoleUser, false)
	gone := e.user(t, "gone@a.test", entity.RoleUser, true)
	require.NoError(t, e.store.Users().SoftDelete(ctx, gone.ID, time.Now(), entity.DeletedBySelf, "b1"))

	cases := []struct {
		name  string
		email string
		pass  string
		want  error
	}{
		{"password incorrecto", "alice@a.test", "otra-cosa", domain.ErrInvalidCredentials},
		{"email inexistente", "nadie@a.test", "secreto123", domain.ErrInvalidCredentials},
		{"usuario borrado", "gone@a.test", "secreto123", domain.ErrInvalidCredentials},
		{"usuario inactivo", "off@a.test", "secreto123", domain.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.uc.Login(ctx, dto.LoginRequest{Email: tc.email, Password: tc.pass})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLogin_OrganizacionInactivaSoloAfectaAlTenant(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.user(t, "alice@a.test", entity.RoleUser, true)
	e.user(t, "root@sys.test", entity.RoleSuperAdmin, true)
	e.org.IsActive = false
	require.NoError(t, e.store.Organizations().Update(ctx, e.org))

	_, err := e.uc.Login(ctx, dto.LoginRequest{Email: "alice@a.test", Password: "secreto123"})
	assert.ErrorIs(t, err, domain.ErrOrganizationInactive)

	_, err = e.uc.Login(ctx, dto.LoginRequest{Email: "root@sys.test", Password: "secreto123"})
	assert.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Authenticate / Logout
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthenticate_LogoutRevocaElToken(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.user(t, "alice@a.test", entity.RoleUser, true)
	resp, err := e.uc.Login(ctx, dto.LoginRequest{Email: "alice@a.test", Password: "secreto123"})
	require.NoError(t, err)

	actor, tok, err := e.uc.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, actor.UserID)
	assert.True(t, actor.Active)
	assert.True(t, actor.OrganizationActive)

	require.NoError(t, e.uc.Logout(ctx, tok))
	_, _, err = e.uc.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthenticate_TokenInvalidoOUsuarioBorrado(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.user(t, "alice@a.test", entity.RoleUser, true)

	_, _, err := e.uc.Authenticate(ctx, "no-es-un-jwt")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	other, err := jwt.Generate("otro-secreto", u.ID, e.org.ID, string(u.Role), "x", 5)
	require.NoError(t, err)
	_, _, err = e.uc.Authenticate(ctx, other)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	valid, err := jwt.Generate(secret, u.ID, e.org.ID, string(u.Role), "x", 5)
	require.NoError(t, err)
	require.NoError(t, e.store.Users().SoftDelete(ctx, u.ID, time.Now(), entity.DeletedByAdmin, "b1"))
	_, _, err = e.uc.Authenticate(ctx, valid)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// ──────────────────────────────────────────────────────────────────────────────
// Verificación de email
// ──────────────────────────────────────────────────────────────────────────────

func TestVerifyEmail_FlujoCompleto(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.user(t, "alice@a.test", entity.RoleUser, true)
	actor := policy.NewActor(u, e.org)

	require.NoError(t, e.uc.RequestEmailVerification(ctx, actor))
	require.Len(t, e.notifier.Sent, 1)
	sent := e.notifier.Sent[0]
	assert.Equal(t, ports.TemplateEmailVerification, sent.Template)
	assert.Equal(t, "alice@a.test", sent.To)
	code := sent.Data["code"]
	assert.Regexp(t, `^\d{6}$`, code)

	rec, err := e.expiring.Get(ctx, ports.PurposeEmailVerification, u.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.WithinDuration(t, time.Now().Add(auth.OTPTTL), rec.ExpiresAt, 5*time.Second)

	assert.ErrorIs(t, e.uc.VerifyEmail(ctx, actor, dto.VerifyEmailRequest{Code: wrong(code)}), domain.ErrInvalidOTP)
	require.NoError(t, e.uc.VerifyEmail(ctx, actor, dto.VerifyEmailRequest{Code: code}))

	stored, err := e.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmailVerified)

	assert.ErrorIs(t, e.uc.VerifyEmail(ctx, actor, dto.VerifyEmailRequest{Code: code}), domain.ErrInvalidOTP, "el código es de un solo uso")
	assert.ErrorIs(t, e.uc.RequestEmailVerification(ctx, actor), domain.ErrConflict)
}

func TestVerifyEmail_CodigoVencido(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.user(t, "alice@a.test", entity.RoleUser, true)
	require.NoError(t, e.expiring.Put(ctx, ports.ExpiringRecord{
		Purpose: ports.PurposeEmailVerification, SubjectID: u.ID, Value: "123456", ExpiresAt: time.Now().Add(-time.Second),
	}))

	err := e.uc.VerifyEmail(ctx, policy.NewActor(u, e.org), dto.VerifyEmailRequest{Code: "123456"})
	assert.ErrorIs(t, err, domain.ErrInvalidOTP)
}

func wrong(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

// ──────────────────────────────────────────────────────────────────────────────
// Seed
// ──────────────────────────────────────────────────────────────────────────────

func TestSeedSuperAdmin_Idempotente(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	created, err := e.uc.SeedSuperAdmin(ctx, "Root@Sys.test", "secreto123", "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = e.uc.SeedSuperAdmin(ctx, "otro@sys.test", "secreto123", "Otro")
	require.NoError(t, err)
	assert.False(t, created)

	resp, err := e.uc.Login(ctx, dto.LoginRequest{Email: "root@sys.test", Password: "secreto123"})
	require.NoError(t, err)
	assert.Equal(t, string(entity.RoleSuperAdmin), resp.User.Role)
	assert.Empty(t, resp.User.OrganizationID)

	_, err = e.uc.SeedSuperAdmin(ctx, "", "corto", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
