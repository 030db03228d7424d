package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/taskvault-api/internal/application/auth"
	"github.com/jhoicas/taskvault-api/internal/application/cache"
	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/application/identity"
	"github.com/jhoicas/taskvault-api/internal/application/subscription"
	"github.com/jhoicas/taskvault-api/internal/application/task"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	apphttp "github.com/jhoicas/taskvault-api/internal/interfaces/http"
	"github.com/jhoicas/taskvault-api/internal/testutil"
	"github.com/jhoicas/taskvault-api/pkg/logger"
	"github.com/jhoicas/taskvault-api/pkg/validator"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testPassword  = "secreto123"
)

type testServer struct {
	app     *fiber.App
	store   *testutil.Store
	gateway *testutil.FakeGateway
	orgA    *entity.Organization
	orgB    *entity.Organization
}

// newTestServer arma la API completa sobre repositorios en memoria.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := testutil.NewStore()
	gateway := testutil.NewFakeGateway()
	tc := cache.NewTenantCache(testutil.NewMemoryCache(), time.Minute, logger.Nop())

	s := &testServer{
		store:   store,
		gateway: gateway,
		orgA:    &entity.Organization{Name: "A", IsActive: true, CreatedAt: time.Now()},
		orgB:    &entity.Organization{Name: "B", IsActive: true, CreatedAt: time.Now()},
	}
	require.NoError(t, store.Organizations().Create(ctx, s.orgA))
	require.NoError(t, store.Organizations().Create(ctx, s.orgB))

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	mk := func(orgID, email string, role entity.Role) {
		u := &entity.User{OrganizationID: orgID, Email: email, PasswordHash: string(hash), Name: email, Role: role, IsActive: true, CreatedAt: time.Now()}
		require.NoError(t, store.Users().Create(ctx, u))
	}
	mk("", "root@sys.test", entity.RoleSuperAdmin)
	mk(s.orgA.ID, "admin@a.test", entity.RoleTenantAdmin)
	mk(s.orgA.ID, "alice@a.test", entity.RoleUser)
	mk(s.orgB.ID, "bob@b.test", entity.RoleUser)

	authUC := auth.NewAuthUseCase(store.Users(), store.Organizations(), testutil.NewMemoryBlacklist(),
		testutil.NewMemoryExpiringStore(), &testutil.RecordingNotifier{},
		auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: 60, Issuer: "taskvault-test"}, logger.Nop())
	svc := subscription.NewService(subscription.Deps{
		Tx:            store,
		Subscriptions: store.Subscriptions(),
		Payments:      store.Payments(),
		Organizations: store.Organizations(),
		Users:         store.Users(),
		Events:        store.WebhookEvents(),
		Gateway:       gateway,
		Queue:         &testutil.MemoryQueue{},
		Expiring:      testutil.NewMemoryExpiringStore(),
		Notifier:      &testutil.RecordingNotifier{},
		Metrics:       subscription.NopMetrics{},
	}, subscription.Config{KeyID: "rzp_test"}, logger.Nop())

	s.app = fiber.New()
	s.app.Use(apphttp.RequestLogger(logger.Nop()))
	apphttp.Router(s.app, apphttp.RouterDeps{
		AuthUC:         authUC,
		OrganizationUC: identity.NewOrganizationUseCase(store.Organizations(), tc, logger.Nop()),
		UserUC:         identity.NewUserUseCase(store, store.Users(), store.Organizations(), tc, logger.Nop()),
		TaskUC:         task.NewTaskUseCase(store, store.Tasks(), store.Users(), tc, logger.Nop()),
		CommentUC:      task.NewCommentUseCase(store.Tasks(), store.Comments()),
		HistoryUC:      task.NewHistoryUseCase(store.Tasks(), store.History()),
		Subscriptions:  svc,
		Validator:      validator.New(),
		Logger:         logger.Nop(),
	})
	return s
}

// do lanza una petición con cuerpo JSON opcional y cabeceras extra.
func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: email, Password: testPassword})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Token
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Autenticación
// ──────────────────────────────────────────────────────────────────────────────

func TestAuth_LoginMeYLogout(t *testing.T) {
	s := newTestServer(t)
	tok := s.login(t, "alice@a.test")

	resp := s.do(t, http.MethodGet, "/api/auth/me", tok, nil)
	me := decode[dto.UserResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@a.test", me.Email)
	assert.Equal(t, string(entity.RoleUser), me.Role)

	resp = s.do(t, http.MethodPost, "/api/auth/logout", tok, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/auth/me", tok, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "el token revocado ya no sirve")
}

func TestAuth_CredencialesInvalidas(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "alice@a.test", Password: "otra-clave"})
	e := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", e.Code)

	resp = s.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "no-es-email"})
	e = decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", e.Code)
}

func TestAuthMiddleware_SinTokenOTokenInvalido(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/api/tasks", "", nil)
	e := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", e.Code)

	resp = s.do(t, http.MethodGet, "/api/tasks", "token.invalido.aqui", nil)
	e = decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", e.Code)
}

func TestRequestLogger_PropagaRequestID(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{}, apphttp.HeaderRequestID, "req-123")
	resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get(apphttp.HeaderRequestID))

	resp = s.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{})
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(apphttp.HeaderRequestID), "se genera uno si no viene")
}

// ──────────────────────────────────────────────────────────────────────────────
// Roles y aislamiento
// ──────────────────────────────────────────────────────────────────────────────

func TestRequireRole_AuditoriaSoloSuperAdmin(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/api/admin/payments", s.login(t, "admin@a.test"), nil)
	e := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", e.Code)

	resp = s.do(t, http.MethodGet, "/api/admin/payments", s.login(t, "root@sys.test"), nil)
	list := decode[dto.PaymentListResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 20, list.Page.Limit)
}

func TestTasks_CrearListarYAislamiento(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice@a.test")

	resp := s.do(t, http.MethodPost, "/api/tasks", alice, dto.CreateTaskRequest{Title: "Preparar demo"})
	created := decode[dto.TaskResponse](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "PENDING", created.Status)

	resp = s.do(t, http.MethodGet, "/api/tasks?limit=10", alice, nil)
	list := decode[dto.TaskListResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list.Items, 1)

	resp = s.do(t, http.MethodGet, "/api/tasks/"+created.ID, s.login(t, "bob@b.test"), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "otra organización no ve la tarea")

	resp = s.do(t, http.MethodPost, "/api/tasks", alice, dto.CreateTaskRequest{Title: "preparar   DEMO"})
	e := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", e.Code)
}

func TestTasks_ValidacionDeEntrada(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice@a.test")

	cases := []struct {
		name string
		body any
	}{
		{"sin título", dto.CreateTaskRequest{}},
		{"prioridad desconocida", dto.CreateTaskRequest{Title: "x", Priority: "URGENT"}},
		{"json roto", []byte("{")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := s.do(t, http.MethodPost, "/api/tasks", alice, tc.body)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	resp := s.do(t, http.MethodGet, "/api/tasks?limit=500", alice, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTasks_CompletarConSubtareaPendiente(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@a.test")

	parent := decode[dto.TaskResponse](t, s.do(t, http.MethodPost, "/api/tasks", admin, dto.CreateTaskRequest{Title: "Padre"}))
	resp := s.do(t, http.MethodPost, "/api/tasks", admin, dto.CreateTaskRequest{Title: "Hija", ParentTaskID: parent.ID})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	completed := "COMPLETED"
	resp = s.do(t, http.MethodPatch, "/api/tasks/"+parent.ID, admin, dto.UpdateTaskRequest{Status: &completed})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/api/tasks/"+parent.ID, admin, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestComments_YHistorial(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice@a.test")
	tk := decode[dto.TaskResponse](t, s.do(t, http.MethodPost, "/api/tasks", alice, dto.CreateTaskRequest{Title: "Con notas"}))

	resp := s.do(t, http.MethodPost, "/api/tasks/"+tk.ID+"/comments", alice, dto.CommentRequest{Message: "hola"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	inProgress := "IN_PROGRESS"
	resp = s.do(t, http.MethodPatch, "/api/tasks/"+tk.ID, alice, dto.UpdateTaskRequest{Status: &inProgress})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	comments := decode[dto.CommentListResponse](t, s.do(t, http.MethodGet, "/api/tasks/"+tk.ID+"/comments", alice, nil))
	assert.Len(t, comments.Items, 1)

	history := decode[dto.TaskHistoryListResponse](t, s.do(t, http.MethodGet, "/api/tasks/"+tk.ID+"/history", alice, nil))
	require.Len(t, history.Items, 1)
	assert.Equal(t, "PENDING", history.Items[0].OldStatus)
	assert.Equal(t, "IN_PROGRESS", history.Items[0].NewStatus)
}

func TestUsers_TenantAdminCreaUsuario(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@a.test")

	resp := s.do(t, http.MethodPost, "/api/users", admin, dto.CreateUserRequest{Email: "carol@a.test", Password: "clave-larga", Name: "Carol"})
	created := decode[dto.UserResponse](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, string(entity.RoleUser), created.Role)
	assert.Equal(t, s.orgA.ID, created.OrganizationID)

	resp = s.do(t, http.MethodPost, "/api/users", admin, dto.CreateUserRequest{Email: "CAROL@a.test", Password: "clave-larga", Name: "Otra"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/users", admin, dto.CreateUserRequest{Email: "dave@a.test", Password: strings.Repeat("x", 73), Name: "Dave"})
	e := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "password por encima del límite de bcrypt")
	assert.Equal(t, "VALIDATION", e.Code)

	resp = s.do(t, http.MethodDelete, "/api/users/"+created.ID, admin, nil)
	deleted := decode[dto.DeleteUserResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, deleted.UserID)
}

func TestOrganizations_SoloSuperAdminCrea(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/organizations", s.login(t, "admin@a.test"), dto.CreateOrganizationRequest{Name: "C"})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/organizations", s.login(t, "root@sys.test"), dto.CreateOrganizationRequest{Name: "C"})
	org := decode[dto.OrganizationResponse](t, resp)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, org.IsActive)
}

// ──────────────────────────────────────────────────────────────────────────────
// Facturación y webhook
// ──────────────────────────────────────────────────────────────────────────────

func TestSubscriptions_OrdenYEstado(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@a.test")

	resp := s.do(t, http.MethodPost, "/api/subscriptions/orders", s.login(t, "alice@a.test"), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "solo el tenant-admin compra")

	resp = s.do(t, http.MethodPost, "/api/subscriptions/orders", admin, nil)
	order := decode[dto.CreateOrderResponse](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "rzp_test", order.KeyID)

	resp = s.do(t, http.MethodGet, "/api/subscriptions/status/"+order.OrderID, admin, nil)
	status := decode[dto.SubscriptionStatusResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(entity.SubscriptionPendingPayment), status.SubscriptionStatus)
	assert.False(t, status.IsPremium)

	resp = s.do(t, http.MethodGet, "/api/subscriptions/status/"+order.OrderID, s.login(t, "bob@b.test"), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubscriptions_CallbackConFirmaInvalidaNoFiltraDetalle(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@a.test")
	order := decode[dto.CreateOrderResponse](t, s.do(t, http.MethodPost, "/api/subscriptions/orders", admin, nil))

	resp := s.do(t, http.MethodPost, "/api/subscriptions/callback", admin, dto.PaymentCallbackRequest{
		OrderID: order.OrderID, PaymentID: "pay_1", Signature: "falsa",
	})
	e := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "solicitud de pago inválida", e.Message)

	resp = s.do(t, http.MethodPost, "/api/subscriptions/callback", admin, dto.PaymentCallbackRequest{
		OrderID: order.OrderID, PaymentID: "pay_1", Signature: s.gateway.PaymentSignature(order.OrderID, "pay_1"),
	})
	status := decode[dto.SubscriptionStatusResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(entity.SubscriptionActive), status.SubscriptionStatus)
	assert.True(t, status.IsPremium)
}

func TestWebhook_FirmaYDuplicados(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"id":"evt_1","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_x","status":"captured"}}}}`)

	resp := s.do(t, http.MethodPost, "/api/webhooks/razorpay", "", body)
	e := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "MISSING_SIGNATURE", e.Code)

	resp = s.do(t, http.MethodPost, "/api/webhooks/razorpay", "", body, apphttp.HeaderRazorpaySignature, "falsa")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	sig := s.gateway.WebhookSignature(body)
	resp = s.do(t, http.MethodPost, "/api/webhooks/razorpay", "", body,
		apphttp.HeaderRazorpaySignature, sig, apphttp.HeaderRazorpayEventID, "evt_hdr")
	ack := decode[dto.WebhookAckResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, subscription.WebhookAccepted, ack.Status)
	assert.Equal(t, "evt_hdr", ack.EventID)

	resp = s.do(t, http.MethodPost, "/api/webhooks/razorpay", "", body,
		apphttp.HeaderRazorpaySignature, sig, apphttp.HeaderRazorpayEventID, "evt_hdr")
	ack = decode[dto.WebhookAckResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, subscription.WebhookDuplicate, ack.Status)
}
