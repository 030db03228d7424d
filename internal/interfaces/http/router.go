package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taskvault-api/internal/application/auth"
	"github.com/jhoicas/taskvault-api/internal/application/identity"
	"github.com/jhoicas/taskvault-api/internal/application/subscription"
	"github.com/jhoicas/taskvault-api/internal/application/task"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/pkg/logger"
	"github.com/jhoicas/taskvault-api/pkg/validator"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC         *auth.AuthUseCase
	OrganizationUC *identity.OrganizationUseCase
	UserUC         *identity.UserUseCase
	TaskUC         *task.TaskUseCase
	CommentUC      *task.CommentUseCase
	HistoryUC      *task.HistoryUseCase
	Subscriptions  *subscription.Service
	Validator      *validator.Validator
	Logger         *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	val := deps.Validator
	if val == nil {
		val = validator.New()
	}

	api := app.Group("/api")
	requireAuth := AuthMiddleware(deps.AuthUC)

	// Auth
	authHandler := NewAuthHandler(deps.AuthUC, val, log)
	api.Post("/auth/login", authHandler.Login)
	authGroup := api.Group("/auth", requireAuth)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Get("/me", authHandler.Me)
	authGroup.Post("/verify-email/request", authHandler.RequestEmailVerification)
	authGroup.Post("/verify-email", authHandler.VerifyEmail)

	// Webhook de la pasarela (público; la firma es la autenticación)
	subscriptionHandler := NewSubscriptionHandler(deps.Subscriptions, val, log)
	api.Post("/webhooks/razorpay", subscriptionHandler.Webhook)

	// Organizaciones
	orgHandler := NewOrganizationHandler(deps.OrganizationUC, val, log)
	orgs := api.Group("/organizations", requireAuth)
	orgs.Post("/", orgHandler.Create)
	orgs.Get("/", orgHandler.List)
	orgs.Get("/:id", orgHandler.Get)
	orgs.Patch("/:id", orgHandler.Update)
	orgs.Delete("/:id", orgHandler.Delete)

	// Usuarios
	userHandler := NewUserHandler(deps.UserUC, val, log)
	users := api.Group("/users", requireAuth)
	users.Post("/", userHandler.Create)
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.Get)
	users.Patch("/:id", userHandler.Update)
	users.Delete("/:id", userHandler.Delete)
	users.Post("/:id/restore", userHandler.Restore)

	// Tareas, comentarios e historial
	taskHandler := NewTaskHandler(deps.TaskUC, deps.CommentUC, deps.HistoryUC, val, log)
	tasks := api.Group("/tasks", requireAuth)
	tasks.Post("/", taskHandler.Create)
	tasks.Get("/", taskHandler.List)
	tasks.Get("/:id", taskHandler.Get)
	tasks.Patch("/:id", taskHandler.Update)
	tasks.Delete("/:id", taskHandler.Delete)
	tasks.Get("/:id/comments", taskHandler.ListComments)
	tasks.Post("/:id/comments", taskHandler.CreateComment)
	tasks.Patch("/:id/comments/:comment_id", taskHandler.UpdateComment)
	tasks.Delete("/:id/comments/:comment_id", taskHandler.DeleteComment)
	tasks.Get("/:id/history", taskHandler.ListHistory)

	// Suscripción
	subs := api.Group("/subscriptions", requireAuth)
	subs.Post("/orders", RequireRole(entity.RoleTenantAdmin), subscriptionHandler.CreateOrder)
	subs.Post("/callback", RequireRole(entity.RoleTenantAdmin), subscriptionHandler.Callback)
	subs.Post("/callback/failure", RequireRole(entity.RoleTenantAdmin), subscriptionHandler.CallbackFailure)
	subs.Get("/status/:order_id", subscriptionHandler.Status)
	subs.Get("/receipt", subscriptionHandler.Receipt)

	// Auditoría (solo SUPER_ADMIN)
	admin := api.Group("/admin", requireAuth, RequireRole(entity.RoleSuperAdmin))
	admin.Get("/subscriptions", subscriptionHandler.ListSubscriptions)
	admin.Get("/payments", subscriptionHandler.ListPayments)
	admin.Get("/webhook-events", subscriptionHandler.ListWebhookEvents)
}
