// Package bootstrap arma las dependencias compartidas por la API, el worker y taskvaultctl.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/taskvault-api/internal/application/auth"
	"github.com/jhoicas/taskvault-api/internal/application/cache"
	"github.com/jhoicas/taskvault-api/internal/application/identity"
	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/application/subscription"
	"github.com/jhoicas/taskvault-api/internal/application/task"
	"github.com/jhoicas/taskvault-api/internal/infrastructure/email"
	"github.com/jhoicas/taskvault-api/internal/infrastructure/metrics"
	"github.com/jhoicas/taskvault-api/internal/infrastructure/pdf"
	"github.com/jhoicas/taskvault-api/internal/infrastructure/postgres"
	"github.com/jhoicas/taskvault-api/internal/infrastructure/razorpay"
	"github.com/jhoicas/taskvault-api/internal/infrastructure/redis"
	"github.com/jhoicas/taskvault-api/pkg/config"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

// Container dependencias construidas a partir de la configuración.
type Container struct {
	Config *config.Config
	Log    *logger.Logger

	Pool  *pgxpool.Pool
	Redis *goredis.Client
	Tx    *postgres.TxRunner

	Queue    *redis.WebhookQueue
	Metrics  *metrics.Registry // nil si las métricas están deshabilitadas
	Notifier ports.Notifier

	TenantCache   *cache.TenantCache
	Auth          *auth.AuthUseCase
	Organizations *identity.OrganizationUseCase
	Users         *identity.UserUseCase
	Tasks         *task.TaskUseCase
	Comments      *task.CommentUseCase
	History       *task.HistoryUseCase
	Subscriptions *subscription.Service

	dispatcher *email.Dispatcher
}

// New conecta PostgreSQL y Redis y construye los casos de uso. Close libera todo.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	rdb, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("conexión a Redis: %w", err)
	}

	c := &Container{Config: cfg, Log: log, Pool: pool, Redis: rdb, Tx: postgres.NewTxRunner(pool)}

	orgRepo := postgres.NewOrganizationRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	commentRepo := postgres.NewCommentRepository(pool)
	historyRepo := postgres.NewTaskHistoryRepository(pool)
	subRepo := postgres.NewSubscriptionRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	eventRepo := postgres.NewWebhookEventRepository(pool)

	expiring := redis.NewExpiringStore(rdb)
	c.Queue = redis.NewWebhookQueue(rdb)
	c.TenantCache = cache.NewTenantCache(redis.NewCacheStore(rdb), cfg.Cache.TTL, log)
	c.Notifier = c.buildNotifier()

	var billingMetrics subscription.Metrics = subscription.NopMetrics{}
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.New()
		billingMetrics = c.Metrics
	}

	c.Auth = auth.NewAuthUseCase(userRepo, orgRepo, redis.NewTokenBlacklist(rdb), expiring, c.Notifier,
		auth.JWTConfig{Secret: cfg.JWT.Secret, ExpMinutes: cfg.JWT.Expiration, Issuer: cfg.JWT.Issuer}, log)
	c.Organizations = identity.NewOrganizationUseCase(orgRepo, c.TenantCache, log)
	c.Users = identity.NewUserUseCase(c.Tx, userRepo, orgRepo, c.TenantCache, log)
	c.Tasks = task.NewTaskUseCase(c.Tx, taskRepo, userRepo, c.TenantCache, log)
	c.Comments = task.NewCommentUseCase(taskRepo, commentRepo)
	c.History = task.NewHistoryUseCase(taskRepo, historyRepo)

	gateway := razorpay.New(razorpay.Config{
		KeyID:         cfg.Billing.KeyID,
		KeySecret:     cfg.Billing.KeySecret,
		WebhookSecret: cfg.Billing.WebhookSecret,
		Timeout:       cfg.Billing.GatewayTimeout,
	})
	c.Subscriptions = subscription.NewService(subscription.Deps{
		Tx:            c.Tx,
		Subscriptions: subRepo,
		Payments:      paymentRepo,
		Organizations: orgRepo,
		Users:         userRepo,
		Events:        eventRepo,
		Gateway:       gateway,
		Queue:         c.Queue,
		Expiring:      expiring,
		Notifier:      c.Notifier,
		Receipts:      pdf.NewReceiptGenerator(cfg.App.Name),
		Metrics:       billingMetrics,
	}, subscription.Config{
		KeyID:             cfg.Billing.KeyID,
		PlanAmountMinor:   cfg.Billing.PlanAmountMinor,
		Currency:          cfg.Billing.Currency,
		OrderCooldown:     cfg.Billing.OrderCooldown,
		ReconcileAfter:    cfg.Billing.ReconcileAfter,
		FailedOrderTTL:    cfg.Billing.FailedOrderTTL,
		ReplayAfter:       cfg.Worker.ReplayAfter,
		ReplayMaxAttempts: cfg.Worker.ReplayMaxAttempts,
	}, log)

	return c, nil
}

func (c *Container) buildNotifier() ports.Notifier {
	if c.Config.Email.ResendAPIKey == "" {
		c.Log.Warn().Msg("RESEND_API_KEY vacío: los correos solo se registran en el log")
		return email.NewLogNotifier(c.Log)
	}
	d, err := email.NewResendDispatcher(c.Config.Email.ResendAPIKey, email.Config{
		FromEmail: c.Config.Email.FromEmail,
		FromName:  c.Config.Email.FromName,
		Workers:   c.Config.Email.Workers,
	}, c.Log)
	if err != nil {
		c.Log.Error().Err(err).Msg("despachador de correo no disponible")
		return email.NewLogNotifier(c.Log)
	}
	c.dispatcher = d
	return d
}

// StartBackground lanza los workers de correo; terminan al cancelar ctx o en Close.
func (c *Container) StartBackground(ctx context.Context) {
	if c.dispatcher != nil {
		c.dispatcher.Start(ctx)
	}
}

// WorkerConfig configuración del consumidor de webhooks.
func (c *Container) WorkerConfig() subscription.WorkerConfig {
	w := c.Config.Worker
	return subscription.WorkerConfig{
		Concurrency:       w.Concurrency,
		MaxAttempts:       w.MaxAttempts,
		BaseBackoff:       w.BaseBackoff,
		MaxBackoff:        w.MaxBackoff,
		ReconcileInterval: w.ReconcileInterval,
		ReplayInterval:    w.ReconcileInterval,
	}
}

// Close vacía la cola de correo y cierra conexiones.
func (c *Container) Close() {
	if c.dispatcher != nil {
		c.dispatcher.Close()
	}
	if err := c.Redis.Close(); err != nil {
		c.Log.Warn().Err(err).Msg("cerrar Redis")
	}
	c.Pool.Close()
}
