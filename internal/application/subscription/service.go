// Package subscription implementa la máquina de estados de la suscripción vitalicia:
// órdenes, activación bajo bloqueo de fila, webhooks idempotentes, conciliación y fallas de pago.
package subscription

import (
	"context"
	"time"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

// Config parámetros de facturación.
type Config struct {
	KeyID           string
	PlanAmountMinor int64
	Currency        string
	OrderCooldown   time.Duration
	ReconcileAfter  time.Duration
	FailedOrderTTL  time.Duration
	ReplayAfter     time.Duration
	SweepLimit      int

	// ReplayMaxAttempts tope de fallos registrados; a partir de ahí el evento no se reencola.
	ReplayMaxAttempts int
}

func (c *Config) defaults() {
	if c.PlanAmountMinor <= 0 {
		c.PlanAmountMinor = 99900
	}
	if c.Currency == "" {
		c.Currency = "INR"
	}
	if c.ReconcileAfter <= 0 {
		c.ReconcileAfter = 5 * time.Minute
	}
	if c.FailedOrderTTL <= 0 {
		c.FailedOrderTTL = 24 * time.Hour
	}
	if c.ReplayAfter <= 0 {
		c.ReplayAfter = 30 * time.Minute
	}
	if c.ReplayMaxAttempts <= 0 {
		c.ReplayMaxAttempts = 20
	}
	if c.SweepLimit <= 0 {
		c.SweepLimit = 100
	}
}

// Service casos de uso de facturación.
type Service struct {
	tx       BillingTxRunner
	subs     repository.SubscriptionRepository
	payments repository.PaymentRepository
	orgs     repository.OrganizationRepository
	users    repository.UserRepository
	events   repository.WebhookEventRepository
	gateway  ports.PaymentGateway
	queue    ports.WebhookQueue
	expiring ports.ExpiringStore
	notifier ports.Notifier
	receipts ReceiptRenderer
	metrics  Metrics
	cfg      Config
	log      *logger.Logger
}

// Deps colaboradores del servicio.
type Deps struct {
	Tx            BillingTxRunner
	Subscriptions repository.SubscriptionRepository
	Payments      repository.PaymentRepository
	Organizations repository.OrganizationRepository
	Users         repository.UserRepository
	Events        repository.WebhookEventRepository
	Gateway       ports.PaymentGateway
	Queue         ports.WebhookQueue
	Expiring      ports.ExpiringStore
	Notifier      ports.Notifier
	Receipts      ReceiptRenderer
	Metrics       Metrics
}

// NewService construye el servicio. Metrics es opcional.
func NewService(d Deps, cfg Config, log *logger.Logger) *Service {
	cfg.defaults()
	if d.Metrics == nil {
		d.Metrics = NopMetrics{}
	}
	return &Service{
		tx:       d.Tx,
		subs:     d.Subscriptions,
		payments: d.Payments,
		orgs:     d.Organizations,
		users:    d.Users,
		events:   d.Events,
		gateway:  d.Gateway,
		queue:    d.Queue,
		expiring: d.Expiring,
		notifier: d.Notifier,
		receipts: d.Receipts,
		metrics:  d.Metrics,
		cfg:      cfg,
		log:      log.Named("subscription"),
	}
}

// notifyAdmins encola la plantilla para los tenant-admin vivos de la organización; solo registra fallas.
func (s *Service) notifyAdmins(ctx context.Context, organizationID, template string, data map[string]string) {
	if s.notifier == nil || s.users == nil {
		return
	}
	admins, err := s.users.List(ctx, repository.UserFilter{
		OrganizationID: organizationID,
		Role:           entity.RoleTenantAdmin,
		Limit:          50,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("organization_id", organizationID).Msg("no se pudieron cargar los destinatarios")
		return
	}
	for _, a := range admins {
		if !a.IsActive {
			continue
		}
		n := ports.Notification{Template: template, To: a.Email, Data: data}
		if err := s.notifier.Enqueue(ctx, n); err != nil {
			s.log.Warn().Err(err).Str("template", template).Msg("no se pudo encolar la notificación")
		}
	}
}
