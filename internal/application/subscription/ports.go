package subscription

import (
	"context"

	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

// BillingTxRunner ejecuta fn dentro de una transacción con los repos de facturación.
// Los GetForUpdate de subs bloquean la fila hasta el commit.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		subs repository.SubscriptionRepository,
		payments repository.PaymentRepository,
		orgs repository.OrganizationRepository,
	) error) error
}

// ReceiptRenderer genera el comprobante PDF de una suscripción activa.
type ReceiptRenderer interface {
	Render(org *entity.Organization, sub *entity.Subscription) ([]byte, error)
}

// Orígenes de activación.
const (
	SourceWebhook   = "webhook"
	SourceCallback  = "callback"
	SourceReconcile = "reconcile"
)

// Resultados de recepción de webhooks.
const (
	WebhookAccepted         = "accepted"
	WebhookDuplicate        = "duplicate"
	WebhookInvalidSignature = "invalid_signature"
)

// Resultados de conciliación.
const (
	ReconcileActivated = "activated"
	ReconcileFailed    = "failed"
	ReconcilePending   = "pending"
	ReconcileError     = "error"
)

// Metrics contadores de la máquina de suscripción.
type Metrics interface {
	WebhookReceived(outcome string)
	Activated(source string)
	Reconciled(outcome string)
	ProcessingFailed(eventType string)
}

// NopMetrics descarta las métricas.
type NopMetrics struct{}

func (NopMetrics) WebhookReceived(string)  {}
func (NopMetrics) Activated(string)        {}
func (NopMetrics) Reconciled(string)       {}
func (NopMetrics) ProcessingFailed(string) {}
