package ports

import "context"

// Plantillas de correo conocidas por el despachador.
const (
	TemplateEmailVerification     = "email_verification"
	TemplateSubscriptionActivated = "subscription_activated"
	TemplatePaymentFailed         = "payment_failed"
)

// Notification correo a encolar.
type Notification struct {
	Template string
	To       string
	Data     map[string]string
}

// Notifier despachador fire-and-forget; los reintentos de entrega son su responsabilidad.
type Notifier interface {
	Enqueue(ctx context.Context, n Notification) error
}
