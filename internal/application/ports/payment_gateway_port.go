package ports

import "context"

// Estados de orden reportados por la pasarela.
const (
	GatewayOrderCreated   = "created"
	GatewayOrderAttempted = "attempted"
	GatewayOrderPaid      = "paid"
)

// Estados de pago reportados por la pasarela.
const (
	GatewayPaymentCreated    = "created"
	GatewayPaymentAuthorized = "authorized"
	GatewayPaymentCaptured   = "captured"
	GatewayPaymentFailed     = "failed"
)

// GatewayOrder orden en la pasarela. AmountMinor en unidad mínima (paise).
type GatewayOrder struct {
	ID          string
	Status      string
	AmountMinor int64
	Currency    string
}

// GatewayPayment intento de pago de una orden.
type GatewayPayment struct {
	ID               string
	OrderID          string
	Status           string
	ErrorDescription string
	CreatedAt        int64 // epoch segundos
}

// PaymentGateway puerto de salida hacia la pasarela (Razorpay).
// Los errores de red se devuelven envueltos en domain.ErrGatewayUnavailable;
// las firmas inválidas en domain.ErrInvalidSignature.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency string, notes map[string]string) (*GatewayOrder, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) error
	VerifyWebhookSignature(rawBody []byte, signature string) error
	FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error)
	// ListPayments devuelve los pagos de la orden, el más reciente primero.
	ListPayments(ctx context.Context, orderID string) ([]GatewayPayment, error)
}
