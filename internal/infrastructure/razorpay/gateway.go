// Package razorpay adapta el cliente oficial de Razorpay al puerto PaymentGateway.
package razorpay

import (
	"context"
	"fmt"
	"sort"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/domain"
)

var _ ports.PaymentGateway = (*Gateway)(nil)

// OrderAPI subconjunto de client.Order que usa el adaptador.
type OrderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Payments(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Config credenciales de la cuenta y del webhook.
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

// Gateway implementa ports.PaymentGateway.
type Gateway struct {
	orders OrderAPI
	cfg    Config
}

// New construye el adaptador con el cliente HTTP de Razorpay.
func New(cfg Config) *Gateway {
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	return NewWithOrders(client.Order, cfg)
}

// NewWithOrders construye el adaptador sobre una OrderAPI arbitraria.
func NewWithOrders(orders OrderAPI, cfg Config) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Gateway{orders: orders, cfg: cfg}
}

// call ejecuta fn respetando ctx y el timeout; el SDK no acepta context.
func (g *Gateway) call(ctx context.Context, op string, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := fn()
		done <- result{body, err}
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, op, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, op, r.err)
		}
		return r.body, nil
	}
}

func (g *Gateway) CreateOrder(ctx context.Context, amountMinor int64, currency string, notes map[string]string) (*ports.GatewayOrder, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  notes["organization_id"],
		"notes":    notes,
	}
	body, err := g.call(ctx, "create order", func() (map[string]interface{}, error) {
		return g.orders.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}
	return toOrder(body)
}

func (g *Gateway) FetchOrder(ctx context.Context, orderID string) (*ports.GatewayOrder, error) {
	body, err := g.call(ctx, "fetch order", func() (map[string]interface{}, error) {
		return g.orders.Fetch(orderID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return toOrder(body)
}

// ListPayments pagos de la orden, el más reciente primero.
func (g *Gateway) ListPayments(ctx context.Context, orderID string) ([]ports.GatewayPayment, error) {
	body, err := g.call(ctx, "order payments", func() (map[string]interface{}, error) {
		return g.orders.Payments(orderID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	items, _ := body["items"].([]interface{})
	out := make([]ports.GatewayPayment, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, ports.GatewayPayment{
			ID:               str(m["id"]),
			OrderID:          str(m["order_id"]),
			Status:           str(m["status"]),
			ErrorDescription: str(m["error_description"]),
			CreatedAt:        num(m["created_at"]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// VerifyPaymentSignature valida HMAC-SHA256(order_id|payment_id) con el key secret.
func (g *Gateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	if signature == "" || !utils.VerifyPaymentSignature(params, signature, g.cfg.KeySecret) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// VerifyWebhookSignature valida HMAC-SHA256 del cuerpo crudo con el secreto del webhook.
func (g *Gateway) VerifyWebhookSignature(rawBody []byte, signature string) error {
	if signature == "" || !utils.VerifyWebhookSignature(string(rawBody), signature, g.cfg.WebhookSecret) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func toOrder(body map[string]interface{}) (*ports.GatewayOrder, error) {
	id := str(body["id"])
	if id == "" {
		return nil, fmt.Errorf("%w: respuesta sin id de orden", domain.ErrGatewayUnavailable)
	}
	return &ports.GatewayOrder{
		ID:          id,
		Status:      str(body["status"]),
		AmountMinor: num(body["amount"]),
		Currency:    str(body["currency"]),
	}, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

// num los números llegan como float64 desde encoding/json.
func num(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
