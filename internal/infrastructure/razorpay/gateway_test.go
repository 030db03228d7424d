package razorpay_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/infrastructure/razorpay"
)

type fakeOrders struct {
	created  map[string]interface{}
	order    map[string]interface{}
	payments map[string]interface{}
	err      error
	delay    time.Duration
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.created = data
	return f.order, f.err
}

func (f *fakeOrders) Fetch(string, map[string]interface{}, map[string]string) (map[string]interface{}, error) {
	time.Sleep(f.delay)
	return f.order, f.err
}

func (f *fakeOrders) Payments(string, map[string]interface{}, map[string]string) (map[string]interface{}, error) {
	return f.payments, f.err
}

func sign(secret, msg string) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(msg))
	return hex.EncodeToString(m.Sum(nil))
}

func newGateway(f *fakeOrders) *razorpay.Gateway {
	return razorpay.NewWithOrders(f, razorpay.Config{
		KeyID: "rzp_test", KeySecret: "key-secret", WebhookSecret: "hook-secret", Timeout: 50 * time.Millisecond,
	})
}

func TestCreateOrder_MapeaRespuesta(t *testing.T) {
	f := &fakeOrders{order: map[string]interface{}{
		"id": "order_1", "status": "created", "amount": float64(99900), "currency": "INR",
	}}
	got, err := newGateway(f).CreateOrder(context.Background(), 99900, "INR", map[string]string{"organization_id": "org-1"})
	require.NoError(t, err)

	assert.Equal(t, "order_1", got.ID)
	assert.Equal(t, int64(99900), got.AmountMinor)
	assert.Equal(t, int64(99900), f.created["amount"])
	assert.Equal(t, "org-1", f.created["receipt"])
}

func TestCreateOrder_ErroresComoPasarelaNoDisponible(t *testing.T) {
	f := &fakeOrders{err: errors.New("503")}
	_, err := newGateway(f).CreateOrder(context.Background(), 1, "INR", nil)
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	f = &fakeOrders{order: map[string]interface{}{}}
	_, err = newGateway(f).CreateOrder(context.Background(), 1, "INR", nil)
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestFetchOrder_Timeout(t *testing.T) {
	f := &fakeOrders{order: map[string]interface{}{"id": "order_1"}, delay: 200 * time.Millisecond}
	_, err := newGateway(f).FetchOrder(context.Background(), "order_1")
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestListPayments_MasRecientePrimero(t *testing.T) {
	f := &fakeOrders{payments: map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"id": "pay_old", "status": "failed", "created_at": float64(100)},
			map[string]interface{}{"id": "pay_new", "status": "captured", "created_at": float64(200)},
		},
	}}
	got, err := newGateway(f).ListPayments(context.Background(), "order_1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "pay_new", got[0].ID)
	assert.Equal(t, "captured", got[0].Status)
}

func TestVerifySignatures(t *testing.T) {
	g := newGateway(&fakeOrders{})

	assert.NoError(t, g.VerifyPaymentSignature("order_1", "pay_1", sign("key-secret", "order_1|pay_1")))
	assert.ErrorIs(t, g.VerifyPaymentSignature("order_1", "pay_1", sign("otro", "order_1|pay_1")), domain.ErrInvalidSignature)
	assert.ErrorIs(t, g.VerifyPaymentSignature("order_1", "pay_1", ""), domain.ErrInvalidSignature)

	body := []byte(`{"event":"payment.captured"}`)
	assert.NoError(t, g.VerifyWebhookSignature(body, sign("hook-secret", string(body))))
	assert.ErrorIs(t, g.VerifyWebhookSignature(body, sign("key-secret", string(body))), domain.ErrInvalidSignature)
}
