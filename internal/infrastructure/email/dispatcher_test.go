package email_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/infrastructure/email"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

type fakeSender struct {
	mu       sync.Mutex
	failures int
	sent     []*resend.SendEmailRequest
	calls    int
}

func (f *fakeSender) SendWithContext(_ context.Context, req *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("429")
	}
	f.sent = append(f.sent, req)
	return &resend.SendEmailResponse{Id: "em_1"}, nil
}

func TestRender_PlantillasConocidas(t *testing.T) {
	subject, html, err := email.Render(ports.Notification{
		Template: ports.TemplateEmailVerification,
		Data:     map[string]string{"name": "<Ana>", "code": "123456", "minutes": "5"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Código de verificación", subject)
	assert.Contains(t, html, "123456")
	assert.Contains(t, html, "&lt;Ana&gt;", "los datos se escapan")

	_, html, err = email.Render(ports.Notification{
		Template: ports.TemplatePaymentFailed,
		Data:     map[string]string{"order_id": "order_1"},
	})
	require.NoError(t, err)
	assert.Contains(t, html, "order_1")

	_, _, err = email.Render(ports.Notification{Template: "desconocida"})
	assert.Error(t, err)
}

func TestDispatcher_ReintentaYEnvia(t *testing.T) {
	sender := &fakeSender{failures: 2}
	d := email.NewDispatcher(sender, email.Config{
		FromEmail: "no-reply@test", FromName: "TaskVault", Workers: 1, MaxAttempts: 3, Backoff: time.Millisecond,
	}, logger.Nop())
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(context.Background(), ports.Notification{
		Template: ports.TemplateSubscriptionActivated, To: "admin@a.test",
		Data: map[string]string{"order_id": "order_1", "amount": "999.00", "currency": "INR"},
	}))
	d.Close()

	require.Len(t, sender.sent, 1)
	assert.Equal(t, 3, sender.calls)
	assert.Equal(t, []string{"admin@a.test"}, sender.sent[0].To)
	assert.Equal(t, "TaskVault <no-reply@test>", sender.sent[0].From)
}

func TestDispatcher_ColaLlena(t *testing.T) {
	d := email.NewDispatcher(&fakeSender{}, email.Config{QueueSize: 1}, logger.Nop())
	n := ports.Notification{Template: ports.TemplatePaymentFailed, To: "a@test"}

	require.NoError(t, d.Enqueue(context.Background(), n))
	assert.ErrorIs(t, d.Enqueue(context.Background(), n), email.ErrQueueFull)
	assert.Error(t, d.Enqueue(context.Background(), ports.Notification{Template: "x"}))
}
