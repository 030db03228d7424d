// Package email despacha notificaciones transaccionales vía Resend.
package email

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

var _ ports.Notifier = (*Dispatcher)(nil)

// ErrQueueFull la cola interna está llena; la notificación se descarta.
var ErrQueueFull = errors.New("cola de correo llena")

// Sender subconjunto de resend.EmailsSvc.
type Sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Config remitente, workers y reintentos.
type Config struct {
	FromEmail   string
	FromName    string
	Workers     int
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
}

// Dispatcher encola en memoria y envía con un pool de workers; Enqueue nunca bloquea.
type Dispatcher struct {
	sender Sender
	cfg    Config
	log    *logger.Logger
	queue  chan ports.Notification
	wg     sync.WaitGroup
	once   sync.Once
}

// NewResendDispatcher crea el despachador con el cliente de Resend.
func NewResendDispatcher(apiKey string, cfg Config, log *logger.Logger) (*Dispatcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}
	return NewDispatcher(resend.NewClient(apiKey).Emails, cfg, log), nil
}

// NewDispatcher crea el despachador sobre un Sender arbitrario.
func NewDispatcher(sender Sender, cfg Config, log *logger.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Dispatcher{
		sender: sender,
		cfg:    cfg,
		log:    log.Named("email"),
		queue:  make(chan ports.Notification, cfg.QueueSize),
	}
}

// Start lanza los workers; terminan cuando ctx se cancela o tras Close.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case n, ok := <-d.queue:
					if !ok {
						return
					}
					d.deliver(ctx, n)
				}
			}
		}()
	}
}

// Close deja de aceptar notificaciones y espera a que los workers vacíen la cola.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.queue) })
	d.wg.Wait()
}

// Enqueue valida la plantilla y encola sin bloquear.
func (d *Dispatcher) Enqueue(_ context.Context, n ports.Notification) error {
	if _, _, err := Render(n); err != nil {
		return err
	}
	select {
	case d.queue <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n ports.Notification) {
	subject, html, err := Render(n)
	if err != nil {
		d.log.Error().Err(err).Str("template", n.Template).Msg("no se pudo renderizar el correo")
		return
	}
	req := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", d.cfg.FromName, d.cfg.FromEmail),
		To:      []string{n.To},
		Subject: subject,
		Html:    html,
	}
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		sent, err := d.sender.SendWithContext(ctx, req)
		if err == nil {
			d.log.Info().Str("template", n.Template).Str("email_id", sent.Id).Msg("correo enviado")
			return
		}
		d.log.Warn().Err(err).Str("template", n.Template).Int("attempt", attempt).Msg("fallo al enviar correo")
		if attempt == d.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.cfg.Backoff * time.Duration(attempt)):
		}
	}
	d.log.Error().Str("template", n.Template).Msg("correo descartado tras agotar reintentos")
}

// LogNotifier registra las notificaciones en el log en lugar de enviarlas (desarrollo sin API key).
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier construye el notificador de desarrollo.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("email")}
}

func (l *LogNotifier) Enqueue(_ context.Context, n ports.Notification) error {
	ev := l.log.Info().Str("template", n.Template).Str("to", n.To)
	if code, ok := n.Data["code"]; ok {
		ev = ev.Str("code", code)
	}
	ev.Msg("correo no enviado: sin API key de Resend")
	return nil
}
