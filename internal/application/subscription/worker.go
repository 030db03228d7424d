package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

// WorkerConfig parámetros del consumidor de webhooks y de los barridos periódicos.
type WorkerConfig struct {
	Concurrency       int
	MaxAttempts       int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	PollTimeout       time.Duration
	ReconcileInterval time.Duration
	ReplayInterval    time.Duration
}

func (c *WorkerConfig) defaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Minute
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Second
	}
}

// Backoff espera antes del intento siguiente a attempt: base*2^(attempt-1), acotado por limit.
func Backoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// Worker consume la cola de webhooks y corre conciliación y reencolado periódicos.
type Worker struct {
	svc   *Service
	queue ports.WebhookQueue
	cfg   WorkerConfig
	log   *logger.Logger
}

// NewWorker construye el worker.
func NewWorker(svc *Service, queue ports.WebhookQueue, cfg WorkerConfig, log *logger.Logger) *Worker {
	cfg.defaults()
	return &Worker{svc: svc, queue: queue, cfg: cfg, log: log.Named("webhook-worker")}
}

// Handle procesa un trabajo. Si falla y quedan intentos, lo reprograma con backoff exponencial.
func (w *Worker) Handle(ctx context.Context, job ports.WebhookJob) {
	err := w.svc.HandleStoredEvent(ctx, job.EventID)
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrWebhookEventNotFound) {
		w.log.Warn().Str("event_id", job.EventID).Msg("trabajo sin evento registrado descartado")
		return
	}
	if job.Attempt >= w.cfg.MaxAttempts {
		w.log.Error().Err(err).Str("event_id", job.EventID).Int("attempt", job.Attempt).
			Msg("reintentos agotados; el evento queda pendiente de conciliación")
		return
	}
	delay := Backoff(job.Attempt, w.cfg.BaseBackoff, w.cfg.MaxBackoff)
	next := ports.WebhookJob{EventID: job.EventID, Attempt: job.Attempt + 1}
	if qErr := w.queue.EnqueueAfter(ctx, next, delay); qErr != nil {
		w.log.Error().Err(qErr).Str("event_id", job.EventID).Msg("no se pudo reprogramar el evento")
		return
	}
	w.log.Warn().Err(err).Str("event_id", job.EventID).Int("attempt", job.Attempt).Dur("retry_in", delay).
		Msg("procesamiento de evento fallido; reintento programado")
}

// Run bloquea hasta que ctx se cancele.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.consume(ctx)
		}()
	}
	if w.cfg.ReconcileInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.every(ctx, w.cfg.ReconcileInterval, func(ctx context.Context) {
				if _, err := w.svc.ReconcilePendingOrders(ctx); err != nil {
					w.log.Error().Err(err).Msg("barrido de conciliación fallido")
				}
			})
		}()
	}
	if w.cfg.ReplayInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.every(ctx, w.cfg.ReplayInterval, func(ctx context.Context) {
				if _, err := w.svc.ReplayStaleEvents(ctx); err != nil {
					w.log.Error().Err(err).Msg("reencolado de eventos fallido")
				}
			})
		}()
	}
	w.log.Info().Int("concurrency", w.cfg.Concurrency).Msg("worker iniciado")
	wg.Wait()
	w.log.Info().Msg("worker detenido")
}

func (w *Worker) consume(ctx context.Context) {
	for ctx.Err() == nil {
		job, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("lectura de la cola fallida")
			sleep(ctx, time.Second)
			continue
		}
		if job == nil {
			continue
		}
		w.Handle(ctx, *job)
	}
}

func (w *Worker) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
