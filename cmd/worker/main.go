package main

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/taskvault-api/internal/application/subscription"
	"github.com/jhoicas/taskvault-api/internal/bootstrap"
	"github.com/jhoicas/taskvault-api/pkg/config"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

// Worker: consume la cola de webhooks, concilia órdenes pendientes y reencola eventos atascados.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Named("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialización de dependencias")
	}
	defer c.Close()
	c.StartBackground(ctx)

	// Métricas del worker en un puerto propio (HTTP_PORT + 1).
	if c.Metrics != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(c.Metrics.Gatherer(), promhttp.HandlerOpts{}))
		addr := cfg.HTTP.Host + ":" + strconv.Itoa(cfg.HTTP.Port+1)
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("servidor de métricas finalizado")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	subscription.NewWorker(c.Subscriptions, c.Queue, c.WorkerConfig(), log).Run(ctx)
}
