package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krittawat/order-register/internal/bootstrap"
	"github.com/krittawat/order-register/internal/config"
	"github.com/krittawat/order-register/internal/observability/logging"
	"github.com/krittawat/order-register/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeOrderAdmitted(ctx, func(handlerCtx context.Context, orderID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartOrder()
		start := time.Now()

		processErr := app.ProcessUC.ProcessByID(processCtx, orderID)

		status := "processed"
		if processErr != nil {
			status = "error"
		}
		workerMetrics.FinishOrder("worker", status, time.Since(start))
		observeRecord(processCtx, app, workerMetrics, orderID, start)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

// observeRecord reads the processed record back to report pipeline detail
// metrics. Best effort: a read failure only skips the observations.
func observeRecord(ctx context.Context, app *bootstrap.App, workerMetrics *metrics.WorkerMetrics, orderID string, started time.Time) {
	record, err := app.Repo.GetByID(ctx, orderID)
	if err != nil {
		return
	}
	workerMetrics.ObserveQueueLag("worker", started.Sub(record.ReceivedAt))
	workerMetrics.ObserveLineCount("worker", len(record.Lines))
	for _, line := range record.Lines {
		workerMetrics.RecordMatchTier("worker", string(line.Provenance.MatchTier))
	}
}
