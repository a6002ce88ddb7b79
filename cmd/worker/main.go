package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/knowledge-retrieval/internal/bootstrap"
	"github.com/kirillkom/knowledge-retrieval/internal/config"
	"github.com/kirillkom/knowledge-retrieval/internal/observability/logging"
	"github.com/kirillkom/knowledge-retrieval/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		log.Fatalf("worker pool error: %v", err)
	}
	defer pool.Release()

	embedTimeout := time.Duration(cfg.WorkerEmbedTimeoutSeconds) * time.Second

	logger.Info("worker subscribed", "subject", cfg.NATSSubject, "pool_size", cfg.WorkerPoolSize)
	err = app.Queue.SubscribeEmbedRequested(ctx, func(handlerCtx context.Context, documentID string) error {
		return pool.Submit(func() {
			workerMetrics.StartEmbed()
			start := time.Now()

			embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
			defer cancel()

			if doc, lookupErr := app.Repo.GetByID(embedCtx, documentID); lookupErr == nil {
				workerMetrics.ObserveQueueLag(serviceName, start.Sub(doc.UpdatedAt))
			}

			embedErr := app.EmbedUC.EmbedByID(embedCtx, documentID)
			workerMetrics.FinishEmbed(serviceName, time.Since(start), embedErr)
			if embedErr != nil {
				logger.Error("embed failed", "document_id", documentID, "error", embedErr)
				return
			}

			if chunks, listErr := app.Chunks.ListByDocument(embedCtx, documentID); listErr == nil {
				workerMetrics.ObserveChunkCount(serviceName, len(chunks))
			}
		})
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
