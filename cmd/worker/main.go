package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/ocr-pipeline/internal/bootstrap"
	"github.com/kirillkom/ocr-pipeline/internal/config"
	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
	"github.com/kirillkom/ocr-pipeline/internal/observability/logging"
	"github.com/kirillkom/ocr-pipeline/internal/observability/metrics"
)

const serviceName = "ocr-worker"

func main() {
	cfg := config.Load()
	logger := logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
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
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeProcessRequests(ctx, func(handlerCtx context.Context, req domain.ProcessRequest) error {
		start := time.Now()
		workerMetrics.StartDocument()

		if job, err := app.Jobs.GetByID(handlerCtx, req.JobID); err == nil {
			workerMetrics.ObserveQueueLag(serviceName, start.Sub(job.CreatedAt))
		}

		processErr := app.Processor.Process(handlerCtx, req.DocumentID, req.JobID)
		workerMetrics.FinishDocument(serviceName, time.Since(start), processErr)
		if processErr == nil {
			if content, err := app.Contents.GetByDocumentID(handlerCtx, req.DocumentID); err == nil && content != nil {
				total := metadataInt(content.Metadata, "page_count")
				failed := metadataInt(content.Metadata, "pages_failed")
				workerMetrics.RecordPages(serviceName, total-failed, failed)
			}
		}
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

// metadataInt reads a numeric metadata value; values round-tripped through
// JSONB arrive as float64.
func metadataInt(metadata map[string]any, key string) int {
	switch v := metadata[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
