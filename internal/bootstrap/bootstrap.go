package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/ocr-pipeline/internal/config"
	"github.com/kirillkom/ocr-pipeline/internal/core/ports"
	"github.com/kirillkom/ocr-pipeline/internal/core/usecase"
	"github.com/kirillkom/ocr-pipeline/internal/infrastructure/extraction"
	"github.com/kirillkom/ocr-pipeline/internal/infrastructure/failure"
	"github.com/kirillkom/ocr-pipeline/internal/infrastructure/llm/vision"
	"github.com/kirillkom/ocr-pipeline/internal/infrastructure/parser"
	"github.com/kirillkom/ocr-pipeline/internal/infrastructure/preprocess"
	"github.com/kirillkom/ocr-pipeline/internal/infrastructure/queue/nats"
	"github.com/kirillkom/ocr-pipeline/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/ocr-pipeline/internal/infrastructure/resilience"
	"github.com/kirillkom/ocr-pipeline/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Documents ports.DocumentRepository
	Jobs      ports.JobRepository
	Contents  ports.ContentRepository
	Failures  ports.FailureRepository

	Ingestor  ports.DocumentIngestor
	Processor ports.DocumentProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	documents := postgres.NewDocumentRepository(db)
	jobs := postgres.NewJobRepository(db)
	contents := postgres.NewContentRepository(db)
	failureLogs := postgres.NewFailureRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	detector := preprocess.NewDetector()
	pages := preprocess.NewExtractor(storage, preprocess.ExtractorConfig{
		MaxPDFPages:       cfg.MaxPDFPages,
		RenderDPI:         cfg.RenderDPI,
		FallbackDPI:       cfg.FallbackDPI,
		MaxImageDimension: cfg.MaxImageDimension,
		JPEGQuality:       cfg.JPEGQuality,
	})

	visionClient := vision.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.VisionModel, cfg.VisionRateLimitRPS)
	scorer := extraction.NewConfidenceScorer()
	extractionSvc := extraction.NewService(visionClient, scorer, cfg.VisionModel, cfg.PageWorkers)

	retrier := resilience.NewExecutor(resilience.Config{
		MaxRetries:        cfg.MaxRetries,
		BackoffMultiplier: cfg.RetryBackoffMultiplier,
	})
	recorder := failure.NewRecorder(failureLogs, storage)

	processor := usecase.NewProcessor(
		documents, jobs, contents,
		pages, extractionSvc, visionClient, parser.New(),
		retrier, recorder,
		usecase.ProcessorConfig{
			MaxRetries:         cfg.MaxRetries,
			StepTimeout:        time.Duration(cfg.OrchestrationTimeoutSeconds) * time.Second,
			MaxConcurrentSteps: cfg.OrchestrationMaxConcurrent,
		},
	)
	ingestor := usecase.NewIngestor(documents, jobs, storage, queue, detector)

	return &App{
		Config: cfg,

		Queue:     queue,
		Documents: documents,
		Jobs:      jobs,
		Contents:  contents,
		Failures:  failureLogs,

		Ingestor:  ingestor,
		Processor: processor,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
