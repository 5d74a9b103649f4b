package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaylee-dev/media-toolbox/internal/artifact"
	"github.com/jaylee-dev/media-toolbox/internal/stt"
	"github.com/jaylee-dev/media-toolbox/internal/template"
	"github.com/jaylee-dev/media-toolbox/internal/translate"
	"github.com/jaylee-dev/media-toolbox/internal/worker/domain"
	"github.com/jaylee-dev/media-toolbox/internal/worker/storage"
	"github.com/jaylee-dev/media-toolbox/shared/postgresql"
	"github.com/jaylee-dev/media-toolbox/shared/rabbitmq"
)

// Executor runs one job type and returns the output artifact map.
type Executor interface {
	Execute(ctx context.Context, job *domain.Job) (map[string]string, error)
}

// Config holds worker configuration
type Config struct {
	Logger               *slog.Logger
	DBClient             *postgresql.Client
	RabbitClient         *rabbitmq.Client
	Artifacts            *artifact.Store
	STTPipeline          *stt.Pipeline
	TranslatePipeline    *translate.Pipeline
	TranslationTemplates *template.Store
	Concurrency          int
	PrefetchCount        int
	JobTimeout           time.Duration
	HeartbeatInterval    time.Duration
	QueueName            string
}

// Worker represents the background job worker
type Worker struct {
	logger            *slog.Logger
	storage           *storage.Storage
	rabbitClient      *rabbitmq.Client
	artifacts         *artifact.Store
	executors         map[string]Executor
	workerID          string
	concurrency       int
	prefetchCount     int
	jobTimeout        time.Duration
	heartbeatInterval time.Duration
	queueName         string
	jobsChan          chan *domain.JobMessage
	wg                sync.WaitGroup
	stopChan          chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	store := storage.NewStorage(cfg.DBClient.GetDB(), cfg.Logger)

	w := &Worker{
		logger:            cfg.Logger,
		storage:           store,
		rabbitClient:      cfg.RabbitClient,
		artifacts:         cfg.Artifacts,
		workerID:          uuid.New().String(),
		concurrency:       cfg.Concurrency,
		prefetchCount:     cfg.PrefetchCount,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: cfg.HeartbeatInterval,
		queueName:         cfg.QueueName,
		jobsChan:          make(chan *domain.JobMessage, cfg.Concurrency),
		stopChan:          make(chan struct{}),
	}

	w.executors = map[string]Executor{
		domain.JobTypeSTT:       newSTTExecutor(cfg.STTPipeline, store, cfg.Artifacts, cfg.Logger),
		domain.JobTypeTranslate: newTranslateExecutor(cfg.TranslatePipeline, store, cfg.Artifacts, cfg.TranslationTemplates, cfg.Logger),
	}

	return w
}

// Start begins processing jobs and blocks until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	go w.startMessageDispatcher(ctx, deliveries)

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
