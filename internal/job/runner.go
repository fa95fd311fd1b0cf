package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/phrazzld/taskhub/internal/config"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/platform/metrics"
	"github.com/phrazzld/taskhub/internal/platform/tracing"
)

// Config holds configuration for the runner.
type Config struct {
	// Workers is the number of concurrent workers.
	Workers int

	// QueueSize is the buffer size of the in-memory queue.
	QueueSize int

	// StuckAfter is how long a job may stay in processing before the
	// monitor resets and requeues it.
	StuckAfter time.Duration

	// MonitorInterval is how often the monitor looks for stuck jobs.
	MonitorInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         2,
		QueueSize:       100,
		StuckAfter:      30 * time.Minute,
		MonitorInterval: 5 * time.Minute,
	}
}

// ConfigFrom converts the application jobs section.
func ConfigFrom(c config.JobsConfig) Config {
	return Config{
		Workers:         c.Workers,
		QueueSize:       c.QueueSize,
		StuckAfter:      c.StuckAfter,
		MonitorInterval: c.MonitorInterval,
	}
}

// Runner manages background job processing.
type Runner struct {
	store      Store
	queue      chan Job
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer

	mu        sync.RWMutex
	factories map[string]Factory
	errorFn   func(job Job, err error)
}

// NewRunner creates a Runner. m may be nil.
func NewRunner(store Store, cfg Config, m *metrics.Metrics, log *slog.Logger) *Runner {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.StuckAfter <= 0 {
		cfg.StuckAfter = def.StuckAfter
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = def.MonitorInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	log = log.With("component", "job_runner")

	return &Runner{
		store:      store,
		queue:      make(chan Job, cfg.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     cfg,
		logger:     log,
		metrics:    m,
		tracer:     tracing.Tracer(),
		factories:  make(map[string]Factory),
		errorFn: func(job Job, err error) {
			log.Error("job execution failed",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"error", err)
		},
	}
}

// Register sets the factory used to rebuild recovered jobs of jobType.
func (r *Runner) Register(jobType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[jobType] = f
}

// SetErrorHandler replaces the function called when a job fails.
func (r *Runner) SetErrorHandler(handler func(job Job, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorFn = handler
}

// Submit persists job and queues it.
func (r *Runner) Submit(ctx context.Context, job Job) error {
	if err := r.store.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	r.metrics.JobTransition(job.Type(), string(StatusPending))

	select {
	case r.queue <- job:
		return nil
	default:
		logger.FromContextOrDefault(ctx, r.logger).Warn("job queue is full",
			"job_id", job.ID(),
			"job_type", job.Type())
		return ErrQueueFull
	}
}

// Start recovers unfinished jobs then starts the workers and the stuck-job
// monitor.
func (r *Runner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.monitor()

	return nil
}

// Stop cancels the workers and waits for them to return. Jobs still queued
// stay pending in the store.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
}

// Recover requeues pending jobs and resets interrupted processing jobs.
func (r *Runner) Recover(ctx context.Context) error {
	pending, err := r.store.ListByStatus(ctx, StatusPending, 0)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	processing, err := r.store.ListByStatus(ctx, StatusProcessing, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec)
	}
	for _, rec := range processing {
		if err := r.store.UpdateStatus(ctx, rec.ID, StatusPending, "reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing job",
				"job_id", rec.ID,
				"job_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}
	return nil
}

// requeue rebuilds rec and puts it back on the queue. Records without a
// factory are marked failed.
func (r *Runner) requeue(ctx context.Context, rec Record) {
	r.mu.RLock()
	factory, ok := r.factories[rec.Type]
	r.mu.RUnlock()

	var job Job
	var err error
	if !ok {
		err = ErrNoFactory
	} else {
		job, err = factory(rec)
	}
	if err != nil {
		r.logger.Error("cannot rebuild job",
			"job_id", rec.ID,
			"job_type", rec.Type,
			"error", err)
		if updateErr := r.store.UpdateStatus(ctx, rec.ID, StatusFailed, err.Error()); updateErr == nil {
			r.metrics.JobTransition(rec.Type, string(StatusFailed))
		}
		return
	}

	select {
	case r.queue <- job:
	default:
		r.logger.Error("failed to requeue job, queue is full",
			"job_id", rec.ID,
			"job_type", rec.Type)
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return
		case job := <-r.queue:
			r.process(job, id)
		}
	}
}

// process executes one job and records its outcome.
func (r *Runner) process(job Job, workerID int) {
	log := r.logger.With(
		"job_id", job.ID(),
		"job_type", job.Type(),
		"worker_id", workerID,
	)
	ctx := logger.WithLogger(context.WithoutCancel(r.ctx), log)

	ctx, span := r.tracer.Start(ctx, "job "+job.Type(),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("job.id", job.ID().String()),
			attribute.String("job.type", job.Type()),
		))
	defer span.End()

	if err := r.store.UpdateStatus(ctx, job.ID(), StatusProcessing, ""); err != nil {
		log.Error("failed to mark job processing", "error", err)
		span.SetStatus(codes.Error, "status update failed")
		return
	}
	r.metrics.JobTransition(job.Type(), string(StatusProcessing))

	log.Info("processing job")

	if err := job.Execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if updateErr := r.store.UpdateStatus(ctx, job.ID(), StatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to mark job failed", "error", updateErr)
		}
		r.metrics.JobTransition(job.Type(), string(StatusFailed))

		r.mu.RLock()
		handle := r.errorFn
		r.mu.RUnlock()
		handle(job, err)
		return
	}

	log.Info("job completed")
	if err := r.store.UpdateStatus(ctx, job.ID(), StatusCompleted, ""); err != nil {
		log.Error("failed to mark job completed", "error", err)
	}
	r.metrics.JobTransition(job.Type(), string(StatusCompleted))
}

// monitor periodically requeues jobs stuck in processing.
func (r *Runner) monitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.resetStuck(r.ctx)
		}
	}
}

func (r *Runner) resetStuck(ctx context.Context) {
	stuck, err := r.store.ListByStatus(ctx, StatusProcessing, r.config.StuckAfter)
	if err != nil {
		r.logger.Error("failed to check for stuck jobs", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	r.logger.Info("found stuck jobs", "count", len(stuck))
	for _, rec := range stuck {
		if err := r.store.UpdateStatus(ctx, rec.ID, StatusPending, "reset after being stuck in processing"); err != nil {
			r.logger.Error("failed to reset stuck job",
				"job_id", rec.ID,
				"job_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}
}
