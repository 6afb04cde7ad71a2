package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/clipforge/ffdispatch/internal/job"
	"github.com/clipforge/ffdispatch/internal/queue"
)

// Handler runs one job inside its private working area and returns the
// durable reference per output key. The working area is created by the
// pool and released unconditionally after the handler returns.
type Handler func(ctx context.Context, j *job.Job, workDir string) (map[string]string, error)

// Config holds worker pool configuration
type Config struct {
	Logger      *slog.Logger
	Queue       *queue.Queue
	Handlers    map[string]Handler
	Concurrency int
	WorkDirRoot string
}

// Pool drains the job queue with N concurrent worker loops. The handler
// table is fixed at construction; new job types are added by registering
// a handler, not by editing the dispatch loop.
type Pool struct {
	logger      *slog.Logger
	queue       *queue.Queue
	handlers    map[string]Handler
	concurrency int
	workDirRoot string

	wg            sync.WaitGroup
	cancelDequeue context.CancelFunc
}

// NewPool creates a new worker pool instance
func NewPool(cfg *Config) *Pool {
	return &Pool{
		logger:      cfg.Logger,
		queue:       cfg.Queue,
		handlers:    cfg.Handlers,
		concurrency: cfg.Concurrency,
		workDirRoot: cfg.WorkDirRoot,
	}
}

// Start spawns the worker goroutines. It returns immediately.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Spawning worker pool",
		slog.Int("concurrency", p.concurrency),
	)

	dequeueCtx, cancel := context.WithCancel(ctx)
	p.cancelDequeue = cancel

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, dequeueCtx, i)
	}
}

// Stop asks every worker loop to stop and waits for them. Jobs already
// mid-pipeline are allowed to finish or fail naturally.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")
	if p.cancelDequeue != nil {
		p.cancelDequeue()
	}
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// workerLoop is the main processing loop for each worker goroutine.
// dequeueCtx is canceled by Stop; ctx keeps in-flight jobs alive until
// the whole process shuts down.
func (p *Pool) workerLoop(ctx, dequeueCtx context.Context, workerNum int) {
	defer p.wg.Done()

	workerName := fmt.Sprintf("worker-%d", workerNum)
	p.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		j, err := p.queue.Dequeue(dequeueCtx)
		if err != nil {
			p.logger.Info("Worker goroutine stopping",
				slog.String("worker_name", workerName),
			)
			return
		}
		p.process(ctx, workerName, j)
	}
}

// process runs a single job to a terminal state. Every failure, panics
// included, is contained here; one job can never take down the loop.
func (p *Pool) process(ctx context.Context, workerName string, j *job.Job) {
	logger := p.logger.With(
		slog.String("worker_name", workerName),
		slog.String("job_id", j.ID),
		slog.String("job_type", j.Type),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job handler panicked",
				slog.Any("panic", r),
			)
			j.Fail(fmt.Sprintf("internal error: %v", r))
			p.queue.Publish(queue.EventFailed, j)
		}
	}()

	logger.Info("Processing job")
	j.MarkRunning()
	p.queue.Publish(queue.EventStarted, j)

	handler, ok := p.handlers[j.Type]
	if !ok {
		logger.Error("No handler for job type")
		j.Fail(fmt.Sprintf("%v: %s", job.ErrUnknownJobType, j.Type))
		p.queue.Publish(queue.EventFailed, j)
		return
	}

	workDir, err := os.MkdirTemp(p.workDirRoot, "ffjob-")
	if err != nil {
		logger.Error("Failed to create working area",
			slog.String("error", err.Error()),
		)
		j.Fail(fmt.Sprintf("failed to create working area: %v", err))
		p.queue.Publish(queue.EventFailed, j)
		return
	}
	// The working area is released on every exit path, whichever
	// pipeline step failed.
	defer os.RemoveAll(workDir)

	outputURLs, err := handler(ctx, j, workDir)
	if err != nil {
		logger.Error("Job failed",
			slog.String("error", err.Error()),
		)
		j.Fail(err.Error())
		p.queue.Publish(queue.EventFailed, j)
		return
	}

	j.Complete(outputURLs)
	p.queue.Publish(queue.EventCompleted, j)
	logger.Info("Job completed successfully")
}
