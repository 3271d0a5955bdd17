package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"zakatledger/internal/core"
	"zakatledger/internal/log"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpsert Op = "upsert"
	OpCancel Op = "cancel"
)

// Job is one unit of snapshot work. Cancel jobs only carry Source.
type Job struct {
	Op     Op             `json:"op"`
	Input  Input          `json:"input"`
	Source core.SourceRef `json:"source"`
}

// JobSource returns the source a job is about.
func (j Job) JobSource() core.SourceRef {
	if j.Op == OpCancel {
		return j.Source
	}
	return j.Input.Source
}

type Applier interface {
	Apply(ctx context.Context, job Job) error
}

// Dispatcher hands a job off without reporting its outcome to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job)
}

// Execute applies job, logs and counts the outcome. Unmapped categories and
// duplicate creates count as done and return nil; any other failure is
// returned so queue consumers can decide whether to redeliver.
func Execute(ctx context.Context, a Applier, job Job) error {
	start := time.Now()
	err := a.Apply(ctx, job)
	jobDuration.WithLabelValues(string(job.Op)).Observe(time.Since(start).Seconds())

	logger := log.FromContext(ctx).WithComponent(log.ComponentSnapshot)
	fields := log.NewFields().WithSource(job.JobSource()).WithOperation(string(job.Op))

	switch {
	case err == nil:
		jobsTotal.WithLabelValues(string(job.Op), resultOK).Inc()
		return nil
	case errors.Is(err, ErrUnmappedCategory):
		jobsTotal.WithLabelValues(string(job.Op), resultSkipped).Inc()
		logger.DebugContext(ctx, "No snapshot for unmapped category",
			fields.With(log.FieldCategory, job.Input.RawCategory).ToSlice()...)
		return nil
	case errors.Is(err, ErrSnapshotExists):
		jobsTotal.WithLabelValues(string(job.Op), resultDuplicate).Inc()
		logger.WarnContext(ctx, "Snapshot already exists for source", fields.ToSlice()...)
		return nil
	default:
		jobsTotal.WithLabelValues(string(job.Op), resultError).Inc()
		logger.ErrorContext(ctx, "Snapshot job failed", fields.WithError(err).ToSlice()...)
		return err
	}
}

type AsyncConfig struct {
	// Timeout bounds a single job.
	Timeout time.Duration
	// MaxInFlight bounds concurrently running jobs.
	MaxInFlight int64
}

func DefaultAsyncConfig() AsyncConfig {
	return AsyncConfig{Timeout: 30 * time.Second, MaxInFlight: 16}
}

// AsyncDispatcher runs each job on its own goroutine, detached from the
// caller's cancellation but keeping its values (actor, request id).
type AsyncDispatcher struct {
	applier Applier
	config  AsyncConfig
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	log     *log.Logger
}

func NewAsyncDispatcher(applier Applier, config AsyncConfig) *AsyncDispatcher {
	def := DefaultAsyncConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = def.MaxInFlight
	}
	return &AsyncDispatcher{
		applier: applier,
		config:  config,
		sem:     semaphore.NewWeighted(config.MaxInFlight),
		log:     log.Default(log.ComponentSnapshot),
	}
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, job Job) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		RecordDropped(job.Op)
		d.log.WarnContext(ctx, "Snapshot dispatcher closed, dropping job",
			log.NewFields().WithSource(job.JobSource()).WithOperation(string(job.Op)).ToSlice()...)
		return
	}

	d.wg.Add(1)
	inflightJobs.Inc()
	go func() {
		defer d.wg.Done()
		defer inflightJobs.Dec()

		jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.Timeout)
		defer cancel()

		if err := d.sem.Acquire(jobCtx, 1); err != nil {
			RecordDropped(job.Op)
			d.log.WarnContext(jobCtx, "No snapshot slot before timeout, dropping job",
				log.NewFields().WithSource(job.JobSource()).WithError(err).ToSlice()...)
			return
		}
		defer d.sem.Release(1)

		_ = Execute(jobCtx, d.applier, job)
	}()
}

// Close stops accepting jobs and waits for running ones until ctx is done.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InlineDispatcher runs jobs synchronously and swallows their errors. It is
// used by tools that must observe the result before exiting.
type InlineDispatcher struct {
	Applier Applier
}

func (d InlineDispatcher) Dispatch(ctx context.Context, job Job) {
	_ = Execute(ctx, d.Applier, job)
}
