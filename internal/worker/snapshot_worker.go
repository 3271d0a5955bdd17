package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zakatledger/internal/amqp"
	"zakatledger/internal/core"
	"zakatledger/internal/log"
	"zakatledger/internal/middleware/trace"
	"zakatledger/internal/snapshot"
)

var errMissingActor = errors.New("snapshot job has no actor")

// SnapshotWorker applies snapshot jobs consumed from AMQP.
type SnapshotWorker struct {
	applier snapshot.Applier
	timeout time.Duration
	log     *log.Logger
}

func NewSnapshotWorker(applier snapshot.Applier, timeout time.Duration) *SnapshotWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SnapshotWorker{
		applier: applier,
		timeout: timeout,
		log:     log.Default(log.ComponentWorker),
	}
}

// HandleSnapshotJob processes a single snapshot job message. Retryable
// failures are returned as-is so the message is redelivered; anything else
// is marked for the dead-letter queue.
func (w *SnapshotWorker) HandleSnapshotJob(ctx context.Context, msg *amqp.SnapshotJobMessage) error {
	job := msg.Job()
	src := job.JobSource()

	if msg.Actor == "" {
		return fmt.Errorf("%w: %s %s: %v", amqp.ErrDiscard, job.Op, src, errMissingActor)
	}

	logger := w.log.With(log.FieldRequestID, msg.RequestID, log.FieldActor, msg.Actor)
	ctx = core.WithActor(ctx, msg.Actor)
	ctx = trace.WithRequestID(ctx, msg.RequestID)
	ctx = log.WithLogger(ctx, logger)

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	logger.DebugContext(ctx, "Processing snapshot job",
		log.NewFields().WithSource(src).WithOperation(string(job.Op)).
			With("queued_for", time.Since(msg.Timestamp).Round(time.Millisecond).String()).ToSlice()...)

	err := snapshot.Execute(ctx, w.applier, job)
	switch {
	case err == nil:
		return nil
	case core.IsRetryable(err):
		return err
	default:
		return fmt.Errorf("%w: %v", amqp.ErrDiscard, err)
	}
}
