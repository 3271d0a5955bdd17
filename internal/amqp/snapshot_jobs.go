package amqp

import (
	"context"
	"fmt"
	"log/slog"

	"zakatledger/internal/core"
	"zakatledger/internal/middleware/trace"
	"zakatledger/internal/snapshot"
)

// PublishSnapshotJob publishes one snapshot job as a persistent message.
func (c *Client) PublishSnapshotJob(ctx context.Context, msg *SnapshotJobMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, body); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Published snapshot job",
		"op", msg.Op,
		"source", msg.Job().JobSource().String(),
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// ConsumeSnapshotJobs delivers decoded snapshot jobs to handler until ctx is
// done. Undecodable messages are dead-lettered.
func (c *Client) ConsumeSnapshotJobs(ctx context.Context, handler func(context.Context, *SnapshotJobMessage) error) error {
	return c.consume(ctx, func(ctx context.Context, body []byte) error {
		msg, err := SnapshotJobMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: unmarshal snapshot job: %v", ErrDiscard, err)
		}
		return handler(ctx, msg)
	})
}

// Publisher is a snapshot.Dispatcher that hands jobs to the snapshot worker.
type Publisher struct {
	client *Client
}

var _ snapshot.Dispatcher = (*Publisher)(nil)

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Dispatch(ctx context.Context, job snapshot.Job) {
	actor, _ := core.ActorFromContext(ctx)
	msg := NewSnapshotJobMessage(job, actor, trace.GetRequestID(ctx))
	if err := p.client.PublishSnapshotJob(context.WithoutCancel(ctx), msg); err != nil {
		snapshot.RecordDropped(job.Op)
		slog.ErrorContext(ctx, "Failed to publish snapshot job",
			"component", "amqp",
			"op", job.Op,
			"source", job.JobSource().String(),
			"error", err)
	}
}
