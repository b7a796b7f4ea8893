package audit

import (
	"context"
	"log/slog"
)

// Publisher is the sink the worker drains mirrored records into.
type Publisher interface {
	Publish(ctx context.Context, record Record) error
}

// Worker consumes mirrored audit records from the gate's channel and forwards
// them to a publisher. Publish failures are logged and dropped: the durable
// trail already lives in the store.
type Worker struct {
	publisher Publisher
	inbox     <-chan Record
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, inbox <-chan Record, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record := <-w.inbox:
			if err := w.publisher.Publish(ctx, record); err != nil {
				w.logger.WarnContext(ctx, "audit mirror publish failed",
					"actor", record.Actor,
					"scope", record.Scope(),
					"error", err,
				)
			}
		}
	}
}
