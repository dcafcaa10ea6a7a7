package audit

import (
	"context"
	"log/slog"
)

// Worker drains the publisher's inbox into the store. Run until the context
// is cancelled; store errors are logged, not fatal, so one bad append cannot
// stop the trail.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("audit append failed", "error", err)
			}
		}
	}
}
