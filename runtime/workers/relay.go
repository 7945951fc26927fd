package workers

import (
	"context"
	"log/slog"
	"wa-relay/contract"
	"wa-relay/domain"
)

// Ensure *RelayWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*RelayWorker)(nil)

// RelayWorker drains the event queue and runs the handler for each event.
// Several RelayWorkers share one queue, so events are handled concurrently
// and in no particular order.
type RelayWorker struct {
	log     *slog.Logger
	events  <-chan domain.ChatEvent
	handler contract.EventHandler
}

func NewRelayWorker(log *slog.Logger, events <-chan domain.ChatEvent, handler contract.EventHandler) *RelayWorker {
	return &RelayWorker{log: log, events: events, handler: handler}
}

func (w *RelayWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.handler.Handle(ctx, evt)
		}
	}
}
