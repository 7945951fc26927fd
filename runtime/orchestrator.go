// Package runtime wires the relay workers together: it owns the event queue,
// the worker pool draining it and the supervisor keeping everything alive.
// It contains no business rule.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"wa-relay/contract"
	"wa-relay/domain"
	"wa-relay/runtime/workers"
)

type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	numWorkers int
	supervisor contract.ISupervisor
	handler    contract.EventHandler
	events     chan domain.ChatEvent
	workers    []contract.Worker
	done       chan struct{}
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	handler contract.EventHandler, numWorkers, bufferSize int) *Orchestrator {
	return &Orchestrator{
		log:        log,
		numWorkers: numWorkers,
		supervisor: supervisor,
		handler:    handler,
		events:     make(chan domain.ChatEvent, bufferSize),
	}
}

// Add registers long-running workers (session, heartbeat, health server)
// to be supervised next to the relay pool.
func (o *Orchestrator) Add(workers ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workers = append(o.workers, workers...)
}

// Submit queues an event for asynchronous processing and returns as soon as
// it is queued. It only waits when the queue is full, and gives up when ctx ends.
func (o *Orchestrator) Submit(ctx context.Context, evt domain.ChatEvent) error {
	select {
	case o.events <- evt:
		return nil
	default:
		o.log.Warn("Event queue full, waiting for a free slot", "id", evt.ID, "capacity", cap(o.events))
	}
	select {
	case o.events <- evt:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event %s not queued: %w", evt.ID, ctx.Err())
	}
}

// QueueSize returns the number of events waiting for a worker.
func (o *Orchestrator) QueueSize() int {
	return len(o.events)
}

// Start registers the relay pool and every added worker on the supervisor,
// then runs it in the background until ctx is canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.numWorkers <= 0 {
		return fmt.Errorf("at least one relay worker is required, got %d", o.numWorkers)
	}

	o.mu.Lock()
	for i := 0; i < o.numWorkers; i++ {
		o.supervisor.Add(workers.NewRelayWorker(o.log.With("worker", i), o.events, o.handler))
	}
	o.supervisor.Add(o.workers...)
	o.done = make(chan struct{})
	done := o.done
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "relay_workers", o.numWorkers)
	go func() {
		defer close(done)
		o.supervisor.Run(ctx)
	}()
	return nil
}

// Stop cancels every supervised worker and waits for them to return.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()

	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
	o.log.Debug("All workers stopped", "pending_events", len(o.events))
}
