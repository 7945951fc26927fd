//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"wa-relay/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// MessageSink receives a copy of every message once it has been persisted.
// Sinks are best effort: their failures never reach the sender.
type MessageSink interface {
	Consume(ctx context.Context, message domain.StoredMessage) error
}

// Replier sends text back into the conversation an event came from.
type Replier interface {
	Reply(ctx context.Context, to domain.ChatEvent, text string) error
}

// EventHandler processes one inbound chat event to completion.
type EventHandler interface {
	Handle(ctx context.Context, evt domain.ChatEvent)
}
