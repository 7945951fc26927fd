package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
	"wa-relay/domain"
	"wa-relay/runtime/workers"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// recordingHandler blocks on events whose body is "slow" until released.
type recordingHandler struct {
	mu      sync.Mutex
	handled []string
	release chan struct{}
	seen    chan string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{release: make(chan struct{}), seen: make(chan string, 16)}
}

func (h *recordingHandler) Handle(ctx context.Context, evt domain.ChatEvent) {
	if evt.Body == "slow" {
		select {
		case <-h.release:
		case <-ctx.Done():
			return
		}
	}
	h.mu.Lock()
	h.handled = append(h.handled, evt.ID)
	h.mu.Unlock()
	h.seen <- evt.ID
}

func waitFor(t *testing.T, seen <-chan string, expected string) {
	t.Helper()
	select {
	case id := <-seen:
		require.Equal(t, expected, id)
	case <-time.After(2 * time.Second):
		require.Failf(t, "event not handled", "expected %s", expected)
	}
}

func TestOrchestrator_SlowEventDoesNotBlockOthers(t *testing.T) {
	defer goleak.VerifyNone(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	handler := newRecordingHandler()
	orchestrator := NewOrchestrator(log, workers.NewSupervisor(log, 0), handler, 2, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, orchestrator.Start(ctx))

	// Given a first event stuck in the completion API
	require.NoError(t, orchestrator.Submit(ctx, domain.ChatEvent{ID: "stuck", Body: "slow"}))
	// When another event arrives
	require.NoError(t, orchestrator.Submit(ctx, domain.ChatEvent{ID: "fast", Body: "hello"}))

	// Then it is handled while the first one is still pending
	waitFor(t, handler.seen, "fast")
	close(handler.release)
	waitFor(t, handler.seen, "stuck")

	orchestrator.Stop()
}

func TestOrchestrator_SubmitGivesUpWhenContextEnds(t *testing.T) {
	log := slog.Default()
	orchestrator := NewOrchestrator(log, workers.NewSupervisor(log, 0), newRecordingHandler(), 1, 1)

	// Given a full queue and no worker running
	require.NoError(t, orchestrator.Submit(context.Background(), domain.ChatEvent{ID: "1"}))
	require.Equal(t, 1, orchestrator.QueueSize())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := orchestrator.Submit(ctx, domain.ChatEvent{ID: "2"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOrchestrator_RequiresWorkers(t *testing.T) {
	log := slog.Default()
	orchestrator := NewOrchestrator(log, workers.NewSupervisor(log, 0), newRecordingHandler(), 0, 1)
	require.Error(t, orchestrator.Start(context.Background()))
}
