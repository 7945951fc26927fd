package workers

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
	"wa-relay/observability"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestHeartbeatWorker_LogsCounters(t *testing.T) {
	defer goleak.VerifyNone(t)
	req := require.New(t)

	out := &lockedBuffer{}
	log := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	monitoring := observability.NewMonitoringManager()
	monitoring.IncrReceived()
	monitoring.IncrStored()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewHeartbeatWorker(log, monitoring, 10*time.Millisecond).Run(ctx) }()

	req.Eventually(func() bool {
		return strings.Contains(out.String(), "msg=Heartbeat")
	}, time.Second, 5*time.Millisecond)
	cancel()

	req.ErrorIs(<-done, context.Canceled)
	req.Contains(out.String(), "received=1")
	req.Contains(out.String(), "stored=1")
}
