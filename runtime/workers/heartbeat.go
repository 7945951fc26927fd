package workers

import (
	"context"
	"log/slog"
	"os"
	"time"
	"wa-relay/contract"
	"wa-relay/observability"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*HeartbeatWorker)(nil)

type HeartbeatWorker struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	interval   time.Duration
}

func NewHeartbeatWorker(
	log *slog.Logger,
	monitoring *observability.MonitoringManager,
	interval time.Duration,
) *HeartbeatWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &HeartbeatWorker{
		log:        log,
		monitoring: monitoring,
		interval:   interval,
	}
}

// Run logs relay counters together with process health (CPU, RAM, Status) on every tick.
func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := w.monitoring.GetLatest()
			attrs := []any{
				"received", stats.Received,
				"ignored", stats.Ignored,
				"stored", stats.Stored,
				"store_failures", stats.StoreFailures,
				"sink_failures", stats.SinkFailures,
				"completions", stats.Completions,
				"completion_failures", stats.CompletionFailures,
				"replies", stats.Replies,
				"reply_failures", stats.ReplyFailures,
				"queue_size", stats.QueueSize,
				"alloc_mem_mb", stats.AllocMemMb,
				"num_gc", stats.NumGC,
				"uptime", stats.Uptime.Round(time.Second),
			}

			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Warn("Failed to collect self stats", "error", err)
			} else {
				attrs = append(attrs, "rss_bytes", rss, "cpu_percent", cpu, "pid_status", status)
			}
			w.log.Info("Heartbeat", attrs...)
		}
	}
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
