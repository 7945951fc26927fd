package observability

import (
	"runtime"
	"sync/atomic"
	"time"
)

// MonitoringStats is a point-in-time copy of the relay counters.
type MonitoringStats struct {
	Received           uint64        `json:"received"`
	Ignored            uint64        `json:"ignored"`
	Stored             uint64        `json:"stored"`
	StoreFailures      uint64        `json:"store_failures"`
	SinkFailures       uint64        `json:"sink_failures"`
	Completions        uint64        `json:"completions"`
	CompletionFailures uint64        `json:"completion_failures"`
	Replies            uint64        `json:"replies"`
	ReplyFailures      uint64        `json:"reply_failures"`
	QueueSize          int           `json:"queue_size"`
	AllocMemMb         uint64        `json:"alloc_mem_mb"`
	NumGC              uint32        `json:"num_gc"`
	Uptime             time.Duration `json:"uptime"`
}

// MonitoringManager aggregates relay counters.
// Every method is safe for concurrent use by the relay workers.
type MonitoringManager struct {
	startedAt time.Time
	queueSize func() int

	received           atomic.Uint64
	ignored            atomic.Uint64
	stored             atomic.Uint64
	storeFailures      atomic.Uint64
	sinkFailures       atomic.Uint64
	completions        atomic.Uint64
	completionFailures atomic.Uint64
	replies            atomic.Uint64
	replyFailures      atomic.Uint64
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{startedAt: time.Now()}
}

// TrackQueue registers a probe returning the number of pending events.
func (mm *MonitoringManager) TrackQueue(probe func() int) {
	mm.queueSize = probe
}

func (mm *MonitoringManager) IncrReceived() { mm.received.Add(1) }
func (mm *MonitoringManager) IncrIgnored() { mm.ignored.Add(1) }
func (mm *MonitoringManager) IncrStored() { mm.stored.Add(1) }
func (mm *MonitoringManager) IncrStoreFailures() { mm.storeFailures.Add(1) }
func (mm *MonitoringManager) IncrSinkFailures() { mm.sinkFailures.Add(1) }
func (mm *MonitoringManager) IncrCompletions() { mm.completions.Add(1) }
func (mm *MonitoringManager) IncrCompletionFailures() { mm.completionFailures.Add(1) }
func (mm *MonitoringManager) IncrReplies() { mm.replies.Add(1) }
func (mm *MonitoringManager) IncrReplyFailures() { mm.replyFailures.Add(1) }

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	stats := MonitoringStats{
		Received:           mm.received.Load(),
		Ignored:            mm.ignored.Load(),
		Stored:             mm.stored.Load(),
		StoreFailures:      mm.storeFailures.Load(),
		SinkFailures:       mm.sinkFailures.Load(),
		Completions:        mm.completions.Load(),
		CompletionFailures: mm.completionFailures.Load(),
		Replies:            mm.replies.Load(),
		ReplyFailures:      mm.replyFailures.Load(),
		Uptime:             time.Since(mm.startedAt),
	}
	if mm.queueSize != nil {
		stats.QueueSize = mm.queueSize()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.AllocMemMb = m.Alloc / 1024 / 1024
	stats.NumGC = m.NumGC
	return stats
}
