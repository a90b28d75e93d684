package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*HeartbeatWorker)(nil)

// HeartbeatWorker periodically logs the health of the relay process.
// It only reads atomics and thread-safe counters, never the registries.
type HeartbeatWorker struct {
	log      *slog.Logger
	interval time.Duration
	queue    contract.IInboundQueue
	gauges   *Gauges
	counter  *event.Counter
}

func NewHeartbeatWorker(
	log *slog.Logger,
	interval time.Duration,
	queue contract.IInboundQueue,
	gauges *Gauges,
	counter *event.Counter,
) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:      log,
		interval: interval,
		queue:    queue,
		gauges:   gauges,
		counter:  counter,
	}
}

// Run logs CPU, RAM, status and relay gauges every interval.
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
			return nil
		case <-ticker.C:
			w.beat(p)
		}
	}
}

func (w *HeartbeatWorker) beat(p *process.Process) {
	attrs := []any{
		"queue", w.queue.Len(),
		"sessions", w.gauges.Sessions(),
		"conversations", w.gauges.Conversations(),
	}
	for t, n := range w.counter.Snapshot() {
		attrs = append(attrs, string(t), n)
	}
	rss, cpu, status, err := getSelfStats(p)
	if err != nil {
		w.log.Warn("Failed to collect self stats", "err", err)
	} else {
		attrs = append(attrs, "rss_bytes", rss, "cpu_percent", cpu, "status", status)
	}
	w.log.Info("Heartbeat", attrs...)
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
