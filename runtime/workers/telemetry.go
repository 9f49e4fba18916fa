package workers

import (
	"context"
	"log/slog"
	"time"

	"officepulse/contract"
	"officepulse/observability"

	"github.com/samber/lo"
)

// ProcessSampler reports figures about the running process.
type ProcessSampler interface {
	Sample() (observability.ProcessStats, error)
}

// TelemetryWorker logs a periodic summary of the live registries and of the process itself.
type TelemetryWorker struct {
	log      *slog.Logger
	stats    contract.StatsProvider
	sampler  ProcessSampler
	interval time.Duration
}

// NewTelemetryWorker accepts a nil sampler, the summary then carries registry counts only.
func NewTelemetryWorker(log *slog.Logger, stats contract.StatsProvider, sampler ProcessSampler, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, stats: stats, sampler: sampler, interval: interval}
}

func (w TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Report(ctx)
		}
	}
}

// Report logs one summary line and returns its attributes.
func (w TelemetryWorker) Report(ctx context.Context) []any {
	statsCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()
	stats, err := w.stats.Stats(statsCtx)
	if err != nil {
		w.log.Warn("Registry stats unavailable", "error", err)
		return nil
	}

	attrs := []any{
		"sessions", lo.Sum(lo.Values(stats.Sessions)),
		"rooms", lo.Sum(lo.Values(stats.Rooms)),
		"pending_commands", stats.Pending,
	}
	if w.sampler != nil {
		if p, err := w.sampler.Sample(); err != nil {
			w.log.Debug("Failed to collect self stats", "error", err)
		} else {
			attrs = append(attrs, "rss_bytes", p.RSSBytes, "cpu_percent", p.CPUPercent, "goroutines", p.Goroutines)
		}
	}
	w.log.Info("Telemetry", attrs...)
	return attrs
}
