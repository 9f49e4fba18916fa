// Package runtime owns the live state of the presence server: connections, rooms,
// chat windows and typing indicators, all mutated by a single dispatch loop.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"officepulse/contract"
	"officepulse/domain"
	"officepulse/observability"
	"officepulse/runtime/workers"
)

type OrchestratorConfig struct {
	TypingSweepInterval  time.Duration
	MetricInterval       time.Duration
	LowCapacityThreshold int
	AssistantWorkers     int
	AssistantQueueSize   int
	AssistantTimeout     time.Duration
	ArchiveBufferSize    int
	TelemetryInterval    time.Duration
}

// Orchestrator wires the dispatcher and its background workers under one supervisor.
type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	cfg        OrchestratorConfig
	dispatcher *Dispatcher
	supervisor contract.ISupervisor
	archive    contract.HistoryArchive
	completer  contract.Completer
	sampler    *observability.ProcessSampler
}

// NewOrchestrator accepts a nil archive (no persistence) and a nil completer (canned assistant replies only).
func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, dispatcher *Dispatcher,
	archive contract.HistoryArchive, completer contract.Completer, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		log:        log,
		cfg:        cfg,
		dispatcher: dispatcher,
		supervisor: supervisor,
		archive:    archive,
		completer:  completer,
	}
}

// WithSampler adds process figures to the telemetry summary.
func (o *Orchestrator) WithSampler(sampler *observability.ProcessSampler) *Orchestrator {
	o.sampler = sampler
	return o
}

// Restore loads the persisted window of the community scope into the dispatcher.
// It must run before Start.
func (o *Orchestrator) Restore() error {
	if o.archive == nil {
		return nil
	}
	scope := o.dispatcher.CommunityScope()
	msgs, err := o.archive.Recent(scope, o.dispatcher.cfg.HistoryCapacity)
	if err != nil {
		return err
	}
	o.dispatcher.RestoreHistory(scope, msgs)
	o.log.Info("Chat history restored", "scope", scope, "messages", len(msgs))
	return nil
}

// Start registers every worker then blocks in the supervisor until ctx is cancelled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.Restore(); err != nil {
		return err
	}

	o.mu.Lock()
	channels := []workers.NamedChannel{{Name: "commands", Channel: o.dispatcher.Commands()}}
	all := []contract.Worker{o.dispatcher}

	if o.cfg.TypingSweepInterval > 0 {
		all = append(all, workers.NewTypingExpiryWorker(o.log, o.dispatcher, o.cfg.TypingSweepInterval))
	}
	if o.archive != nil {
		archived := make(chan domain.ScopedMessage, o.cfg.ArchiveBufferSize)
		o.dispatcher.WithArchive(archived)
		all = append(all, workers.NewArchiveWorker(o.log, o.archive, archived, o.dispatcher.cfg.HistoryCapacity))
		channels = append(channels, workers.NamedChannel{Name: "archive", Channel: archived})
	}
	if o.completer != nil {
		requests := make(chan domain.AssistantRequest, o.cfg.AssistantQueueSize)
		o.dispatcher.WithAssistant(requests)
		for i := 0; i < max(o.cfg.AssistantWorkers, 1); i++ {
			all = append(all, workers.NewAssistantWorker(o.log, o.completer, requests, o.dispatcher, o.cfg.AssistantTimeout))
		}
		channels = append(channels, workers.NamedChannel{Name: "assistant", Channel: requests})
	}
	if o.cfg.TelemetryInterval > 0 {
		var sampler workers.ProcessSampler
		if o.sampler != nil {
			sampler = o.sampler
		}
		all = append(all, workers.NewTelemetryWorker(o.log, o.dispatcher, sampler, o.cfg.TelemetryInterval))
	}
	if o.cfg.MetricInterval > 0 {
		all = append(all, workers.NewChannelCapacityWorker(o.log, channels, o.cfg.MetricInterval, o.cfg.LowCapacityThreshold))
	}
	o.supervisor.Add(all...)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "workers", len(all))
	o.supervisor.Run(ctx)
	return nil
}

func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
