package workers

import (
	"context"
	"log/slog"

	"officepulse/contract"
	"officepulse/domain"
)

const pruneEvery = 20

// ArchiveWorker persists accepted chat messages and trims the store back to the window size.
// Failures are logged, the in-memory window stays authoritative.
type ArchiveWorker struct {
	log      *slog.Logger
	archive  contract.HistoryArchive
	messages <-chan domain.ScopedMessage
	keep     int
	stored   map[string]int
}

func NewArchiveWorker(log *slog.Logger, archive contract.HistoryArchive,
	messages <-chan domain.ScopedMessage, keep int) *ArchiveWorker {
	if keep <= 0 {
		keep = domain.DefaultHistoryCapacity
	}
	return &ArchiveWorker{
		log:      log,
		archive:  archive,
		messages: messages,
		keep:     keep,
		stored:   make(map[string]int),
	}
}

func (w *ArchiveWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping archive worker")
			return nil
		case m, ok := <-w.messages:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.store(m)
		}
	}
}

func (w *ArchiveWorker) store(m domain.ScopedMessage) {
	if err := w.archive.Store(m.Scope, m.Message); err != nil {
		w.log.Error("Unable to archive message", "scope", m.Scope, "message_id", m.Message.ID, "error", err)
		return
	}
	w.stored[m.Scope]++
	if w.stored[m.Scope]%pruneEvery != 0 {
		return
	}
	removed, err := w.archive.Prune(m.Scope, w.keep)
	if err != nil {
		w.log.Error("Unable to prune archive", "scope", m.Scope, "error", err)
		return
	}
	if removed > 0 {
		w.log.Debug("Archive pruned", "scope", m.Scope, "removed", removed)
	}
}
