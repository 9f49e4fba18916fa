package workers

import (
	"context"
	"log/slog"
	"time"

	"officepulse/contract"
	"officepulse/domain"
)

// TypingExpiryWorker periodically asks the dispatcher to cancel stale typing indicators.
// It owns no state, the dispatcher decides what expired.
type TypingExpiryWorker struct {
	log       *slog.Logger
	submitter contract.Submitter
	interval  time.Duration
	now       func() time.Time
}

func NewTypingExpiryWorker(log *slog.Logger, submitter contract.Submitter, interval time.Duration) *TypingExpiryWorker {
	return &TypingExpiryWorker{log: log, submitter: submitter, interval: interval, now: time.Now}
}

func (w TypingExpiryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping typing expiry")
			return nil
		case <-ticker.C:
			if err := w.submitter.Submit(ctx, domain.ExpireTypingCommand{At: w.now()}); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
