package workers

import (
	"context"
	"log/slog"
	"net"
	"time"

	"officepulse/contract"
	"officepulse/domain"
	"officepulse/errors"
)

const DefaultAssistantTimeout = 30 * time.Second

// AssistantWorker calls the completion service outside the dispatch loop.
// Every request gets exactly one answer back, a canned reply when the service fails.
type AssistantWorker struct {
	log       *slog.Logger
	completer contract.Completer
	requests  <-chan domain.AssistantRequest
	submitter contract.Submitter
	timeout   time.Duration
}

func NewAssistantWorker(log *slog.Logger, completer contract.Completer,
	requests <-chan domain.AssistantRequest, submitter contract.Submitter, timeout time.Duration) *AssistantWorker {
	if timeout <= 0 {
		timeout = DefaultAssistantTimeout
	}
	return &AssistantWorker{
		log:       log,
		completer: completer,
		requests:  requests,
		submitter: submitter,
		timeout:   timeout,
	}
}

func (w AssistantWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping assistant worker")
			return nil
		case req, ok := <-w.requests:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			answer := w.answer(ctx, req)
			err := w.submitter.Submit(ctx, domain.DeliverCompletionCommand{Session: req.Session, Text: answer})
			if err != nil {
				return nil
			}
		}
	}
}

func (w AssistantWorker) answer(ctx context.Context, req domain.AssistantRequest) string {
	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	text, err := w.completer.Complete(callCtx, req.Prompt)
	if err != nil {
		w.log.Warn("Assistant completion failed",
			"session_id", req.Session, "user_id", req.UserID, "error", err)
		return FallbackReply(err)
	}
	w.log.Debug("Assistant completion", "session_id", req.Session, "latency_ms", time.Since(start).Milliseconds())
	return text
}

// FallbackReply picks the canned answer matching a completion failure.
func FallbackReply(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, errors.ErrAssistantAuth):
		return domain.AuthFailureReply
	case errors.Is(err, errors.ErrAssistantRateLimit):
		return domain.RateLimitReply
	case errors.As(err, &netErr):
		return domain.NetworkReply
	}
	return domain.FallbackReply
}
