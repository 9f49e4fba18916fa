package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kinds. Every error raised by the presence core wraps exactly one of them.
var (
	ErrValidation    = fmt.Errorf("validation error")
	ErrNotFound      = fmt.Errorf("not found")
	ErrContentPolicy = fmt.Errorf("content policy")
	ErrInternal      = fmt.Errorf("internal error")
)

var (
	ErrWorkerPanic  = fmt.Errorf("worker panic")
	ErrEmptyWords   = fmt.Errorf("no words have been found")
	ErrSlowConsumer = fmt.Errorf("connection send buffer is full")

	ErrInvalidUserData   = fmt.Errorf("%w: Invalid user data", ErrValidation)
	ErrInvalidRoomData   = fmt.Errorf("%w: Invalid room or user data", ErrValidation)
	ErrNotInRoom         = fmt.Errorf("%w: Not in a room", ErrValidation)
	ErrNotAuthenticated  = fmt.Errorf("%w: User not authenticated", ErrValidation)
	ErrAlreadyJoined     = fmt.Errorf("%w: Already joined", ErrValidation)
	ErrSessionLeft       = fmt.Errorf("%w: Session has left, reconnect to join again", ErrValidation)
	ErrUnknownEvent      = fmt.Errorf("%w: Unknown event", ErrValidation)
	ErrMalformedPayload  = fmt.Errorf("%w: Malformed payload", ErrValidation)
	ErrIdentityMismatch  = fmt.Errorf("%w: User does not match token", ErrValidation)
	ErrInvalidSignalType = fmt.Errorf("%w: Unknown signaling type", ErrValidation)

	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrSignalTarget    = fmt.Errorf("%w: signaling target", ErrNotFound)

	ErrEmptyMessage   = fmt.Errorf("%w: Message cannot be empty", ErrContentPolicy)
	ErrMessageTooLong = fmt.Errorf("%w: Message too long", ErrContentPolicy)
	ErrOffTopic       = fmt.Errorf("%w: Please keep conversations related to OfficePulse, business, or workplace topics.", ErrContentPolicy)

	ErrAssistantUnavailable = fmt.Errorf("assistant service unavailable")
	ErrAssistantEmpty       = fmt.Errorf("no response content received from assistant")
	ErrAssistantAuth        = fmt.Errorf("assistant rejected the API key")
	ErrAssistantRateLimit   = fmt.Errorf("assistant rate limit reached")
	ErrMissingToken         = fmt.Errorf("missing auth token")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// New is a thin alias so callers never need the standard package alongside this one.
func New(text string) error {
	return stderrors.New(text)
}

// Kind returns the taxonomy member err belongs to, ErrInternal when it belongs to none.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrContentPolicy} {
		if stderrors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// Reason strips the kind prefix and returns the human-readable part sent to clients.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	kind := Kind(err)
	if kind == ErrInternal {
		return "Internal server error"
	}
	msg := err.Error()
	prefix := kind.Error() + ": "
	if i := strings.LastIndex(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
