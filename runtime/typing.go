package runtime

import (
	"sort"
	"time"
)

// TypingTracker keeps the typing deadline of every session currently typing.
// A zero timeout disables expiry.
type TypingTracker struct {
	timeout   time.Duration
	deadlines map[string]time.Time
}

func NewTypingTracker(timeout time.Duration) *TypingTracker {
	return &TypingTracker{timeout: timeout, deadlines: make(map[string]time.Time)}
}

// Start marks the session as typing until now+timeout. It reports whether it was already typing.
func (t *TypingTracker) Start(sessionID string, now time.Time) bool {
	_, was := t.deadlines[sessionID]
	t.deadlines[sessionID] = now.Add(t.timeout)
	return was
}

// Stop clears the session and reports whether it was typing.
func (t *TypingTracker) Stop(sessionID string) bool {
	if _, ok := t.deadlines[sessionID]; !ok {
		return false
	}
	delete(t.deadlines, sessionID)
	return true
}

func (t *TypingTracker) Active(sessionID string) bool {
	_, ok := t.deadlines[sessionID]
	return ok
}

// Expired removes and returns the sessions whose deadline is not after now, oldest deadline first.
func (t *TypingTracker) Expired(now time.Time) []string {
	if t.timeout <= 0 {
		return nil
	}
	var out []string
	for id, deadline := range t.deadlines {
		if !deadline.After(now) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := t.deadlines[out[i]], t.deadlines[out[j]]
		if di.Equal(dj) {
			return out[i] < out[j]
		}
		return di.Before(dj)
	})
	for _, id := range out {
		delete(t.deadlines, id)
	}
	return out
}
