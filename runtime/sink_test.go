package runtime

import (
	"encoding/json"
	"sync"

	"officepulse/errors"
)

type sent struct {
	Type    string
	Payload any
}

// recordingSink keeps every event it receives. A full sink refuses events like a slow connection.
type recordingSink struct {
	mu     sync.Mutex
	id     string
	events []sent
	full   bool
	closed bool
}

func newSink(id string) *recordingSink {
	return &recordingSink{id: id}
}

func (s *recordingSink) ID() string { return s.id }

func (s *recordingSink) Send(eventType string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return errors.ErrSlowConsumer
	}
	s.events = append(s.events, sent{Type: eventType, Payload: payload})
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) Events() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sent, len(s.events))
	copy(out, s.events)
	return out
}

// Of returns the payloads of the given event type, in arrival order.
func (s *recordingSink) Of(eventType string) []any {
	var out []any
	for _, e := range s.Events() {
		if e.Type == eventType {
			out = append(out, e.Payload)
		}
	}
	return out
}

func (s *recordingSink) Types() []string {
	var out []string
	for _, e := range s.Events() {
		out = append(out, e.Type)
	}
	return out
}

func (s *recordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *recordingSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func raw(v string) json.RawMessage {
	return json.RawMessage(v)
}
