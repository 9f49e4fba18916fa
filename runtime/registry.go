package runtime

import (
	"strings"
	"time"

	"officepulse/contract"
	"officepulse/domain"
	"officepulse/errors"
)

type entry struct {
	session *domain.Session
	sink    contract.EventSink
}

// ConnectionRegistry maps a live connection to its session and outbound sink.
// It is owned by the Dispatcher and is not safe for concurrent use.
type ConnectionRegistry struct {
	sessions map[string]entry
	now      func() time.Time
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		sessions: make(map[string]entry),
		now:      time.Now,
	}
}

// Register creates the session of a new connection. The session id is the connection id.
// Registering an id twice returns the existing session.
func (r *ConnectionRegistry) Register(connectionID string, ns domain.Namespace, sink contract.EventSink) *domain.Session {
	if e, ok := r.sessions[connectionID]; ok {
		return e.session
	}
	s := domain.NewSession(connectionID, ns, r.now().UTC())
	r.sessions[connectionID] = entry{session: s, sink: sink}
	return s
}

// AttachIdentity sets the user fields of a session. Nothing is mutated when validation fails.
func (r *ConnectionRegistry) AttachIdentity(sessionID, userID, email, displayName string) error {
	e, ok := r.sessions[sessionID]
	if !ok {
		return errors.ErrSessionNotFound
	}
	userID = strings.TrimSpace(userID)
	email = strings.TrimSpace(email)
	if userID == "" || email == "" {
		return errors.ErrInvalidUserData
	}
	// the e-mail never leaves the server, the initials stand in for a missing name
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName = domain.Avatar(email)
	}
	e.session.UserID = userID
	e.session.Email = email
	e.session.DisplayName = displayName
	e.session.Avatar = domain.Avatar(email)
	e.session.Color = domain.Color(email)
	return nil
}

// Remove forgets the session. Removing an unknown id is a no-op.
func (r *ConnectionRegistry) Remove(sessionID string) bool {
	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	return true
}

func (r *ConnectionRegistry) Get(sessionID string) (*domain.Session, bool) {
	e, ok := r.sessions[sessionID]
	return e.session, ok
}

func (r *ConnectionRegistry) Sink(sessionID string) (contract.EventSink, bool) {
	e, ok := r.sessions[sessionID]
	if !ok || e.sink == nil {
		return nil, false
	}
	return e.sink, true
}

func (r *ConnectionRegistry) Contains(sessionID string) bool {
	_, ok := r.sessions[sessionID]
	return ok
}

func (r *ConnectionRegistry) Len() int {
	return len(r.sessions)
}

// CountByNamespace returns how many live sessions each namespace holds.
func (r *ConnectionRegistry) CountByNamespace() map[domain.Namespace]int {
	out := make(map[domain.Namespace]int)
	for _, e := range r.sessions {
		out[e.session.Namespace]++
	}
	return out
}
