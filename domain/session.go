package domain

import "time"

type Role string

const (
	RoleParticipant Role = "participant"
	RoleHost        Role = "host"
)

// SessionState follows Connected -> Joined -> Left. Left is terminal.
type SessionState int

const (
	Connected SessionState = iota
	Joined
	Left
)

func (s SessionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Joined:
		return "joined"
	case Left:
		return "left"
	}
	return "unknown"
}

// Session is the server-side record of one live connection plus the identity attached to it.
// A new physical connection always gets a new Session, even for the same user.
type Session struct {
	ID          string
	Namespace   Namespace
	UserID      string
	DisplayName string
	Email       string
	Avatar      string
	Color       string
	JoinedAt    time.Time
	Role        Role
	State       SessionState
	Room        RoomKey
}

func NewSession(id string, ns Namespace, at time.Time) *Session {
	return &Session{
		ID:        id,
		Namespace: ns,
		JoinedAt:  at,
		Role:      RoleParticipant,
		State:     Connected,
	}
}

// HasIdentity reports whether a join already attached a user to the session.
func (s *Session) HasIdentity() bool {
	return s.UserID != "" && s.Email != ""
}
