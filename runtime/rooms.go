package runtime

import (
	"time"

	"officepulse/domain"
	"officepulse/errors"
)

// LeaveResult describes what a Leave call changed.
type LeaveResult struct {
	Left        bool
	RoomDeleted bool
	Remaining   []*domain.Session
}

// RoomManager maps room keys to their ordered members.
// Rooms are created on first join and deleted the moment they become empty.
// It is owned by the Dispatcher and is not safe for concurrent use.
type RoomManager struct {
	registry *ConnectionRegistry
	rooms    map[domain.RoomKey]*domain.Room
	now      func() time.Time
}

func NewRoomManager(registry *ConnectionRegistry) *RoomManager {
	return &RoomManager{
		registry: registry,
		rooms:    make(map[domain.RoomKey]*domain.Room),
		now:      time.Now,
	}
}

// Join appends the session to the room and returns the members that were already there, in join order.
// An unknown room is created with the session's user as host when isHost is set.
func (m *RoomManager) Join(key domain.RoomKey, name string, session *domain.Session, isHost bool) ([]*domain.Session, error) {
	if !m.registry.Contains(session.ID) {
		return nil, errors.ErrSessionNotFound
	}
	room, ok := m.rooms[key]
	if !ok {
		hostID := ""
		if isHost {
			hostID = session.UserID
		}
		room = domain.NewRoom(key, name, hostID, m.now().UTC())
		m.rooms[key] = room
	}
	existing := m.resolve(room.Members())
	if !room.Add(session.ID) {
		return nil, errors.ErrAlreadyJoined
	}
	return existing, nil
}

// Leave removes the session from the room. Unknown rooms and non-members are ignored.
func (m *RoomManager) Leave(key domain.RoomKey, sessionID string) LeaveResult {
	room, ok := m.rooms[key]
	if !ok || !room.Remove(sessionID) {
		return LeaveResult{}
	}
	if room.Empty() {
		delete(m.rooms, key)
		return LeaveResult{Left: true, RoomDeleted: true}
	}
	return LeaveResult{Left: true, Remaining: m.resolve(room.Members())}
}

func (m *RoomManager) Get(key domain.RoomKey) (*domain.Room, bool) {
	room, ok := m.rooms[key]
	return room, ok
}

// Members returns the sessions of the room in join order, nil for an unknown room.
func (m *RoomManager) Members(key domain.RoomKey) []*domain.Session {
	room, ok := m.rooms[key]
	if !ok {
		return nil
	}
	return m.resolve(room.Members())
}

func (m *RoomManager) Contains(key domain.RoomKey, sessionID string) bool {
	room, ok := m.rooms[key]
	return ok && room.Contains(sessionID)
}

// FindByUserID returns the first member, in join order, whose user id matches.
func (m *RoomManager) FindByUserID(key domain.RoomKey, userID string) (*domain.Session, bool) {
	for _, s := range m.Members(key) {
		if s.UserID == userID {
			return s, true
		}
	}
	return nil, false
}

func (m *RoomManager) Len() int {
	return len(m.rooms)
}

// CountByNamespace returns how many rooms each namespace holds.
func (m *RoomManager) CountByNamespace() map[domain.Namespace]int {
	out := make(map[domain.Namespace]int)
	for key := range m.rooms {
		out[key.Namespace]++
	}
	return out
}

func (m *RoomManager) resolve(ids []string) []*domain.Session {
	out := make([]*domain.Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.registry.Get(id); ok {
			out = append(out, s)
		}
	}
	return out
}
