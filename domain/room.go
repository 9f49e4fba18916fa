package domain

import "time"

// Room is a named group of sessions. Members keep their insertion order.
type Room struct {
	Key       RoomKey
	Name      string
	CreatedAt time.Time
	HostID    string
	members   []string
	index     map[string]struct{}
}

func NewRoom(key RoomKey, name string, hostID string, at time.Time) *Room {
	if name == "" {
		name = key.ID
	}
	return &Room{
		Key:       key,
		Name:      name,
		CreatedAt: at,
		HostID:    hostID,
		index:     make(map[string]struct{}),
	}
}

// Add appends the session id, returns false when it is already a member.
func (r *Room) Add(sessionID string) bool {
	if _, ok := r.index[sessionID]; ok {
		return false
	}
	r.index[sessionID] = struct{}{}
	r.members = append(r.members, sessionID)
	return true
}

// Remove deletes the session id, returns false when it was not a member.
func (r *Room) Remove(sessionID string) bool {
	if _, ok := r.index[sessionID]; !ok {
		return false
	}
	delete(r.index, sessionID)
	for i, id := range r.members {
		if id == sessionID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	return true
}

func (r *Room) Contains(sessionID string) bool {
	_, ok := r.index[sessionID]
	return ok
}

// Members returns a copy of the member ids in join order.
func (r *Room) Members() []string {
	return append([]string(nil), r.members...)
}

func (r *Room) Len() int {
	return len(r.members)
}

func (r *Room) Empty() bool {
	return len(r.members) == 0
}
