package runtime

import (
	"log/slog"
	"time"

	"officepulse/domain"
	"officepulse/domain/event"

	"github.com/samber/lo"
)

// PresenceBroadcaster turns membership changes into the events each recipient must observe.
// Video rooms and the community scope use different event names for the same facts.
type PresenceBroadcaster struct {
	log      *slog.Logger
	registry *ConnectionRegistry
	rooms    *RoomManager
	now      func() time.Time
}

func NewPresenceBroadcaster(log *slog.Logger, registry *ConnectionRegistry, rooms *RoomManager) *PresenceBroadcaster {
	return &PresenceBroadcaster{log: log, registry: registry, rooms: rooms, now: time.Now}
}

// SendTo delivers one event to one session. A sink that refuses the event is closed,
// its disconnect then goes through the normal cleanup path.
func (p *PresenceBroadcaster) SendTo(sessionID, eventType string, payload any) bool {
	sink, ok := p.registry.Sink(sessionID)
	if !ok {
		return false
	}
	if err := sink.Send(eventType, payload); err != nil {
		p.log.Warn("Dropping connection that cannot keep up",
			"session_id", sessionID, "event", eventType, "error", err)
		_ = sink.Close()
		return false
	}
	return true
}

// Broadcast sends the event to every member of the room except the given session.
func (p *PresenceBroadcaster) Broadcast(key domain.RoomKey, eventType string, payload any, except string) int {
	sent := 0
	for _, s := range p.rooms.Members(key) {
		if s.ID == except {
			continue
		}
		if p.SendTo(s.ID, eventType, payload) {
			sent++
		}
	}
	return sent
}

// AnnounceJoin runs once the joiner is a member. existing is the membership before the join.
func (p *PresenceBroadcaster) AnnounceJoin(joiner *domain.Session, existing []*domain.Session) {
	switch joiner.Room.Namespace {
	case domain.Video:
		p.SendTo(joiner.ID, event.RoomParticipantsType, event.RoomParticipants{
			RoomID:       joiner.Room.ID,
			Participants: participants(existing),
		})
		notice := event.UserConnected{
			UserID:   joiner.UserID,
			UserName: joiner.DisplayName,
			Avatar:   joiner.Avatar,
			Color:    joiner.Color,
			JoinedAt: joiner.JoinedAt,
		}
		for _, s := range existing {
			p.SendTo(s.ID, event.UserConnectedType, notice)
		}
	case domain.Community:
		p.Broadcast(joiner.Room, event.UserJoinedType, event.UserJoined{
			User:        event.ToProfile(joiner),
			Timestamp:   event.Timestamp(p.now()),
			ActiveCount: len(existing) + 1,
		}, joiner.ID)
		p.roster(joiner.Room)
	}
}

// AnnounceLeave informs the remaining members once the departed session is out of the room.
func (p *PresenceBroadcaster) AnnounceLeave(key domain.RoomKey, departed *domain.Session, remaining []*domain.Session) {
	if len(remaining) == 0 {
		return
	}
	switch key.Namespace {
	case domain.Video:
		notice := event.UserDisconnected{UserID: departed.UserID, UserName: departed.DisplayName}
		for _, s := range remaining {
			p.SendTo(s.ID, event.UserDisconnectedType, notice)
		}
		for _, s := range remaining {
			others := lo.Filter(remaining, func(m *domain.Session, _ int) bool { return m.ID != s.ID })
			p.SendTo(s.ID, event.RoomParticipantsType, event.RoomParticipants{
				RoomID:       key.ID,
				Participants: participants(others),
			})
		}
	case domain.Community:
		notice := event.UserLeft{
			User:        event.ToProfile(departed),
			Timestamp:   event.Timestamp(p.now()),
			ActiveCount: len(remaining),
		}
		for _, s := range remaining {
			p.SendTo(s.ID, event.UserLeftType, notice)
		}
		p.roster(key)
	}
}

// Typing tells the other members that the session started or stopped typing.
func (p *PresenceBroadcaster) Typing(s *domain.Session, active bool) {
	if active {
		p.Broadcast(s.Room, event.UserTypingType, event.UserTyping{
			UserName:   s.DisplayName,
			UserAvatar: s.Avatar,
			UserColor:  s.Color,
		}, s.ID)
		return
	}
	p.Broadcast(s.Room, event.UserStopTypingType, event.UserStopTyping{UserName: s.DisplayName}, s.ID)
}

// Message delivers an accepted chat message to every member, the author included.
func (p *PresenceBroadcaster) Message(key domain.RoomKey, msg domain.ChatMessage) int {
	return p.Broadcast(key, event.NewMessageType, msg, "")
}

func (p *PresenceBroadcaster) roster(key domain.RoomKey) {
	members := p.rooms.Members(key)
	payload := event.ActiveUsers{Users: participants(members)}
	for _, s := range members {
		p.SendTo(s.ID, event.ActiveUsersType, payload)
	}
}

func participants(sessions []*domain.Session) []event.Participant {
	return lo.Map(sessions, func(s *domain.Session, _ int) event.Participant {
		return event.ToParticipant(s)
	})
}
