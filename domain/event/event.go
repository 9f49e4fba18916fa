// Package event lists every server-to-client event of the presence core and its payload.
package event

import (
	"encoding/json"
	"time"

	"officepulse/domain"

	"github.com/pion/webrtc/v4"
)

const (
	RoomParticipantsType = "room-participants"
	UserConnectedType    = "user-connected"
	UserDisconnectedType = "user-disconnected"
	IceServersType       = "ice-servers"

	ActiveUsersType    = "active-users"
	UserJoinedType     = "user-joined"
	UserLeftType       = "user-left"
	NewMessageType     = "new-message"
	MessageHistoryType = "message-history"
	UserTypingType     = "user-typing"
	UserStopTypingType = "user-stop-typing"

	BotMessageType = "bot-message"

	WarningType = "warning"
	ErrorType   = "error"
)

// Inbound event names.
const (
	JoinRoomEvent      = "join-room"
	LeaveRoomEvent     = "leave-room"
	JoinCommunityEvent = "join-community"
	SendMessageEvent   = "send-message"
	TypingStartEvent   = "typing-start"
	TypingStopEvent    = "typing-stop"
	UserMessageEvent   = "user-message"
	TypingEvent        = "typing"
	StopTypingEvent    = "stop-typing"
	OfferEvent         = "offer"
	AnswerEvent        = "answer"
	IceCandidateEvent  = "ice-candidate"
)

// Event is the outbound frame written on the socket.
type Event struct {
	Type      string    `json:"event"`
	Payload   any       `json:"data"`
	CreatedAt time.Time `json:"-"`
}

// Frame is the inbound frame read from the socket. Data is decoded per event name.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Participant is the display identity of a member. It never carries the e-mail.
type Participant struct {
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	Avatar   string    `json:"avatar"`
	Color    string    `json:"color"`
	IsHost   bool      `json:"isHost,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

func ToParticipant(s *domain.Session) Participant {
	return Participant{
		UserID:   s.UserID,
		UserName: s.DisplayName,
		Avatar:   s.Avatar,
		Color:    s.Color,
		IsHost:   s.Role == domain.RoleHost,
		JoinedAt: s.JoinedAt,
	}
}

type RoomParticipants struct {
	RoomID       string        `json:"roomId"`
	Participants []Participant `json:"participants"`
}

type UserConnected struct {
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	Avatar   string    `json:"avatar"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joinedAt"`
}

type UserDisconnected struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type IceServers struct {
	IceServers []webrtc.ICEServer `json:"iceServers"`
}

// Signal is what the relay target receives for offer, answer and ice-candidate.
type Signal struct {
	FromUserID   string          `json:"fromUserId"`
	FromUserName string          `json:"fromUserName"`
	Payload      json.RawMessage `json:"payload"`
}

type ActiveUsers struct {
	Users []Participant `json:"users"`
}

// Profile is the subset of a participant announced on join and leave.
type Profile struct {
	Avatar string `json:"avatar"`
	Color  string `json:"color"`
	Name   string `json:"name"`
}

func ToProfile(s *domain.Session) Profile {
	return Profile{Avatar: s.Avatar, Color: s.Color, Name: s.DisplayName}
}

type UserJoined struct {
	User        Profile `json:"user"`
	Timestamp   string  `json:"timestamp"`
	ActiveCount int     `json:"activeCount"`
}

type UserLeft struct {
	User        Profile `json:"user"`
	Timestamp   string  `json:"timestamp"`
	ActiveCount int     `json:"activeCount"`
}

type MessageHistory struct {
	Messages []domain.ChatMessage `json:"messages"`
}

type UserTyping struct {
	UserName   string `json:"userName"`
	UserAvatar string `json:"userAvatar"`
	UserColor  string `json:"userColor"`
}

type UserStopTyping struct {
	UserName string `json:"userName"`
}

type BotMessage struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Notice is the payload of warning and error events.
type Notice struct {
	Message string `json:"message"`
}

// Timestamp formats t the way every event payload carries time.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
