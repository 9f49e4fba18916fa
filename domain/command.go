package domain

import (
	"encoding/json"
	"time"
)

// Sink receives the outbound events of one connection. Send must not block.
type Sink interface {
	ID() string
	Send(eventType string, payload any) error
	Close() error
}

// Command is one inbound intent, processed by the dispatcher in arrival order.
type Command interface {
	SessionID() string
}

type ConnectCommand struct {
	Session   string
	Namespace Namespace
	Sink      Sink
}

func (c ConnectCommand) SessionID() string { return c.Session }

type JoinRoomCommand struct {
	Session   string
	RoomID    string
	RoomName  string
	UserID    string
	UserName  string
	UserEmail string
	IsHost    bool
}

func (c JoinRoomCommand) SessionID() string { return c.Session }

type JoinCommunityCommand struct {
	Session   string
	UserID    string
	UserName  string
	UserEmail string
}

func (c JoinCommunityCommand) SessionID() string { return c.Session }

type LeaveRoomCommand struct {
	Session string
}

func (c LeaveRoomCommand) SessionID() string { return c.Session }

type DisconnectCommand struct {
	Session string
	Reason  string
}

func (c DisconnectCommand) SessionID() string { return c.Session }

type SignalCommand struct {
	Session      string
	Type         SignalType
	TargetUserID string
	Payload      json.RawMessage
}

func (c SignalCommand) SessionID() string { return c.Session }

type SendMessageCommand struct {
	Session string
	Text    string
}

func (c SendMessageCommand) SessionID() string { return c.Session }

type TypingCommand struct {
	Session string
	Active  bool
}

func (c TypingCommand) SessionID() string { return c.Session }

// ExpireTypingCommand is produced by the server itself, it belongs to no session.
type ExpireTypingCommand struct {
	At time.Time
}

func (c ExpireTypingCommand) SessionID() string { return "" }

type AskAssistantCommand struct {
	Session string
	UserID  string
	Prompt  string
}

func (c AskAssistantCommand) SessionID() string { return c.Session }

// DeliverCompletionCommand carries an assistant answer back into the dispatch loop.
type DeliverCompletionCommand struct {
	Session string
	Text    string
}

func (c DeliverCompletionCommand) SessionID() string { return c.Session }

type StatsQueryCommand struct {
	Reply chan<- Stats
}

func (c StatsQueryCommand) SessionID() string { return "" }

// AssistantRequest is handed to the assistant workers outside the dispatch loop.
type AssistantRequest struct {
	Session string
	UserID  string
	Prompt  string
}

// Stats is a point-in-time view of the registries.
type Stats struct {
	Sessions     map[Namespace]int `json:"sessions"`
	Rooms        map[Namespace]int `json:"rooms"`
	HistoryDepth map[string]int    `json:"historyDepth"`
	Pending      int               `json:"pendingCommands"`
}
