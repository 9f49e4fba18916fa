package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"officepulse/auth"
	"officepulse/contract"
	"officepulse/domain"
	"officepulse/domain/event"
	"officepulse/errors"
)

// Caller identifies the connection a frame came from.
// UserID is the authenticated user when tokens are enforced, empty otherwise.
type Caller struct {
	SessionID string
	Namespace domain.Namespace
	UserID    string
}

type ISocketService interface {
	Connect(ctx context.Context, caller Caller, sink contract.EventSink) error
	Handle(ctx context.Context, caller Caller, frame event.Frame) error
	Disconnect(ctx context.Context, caller Caller, reason string) error
}

// SocketService translates inbound frames into dispatcher commands.
// It holds no state, every decision about rooms and sessions is taken by the dispatcher.
type SocketService struct {
	log       *slog.Logger
	submitter contract.Submitter
}

func NewSocketService(log *slog.Logger, submitter contract.Submitter) *SocketService {
	return &SocketService{log: log, submitter: submitter}
}

func (s *SocketService) Connect(ctx context.Context, caller Caller, sink contract.EventSink) error {
	return s.submitter.Submit(ctx, domain.ConnectCommand{Session: caller.SessionID, Namespace: caller.Namespace, Sink: sink})
}

func (s *SocketService) Disconnect(ctx context.Context, caller Caller, reason string) error {
	return s.submitter.Submit(ctx, domain.DisconnectCommand{Session: caller.SessionID, Reason: reason})
}

// Handle validates one frame and submits the matching command.
// The returned error, if any, is meant for the sender only.
func (s *SocketService) Handle(ctx context.Context, caller Caller, frame event.Frame) error {
	cmd, err := s.command(caller, frame)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}
	return s.submitter.Submit(ctx, cmd)
}

func (s *SocketService) command(caller Caller, frame event.Frame) (domain.Command, error) {
	switch caller.Namespace {
	case domain.Video:
		return s.videoCommand(caller, frame)
	case domain.Community:
		return s.communityCommand(caller, frame)
	case domain.Assistant:
		return s.assistantCommand(caller, frame)
	}
	return nil, fmt.Errorf("%w: namespace %q", errors.ErrUnknownEvent, caller.Namespace)
}

func (s *SocketService) videoCommand(caller Caller, frame event.Frame) (domain.Command, error) {
	switch frame.Event {
	case event.JoinRoomEvent:
		req, err := decode[auth.JoinRoomRequest](frame.Data)
		if err != nil {
			return nil, errors.ErrInvalidRoomData
		}
		if err := auth.ValidateJoinRoom(req); err != nil {
			return nil, err
		}
		if err := checkIdentity(caller, req.UserID); err != nil {
			return nil, err
		}
		return domain.JoinRoomCommand{
			Session:   caller.SessionID,
			RoomID:    req.RoomID,
			RoomName:  req.RoomName,
			UserID:    req.UserID,
			UserName:  req.UserName,
			UserEmail: req.UserEmail,
			IsHost:    req.IsHost,
		}, nil
	case event.LeaveRoomEvent:
		return domain.LeaveRoomCommand{Session: caller.SessionID}, nil
	case event.OfferEvent, event.AnswerEvent, event.IceCandidateEvent:
		t, err := domain.ParseSignalType(frame.Event)
		if err != nil {
			return nil, err
		}
		req, err := decode[auth.SignalRequest](frame.Data)
		if err != nil {
			return nil, err
		}
		if err := auth.ValidateSignal(req); err != nil {
			return nil, err
		}
		return domain.SignalCommand{
			Session:      caller.SessionID,
			Type:         t,
			TargetUserID: req.TargetUserID,
			Payload:      req.Body(),
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Event)
}

func (s *SocketService) communityCommand(caller Caller, frame event.Frame) (domain.Command, error) {
	switch frame.Event {
	case event.JoinCommunityEvent:
		req, err := decode[auth.JoinCommunityRequest](frame.Data)
		if err != nil {
			return nil, errors.ErrInvalidUserData
		}
		if err := auth.ValidateJoinCommunity(req); err != nil {
			return nil, err
		}
		if err := checkIdentity(caller, req.UserID); err != nil {
			return nil, err
		}
		return domain.JoinCommunityCommand{
			Session:   caller.SessionID,
			UserID:    req.UserID,
			UserName:  req.UserName,
			UserEmail: req.UserEmail,
		}, nil
	case event.SendMessageEvent:
		req, err := decode[auth.SendMessageRequest](frame.Data)
		if err != nil {
			return nil, err
		}
		return domain.SendMessageCommand{Session: caller.SessionID, Text: req.Body()}, nil
	case event.TypingStartEvent:
		return domain.TypingCommand{Session: caller.SessionID, Active: true}, nil
	case event.TypingStopEvent:
		return domain.TypingCommand{Session: caller.SessionID, Active: false}, nil
	case event.LeaveRoomEvent:
		return domain.LeaveRoomCommand{Session: caller.SessionID}, nil
	}
	return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Event)
}

func (s *SocketService) assistantCommand(caller Caller, frame event.Frame) (domain.Command, error) {
	switch frame.Event {
	case event.UserMessageEvent:
		req, err := decode[auth.UserMessageRequest](frame.Data)
		if err != nil {
			return nil, err
		}
		userID := req.UserID
		if caller.UserID != "" {
			userID = caller.UserID
		}
		return domain.AskAssistantCommand{Session: caller.SessionID, UserID: userID, Prompt: req.Message}, nil
	case event.TypingEvent, event.StopTypingEvent:
		// the assistant has no audience for typing indicators
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Event)
}

// checkIdentity refuses a join whose userId differs from the authenticated one.
func checkIdentity(caller Caller, userID string) error {
	if caller.UserID != "" && caller.UserID != userID {
		return errors.ErrIdentityMismatch
	}
	return nil
}

func decode[T any](data json.RawMessage) (T, error) {
	var out T
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}
	return out, nil
}
