package auth

import (
	"encoding/json"
	"strings"

	"officepulse/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type JoinRoomRequest struct {
	RoomID    string `json:"roomId" validate:"required,max=128"`
	RoomName  string `json:"roomName" validate:"max=128"`
	UserID    string `json:"userId" validate:"required,max=128"`
	UserName  string `json:"userName" validate:"max=128"`
	UserEmail string `json:"userEmail" validate:"required,max=254"`
	IsHost    bool   `json:"isHost"`
}

type JoinCommunityRequest struct {
	UserID    string `json:"userId" validate:"required,max=128"`
	UserName  string `json:"userName" validate:"max=128"`
	UserEmail string `json:"userEmail" validate:"required,max=254"`
}

// SignalRequest also accepts the legacy "offer", "answer" and "candidate" keys in place of "payload".
type SignalRequest struct {
	TargetUserID string          `json:"targetUserId" validate:"required"`
	Payload      json.RawMessage `json:"payload"`
	Offer        json.RawMessage `json:"offer"`
	Answer       json.RawMessage `json:"answer"`
	Candidate    json.RawMessage `json:"candidate"`
}

// Body returns the negotiation payload, whichever key carried it.
func (r SignalRequest) Body() json.RawMessage {
	for _, b := range []json.RawMessage{r.Payload, r.Offer, r.Answer, r.Candidate} {
		if len(b) > 0 && string(b) != "null" {
			return b
		}
	}
	return nil
}

type SendMessageRequest struct {
	Text    string `json:"text"`
	Message string `json:"message"`
}

// Body returns the message text. text wins over message when both are set.
func (r SendMessageRequest) Body() string {
	if strings.TrimSpace(r.Text) != "" {
		return r.Text
	}
	return r.Message
}

type UserMessageRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

func ValidateJoinRoom(req JoinRoomRequest) error {
	if err := validate.Struct(req); err != nil {
		return errors.ErrInvalidRoomData
	}
	return nil
}

func ValidateJoinCommunity(req JoinCommunityRequest) error {
	if err := validate.Struct(req); err != nil {
		return errors.ErrInvalidUserData
	}
	return nil
}

func ValidateSignal(req SignalRequest) error {
	if err := validate.Struct(req); err != nil || req.Body() == nil {
		return errors.ErrMalformedPayload
	}
	return nil
}
