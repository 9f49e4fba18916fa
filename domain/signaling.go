package domain

import (
	"encoding/json"

	"officepulse/errors"
)

type SignalType string

const (
	Offer        SignalType = "offer"
	Answer       SignalType = "answer"
	IceCandidate SignalType = "ice-candidate"
)

func ParseSignalType(s string) (SignalType, error) {
	switch t := SignalType(s); t {
	case Offer, Answer, IceCandidate:
		return t, nil
	}
	return "", errors.ErrInvalidSignalType
}

// SignalingEnvelope lives for the duration of a single relay call and is never stored.
type SignalingEnvelope struct {
	Type          SignalType
	FromSessionID string
	ToSessionID   string
	Payload       json.RawMessage
}
