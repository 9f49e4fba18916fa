package runtime

import (
	"encoding/json"
	"fmt"

	"officepulse/domain"
	"officepulse/domain/event"
	"officepulse/errors"

	"github.com/pion/webrtc/v4"
)

// SignalingRelay forwards WebRTC negotiation messages between two members of the same room.
// It never broadcasts.
type SignalingRelay struct {
	registry *ConnectionRegistry
	rooms    *RoomManager
}

func NewSignalingRelay(registry *ConnectionRegistry, rooms *RoomManager) *SignalingRelay {
	return &SignalingRelay{registry: registry, rooms: rooms}
}

// Relay delivers the envelope payload, unchanged, to the target session only.
// A target that is gone, sits in another room or refuses the event yields errors.ErrSignalTarget.
// A refusing target has its sink closed.
func (r *SignalingRelay) Relay(env domain.SignalingEnvelope) error {
	from, ok := r.registry.Get(env.FromSessionID)
	if !ok {
		return errors.ErrSessionNotFound
	}
	if from.State != domain.Joined {
		return errors.ErrNotInRoom
	}
	if err := CheckSignalPayload(env.Type, env.Payload); err != nil {
		return err
	}
	if env.ToSessionID == env.FromSessionID || !r.rooms.Contains(from.Room, env.ToSessionID) {
		return errors.ErrSignalTarget
	}
	sink, ok := r.registry.Sink(env.ToSessionID)
	if !ok {
		return errors.ErrSignalTarget
	}
	if err := sink.Send(string(env.Type), event.Signal{
		FromUserID:   from.UserID,
		FromUserName: from.DisplayName,
		Payload:      env.Payload,
	}); err != nil {
		// the target is going away, its disconnect cleans up
		_ = sink.Close()
		return fmt.Errorf("%w: %v", errors.ErrSignalTarget, err)
	}
	return nil
}

// CheckSignalPayload makes sure the payload decodes as the WebRTC structure its type announces.
func CheckSignalPayload(t domain.SignalType, payload json.RawMessage) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty %s", errors.ErrMalformedPayload, t)
	}
	switch t {
	case domain.Offer, domain.Answer:
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(payload, &sd); err != nil {
			return fmt.Errorf("%w: %s: %v", errors.ErrMalformedPayload, t, err)
		}
		if sd.SDP == "" || !matchesSDPType(t, sd.Type) {
			return fmt.Errorf("%w: %s", errors.ErrMalformedPayload, t)
		}
	case domain.IceCandidate:
		var c webrtc.ICECandidateInit
		if err := json.Unmarshal(payload, &c); err != nil {
			return fmt.Errorf("%w: %s: %v", errors.ErrMalformedPayload, t, err)
		}
	default:
		return errors.ErrInvalidSignalType
	}
	return nil
}

func matchesSDPType(t domain.SignalType, sdp webrtc.SDPType) bool {
	if t == domain.Offer {
		return sdp == webrtc.SDPTypeOffer
	}
	return sdp == webrtc.SDPTypeAnswer || sdp == webrtc.SDPTypePranswer
}
