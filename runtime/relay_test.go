package runtime

import (
	"testing"

	"officepulse/domain"
	"officepulse/domain/event"
	"officepulse/errors"

	"github.com/stretchr/testify/require"
)

const offerSDP = `{"type":"offer","sdp":"v=0\r\no=- 46117317 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"}`

type relayFixture struct {
	registry *ConnectionRegistry
	rooms    *RoomManager
	relay    *SignalingRelay
	sinks    map[string]*recordingSink
}

// newRelayFixture puts every id into room R1 except the ones listed in elsewhere, which join R2.
func newRelayFixture(t *testing.T, ids []string, elsewhere ...string) relayFixture {
	t.Helper()
	f := relayFixture{registry: NewConnectionRegistry(), sinks: make(map[string]*recordingSink)}
	f.rooms = NewRoomManager(f.registry)
	f.relay = NewSignalingRelay(f.registry, f.rooms)
	away := make(map[string]bool)
	for _, id := range elsewhere {
		away[id] = true
	}
	for _, id := range ids {
		f.sinks[id] = newSink(id)
		s := f.registry.Register(id, domain.Video, f.sinks[id])
		require.NoError(t, f.registry.AttachIdentity(id, "user-"+id, id+"@corp.com", "Name "+id))
		key := domain.RoomKey{Namespace: domain.Video, ID: "R1"}
		if away[id] {
			key.ID = "R2"
		}
		_, err := f.rooms.Join(key, "", s, false)
		require.NoError(t, err)
		s.State = domain.Joined
		s.Room = key
	}
	return f
}

func TestSignalingRelay_DeliversToTargetOnly(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t, []string{"a", "b", "c"})

	// When A sends an offer to B
	err := f.relay.Relay(domain.SignalingEnvelope{
		Type: domain.Offer, FromSessionID: "a", ToSessionID: "b", Payload: raw(offerSDP),
	})

	// Then only B receives it, payload untouched
	req.NoError(err)
	got := f.sinks["b"].Of(string(domain.Offer))
	req.Len(got, 1)
	signal := got[0].(event.Signal)
	req.Equal("user-a", signal.FromUserID)
	req.Equal("Name a", signal.FromUserName)
	req.JSONEq(offerSDP, string(signal.Payload))
	req.Equal(offerSDP, string(signal.Payload))

	req.Empty(f.sinks["a"].Events())
	req.Empty(f.sinks["c"].Events())
}

func TestSignalingRelay_TargetInOtherRoom(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t, []string{"a", "b"}, "b")

	err := f.relay.Relay(domain.SignalingEnvelope{
		Type: domain.IceCandidate, FromSessionID: "a", ToSessionID: "b",
		Payload: raw(`{"candidate":"candidate:1 1 udp 2122260223 10.0.0.1 51000 typ host","sdpMid":"0","sdpMLineIndex":0}`),
	})

	req.ErrorIs(err, errors.ErrSignalTarget)
	req.ErrorIs(err, errors.ErrNotFound)
	req.Empty(f.sinks["b"].Events())
}

func TestSignalingRelay_TargetGone(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t, []string{"a", "b"})
	f.rooms.Leave(domain.RoomKey{Namespace: domain.Video, ID: "R1"}, "b")
	f.registry.Remove("b")

	err := f.relay.Relay(domain.SignalingEnvelope{
		Type: domain.Answer, FromSessionID: "a", ToSessionID: "b",
		Payload: raw(`{"type":"answer","sdp":"v=0"}`),
	})

	req.ErrorIs(err, errors.ErrSignalTarget)
}

func TestSignalingRelay_TargetRefusesEvent(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t, []string{"a", "b"})
	f.sinks["b"].full = true

	err := f.relay.Relay(domain.SignalingEnvelope{
		Type: domain.IceCandidate, FromSessionID: "a", ToSessionID: "b", Payload: raw(`{"candidate":""}`),
	})

	// A target that cannot take the event counts as gone
	req.ErrorIs(err, errors.ErrSignalTarget)
	req.ErrorIs(err, errors.ErrNotFound)
	req.True(f.sinks["b"].Closed())
	req.Empty(f.sinks["a"].Events())
}

func TestSignalingRelay_SenderNotInRoom(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t, []string{"b"})
	f.registry.Register("a", domain.Video, newSink("a"))

	err := f.relay.Relay(domain.SignalingEnvelope{
		Type: domain.Offer, FromSessionID: "a", ToSessionID: "b", Payload: raw(offerSDP),
	})

	req.ErrorIs(err, errors.ErrNotInRoom)
	req.Empty(f.sinks["b"].Events())
}

func TestCheckSignalPayload(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.SignalType
		payload string
		wantErr error
	}{
		{name: "offer", kind: domain.Offer, payload: offerSDP},
		{name: "answer", kind: domain.Answer, payload: `{"type":"answer","sdp":"v=0"}`},
		{name: "pranswer as answer", kind: domain.Answer, payload: `{"type":"pranswer","sdp":"v=0"}`},
		{name: "ice candidate", kind: domain.IceCandidate, payload: `{"candidate":"candidate:1","sdpMid":"0"}`},
		{name: "end of candidates", kind: domain.IceCandidate, payload: `{"candidate":""}`},
		{name: "empty", kind: domain.Offer, payload: ``, wantErr: errors.ErrMalformedPayload},
		{name: "not json", kind: domain.Offer, payload: `offer`, wantErr: errors.ErrMalformedPayload},
		{name: "answer sent as offer", kind: domain.Offer, payload: `{"type":"answer","sdp":"v=0"}`, wantErr: errors.ErrMalformedPayload},
		{name: "missing sdp", kind: domain.Offer, payload: `{"type":"offer"}`, wantErr: errors.ErrMalformedPayload},
		{name: "candidate not an object", kind: domain.IceCandidate, payload: `[1,2]`, wantErr: errors.ErrMalformedPayload},
		{name: "unknown type", kind: domain.SignalType("bye"), payload: `{}`, wantErr: errors.ErrInvalidSignalType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSignalPayload(tt.kind, raw(tt.payload))
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, errors.ErrValidation)
		})
	}
}
