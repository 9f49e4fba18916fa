package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"officepulse/domain"
	"officepulse/domain/event"
	"officepulse/moderation"

	"github.com/mama165/sdk-go/logs"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t     *testing.T
	ctx   context.Context
	d     *Dispatcher
	sinks map[string]*recordingSink
}

func newHarness(t *testing.T, cfg DispatcherConfig, classifier ...moderation.ContentFilter) *harness {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	filter := moderation.NewContentFilter(defaultClassifier(t), moderation.DefaultMaxLength)
	if len(classifier) > 0 {
		filter = classifier[0]
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	d := NewDispatcher(log, cfg, filter)
	go func() { _ = d.Run(ctx) }()
	return &harness{t: t, ctx: ctx, d: d, sinks: make(map[string]*recordingSink)}
}

func defaultClassifier(t *testing.T) *moderation.KeywordClassifier {
	t.Helper()
	data, err := DefaultKeywords()
	require.NoError(t, err)
	c, err := moderation.NewKeywordClassifier(data.Greetings(), data.Topics())
	require.NoError(t, err)
	return c
}

func (h *harness) submit(cmds ...domain.Command) {
	h.t.Helper()
	for _, cmd := range cmds {
		require.NoError(h.t, h.d.Submit(h.ctx, cmd))
	}
}

// stats goes through the loop, so every command submitted before has been handled when it returns.
func (h *harness) stats() domain.Stats {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(h.ctx, 2*time.Second)
	defer cancel()
	s, err := h.d.Stats(ctx)
	require.NoError(h.t, err)
	return s
}

func (h *harness) connect(id string, ns domain.Namespace) *recordingSink {
	sink := newSink(id)
	h.sinks[id] = sink
	h.submit(domain.ConnectCommand{Session: id, Namespace: ns, Sink: sink})
	return sink
}

func (h *harness) joinVideo(id, room string, host bool) *recordingSink {
	sink := h.connect(id, domain.Video)
	h.submit(domain.JoinRoomCommand{
		Session: id, RoomID: room, UserID: "user-" + id, UserName: strings.ToUpper(id), UserEmail: id + "@corp.com", IsHost: host,
	})
	return sink
}

func (h *harness) joinCommunity(id string) *recordingSink {
	sink := h.connect(id, domain.Community)
	h.submit(domain.JoinCommunityCommand{
		Session: id, UserID: "user-" + id, UserName: strings.ToUpper(id), UserEmail: id + "@corp.com",
	})
	return sink
}

func notices(sink *recordingSink, eventType string) []string {
	var out []string
	for _, p := range sink.Of(eventType) {
		out = append(out, p.(event.Notice).Message)
	}
	return out
}

func userIDs(ps []event.Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.UserID)
	}
	return out
}

func TestDispatcher_VideoRoomLifecycle(t *testing.T) {
	req := require.New(t)
	ice := []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	h := newHarness(t, DispatcherConfig{IceServers: ice})

	// Given A joins R1 as host
	a := h.joinVideo("a", "R1", true)
	h.stats()
	req.Equal([]string{event.IceServersType, event.RoomParticipantsType}, a.Types())
	first := a.Of(event.RoomParticipantsType)[0].(event.RoomParticipants)
	req.Equal("R1", first.RoomID)
	req.Empty(first.Participants)
	req.Equal(ice, a.Of(event.IceServersType)[0].(event.IceServers).IceServers)

	// When B joins R1
	b := h.joinVideo("b", "R1", false)
	h.stats()

	// Then B receives the roster without itself and A hears about B
	roster := b.Of(event.RoomParticipantsType)[0].(event.RoomParticipants)
	req.Equal([]string{"user-a"}, userIDs(roster.Participants))
	req.True(roster.Participants[0].IsHost)
	connected := a.Of(event.UserConnectedType)
	req.Len(connected, 1)
	req.Equal("user-b", connected[0].(event.UserConnected).UserID)
	req.Equal("B", connected[0].(event.UserConnected).UserName)
	req.Empty(b.Of(event.UserConnectedType))

	// When B disconnects
	a.Reset()
	h.submit(domain.DisconnectCommand{Session: "b", Reason: "transport close"})
	st := h.stats()

	// Then A gets the departure and an updated roster, R1 survives
	req.Equal([]string{event.UserDisconnectedType, event.RoomParticipantsType}, a.Types())
	gone := a.Of(event.UserDisconnectedType)[0].(event.UserDisconnected)
	req.Equal("user-b", gone.UserID)
	req.Empty(a.Of(event.RoomParticipantsType)[0].(event.RoomParticipants).Participants)
	req.Equal(1, st.Rooms[domain.Video])
	req.Equal(1, st.Sessions[domain.Video])

	// When A disconnects R1 is removed
	h.submit(domain.DisconnectCommand{Session: "a"})
	st = h.stats()
	req.Zero(st.Rooms[domain.Video])
	req.Zero(st.Sessions[domain.Video])
}

func TestDispatcher_LeaveIsIdempotent(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})
	a := h.joinVideo("a", "R1", true)
	h.joinVideo("b", "R1", false)
	c := h.joinVideo("c", "R1", false)
	h.stats()
	a.Reset()
	c.Reset()

	// When B leaves twice then disconnects
	h.submit(
		domain.LeaveRoomCommand{Session: "b"},
		domain.LeaveRoomCommand{Session: "b"},
		domain.DisconnectCommand{Session: "b"},
		domain.DisconnectCommand{Session: "b"},
	)
	h.stats()

	// Then each remaining member observes exactly one departure
	req.Len(a.Of(event.UserDisconnectedType), 1)
	req.Len(c.Of(event.UserDisconnectedType), 1)
	roster := c.Of(event.RoomParticipantsType)[0].(event.RoomParticipants)
	req.Equal([]string{"user-a"}, userIDs(roster.Participants))
}

func TestDispatcher_JoinAfterLeave(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})
	a := h.joinVideo("a", "R1", false)
	h.submit(domain.LeaveRoomCommand{Session: "a"})
	h.submit(domain.JoinRoomCommand{Session: "a", RoomID: "R1", UserID: "user-a", UserEmail: "a@corp.com"})
	st := h.stats()

	req.Equal([]string{"Session has left, reconnect to join again"}, notices(a, event.ErrorType))
	req.Zero(st.Rooms[domain.Video])
}

func TestDispatcher_JoinRoom_InvalidData(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})
	a := h.connect("a", domain.Video)

	h.submit(
		domain.JoinRoomCommand{Session: "a", RoomID: "R1", UserID: "user-a"},
		domain.JoinRoomCommand{Session: "a", RoomID: " ", UserID: "user-a", UserEmail: "a@corp.com"},
	)
	st := h.stats()

	req.Equal([]string{"Invalid room or user data", "Invalid room or user data"}, notices(a, event.ErrorType))
	req.Zero(st.Rooms[domain.Video])
}

func TestDispatcher_Signaling(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})
	a := h.joinVideo("a", "R1", true)
	b := h.joinVideo("b", "R1", false)
	c := h.joinVideo("c", "R1", false)
	h.joinVideo("d", "R2", false)
	h.stats()
	a.Reset()
	b.Reset()
	c.Reset()

	// When A sends an offer to B, then to a user of another room
	h.submit(
		domain.SignalCommand{Session: "a", Type: domain.Offer, TargetUserID: "user-b", Payload: raw(offerSDP)},
		domain.SignalCommand{Session: "a", Type: domain.Offer, TargetUserID: "user-d", Payload: raw(offerSDP)},
	)
	h.stats()

	// Then B alone receives one offer with the payload untouched and A hears no error
	req.Equal([]string{string(domain.Offer)}, b.Types())
	signal := b.Of(string(domain.Offer))[0].(event.Signal)
	req.Equal("user-a", signal.FromUserID)
	req.Equal(offerSDP, string(signal.Payload))
	req.Empty(a.Events())
	req.Empty(c.Events())
	req.Empty(h.sinks["d"].Of(string(domain.Offer)))
}

func TestDispatcher_Signaling_NotInRoom(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})
	a := h.connect("a", domain.Video)
	h.joinVideo("b", "R1", false)

	h.submit(domain.SignalCommand{Session: "a", Type: domain.IceCandidate, TargetUserID: "user-b", Payload: raw(`{"candidate":""}`)})
	h.stats()

	req.Equal([]string{"Not in a room"}, notices(a, event.ErrorType))
}

func TestDispatcher_Signaling_Malformed(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})
	a := h.joinVideo("a", "R1", false)
	b := h.joinVideo("b", "R1", false)
	h.stats()
	b.Reset()

	h.submit(domain.SignalCommand{Session: "a", Type: domain.Answer, TargetUserID: "user-b", Payload: raw(`{"type":"offer"}`)})
	h.stats()

	req.Len(notices(a, event.ErrorType), 1)
	req.Empty(b.Events())
}

func TestDispatcher_CommunityChat(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})

	// Given A in the community chat
	a := h.joinCommunity("a")
	h.stats()
	req.Equal([]string{event.MessageHistoryType, event.ActiveUsersType}, a.Types())
	req.Empty(a.Of(event.MessageHistoryType)[0].(event.MessageHistory).Messages)

	// When B joins
	a.Reset()
	b := h.joinCommunity("b")
	h.stats()

	// Then A hears about B and both get the full roster
	joined := a.Of(event.UserJoinedType)
	req.Len(joined, 1)
	req.Equal("B", joined[0].(event.UserJoined).User.Name)
	req.Equal(2, joined[0].(event.UserJoined).ActiveCount)
	req.Empty(b.Of(event.UserJoinedType))
	req.Equal([]string{"user-a", "user-b"}, userIDs(a.Of(event.ActiveUsersType)[0].(event.ActiveUsers).Users))
	req.Equal([]string{"user-a", "user-b"}, userIDs(b.Of(event.ActiveUsersType)[0].(event.ActiveUsers).Users))

	// When A posts an on-topic message
	h.submit(domain.SendMessageCommand{Session: "a", Text: "  Team meeting moved to 3pm  "})
	st := h.stats()

	// Then everyone, author included, receives it trimmed
	for _, sink := range []*recordingSink{a, b} {
		got := sink.Of(event.NewMessageType)
		req.Len(got, 1)
		msg := got[0].(domain.ChatMessage)
		req.Equal("Team meeting moved to 3pm", msg.Text)
		req.Equal("user-a", msg.AuthorUserID)
		req.Equal("A", msg.AuthorAvatar)
	}
	req.Equal(1, st.HistoryDepth["community"])

	// When B leaves
	a.Reset()
	h.submit(domain.DisconnectCommand{Session: "b"})
	h.stats()
	left := a.Of(event.UserLeftType)
	req.Len(left, 1)
	req.Equal(1, left[0].(event.UserLeft).ActiveCount)
	req.Equal([]string{"user-a"}, userIDs(a.Of(event.ActiveUsersType)[0].(event.ActiveUsers).Users))
}

func TestDispatcher_ContentPolicy(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})
	a := h.joinCommunity("a")
	b := h.joinCommunity("b")
	h.stats()
	b.Reset()

	h.submit(
		domain.SendMessageCommand{Session: "a", Text: "   "},
		domain.SendMessageCommand{Session: "a", Text: strings.Repeat("é", moderation.DefaultMaxLength+1)},
		domain.SendMessageCommand{Session: "a", Text: "what a nice sunset"},
	)
	st := h.stats()

	req.Equal([]string{"Message cannot be empty", "Message too long (max 500 characters)"}, notices(a, event.ErrorType))
	req.Equal([]string{"Please keep conversations related to OfficePulse, business, or workplace topics."}, notices(a, event.WarningType))
	req.Empty(b.Events())
	req.Zero(st.HistoryDepth["community"])
}

func TestDispatcher_ChatBeforeJoin(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})
	a := h.connect("a", domain.Community)

	h.submit(domain.SendMessageCommand{Session: "a", Text: "hello"})
	h.stats()

	req.Equal([]string{"User not authenticated"}, notices(a, event.ErrorType))
}

func TestDispatcher_HistoryIsBounded(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{BufferSize: 256})
	h.joinCommunity("a")
	for i := 0; i < 120; i++ {
		h.submit(domain.SendMessageCommand{Session: "a", Text: fmt.Sprintf("meeting %d", i)})
	}
	st := h.stats()
	req.Equal(domain.DefaultHistoryCapacity, st.HistoryDepth["community"])

	// When a newcomer joins it receives the last 50 in order
	z := h.joinCommunity("z")
	h.stats()
	history := z.Of(event.MessageHistoryType)[0].(event.MessageHistory).Messages
	req.Len(history, domain.DefaultHistoryOnJoin)
	req.Equal("meeting 70", history[0].Text)
	req.Equal("meeting 119", history[len(history)-1].Text)
}

func TestDispatcher_RestoreHistoryAndArchive(t *testing.T) {
	req := require.New(t)
	archive := make(chan domain.ScopedMessage, 4)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	d := NewDispatcher(log, DispatcherConfig{BufferSize: 8}, moderation.NewContentFilter(defaultClassifier(t), 0)).
		WithArchive(archive)
	author := &domain.Session{ID: "x", UserID: "user-x", DisplayName: "X"}
	d.RestoreHistory("community", []domain.ChatMessage{domain.NewChatMessage(author, "project kickoff", "", time.Now())})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()
	h := &harness{t: t, ctx: ctx, d: d, sinks: make(map[string]*recordingSink)}

	a := h.joinCommunity("a")
	h.submit(domain.SendMessageCommand{Session: "a", Text: "office is open"})
	h.stats()

	history := a.Of(event.MessageHistoryType)[0].(event.MessageHistory).Messages
	req.Len(history, 1)
	req.Equal("project kickoff", history[0].Text)

	archived := <-archive
	req.Equal("community", archived.Scope)
	req.Equal("office is open", archived.Message.Text)
}

func TestDispatcher_Typing(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{TypingTimeout: 3 * time.Second})
	a := h.joinCommunity("a")
	b := h.joinCommunity("b")
	h.stats()
	a.Reset()
	b.Reset()

	// When A starts typing twice
	h.submit(domain.TypingCommand{Session: "a", Active: true}, domain.TypingCommand{Session: "a", Active: true})
	h.stats()

	// Then B sees a single indicator and A none
	req.Len(b.Of(event.UserTypingType), 1)
	req.Equal("A", b.Of(event.UserTypingType)[0].(event.UserTyping).UserName)
	req.Empty(a.Events())

	// When the deadline passes the server stops it
	h.submit(domain.ExpireTypingCommand{At: time.Now().Add(time.Minute)})
	h.stats()
	req.Len(b.Of(event.UserStopTypingType), 1)

	// And a late explicit stop is not announced twice
	h.submit(domain.TypingCommand{Session: "a", Active: false})
	h.stats()
	req.Len(b.Of(event.UserStopTypingType), 1)
}

func TestDispatcher_TypingClearedOnDisconnect(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{TypingTimeout: time.Minute})
	h.joinCommunity("a")
	b := h.joinCommunity("b")
	h.submit(domain.TypingCommand{Session: "a", Active: true}, domain.DisconnectCommand{Session: "a"})
	h.stats()

	req.Len(b.Of(event.UserStopTypingType), 1)
	req.Len(b.Of(event.UserLeftType), 1)
}

type panickyClassifier struct{}

func (panickyClassifier) IsOnTopic(text string) bool {
	if text == "boom" {
		panic("classifier exploded")
	}
	return true
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{}, moderation.NewContentFilter(panickyClassifier{}, 0))
	a := h.joinCommunity("a")
	b := h.joinCommunity("b")
	h.stats()
	b.Reset()

	h.submit(domain.SendMessageCommand{Session: "a", Text: "boom"}, domain.SendMessageCommand{Session: "a", Text: "still here"})
	h.stats()

	req.Equal([]string{"Internal server error"}, notices(a, event.ErrorType))
	got := b.Of(event.NewMessageType)
	req.Len(got, 1)
	req.Equal("still here", got[0].(domain.ChatMessage).Text)
}

func TestDispatcher_SlowConsumerIsClosed(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})
	h.joinCommunity("a")
	b := h.joinCommunity("b")
	h.stats()
	b.mu.Lock()
	b.full = true
	b.mu.Unlock()

	h.submit(domain.SendMessageCommand{Session: "a", Text: "desk booking"})
	h.stats()

	req.True(b.Closed())
}

func TestDispatcher_Assistant(t *testing.T) {
	req := require.New(t)
	requests := make(chan domain.AssistantRequest, 1)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	d := NewDispatcher(log, DispatcherConfig{BufferSize: 8}, moderation.NewContentFilter(nil, 0)).WithAssistant(requests)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()
	h := &harness{t: t, ctx: ctx, d: d, sinks: make(map[string]*recordingSink)}

	// Given a fresh assistant connection
	a := h.connect("a", domain.Assistant)
	h.stats()
	bot := a.Of(event.BotMessageType)
	req.Len(bot, 1)
	req.Equal(domain.WelcomeReply, bot[0].(event.BotMessage).Message)

	// When an empty prompt then two real prompts arrive while the queue holds one
	h.submit(
		domain.AskAssistantCommand{Session: "a", Prompt: "  "},
		domain.AskAssistantCommand{Session: "a", UserID: "u1", Prompt: " what is hybrid work? "},
		domain.AskAssistantCommand{Session: "a", UserID: "u1", Prompt: "second"},
	)
	h.stats()

	bot = a.Of(event.BotMessageType)
	req.Len(bot, 3)
	req.Equal(domain.EmptyPromptReply, bot[1].(event.BotMessage).Message)
	req.Equal(domain.RateLimitReply, bot[2].(event.BotMessage).Message)
	got := <-requests
	req.Equal("what is hybrid work?", got.Prompt)
	req.Equal("a", got.Session)

	// When the completion comes back it reaches the session
	h.submit(domain.DeliverCompletionCommand{Session: "a", Text: "Hybrid work mixes office and remote days."})
	h.stats()
	bot = a.Of(event.BotMessageType)
	req.Equal("Hybrid work mixes office and remote days.", bot[len(bot)-1].(event.BotMessage).Message)
}

func TestDispatcher_Signaling_TargetRefusesEvent(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})
	a := h.joinVideo("a", "R1", false)
	b := h.joinVideo("b", "R1", false)
	h.stats()
	a.Reset()

	// Given B whose connection no longer accepts events
	b.mu.Lock()
	b.full = true
	b.mu.Unlock()

	// When A sends B an ICE candidate
	h.submit(domain.SignalCommand{Session: "a", Type: domain.IceCandidate, TargetUserID: "user-b", Payload: raw(`{"candidate":""}`)})
	h.stats()

	// Then A hears nothing and B's connection is closed
	req.Empty(a.Events())
	req.True(b.Closed())
}

func TestDispatcher_NameNeverExposesEmail(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{})
	a := h.joinCommunity("a")
	h.stats()
	a.Reset()

	// When B joins without a display name
	h.connect("b", domain.Community)
	h.submit(domain.JoinCommunityCommand{Session: "b", UserID: "user-b", UserEmail: "bob.secret@corp.com"})
	h.submit(domain.SendMessageCommand{Session: "b", Text: "desk booking for friday"})
	h.stats()

	// Then nothing A receives carries the e-mail
	joined := a.Of(event.UserJoinedType)
	req.Len(joined, 1)
	req.Equal("BO", joined[0].(event.UserJoined).User.Name)
	req.NotContains(joined[0].(event.UserJoined).User.Name, "@")
	for _, u := range a.Of(event.ActiveUsersType)[0].(event.ActiveUsers).Users {
		req.NotContains(u.UserName, "@")
	}
	msgs := a.Of(event.NewMessageType)
	req.Len(msgs, 1)
	req.NotContains(msgs[0].(domain.ChatMessage).AuthorDisplay, "@")
}

func TestDispatcher_TwoAuthorsFillTheWindow(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, DispatcherConfig{BufferSize: 256})
	h.joinCommunity("a")
	h.joinCommunity("b")

	// Given A and B sending 60 messages each, interleaved
	for i := 1; i <= 120; i++ {
		author := "a"
		if i%2 == 0 {
			author = "b"
		}
		h.submit(domain.SendMessageCommand{Session: author, Text: fmt.Sprintf("meeting %d", i)})
	}
	st := h.stats()
	req.Equal(domain.DefaultHistoryCapacity, st.HistoryDepth["community"])

	// Then the window holds exactly messages 21 to 120 in arrival order
	window := h.d.history("community").Recent(domain.DefaultHistoryCapacity)
	req.Len(window, domain.DefaultHistoryCapacity)
	for i, msg := range window {
		n := i + 21
		author := "user-a"
		if n%2 == 0 {
			author = "user-b"
		}
		req.Equal(fmt.Sprintf("meeting %d", n), msg.Text)
		req.Equal(author, msg.AuthorUserID)
	}
}
