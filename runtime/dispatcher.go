package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"officepulse/domain"
	"officepulse/domain/event"
	"officepulse/errors"
	"officepulse/moderation"

	"github.com/abadojack/whatlanggo"
	"github.com/pion/webrtc/v4"
)

type DispatcherConfig struct {
	BufferSize      int
	CommunityScope  string
	HistoryCapacity int
	HistoryOnJoin   int
	TypingTimeout   time.Duration
	IceServers      []webrtc.ICEServer
}

// Dispatcher is the single owner of every registry. Commands are processed one at a time,
// in the order Submit accepted them, so no two mutations ever interleave.
type Dispatcher struct {
	log       *slog.Logger
	cfg       DispatcherConfig
	commands  chan domain.Command
	registry  *ConnectionRegistry
	rooms     *RoomManager
	relay     *SignalingRelay
	presence  *PresenceBroadcaster
	typing    *TypingTracker
	filter    moderation.ContentFilter
	histories map[string]*domain.History
	archive   chan<- domain.ScopedMessage
	assistant chan<- domain.AssistantRequest
	now       func() time.Time
}

func NewDispatcher(log *slog.Logger, cfg DispatcherConfig, filter moderation.ContentFilter) *Dispatcher {
	if cfg.CommunityScope == "" {
		cfg.CommunityScope = string(domain.Community)
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = domain.DefaultHistoryCapacity
	}
	if cfg.HistoryOnJoin <= 0 {
		cfg.HistoryOnJoin = domain.DefaultHistoryOnJoin
	}
	registry := NewConnectionRegistry()
	rooms := NewRoomManager(registry)
	return &Dispatcher{
		log:       log,
		cfg:       cfg,
		commands:  make(chan domain.Command, cfg.BufferSize),
		registry:  registry,
		rooms:     rooms,
		relay:     NewSignalingRelay(registry, rooms),
		presence:  NewPresenceBroadcaster(log, registry, rooms),
		typing:    NewTypingTracker(cfg.TypingTimeout),
		filter:    filter,
		histories: make(map[string]*domain.History),
		now:       time.Now,
	}
}

// WithArchive forwards every accepted chat message to ch. Must be called before Run.
func (d *Dispatcher) WithArchive(ch chan<- domain.ScopedMessage) *Dispatcher {
	d.archive = ch
	return d
}

// WithAssistant forwards assistant prompts to ch. Must be called before Run.
func (d *Dispatcher) WithAssistant(ch chan<- domain.AssistantRequest) *Dispatcher {
	d.assistant = ch
	return d
}

// RestoreHistory seeds the window of a chat scope. Must be called before Run.
func (d *Dispatcher) RestoreHistory(scope string, msgs []domain.ChatMessage) {
	d.history(scope).Restore(msgs)
}

func (d *Dispatcher) CommunityScope() string {
	return d.cfg.CommunityScope
}

// Commands exposes the inbound queue for capacity sampling.
func (d *Dispatcher) Commands() chan domain.Command {
	return d.commands
}

// Submit blocks until the command is queued or ctx is done. Commands are never dropped.
func (d *Dispatcher) Submit(ctx context.Context, cmd domain.Command) error {
	select {
	case d.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats asks the loop for a snapshot of its registries.
func (d *Dispatcher) Stats(ctx context.Context) (domain.Stats, error) {
	reply := make(chan domain.Stats, 1)
	if err := d.Submit(ctx, domain.StatsQueryCommand{Reply: reply}); err != nil {
		return domain.Stats{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return domain.Stats{}, ctx.Err()
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("Dispatcher started", "buffer", cap(d.commands))
	for {
		select {
		case <-ctx.Done():
			d.log.Debug("Context done, stopping dispatcher")
			return nil
		case cmd := <-d.commands:
			d.process(cmd)
		}
	}
}

// process isolates a failing command: the panic is logged, the sender gets an error event
// and the loop goes on with the next command.
func (d *Dispatcher) process(cmd domain.Command) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Rejecting command panicked", "session_id", cmd.SessionID(), "panic", r)
		}
	}()
	if err := d.safeHandle(cmd); err != nil {
		d.reject(cmd.SessionID(), err)
	}
}

func (d *Dispatcher) safeHandle(cmd domain.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Command handling panicked",
				"command", fmt.Sprintf("%T", cmd), "session_id", cmd.SessionID(), "panic", r)
			err = fmt.Errorf("%w: %v", errors.ErrInternal, r)
		}
	}()
	return d.handle(cmd)
}

func (d *Dispatcher) handle(cmd domain.Command) error {
	switch c := cmd.(type) {
	case domain.ConnectCommand:
		return d.connect(c)
	case domain.JoinRoomCommand:
		return d.joinRoom(c)
	case domain.JoinCommunityCommand:
		return d.joinCommunity(c)
	case domain.LeaveRoomCommand:
		if s, ok := d.registry.Get(c.Session); ok {
			d.leave(s)
		}
		return nil
	case domain.DisconnectCommand:
		return d.disconnect(c)
	case domain.SignalCommand:
		return d.signal(c)
	case domain.SendMessageCommand:
		return d.sendMessage(c)
	case domain.TypingCommand:
		return d.setTyping(c)
	case domain.ExpireTypingCommand:
		d.expireTyping(c.At)
		return nil
	case domain.AskAssistantCommand:
		return d.ask(c)
	case domain.DeliverCompletionCommand:
		if !d.presence.SendTo(c.Session, event.BotMessageType, d.botMessage(c.Text)) {
			d.log.Debug("Completion dropped, session is gone", "session_id", c.Session)
		}
		return nil
	case domain.StatsQueryCommand:
		d.stats(c)
		return nil
	}
	return fmt.Errorf("%w: %T", errors.ErrUnknownEvent, cmd)
}

func (d *Dispatcher) connect(c domain.ConnectCommand) error {
	if !c.Namespace.Valid() {
		return fmt.Errorf("%w: namespace %q", errors.ErrUnknownEvent, c.Namespace)
	}
	s := d.registry.Register(c.Session, c.Namespace, c.Sink)
	d.log.Info("Session connected", "session_id", s.ID, "namespace", s.Namespace)
	if s.Namespace == domain.Assistant {
		d.presence.SendTo(s.ID, event.BotMessageType, d.botMessage(domain.WelcomeReply))
	}
	return nil
}

func (d *Dispatcher) joinRoom(c domain.JoinRoomCommand) error {
	s, err := d.joinable(c.Session, domain.Video)
	if err != nil {
		return err
	}
	roomID := strings.TrimSpace(c.RoomID)
	if roomID == "" {
		return errors.ErrInvalidRoomData
	}
	if err := d.registry.AttachIdentity(s.ID, c.UserID, c.UserEmail, c.UserName); err != nil {
		if errors.Is(err, errors.ErrValidation) {
			return errors.ErrInvalidRoomData
		}
		return err
	}
	key := domain.RoomKey{Namespace: domain.Video, ID: roomID}
	name := strings.TrimSpace(c.RoomName)
	if name == "" {
		name = roomID
	}
	existing, err := d.rooms.Join(key, name, s, c.IsHost)
	if err != nil {
		return err
	}
	d.enter(s, key, c.IsHost)
	d.log.Info("Joined video room", "session_id", s.ID, "room", roomID, "user_id", s.UserID, "members", len(existing)+1)

	if len(d.cfg.IceServers) > 0 {
		d.presence.SendTo(s.ID, event.IceServersType, event.IceServers{IceServers: d.cfg.IceServers})
	}
	d.presence.AnnounceJoin(s, existing)
	return nil
}

func (d *Dispatcher) joinCommunity(c domain.JoinCommunityCommand) error {
	s, err := d.joinable(c.Session, domain.Community)
	if err != nil {
		return err
	}
	if err := d.registry.AttachIdentity(s.ID, c.UserID, c.UserEmail, c.UserName); err != nil {
		return err
	}
	key := domain.RoomKey{Namespace: domain.Community, ID: d.cfg.CommunityScope}
	existing, err := d.rooms.Join(key, key.ID, s, false)
	if err != nil {
		return err
	}
	d.enter(s, key, false)
	d.log.Info("Joined community chat", "session_id", s.ID, "scope", key.ID, "user_id", s.UserID, "members", len(existing)+1)

	d.presence.SendTo(s.ID, event.MessageHistoryType, event.MessageHistory{
		Messages: d.history(key.ID).Recent(d.cfg.HistoryOnJoin),
	})
	d.presence.AnnounceJoin(s, existing)
	return nil
}

func (d *Dispatcher) joinable(sessionID string, ns domain.Namespace) (*domain.Session, error) {
	s, ok := d.registry.Get(sessionID)
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	if s.Namespace != ns {
		return nil, fmt.Errorf("%w: join on %s", errors.ErrUnknownEvent, s.Namespace)
	}
	switch s.State {
	case domain.Joined:
		return nil, errors.ErrAlreadyJoined
	case domain.Left:
		return nil, errors.ErrSessionLeft
	}
	return s, nil
}

func (d *Dispatcher) enter(s *domain.Session, key domain.RoomKey, host bool) {
	s.State = domain.Joined
	s.Room = key
	s.JoinedAt = d.now().UTC()
	if host {
		s.Role = domain.RoleHost
	}
}

// leave is idempotent: a session that is not in a room changes nothing and notifies nobody.
func (d *Dispatcher) leave(s *domain.Session) {
	if s.State != domain.Joined {
		return
	}
	if d.typing.Stop(s.ID) {
		d.presence.Typing(s, false)
	}
	key := s.Room
	res := d.rooms.Leave(key, s.ID)
	s.State = domain.Left
	s.Room = domain.RoomKey{}
	if !res.Left {
		return
	}
	d.log.Info("Left room", "session_id", s.ID, "room", key.String(), "remaining", len(res.Remaining))
	if res.RoomDeleted {
		d.log.Info("Room removed", "room", key.String())
	}
	d.presence.AnnounceLeave(key, s, res.Remaining)
}

func (d *Dispatcher) disconnect(c domain.DisconnectCommand) error {
	s, ok := d.registry.Get(c.Session)
	if !ok {
		return nil
	}
	d.leave(s)
	d.registry.Remove(s.ID)
	d.log.Info("Session disconnected", "session_id", s.ID, "namespace", s.Namespace, "reason", c.Reason)
	return nil
}

func (d *Dispatcher) signal(c domain.SignalCommand) error {
	s, ok := d.registry.Get(c.Session)
	if !ok {
		return errors.ErrSessionNotFound
	}
	if s.State != domain.Joined {
		return errors.ErrNotInRoom
	}
	t, err := domain.ParseSignalType(string(c.Type))
	if err != nil {
		return err
	}
	target, ok := d.rooms.FindByUserID(s.Room, c.TargetUserID)
	if !ok {
		return fmt.Errorf("%s to %q: %w", t, c.TargetUserID, errors.ErrSignalTarget)
	}
	return d.relay.Relay(domain.SignalingEnvelope{
		Type:          t,
		FromSessionID: s.ID,
		ToSessionID:   target.ID,
		Payload:       c.Payload,
	})
}

func (d *Dispatcher) sendMessage(c domain.SendMessageCommand) error {
	s, ok := d.registry.Get(c.Session)
	if !ok || s.State != domain.Joined || s.Room.Namespace != domain.Community {
		return errors.ErrNotAuthenticated
	}
	if verdict := d.filter.Classify(c.Text); verdict != moderation.Accept {
		d.log.Debug("Message rejected", "session_id", s.ID, "verdict", verdict.String())
		return verdict.Err()
	}
	lang := ""
	if info := whatlanggo.Detect(c.Text); info.IsReliable() {
		lang = info.Lang.Iso6391()
	}
	msg := domain.NewChatMessage(s, c.Text, lang, d.now())
	d.history(s.Room.ID).Append(msg)
	if d.typing.Stop(s.ID) {
		d.presence.Typing(s, false)
	}
	d.presence.Message(s.Room, msg)

	if d.archive != nil {
		select {
		case d.archive <- domain.ScopedMessage{Scope: s.Room.ID, Message: msg}:
		default:
			d.log.Warn("Archive channel full, message kept in memory only", "message_id", msg.ID)
		}
	}
	return nil
}

// setTyping only announces transitions. A repeated start refreshes the deadline silently.
func (d *Dispatcher) setTyping(c domain.TypingCommand) error {
	s, ok := d.registry.Get(c.Session)
	if !ok || s.State != domain.Joined {
		return nil
	}
	if c.Active {
		if !d.typing.Start(s.ID, d.now()) {
			d.presence.Typing(s, true)
		}
		return nil
	}
	if d.typing.Stop(s.ID) {
		d.presence.Typing(s, false)
	}
	return nil
}

func (d *Dispatcher) expireTyping(at time.Time) {
	for _, id := range d.typing.Expired(at) {
		if s, ok := d.registry.Get(id); ok && s.State == domain.Joined {
			d.presence.Typing(s, false)
		}
	}
}

func (d *Dispatcher) ask(c domain.AskAssistantCommand) error {
	s, ok := d.registry.Get(c.Session)
	if !ok {
		return errors.ErrSessionNotFound
	}
	prompt := strings.TrimSpace(c.Prompt)
	if prompt == "" {
		d.presence.SendTo(s.ID, event.BotMessageType, d.botMessage(domain.EmptyPromptReply))
		return nil
	}
	if d.assistant == nil {
		d.presence.SendTo(s.ID, event.BotMessageType, d.botMessage(domain.FallbackReply))
		return nil
	}
	select {
	case d.assistant <- domain.AssistantRequest{Session: s.ID, UserID: c.UserID, Prompt: prompt}:
	default:
		d.log.Warn("Assistant queue full", "session_id", s.ID)
		d.presence.SendTo(s.ID, event.BotMessageType, d.botMessage(domain.RateLimitReply))
	}
	return nil
}

func (d *Dispatcher) stats(c domain.StatsQueryCommand) {
	depth := make(map[string]int, len(d.histories))
	for scope, h := range d.histories {
		depth[scope] = h.Len()
	}
	s := domain.Stats{
		Sessions:     d.registry.CountByNamespace(),
		Rooms:        d.rooms.CountByNamespace(),
		HistoryDepth: depth,
		Pending:      len(d.commands),
	}
	select {
	case c.Reply <- s:
	default:
	}
}

// reject reports a failed command to its sender only. Not-found errors stay silent.
func (d *Dispatcher) reject(sessionID string, err error) {
	kind := errors.Kind(err)
	switch kind {
	case errors.ErrNotFound:
		d.log.Debug("Ignoring command", "session_id", sessionID, "error", err)
		return
	case errors.ErrInternal:
		d.log.Error("Command failed", "session_id", sessionID, "error", err)
	default:
		d.log.Debug("Command refused", "session_id", sessionID, "error", err)
	}
	if sessionID == "" {
		return
	}
	reason := errors.Reason(err)
	if errors.Is(err, errors.ErrMessageTooLong) {
		reason = fmt.Sprintf("%s (max %d characters)", reason, d.filter.MaxLength())
	}
	eventType := event.ErrorType
	if errors.Is(err, errors.ErrOffTopic) {
		eventType = event.WarningType
	}
	d.presence.SendTo(sessionID, eventType, event.Notice{Message: reason})
}

func (d *Dispatcher) history(scope string) *domain.History {
	h, ok := d.histories[scope]
	if !ok {
		h = domain.NewHistory(d.cfg.HistoryCapacity)
		d.histories[scope] = h
	}
	return h
}

func (d *Dispatcher) botMessage(text string) event.BotMessage {
	return event.BotMessage{Message: text, Timestamp: event.Timestamp(d.now())}
}
