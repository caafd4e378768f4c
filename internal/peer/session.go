package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/BioHazard786/peerlink/internal/relay"
	"github.com/BioHazard786/peerlink/internal/signaling"
)

// DefaultSignalTimeout bounds each relay operation a session performs.
const DefaultSignalTimeout = 10 * time.Second

// Config controls how a session builds its peer connections.
type Config struct {
	ICEServers []webrtc.ICEServer

	// ForceRelay restricts ICE to relayed (TURN) candidates.
	ForceRelay bool

	// API, when set, creates the peer connections. Tests use it to run on a
	// virtual network.
	API *webrtc.API

	SignalTimeout time.Duration

	// PeerID overrides the generated peer id.
	PeerID string

	Logger *slog.Logger
}

// Session is one participant's side of a two-party room.
//
// All handshake state is owned by a single event loop goroutine; relay watch
// callbacks and peer connection callbacks only post events to it.
type Session struct {
	roomID    string
	peerID    string
	ch        signaling.Channel
	cfg       Config
	logger    *slog.Logger
	onMessage func(string)

	events   *mailbox
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	loopDone chan struct{}

	closeOnce sync.Once
	closeErr  error
	unwatch   []signaling.Unwatch

	// Owned by the event loop.
	pc        *webrtc.PeerConnection
	gen       uint64
	observed  bool
	answered  string
	remote    *remoteCandidates
	lastSlots map[string][]byte
	local     []webrtc.ICECandidateInit

	mu      sync.Mutex
	dc      *webrtc.DataChannel
	role    Role
	state   State
	closed  bool
	changes chan State
}

// Open joins roomID through ch and starts the handshake. onMessage receives
// every text message from the other participant, in order. On success the
// session owns ch and closes it in Close.
func Open(ctx context.Context, ch signaling.Channel, roomID string, onMessage func(string), cfg Config) (*Session, error) {
	if roomID == "" {
		return nil, NewError("open session", ErrEmptyRoom)
	}
	if cfg.SignalTimeout <= 0 {
		cfg.SignalTimeout = DefaultSignalTimeout
	}
	if cfg.PeerID == "" {
		cfg.PeerID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if onMessage == nil {
		onMessage = func(string) {}
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		roomID:    roomID,
		peerID:    cfg.PeerID,
		ch:        ch,
		cfg:       cfg,
		logger:    cfg.Logger.With("room", roomID, "peer", cfg.PeerID),
		onMessage: onMessage,
		events:    newMailbox(),
		ctx:       sctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		changes:   make(chan State, 16),
	}

	if err := s.resetConnection(); err != nil {
		cancel()
		return nil, NewRoomError("open session", roomID, err)
	}
	go s.loop()

	opCtx, opCancel := context.WithTimeout(ctx, cfg.SignalTimeout)
	defer opCancel()

	// The relay clears the room if we vanish without calling Close.
	if err := ch.OnDisconnect(opCtx, relay.RemoveHook(signaling.RoomPath(roomID))); err != nil {
		s.logger.Warn("register disconnect cleanup", "err", err)
	}

	s.watch(opCtx, signaling.SignalingPath(roomID), evSignaling)
	s.watch(opCtx, signaling.CandidatesPath(roomID), evCandidates)

	return s, nil
}

func (s *Session) watch(ctx context.Context, path string, kind eventKind) {
	stop, err := s.ch.Watch(ctx, path, func(snap relay.Snapshot) {
		s.post(event{kind: kind, snap: snap})
	})
	if err != nil {
		s.logger.Warn("watch relay path", "path", path, "err", err)
		return
	}
	s.unwatch = append(s.unwatch, stop)
}

// RoomID returns the room this session joined.
func (s *Session) RoomID() string {
	return s.roomID
}

// PeerID returns this participant's id in the room.
func (s *Session) PeerID() string {
	return s.peerID
}

func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StateChanges delivers every state transition. Transitions are dropped if
// the reader falls far behind. The channel is closed by Close.
func (s *Session) StateChanges() <-chan State {
	return s.changes
}

// SendMessage sends text to the other participant. It fails with
// ErrChannelNotOpen unless the data channel is open.
func (s *Session) SendMessage(text string) error {
	s.mu.Lock()
	closed, dc := s.closed, s.dc
	s.mu.Unlock()

	if closed {
		return fmt.Errorf("%w: %w", ErrSessionClosed, ErrChannelNotOpen)
	}
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	if err := dc.SendText(text); err != nil {
		return NewRoomError("send message", s.roomID, err)
	}
	return nil
}

// Close tears the session down: it closes the peer connection, removes the
// room from the relay, cancels the disconnect cleanup and releases the
// channel. Only the first call has an effect.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.transition(StateDisconnected)
		s.closed = true
		s.mu.Unlock()

		close(s.done)
		s.cancel()
		<-s.loopDone

		for _, stop := range s.unwatch {
			stop()
		}

		if err := s.pc.Close(); err != nil {
			s.closeErr = NewRoomError("close peer connection", s.roomID, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SignalTimeout)
		defer cancel()

		room := signaling.RoomPath(s.roomID)
		if err := s.ch.Remove(ctx, room); err != nil {
			s.logger.Warn("remove room", "err", err)
		}
		if err := s.ch.CancelOnDisconnect(ctx, room); err != nil {
			s.logger.Warn("cancel disconnect cleanup", "err", err)
		}
		if err := s.ch.Close(); err != nil {
			s.logger.Warn("release relay channel", "err", err)
		}

		s.mu.Lock()
		close(s.changes)
		s.mu.Unlock()

		s.logger.Info("session closed")
	})
	return s.closeErr
}

func (s *Session) post(ev event) {
	select {
	case <-s.done:
		return
	default:
	}
	s.events.push(ev)
}

func (s *Session) loop() {
	defer close(s.loopDone)

	for {
		select {
		case <-s.done:
			return
		case <-s.events.signal:
		}

		for _, ev := range s.events.drain() {
			select {
			case <-s.done:
				return
			default:
			}
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case evSignaling:
		s.onSignaling(ev.snap)
		return
	case evCandidates:
		s.onCandidates(ev.snap.Children())
		return
	}

	// The rest come from a peer connection; ignore ones we already replaced.
	if ev.gen != s.gen {
		return
	}

	switch ev.kind {
	case evLocalCandidate:
		s.publishCandidate(ev.candidate.ToJSON())

	case evConnState:
		st := stateFromPion(ev.state)
		s.mu.Lock()
		s.transition(st)
		s.mu.Unlock()

	case evDataChannel:
		s.mu.Lock()
		s.dc = ev.dc
		s.mu.Unlock()
	}
}

// transition must be called with mu held.
func (s *Session) transition(st State) {
	if s.closed || st == s.state {
		return
	}
	s.logger.Info("connection state changed", "from", s.state, "to", st, "role", s.role)
	s.state = st
	select {
	case s.changes <- st:
	default:
	}
}

func (s *Session) setRole(r Role) {
	s.mu.Lock()
	s.role = r
	s.mu.Unlock()
	s.logger.Info("role assigned", "role", r)
}

func (s *Session) onSignaling(snap relay.Snapshot) {
	rec, kind := parseRecord(snap.Value())
	if kind == RecordInvalid {
		s.logger.Debug("ignoring malformed signaling record")
		return
	}

	obs := Observation{
		First:          !s.observed,
		Role:           s.Role(),
		Kind:           kind,
		LocalPeer:      s.peerID,
		RemotePeer:     rec.PeerID,
		Answered:       s.answered,
		SignalingState: s.pc.SignalingState(),
	}
	s.observed = true

	r, ok := matchRule(obs)
	s.logger.Debug("signaling record observed", "record", kind, "from", rec.PeerID, "rule", r.name, "action", r.action)
	if !ok {
		return
	}

	var err error
	switch r.action {
	case ActionOffer:
		err = s.offer()
	case ActionAnswer:
		err = s.answer(rec)
	case ActionAcceptAnswer:
		err = s.acceptAnswer(rec)
	case ActionReassert, ActionReanswer:
		err = s.republish()
	case ActionYield:
		err = s.yield(rec)
	}
	if err != nil {
		s.logger.Warn("signaling step failed", "action", r.action, "role", s.Role(), "err", err)
	}
}

func (s *Session) offer() error {
	s.setRole(RoleCaller)

	dc, err := createDataChannel(s.pc)
	if err != nil {
		return err
	}
	s.attachChannel(dc)

	desc, err := createOffer(s.pc)
	if err != nil {
		return err
	}
	return s.writeRecord(newRecord(desc, s.peerID))
}

func (s *Session) answer(rec Record) error {
	s.setRole(RoleCallee)
	s.answered = rec.PeerID

	desc, err := createAnswer(s.pc, rec.description())
	s.flushCandidates()
	if err != nil {
		return err
	}
	return s.writeRecord(newRecord(desc, s.peerID))
}

func (s *Session) acceptAnswer(rec Record) error {
	if err := s.pc.SetRemoteDescription(rec.description()); err != nil {
		return NewError("set remote description", err)
	}
	s.flushCandidates()
	return nil
}

// republish writes our current local description again.
func (s *Session) republish() error {
	desc := s.pc.LocalDescription()
	if desc == nil {
		return NewError("republish", errors.New("no local description"))
	}
	return s.writeRecord(newRecord(desc, s.peerID))
}

// yield abandons our offer: the current connection is replaced, our
// candidate slot is cleared and the competing offer is answered.
func (s *Session) yield(rec Record) error {
	s.logger.Info("yielding to competing offer", "remote_peer", rec.PeerID)

	old := s.pc
	s.mu.Lock()
	s.dc = nil
	s.mu.Unlock()

	if err := s.resetConnection(); err != nil {
		return err
	}
	if err := old.Close(); err != nil {
		s.logger.Debug("close replaced connection", "err", err)
	}

	ctx, cancel := s.opContext()
	err := s.ch.Remove(ctx, signaling.CandidatePath(s.roomID, s.peerID))
	cancel()
	if err != nil {
		s.logger.Warn("clear candidate slot", "err", err)
	}

	// Candidates already published by the other side apply to the new
	// connection too.
	if s.lastSlots != nil {
		s.onCandidates(s.lastSlots)
	}
	return s.answer(rec)
}

func (s *Session) resetConnection() error {
	pc, err := newPeerConnection(&s.cfg)
	if err != nil {
		return err
	}

	s.gen++
	gen := s.gen

	pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		s.post(event{kind: evConnState, gen: gen, state: st})
	})
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		s.post(event{kind: evLocalCandidate, gen: gen, candidate: c})
	})
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != ChannelLabel {
			s.logger.Debug("ignoring data channel", "label", dc.Label())
			return
		}
		// Bind handlers right away so no early message is missed; the loop
		// only records the channel.
		s.bindChannel(dc)
		s.post(event{kind: evDataChannel, gen: gen, dc: dc})
	})

	s.pc = pc
	s.remote = newRemoteCandidates()
	s.local = nil
	return nil
}

func (s *Session) attachChannel(dc *webrtc.DataChannel) {
	s.mu.Lock()
	s.dc = dc
	s.mu.Unlock()
	s.bindChannel(dc)
}

func (s *Session) bindChannel(dc *webrtc.DataChannel) {
	dc.OnOpen(func() {
		s.logger.Info("data channel open", "label", dc.Label())
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if !msg.IsString {
			return
		}
		select {
		case <-s.done:
			return
		default:
		}
		s.onMessage(string(msg.Data))
	})
}

func (s *Session) publishCandidate(c webrtc.ICECandidateInit) {
	s.local = append(s.local, c)
	data, err := json.Marshal(s.local)
	if err != nil {
		s.logger.Error("encode candidates", "err", err)
		return
	}

	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.ch.Write(ctx, signaling.CandidatePath(s.roomID, s.peerID), data); err != nil {
		s.logger.Warn("publish candidate", "err", err)
	}
}

func (s *Session) onCandidates(slots map[string][]byte) {
	s.lastSlots = slots
	for _, c := range foreignCandidates(slots, s.peerID) {
		if !s.remote.offer(c) {
			continue
		}
		if s.pc.RemoteDescription() == nil {
			s.remote.hold(c)
			continue
		}
		s.addCandidate(c)
	}
}

func (s *Session) flushCandidates() {
	if s.pc.RemoteDescription() == nil {
		return
	}
	for _, c := range s.remote.flush() {
		s.addCandidate(c)
	}
}

func (s *Session) addCandidate(c webrtc.ICECandidateInit) {
	if err := s.pc.AddICECandidate(c); err != nil {
		s.logger.Debug("add remote candidate", "err", err)
	}
}

func (s *Session) writeRecord(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return NewError("encode signaling record", err)
	}

	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.ch.Write(ctx, signaling.SignalingPath(s.roomID), data); err != nil {
		return NewRoomError("write signaling record", s.roomID, err)
	}
	return nil
}

func (s *Session) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.cfg.SignalTimeout)
}
