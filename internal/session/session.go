package session

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/kumarharshit0413/Nexus/internal/protocol"
)

// UpdateKind labels a session update for the UI.
type UpdateKind int

const (
	UpdateParticipants UpdateKind = iota
	UpdateChat
	UpdateNotes
	UpdatePoll
	UpdateShare
	UpdatePeerState
	UpdateRemoteTrack
)

// Update is one room event surfaced to the UI layer.
type Update struct {
	Kind         UpdateKind
	Participants map[string]string
	Chat         *ChatEvent
	Notes        string
	Poll         *protocol.Poll
	SharerID     string
	PeerID       string
	PeerState    LinkState
	TrackKind    string
}

// Session is one participant's connection to a room: the signaling wire,
// the local media tracks and one PeerLink per remote participant.
type Session struct {
	RoomID      string
	DisplayName string

	wire  Signaler
	media MediaSource
	newPC PCFactory

	mu       sync.Mutex
	links    map[string]*PeerLink
	sharerID string
	closed   bool

	updates chan Update
}

// New assembles a session. Run joins the room and drives it.
func New(wire Signaler, media MediaSource, newPC PCFactory, roomID, displayName string) *Session {
	return &Session{
		RoomID:      roomID,
		DisplayName: displayName,
		wire:        wire,
		media:       media,
		newPC:       newPC,
		links:       make(map[string]*PeerLink),
		updates:     make(chan Update, 64),
	}
}

// Updates returns the channel of room events for the UI.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Run announces the room join and processes server events until the wire
// drops or the session closes.
func (s *Session) Run() error {
	s.wire.Send(protocol.MustMessage(protocol.TypeJoinRoom, protocol.JoinRoom{
		RoomID:      s.RoomID,
		DisplayName: s.DisplayName,
	}))

	for msg := range s.wire.Incoming() {
		s.handle(msg)
	}
	return nil
}

func (s *Session) handle(m *protocol.Message) {
	ev, err := ParseEvent(m)
	if err != nil {
		slog.Debug("dropping malformed event", "type", m.Type, "err", err)
		return
	}

	switch ev := ev.(type) {
	case JoinedEvent:
		s.callPeer(ev.ConnectionID)
	case OfferEvent:
		s.answerPeer(ev)
	case AnswerEvent:
		s.completeOffer(ev)
	case CandidateEvent:
		s.addCandidate(ev)
	case LeftEvent:
		s.dropPeer(ev.ConnectionID)
	case ParticipantsEvent:
		s.push(Update{Kind: UpdateParticipants, Participants: ev})
	case ShareStartedEvent:
		s.mu.Lock()
		s.sharerID = ev.SharerID
		s.mu.Unlock()
		s.push(Update{Kind: UpdateShare, SharerID: ev.SharerID})
	case ShareStoppedEvent:
		s.mu.Lock()
		s.sharerID = ""
		s.mu.Unlock()
		s.push(Update{Kind: UpdateShare})
	case PollEvent:
		s.push(Update{Kind: UpdatePoll, Poll: ev.Poll})
	case NotesEvent:
		s.push(Update{Kind: UpdateNotes, Notes: ev.Notes})
	case ChatEvent:
		s.push(Update{Kind: UpdateChat, Chat: &ev})
	}
}

// callPeer starts a caller-role negotiation toward a newly joined member.
func (s *Session) callPeer(remoteID string) {
	link, err := s.createLink(remoteID, RoleCaller)
	if err != nil {
		slog.Warn("failed to create peer link", "peer", remoteID, "err", err)
		return
	}
	if link == nil {
		return // already negotiating with this peer
	}

	offer, err := link.CreateOffer()
	if err != nil {
		slog.Warn("offer failed, abandoning link", "peer", remoteID, "err", err)
		s.abandon(remoteID)
		return
	}
	s.sendDesc(protocol.TypeOffer, remoteID, offer)
	s.push(Update{Kind: UpdatePeerState, PeerID: remoteID, PeerState: LinkOfferSent})
}

// answerPeer runs the callee side for an inbound offer. An offer for a peer
// we already track is a duplicate and is dropped.
func (s *Session) answerPeer(ev OfferEvent) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(ev.SDP, &offer); err != nil {
		slog.Debug("dropping malformed offer", "peer", ev.CallerID, "err", err)
		return
	}

	link, err := s.createLink(ev.CallerID, RoleCallee)
	if err != nil {
		slog.Warn("failed to create peer link", "peer", ev.CallerID, "err", err)
		return
	}
	if link == nil {
		return
	}

	answer, err := link.HandleOffer(offer)
	if err != nil {
		slog.Warn("answer failed, abandoning link", "peer", ev.CallerID, "err", err)
		s.abandon(ev.CallerID)
		return
	}
	s.sendDesc(protocol.TypeAnswer, ev.CallerID, answer)
	s.push(Update{Kind: UpdatePeerState, PeerID: ev.CallerID, PeerState: LinkAnswerSent})
}

func (s *Session) completeOffer(ev AnswerEvent) {
	link := s.link(ev.CalleeID)
	if link == nil {
		return
	}
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(ev.SDP, &answer); err != nil {
		slog.Debug("dropping malformed answer", "peer", ev.CalleeID, "err", err)
		return
	}
	if err := link.HandleAnswer(answer); err != nil {
		slog.Warn("applying answer failed, abandoning link", "peer", ev.CalleeID, "err", err)
		s.abandon(ev.CalleeID)
		return
	}
	s.push(Update{Kind: UpdatePeerState, PeerID: ev.CalleeID, PeerState: LinkConnected})
}

// addCandidate routes one remote candidate; candidates for unknown links
// are dropped.
func (s *Session) addCandidate(ev CandidateEvent) {
	link := s.link(ev.SenderID)
	if link == nil {
		return
	}
	var c webrtc.ICECandidateInit
	if err := json.Unmarshal(ev.Candidate, &c); err != nil {
		return
	}
	if err := link.AddCandidate(c); err != nil {
		slog.Debug("candidate rejected", "peer", ev.SenderID, "err", err)
	}
}

// dropPeer discards one link on departure; all others are unaffected.
func (s *Session) dropPeer(remoteID string) {
	s.mu.Lock()
	link := s.links[remoteID]
	delete(s.links, remoteID)
	if s.sharerID == remoteID {
		s.sharerID = ""
	}
	s.mu.Unlock()

	if link != nil {
		link.Close()
	}
	s.push(Update{Kind: UpdatePeerState, PeerID: remoteID, PeerState: LinkClosed})
}

// createLink builds the peer connection, registers the link and attaches
// local tracks. Returns nil when a link for the peer already exists.
func (s *Session) createLink(remoteID string, role LinkRole) (*PeerLink, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if _, exists := s.links[remoteID]; exists {
		s.mu.Unlock()
		return nil, nil
	}
	s.mu.Unlock()

	pc, err := s.newPC(PCCallbacks{
		OnCandidate: func(c webrtc.ICECandidateInit) {
			s.sendCandidate(remoteID, c)
		},
		OnConnected: func() {
			s.peerConnected(remoteID)
		},
		OnFailed: func() {
			slog.Warn("transport failed, abandoning link", "peer", remoteID)
			s.abandon(remoteID)
		},
		OnRemoteTrack: func(track *webrtc.TrackRemote) {
			s.push(Update{Kind: UpdateRemoteTrack, PeerID: remoteID, TrackKind: track.Kind().String()})
		},
	})
	if err != nil {
		return nil, err
	}

	link, err := newPeerLink(remoteID, role, pc, s.media.Tracks())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed || s.links[remoteID] != nil {
		s.mu.Unlock()
		link.Close()
		return nil, nil
	}
	s.links[remoteID] = link
	s.mu.Unlock()
	return link, nil
}

func (s *Session) link(remoteID string) *PeerLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links[remoteID]
}

func (s *Session) peerConnected(remoteID string) {
	link := s.link(remoteID)
	if link == nil {
		return
	}
	link.markConnected()
	s.push(Update{Kind: UpdatePeerState, PeerID: remoteID, PeerState: LinkConnected})
}

// abandon discards one failed link without touching the rest.
func (s *Session) abandon(remoteID string) {
	s.mu.Lock()
	link := s.links[remoteID]
	delete(s.links, remoteID)
	s.mu.Unlock()

	if link != nil {
		link.Close()
		s.push(Update{Kind: UpdatePeerState, PeerID: remoteID, PeerState: LinkClosed})
	}
}

func (s *Session) sendDesc(msgType, target string, desc webrtc.SessionDescription) {
	sdp, err := json.Marshal(desc)
	if err != nil {
		return
	}
	s.wire.Send(protocol.MustMessage(msgType, protocol.SessionDesc{Target: target, SDP: sdp}))
}

func (s *Session) sendCandidate(target string, c webrtc.ICECandidateInit) {
	candidate, err := json.Marshal(c)
	if err != nil {
		return
	}
	s.wire.Send(protocol.MustMessage(protocol.TypeICE, protocol.ICECandidate{Target: target, Candidate: candidate}))
}

// SendChat sends one chat message; the room echo carries provenance.
func (s *Session) SendChat(text string) {
	s.wire.Send(protocol.MustMessage(protocol.TypeSendMessage, protocol.SendMessage{
		RoomID:  s.RoomID,
		Message: text,
	}))
}

// SyncNotes replaces the room's shared notes, last write wins.
func (s *Session) SyncNotes(notes string) {
	s.wire.Send(protocol.MustMessage(protocol.TypeSyncNotes, protocol.SyncNotes{Notes: notes}))
}

// CreatePoll opens a poll in the room.
func (s *Session) CreatePoll(question string, options []string) {
	s.wire.Send(protocol.MustMessage(protocol.TypeCreatePoll, protocol.CreatePoll{
		Question: question,
		Options:  options,
	}))
}

// Vote casts a vote on the active poll.
func (s *Session) Vote(optionIndex int) {
	s.wire.Send(protocol.MustMessage(protocol.TypeSubmitVote, optionIndex))
}

// ClosePoll closes the active poll; the server enforces creator-only.
func (s *Session) ClosePoll() {
	s.wire.Send(&protocol.Message{Type: protocol.TypeClosePoll})
}

// StartShare acquires the screen track and substitutes it on every live
// link in place, then announces the share.
func (s *Session) StartShare() error {
	screen, err := s.media.StartScreen()
	if err != nil {
		return err
	}

	for _, link := range s.snapshotLinks() {
		if err := link.ReplaceVideoTrack(screen); err != nil {
			slog.Warn("track substitution failed", "peer", link.RemoteID, "err", err)
		}
	}
	s.wire.Send(&protocol.Message{Type: protocol.TypeStartShare})
	return nil
}

// StopShare restores the camera track on every link and announces the stop.
func (s *Session) StopShare() {
	s.media.StopScreen()
	camera := s.media.CameraTrack()

	for _, link := range s.snapshotLinks() {
		if err := link.ReplaceVideoTrack(camera); err != nil {
			slog.Warn("track substitution failed", "peer", link.RemoteID, "err", err)
		}
	}
	s.wire.Send(&protocol.Message{Type: protocol.TypeStopShare})
}

// SharerID returns the current remote sharer, "" when none.
func (s *Session) SharerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sharerID
}

// Links reports each remote id with its negotiation state.
func (s *Session) Links() map[string]LinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]LinkState, len(s.links))
	for id, l := range s.links {
		out[id] = l.State()
	}
	return out
}

func (s *Session) snapshotLinks() []*PeerLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*PeerLink, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	return out
}

// push surfaces an update without ever blocking the session loop.
func (s *Session) push(u Update) {
	select {
	case s.updates <- u:
	default:
		slog.Debug("update dropped, UI not keeping up", "kind", u.Kind)
	}
}

// Close leaves the room immediately and unconditionally: every link is
// closed, every track released, the wire torn down. In-flight negotiation
// is not waited for.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	links := make([]*PeerLink, 0, len(s.links))
	for _, l := range s.links {
		links = append(links, l)
	}
	s.links = make(map[string]*PeerLink)
	s.mu.Unlock()

	for _, l := range links {
		l.Close()
	}
	s.media.Close()
	s.wire.Close()
}
