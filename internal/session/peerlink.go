package session

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// LinkRole says which side of the negotiation this link took.
type LinkRole int

const (
	RoleCaller LinkRole = iota
	RoleCallee
)

func (r LinkRole) String() string {
	if r == RoleCaller {
		return "caller"
	}
	return "callee"
}

// LinkState is the negotiation state of one peer link.
//
// Caller path: New -> OfferSent -> Connected.
// Callee path: New -> AnswerSent -> Connected.
// Closed is terminal and reachable from every state.
type LinkState int

const (
	LinkNew LinkState = iota
	LinkOfferSent
	LinkAnswerSent
	LinkConnected
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkNew:
		return "new"
	case LinkOfferSent:
		return "offer-sent"
	case LinkAnswerSent:
		return "answer-sent"
	case LinkConnected:
		return "connected"
	default:
		return "closed"
	}
}

// trackSender is the slice of *webrtc.RTPSender the link needs: identifying
// the outgoing track and swapping it without renegotiation.
type trackSender interface {
	Track() webrtc.TrackLocal
	ReplaceTrack(webrtc.TrackLocal) error
}

// peerConnection is the slice of *webrtc.PeerConnection the state machine
// drives. Narrow on purpose: the machine tests against a fake.
type peerConnection interface {
	CreateOffer(*webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(*webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error
	AddTrack(webrtc.TrackLocal) (trackSender, error)
	Close() error
}

// PeerLink is one client's negotiation state for its direct connection to
// one other participant. Cross-client effects only ever arrive as relayed
// messages; nothing mutates a remote link directly.
type PeerLink struct {
	RemoteID string
	Role     LinkRole

	mu        sync.Mutex
	state     LinkState
	pc        peerConnection
	senders   []trackSender
	remoteSet bool

	// pending queues ICE candidates that raced ahead of the remote
	// description; they flush in arrival order once it is applied.
	pending []webrtc.ICECandidateInit
}

// newPeerLink attaches the local tracks and returns the link in LinkNew.
func newPeerLink(remoteID string, role LinkRole, pc peerConnection, tracks []webrtc.TrackLocal) (*PeerLink, error) {
	l := &PeerLink{
		RemoteID: remoteID,
		Role:     role,
		pc:       pc,
	}
	for _, t := range tracks {
		sender, err := pc.AddTrack(t)
		if err != nil {
			pc.Close()
			return nil, NewPeerError("attach track", remoteID, err)
		}
		l.senders = append(l.senders, sender)
	}
	return l, nil
}

// State returns the current negotiation state.
func (l *PeerLink) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// CreateOffer generates and applies the local description, moving the link
// to LinkOfferSent. Caller role only, from LinkNew only.
func (l *PeerLink) CreateOffer() (webrtc.SessionDescription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != LinkNew {
		return webrtc.SessionDescription{}, NewPeerError("create offer", l.RemoteID, ErrBadTransition)
	}
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, NewPeerError("create offer", l.RemoteID, err)
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, NewPeerError("set local description", l.RemoteID, err)
	}
	l.state = LinkOfferSent
	return offer, nil
}

// HandleOffer applies the remote offer and produces the local answer,
// moving the link to LinkAnswerSent. Callee role only, from LinkNew only.
func (l *PeerLink) HandleOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != LinkNew {
		return webrtc.SessionDescription{}, NewPeerError("handle offer", l.RemoteID, ErrBadTransition)
	}
	if err := l.applyRemoteLocked(offer); err != nil {
		return webrtc.SessionDescription{}, NewPeerError("set remote description", l.RemoteID, err)
	}
	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, NewPeerError("create answer", l.RemoteID, err)
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, NewPeerError("set local description", l.RemoteID, err)
	}
	l.state = LinkAnswerSent
	return answer, nil
}

// HandleAnswer applies the remote answer to a sent offer, moving the link
// to LinkConnected.
func (l *PeerLink) HandleAnswer(answer webrtc.SessionDescription) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != LinkOfferSent {
		return NewPeerError("handle answer", l.RemoteID, ErrBadTransition)
	}
	if err := l.applyRemoteLocked(answer); err != nil {
		return NewPeerError("set remote description", l.RemoteID, err)
	}
	l.state = LinkConnected
	return nil
}

// applyRemoteLocked sets the remote description and flushes any queued
// candidates in arrival order.
func (l *PeerLink) applyRemoteLocked(desc webrtc.SessionDescription) error {
	if err := l.pc.SetRemoteDescription(desc); err != nil {
		return err
	}
	l.remoteSet = true
	for _, c := range l.pending {
		if err := l.pc.AddICECandidate(c); err != nil {
			return err
		}
	}
	l.pending = nil
	return nil
}

// AddCandidate applies a remote ICE candidate, queueing it if the remote
// description has not been applied yet.
func (l *PeerLink) AddCandidate(c webrtc.ICECandidateInit) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == LinkClosed {
		return nil
	}
	if !l.remoteSet {
		l.pending = append(l.pending, c)
		return nil
	}
	if err := l.pc.AddICECandidate(c); err != nil {
		return NewPeerError("add ICE candidate", l.RemoteID, err)
	}
	return nil
}

// markConnected records transport-level connectivity. The callee has no
// answer to receive, so this is how its link reaches LinkConnected.
func (l *PeerLink) markConnected() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LinkOfferSent || l.state == LinkAnswerSent {
		l.state = LinkConnected
	}
}

// ReplaceVideoTrack swaps the outgoing video track in place, keeping the
// media pipeline connected with no offer/answer cycle. Audio senders are
// untouched.
func (l *PeerLink) ReplaceVideoTrack(t webrtc.TrackLocal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == LinkClosed {
		return nil
	}
	for _, sender := range l.senders {
		current := sender.Track()
		if current == nil || current.Kind() != webrtc.RTPCodecTypeVideo {
			continue
		}
		if err := sender.ReplaceTrack(t); err != nil {
			return NewPeerError("replace video track", l.RemoteID, err)
		}
	}
	return nil
}

// Close discards the link. Idempotent; other links are unaffected.
func (l *PeerLink) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == LinkClosed {
		return
	}
	l.state = LinkClosed
	l.pending = nil
	l.pc.Close()
}
