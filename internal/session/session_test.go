package session

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/kumarharshit0413/Nexus/internal/protocol"
)

type fakeWire struct {
	mu       sync.Mutex
	sent     []*protocol.Message
	incoming chan *protocol.Message
	closed   int
}

func newFakeWire() *fakeWire {
	return &fakeWire{incoming: make(chan *protocol.Message, 32)}
}

func (w *fakeWire) Send(m *protocol.Message) {
	w.mu.Lock()
	w.sent = append(w.sent, m)
	w.mu.Unlock()
}

func (w *fakeWire) Incoming() <-chan *protocol.Message { return w.incoming }

func (w *fakeWire) Close() {
	w.mu.Lock()
	w.closed++
	w.mu.Unlock()
}

func (w *fakeWire) sentOfType(msgType string) []*protocol.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*protocol.Message
	for _, m := range w.sent {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

type fakeMedia struct {
	mu          sync.Mutex
	camera      webrtc.TrackLocal
	screen      webrtc.TrackLocal
	screenLive  bool
	closedCount int
}

func newFakeMedia(t *testing.T) *fakeMedia {
	return &fakeMedia{
		camera: videoTrack(t, "video"),
		screen: videoTrack(t, "screen"),
	}
}

func (m *fakeMedia) Tracks() []webrtc.TrackLocal { return []webrtc.TrackLocal{m.camera} }

func (m *fakeMedia) CameraTrack() webrtc.TrackLocal { return m.camera }

func (m *fakeMedia) StartScreen() (webrtc.TrackLocal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.screenLive {
		return nil, ErrAlreadySharing
	}
	m.screenLive = true
	return m.screen, nil
}

func (m *fakeMedia) StopScreen() {
	m.mu.Lock()
	m.screenLive = false
	m.mu.Unlock()
}

func (m *fakeMedia) Close() {
	m.mu.Lock()
	m.closedCount++
	m.mu.Unlock()
}

// pcRecorder hands out fake peer connections and remembers the callbacks
// each one was built with.
type pcRecorder struct {
	mu        sync.Mutex
	pcs       []*fakePC
	callbacks []PCCallbacks
}

func (r *pcRecorder) factory() PCFactory {
	return func(cb PCCallbacks) (peerConnection, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		pc := &fakePC{}
		r.pcs = append(r.pcs, pc)
		r.callbacks = append(r.callbacks, cb)
		return pc, nil
	}
}

func newTestSession(t *testing.T) (*Session, *fakeWire, *fakeMedia, *pcRecorder) {
	t.Helper()
	wire := newFakeWire()
	media := newFakeMedia(t)
	rec := &pcRecorder{}
	sess := New(wire, media, rec.factory(), "standup", "Alice")
	return sess, wire, media, rec
}

func descPayload(t *testing.T, typ webrtc.SDPType) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(webrtc.SessionDescription{Type: typ, SDP: "v=0"})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestRunAnnouncesJoinThenDrains(t *testing.T) {
	sess, wire, _, _ := newTestSession(t)
	close(wire.incoming)
	if err := sess.Run(); err != nil {
		t.Fatal(err)
	}

	joins := wire.sentOfType(protocol.TypeJoinRoom)
	if len(joins) != 1 {
		t.Fatalf("join-room sent %d times, want 1", len(joins))
	}
	var p protocol.JoinRoom
	if err := joins[0].Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.RoomID != "standup" || p.DisplayName != "Alice" {
		t.Fatalf("join=%+v, want standup/Alice", p)
	}
}

func TestNewPeerTriggersOneOffer(t *testing.T) {
	sess, wire, _, rec := newTestSession(t)

	sess.handle(protocol.MustMessage(protocol.TypeUserJoined, protocol.UserJoined{
		ConnectionID: "c2", DisplayName: "Bob",
	}))

	offers := wire.sentOfType(protocol.TypeOffer)
	if len(offers) != 1 {
		t.Fatalf("offers=%d, want 1", len(offers))
	}
	var p protocol.SessionDesc
	if err := offers[0].Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Target != "c2" {
		t.Fatalf("target=%q, want c2", p.Target)
	}
	if got := sess.Links()["c2"]; got != LinkOfferSent {
		t.Fatalf("link state=%v, want offer-sent", got)
	}
	if len(rec.pcs) != 1 {
		t.Fatalf("peer connections=%d, want 1", len(rec.pcs))
	}

	// The answer completes the caller side.
	sess.handle(protocol.MustMessage(protocol.TypeAnswer, protocol.SessionDesc{
		CalleeID: "c2", SDP: descPayload(t, webrtc.SDPTypeAnswer),
	}))
	if got := sess.Links()["c2"]; got != LinkConnected {
		t.Fatalf("link state=%v, want connected", got)
	}
}

func TestInboundOfferAnswered(t *testing.T) {
	sess, wire, _, rec := newTestSession(t)

	sess.handle(protocol.MustMessage(protocol.TypeOffer, protocol.SessionDesc{
		CallerID: "c2", SDP: descPayload(t, webrtc.SDPTypeOffer),
	}))

	answers := wire.sentOfType(protocol.TypeAnswer)
	if len(answers) != 1 {
		t.Fatalf("answers=%d, want 1", len(answers))
	}
	var p protocol.SessionDesc
	if err := answers[0].Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Target != "c2" {
		t.Fatalf("target=%q, want c2", p.Target)
	}
	if got := sess.Links()["c2"]; got != LinkAnswerSent {
		t.Fatalf("link state=%v, want answer-sent", got)
	}

	// Transport connectivity completes the callee side.
	rec.callbacks[0].OnConnected()
	if got := sess.Links()["c2"]; got != LinkConnected {
		t.Fatalf("link state=%v, want connected", got)
	}
}

func TestDuplicateOfferDropped(t *testing.T) {
	sess, wire, _, _ := newTestSession(t)

	offer := protocol.MustMessage(protocol.TypeOffer, protocol.SessionDesc{
		CallerID: "c2", SDP: descPayload(t, webrtc.SDPTypeOffer),
	})
	sess.handle(offer)
	sess.handle(offer)

	if got := len(wire.sentOfType(protocol.TypeAnswer)); got != 1 {
		t.Fatalf("answers=%d, want 1 (duplicate offer must be dropped)", got)
	}
	if got := len(sess.Links()); got != 1 {
		t.Fatalf("links=%d, want 1", got)
	}
}

func TestLocalCandidatesAddressedToPeer(t *testing.T) {
	sess, wire, _, rec := newTestSession(t)

	sess.handle(protocol.MustMessage(protocol.TypeUserJoined, protocol.UserJoined{ConnectionID: "c2"}))
	rec.callbacks[0].OnCandidate(webrtc.ICECandidateInit{Candidate: "candidate:1"})

	ice := wire.sentOfType(protocol.TypeICE)
	if len(ice) != 1 {
		t.Fatalf("candidates sent=%d, want 1", len(ice))
	}
	var p protocol.ICECandidate
	if err := ice[0].Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Target != "c2" {
		t.Fatalf("target=%q, want c2", p.Target)
	}
}

func TestRemoteCandidateRouted(t *testing.T) {
	sess, _, _, rec := newTestSession(t)

	sess.handle(protocol.MustMessage(protocol.TypeOffer, protocol.SessionDesc{
		CallerID: "c2", SDP: descPayload(t, webrtc.SDPTypeOffer),
	}))

	cand, _ := json.Marshal(webrtc.ICECandidateInit{Candidate: "candidate:9"})
	sess.handle(protocol.MustMessage(protocol.TypeICE, protocol.ICECandidate{
		SenderID: "c2", Candidate: cand,
	}))

	pc := rec.pcs[0]
	if len(pc.candidates) != 1 || pc.candidates[0].Candidate != "candidate:9" {
		t.Fatalf("candidates=%v, want candidate:9 applied", pc.candidates)
	}

	// A candidate for a peer we never negotiated with is dropped.
	sess.handle(protocol.MustMessage(protocol.TypeICE, protocol.ICECandidate{
		SenderID: "ghost", Candidate: cand,
	}))
}

func TestPeerDepartureClosesOnlyItsLink(t *testing.T) {
	sess, _, _, rec := newTestSession(t)

	sess.handle(protocol.MustMessage(protocol.TypeUserJoined, protocol.UserJoined{ConnectionID: "c2"}))
	sess.handle(protocol.MustMessage(protocol.TypeUserJoined, protocol.UserJoined{ConnectionID: "c3"}))

	sess.handle(protocol.MustMessage(protocol.TypeUserLeft, "c2"))

	if rec.pcs[0].closed != 1 {
		t.Fatal("departed peer's connection should be closed")
	}
	if rec.pcs[1].closed != 0 {
		t.Fatal("remaining peer's connection must be untouched")
	}
	links := sess.Links()
	if len(links) != 1 || links["c3"] != LinkOfferSent {
		t.Fatalf("links=%v, want only c3", links)
	}
}

func TestTransportFailureAbandonsLink(t *testing.T) {
	sess, _, _, rec := newTestSession(t)

	sess.handle(protocol.MustMessage(protocol.TypeUserJoined, protocol.UserJoined{ConnectionID: "c2"}))
	rec.callbacks[0].OnFailed()

	if len(sess.Links()) != 0 {
		t.Fatalf("links=%v, want none after transport failure", sess.Links())
	}
	if rec.pcs[0].closed != 1 {
		t.Fatal("failed connection should be closed")
	}
}

func TestShareSubstitutesTracksInPlace(t *testing.T) {
	sess, wire, media, rec := newTestSession(t)

	sess.handle(protocol.MustMessage(protocol.TypeUserJoined, protocol.UserJoined{ConnectionID: "c2"}))
	sess.handle(protocol.MustMessage(protocol.TypeUserJoined, protocol.UserJoined{ConnectionID: "c3"}))

	if err := sess.StartShare(); err != nil {
		t.Fatal(err)
	}
	for i, pc := range rec.pcs {
		sender := pc.senders[0]
		if sender.track != media.screen {
			t.Fatalf("pc %d still sends %v, want screen track", i, sender.track)
		}
	}
	if got := len(wire.sentOfType(protocol.TypeStartShare)); got != 1 {
		t.Fatalf("start-share sent %d times, want 1", got)
	}

	// No renegotiation: zero offers beyond the two initial ones.
	if got := len(wire.sentOfType(protocol.TypeOffer)); got != 2 {
		t.Fatalf("offers=%d, want 2 (substitution must not renegotiate)", got)
	}

	if err := sess.StartShare(); err == nil {
		t.Fatal("second share while active should fail")
	}

	sess.StopShare()
	for i, pc := range rec.pcs {
		if pc.senders[0].track != media.camera {
			t.Fatalf("pc %d not restored to camera", i)
		}
	}
	if got := len(wire.sentOfType(protocol.TypeStopShare)); got != 1 {
		t.Fatalf("stop-share sent %d times, want 1", got)
	}
}

func TestSharedStateSurfacesAsUpdates(t *testing.T) {
	sess, _, _, _ := newTestSession(t)

	sess.handle(protocol.MustMessage(protocol.TypeUpdateParticipants, map[string]string{
		"c1": "Alice", "c2": "Bob",
	}))
	sess.handle(protocol.MustMessage(protocol.TypeNotesUpdated, "agenda"))
	sess.handle(protocol.MustMessage(protocol.TypeReceiveMessage, protocol.ReceiveMessage{
		Message: "hi", SenderID: "c2", DisplayName: "Bob",
	}))
	sess.handle(protocol.MustMessage(protocol.TypeUserStartedSharing, "c2"))
	sess.handle(&protocol.Message{Type: protocol.TypePollUpdate}) // null payload

	var kinds []UpdateKind
	for len(sess.Updates()) > 0 {
		u := <-sess.Updates()
		kinds = append(kinds, u.Kind)
		switch u.Kind {
		case UpdateParticipants:
			if u.Participants["c2"] != "Bob" {
				t.Fatalf("participants=%v", u.Participants)
			}
		case UpdateNotes:
			if u.Notes != "agenda" {
				t.Fatalf("notes=%q", u.Notes)
			}
		case UpdateChat:
			if u.Chat.Message != "hi" || u.Chat.SenderID != "c2" {
				t.Fatalf("chat=%+v", u.Chat)
			}
		case UpdatePoll:
			if u.Poll != nil {
				t.Fatalf("poll=%+v, want nil for null payload", u.Poll)
			}
		}
	}
	want := []UpdateKind{UpdateParticipants, UpdateNotes, UpdateChat, UpdateShare, UpdatePoll}
	if len(kinds) != len(want) {
		t.Fatalf("kinds=%v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds=%v, want %v", kinds, want)
		}
	}
	if got := sess.SharerID(); got != "c2" {
		t.Fatalf("sharer=%q, want c2", got)
	}
}

func TestCloseTearsEverythingDownOnce(t *testing.T) {
	sess, wire, media, rec := newTestSession(t)
	sess.handle(protocol.MustMessage(protocol.TypeUserJoined, protocol.UserJoined{ConnectionID: "c2"}))

	sess.Close()
	sess.Close()

	if rec.pcs[0].closed != 1 {
		t.Fatalf("pc closed %d times, want 1", rec.pcs[0].closed)
	}
	if media.closedCount != 1 {
		t.Fatalf("media closed %d times, want 1", media.closedCount)
	}
	if wire.closed != 1 {
		t.Fatalf("wire closed %d times, want 1", wire.closed)
	}

	// A peer arriving after close must not get a link.
	sess.handle(protocol.MustMessage(protocol.TypeUserJoined, protocol.UserJoined{ConnectionID: "c3"}))
	if len(sess.Links()) != 0 {
		t.Fatalf("links=%v, want none after close", sess.Links())
	}
}
