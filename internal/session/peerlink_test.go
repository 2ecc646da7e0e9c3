package session

import (
	"errors"
	"reflect"
	"testing"

	"github.com/pion/webrtc/v4"
)

type fakeSender struct {
	track      webrtc.TrackLocal
	replaced   []webrtc.TrackLocal
	replaceErr error
}

func (f *fakeSender) Track() webrtc.TrackLocal { return f.track }

func (f *fakeSender) ReplaceTrack(t webrtc.TrackLocal) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replaced = append(f.replaced, t)
	f.track = t
	return nil
}

type fakePC struct {
	local      []webrtc.SessionDescription
	remote     []webrtc.SessionDescription
	candidates []webrtc.ICECandidateInit
	senders    []*fakeSender
	closed     int

	offerErr  error
	answerErr error
	remoteErr error
}

func (f *fakePC) CreateOffer(*webrtc.OfferOptions) (webrtc.SessionDescription, error) {
	if f.offerErr != nil {
		return webrtc.SessionDescription{}, f.offerErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}, nil
}

func (f *fakePC) CreateAnswer(*webrtc.AnswerOptions) (webrtc.SessionDescription, error) {
	if f.answerErr != nil {
		return webrtc.SessionDescription{}, f.answerErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}, nil
}

func (f *fakePC) SetLocalDescription(d webrtc.SessionDescription) error {
	f.local = append(f.local, d)
	return nil
}

func (f *fakePC) SetRemoteDescription(d webrtc.SessionDescription) error {
	if f.remoteErr != nil {
		return f.remoteErr
	}
	f.remote = append(f.remote, d)
	return nil
}

func (f *fakePC) AddICECandidate(c webrtc.ICECandidateInit) error {
	f.candidates = append(f.candidates, c)
	return nil
}

func (f *fakePC) AddTrack(t webrtc.TrackLocal) (trackSender, error) {
	s := &fakeSender{track: t}
	f.senders = append(f.senders, s)
	return s, nil
}

func (f *fakePC) Close() error {
	f.closed++
	return nil
}

func audioTrack(t *testing.T) webrtc.TrackLocal {
	t.Helper()
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2,
	}, "audio", "test-mic")
	if err != nil {
		t.Fatal(err)
	}
	return track
}

func videoTrack(t *testing.T, id string) webrtc.TrackLocal {
	t.Helper()
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType: webrtc.MimeTypeVP8, ClockRate: 90000,
	}, id, "test-"+id)
	if err != nil {
		t.Fatal(err)
	}
	return track
}

func newTestLink(t *testing.T, role LinkRole) (*PeerLink, *fakePC) {
	t.Helper()
	pc := &fakePC{}
	link, err := newPeerLink("peer-1", role, pc, []webrtc.TrackLocal{audioTrack(t), videoTrack(t, "video")})
	if err != nil {
		t.Fatal(err)
	}
	return link, pc
}

func TestCallerFlow(t *testing.T) {
	link, pc := newTestLink(t, RoleCaller)
	if got := link.State(); got != LinkNew {
		t.Fatalf("state=%v, want new", got)
	}

	offer, err := link.CreateOffer()
	if err != nil {
		t.Fatal(err)
	}
	if offer.Type != webrtc.SDPTypeOffer {
		t.Fatalf("offer type=%v", offer.Type)
	}
	if len(pc.local) != 1 {
		t.Fatalf("local descriptions=%d, want 1", len(pc.local))
	}
	if got := link.State(); got != LinkOfferSent {
		t.Fatalf("state=%v, want offer-sent", got)
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"}
	if err := link.HandleAnswer(answer); err != nil {
		t.Fatal(err)
	}
	if got := link.State(); got != LinkConnected {
		t.Fatalf("state=%v, want connected", got)
	}
	if len(pc.remote) != 1 {
		t.Fatalf("remote descriptions=%d, want 1", len(pc.remote))
	}
}

func TestCalleeFlow(t *testing.T) {
	link, pc := newTestLink(t, RoleCallee)

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"}
	answer, err := link.HandleOffer(offer)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Type != webrtc.SDPTypeAnswer {
		t.Fatalf("answer type=%v", answer.Type)
	}
	if got := link.State(); got != LinkAnswerSent {
		t.Fatalf("state=%v, want answer-sent", got)
	}
	if len(pc.remote) != 1 || len(pc.local) != 1 {
		t.Fatalf("remote=%d local=%d, want 1/1", len(pc.remote), len(pc.local))
	}

	// Transport connectivity is what completes the callee side.
	link.markConnected()
	if got := link.State(); got != LinkConnected {
		t.Fatalf("state=%v, want connected", got)
	}
}

func TestAnswerInWrongState(t *testing.T) {
	link, _ := newTestLink(t, RoleCaller)

	err := link.HandleAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer})
	if !errors.Is(err, ErrBadTransition) {
		t.Fatalf("err=%v, want ErrBadTransition before an offer was sent", err)
	}
}

func TestDuplicateOfferRejected(t *testing.T) {
	link, _ := newTestLink(t, RoleCallee)

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"}
	if _, err := link.HandleOffer(offer); err != nil {
		t.Fatal(err)
	}
	if _, err := link.HandleOffer(offer); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("err=%v, want ErrBadTransition for a second offer", err)
	}
}

func TestCandidatesQueueUntilRemoteDescription(t *testing.T) {
	link, pc := newTestLink(t, RoleCallee)

	early := []webrtc.ICECandidateInit{
		{Candidate: "candidate:1"},
		{Candidate: "candidate:2"},
		{Candidate: "candidate:3"},
	}
	for _, c := range early {
		if err := link.AddCandidate(c); err != nil {
			t.Fatal(err)
		}
	}
	if len(pc.candidates) != 0 {
		t.Fatalf("candidates applied before remote description: %d", len(pc.candidates))
	}

	if _, err := link.HandleOffer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(pc.candidates, early) {
		t.Fatalf("flushed=%v, want arrival order %v", pc.candidates, early)
	}

	// After the remote description, candidates apply directly.
	late := webrtc.ICECandidateInit{Candidate: "candidate:4"}
	if err := link.AddCandidate(late); err != nil {
		t.Fatal(err)
	}
	if len(pc.candidates) != 4 || pc.candidates[3].Candidate != "candidate:4" {
		t.Fatalf("candidates=%v, want direct apply of the late one", pc.candidates)
	}
}

func TestReplaceVideoTrackLeavesAudioAlone(t *testing.T) {
	link, pc := newTestLink(t, RoleCaller)

	screen := videoTrack(t, "screen")
	if err := link.ReplaceVideoTrack(screen); err != nil {
		t.Fatal(err)
	}

	// senders[0] is audio, senders[1] is video.
	if len(pc.senders[0].replaced) != 0 {
		t.Fatal("audio sender must not be touched")
	}
	if len(pc.senders[1].replaced) != 1 || pc.senders[1].track != screen {
		t.Fatal("video sender should carry the screen track")
	}

	camera := videoTrack(t, "video")
	if err := link.ReplaceVideoTrack(camera); err != nil {
		t.Fatal(err)
	}
	if pc.senders[1].track != camera {
		t.Fatal("video sender should be restored to the camera track")
	}
}

func TestReplaceVideoTrackError(t *testing.T) {
	link, pc := newTestLink(t, RoleCaller)
	pc.senders[1].replaceErr = errors.New("sender gone")

	if err := link.ReplaceVideoTrack(videoTrack(t, "screen")); err == nil {
		t.Fatal("expected substitution error to surface")
	}
}

func TestCloseIsIdempotentAndTerminal(t *testing.T) {
	link, pc := newTestLink(t, RoleCaller)

	link.Close()
	link.Close()
	if pc.closed != 1 {
		t.Fatalf("pc closed %d times, want 1", pc.closed)
	}
	if got := link.State(); got != LinkClosed {
		t.Fatalf("state=%v, want closed", got)
	}

	// A closed link swallows late signaling instead of failing it.
	if err := link.AddCandidate(webrtc.ICECandidateInit{Candidate: "late"}); err != nil {
		t.Fatalf("candidate after close: %v", err)
	}
	if err := link.ReplaceVideoTrack(videoTrack(t, "screen")); err != nil {
		t.Fatalf("replace after close: %v", err)
	}
	if _, err := link.CreateOffer(); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("offer after close: %v, want ErrBadTransition", err)
	}
}

func TestAttachTrackFailureClosesPC(t *testing.T) {
	pc := &failingAddTrackPC{}
	_, err := newPeerLink("peer-1", RoleCaller, pc, []webrtc.TrackLocal{audioTrack(t)})
	if err == nil {
		t.Fatal("expected attach failure")
	}
	if pc.closed != 1 {
		t.Fatalf("pc closed %d times, want 1", pc.closed)
	}
}

type failingAddTrackPC struct {
	fakePC
}

func (f *failingAddTrackPC) AddTrack(webrtc.TrackLocal) (trackSender, error) {
	return nil, errors.New("no transceiver")
}
