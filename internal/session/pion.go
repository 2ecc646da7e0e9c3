package session

import (
	"github.com/pion/webrtc/v4"

	"github.com/kumarharshit0413/Nexus/internal/config"
)

// PCCallbacks are the out-of-band notifications a peer connection feeds
// back into the session.
type PCCallbacks struct {
	// OnCandidate fires for each locally gathered ICE candidate.
	OnCandidate func(webrtc.ICECandidateInit)

	// OnConnected fires when the transport reaches connected.
	OnConnected func()

	// OnFailed fires when the transport fails. The session abandons the
	// link; other links are unaffected.
	OnFailed func()

	// OnRemoteTrack fires when remote media starts arriving.
	OnRemoteTrack func(*webrtc.TrackRemote)
}

// PCFactory builds one peer connection per remote participant. Tests
// substitute a fake.
type PCFactory func(PCCallbacks) (peerConnection, error)

// pionConn adapts *webrtc.PeerConnection to the narrow interface the state
// machine drives. Only AddTrack needs translation.
type pionConn struct {
	*webrtc.PeerConnection
}

func (p pionConn) AddTrack(t webrtc.TrackLocal) (trackSender, error) {
	return p.PeerConnection.AddTrack(t)
}

// NewPCFactory returns the production factory, building pion connections
// from the configured ICE servers.
func NewPCFactory(cfg *config.Config) PCFactory {
	iceServers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}

	if turn := cfg.GetTURNServers(); turn != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}

	webrtcConfig := webrtc.Configuration{ICEServers: iceServers}

	return func(cb PCCallbacks) (peerConnection, error) {
		pc, err := webrtc.NewPeerConnection(webrtcConfig)
		if err != nil {
			return nil, NewError("create peer connection", err)
		}

		pc.OnICECandidate(func(c *webrtc.ICECandidate) {
			if c == nil || cb.OnCandidate == nil {
				return
			}
			cb.OnCandidate(c.ToJSON())
		})

		pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
			switch state {
			case webrtc.PeerConnectionStateConnected:
				if cb.OnConnected != nil {
					cb.OnConnected()
				}
			case webrtc.PeerConnectionStateFailed:
				if cb.OnFailed != nil {
					cb.OnFailed()
				}
			}
		})

		pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			if cb.OnRemoteTrack != nil {
				cb.OnRemoteTrack(track)
			}
		})

		return pionConn{pc}, nil
	}
}
