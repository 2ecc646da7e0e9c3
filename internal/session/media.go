package session

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// MediaSource supplies the local tracks a session attaches to every peer
// link and the screen track substituted during a share.
type MediaSource interface {
	// Tracks returns the tracks attached when a link is created.
	Tracks() []webrtc.TrackLocal

	// CameraTrack returns the camera video track restored after a share.
	CameraTrack() webrtc.TrackLocal

	// StartScreen acquires the screen track. It stays live until
	// StopScreen or Close.
	StartScreen() (webrtc.TrackLocal, error)

	// StopScreen releases the screen track.
	StopScreen()

	// Close releases every acquired track. Every session exit path must
	// reach this.
	Close()
}

// Capture is the production MediaSource: microphone and camera tracks
// acquired on room entry, an optional screen track during a share. Sample
// producers feed it through WriteAudio/WriteVideo/WriteScreen; mute and
// camera-off drop samples at the source so no peer link is touched.
type Capture struct {
	mu        sync.Mutex
	audio     *webrtc.TrackLocalStaticSample
	video     *webrtc.TrackLocalStaticSample
	screen    *webrtc.TrackLocalStaticSample
	micMuted  bool
	cameraOff bool
	closed    bool
}

// NewCapture acquires the microphone and camera tracks.
func NewCapture() (*Capture, error) {
	audio, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	}, "audio", "nexus-mic")
	if err != nil {
		return nil, NewError("acquire microphone", err)
	}

	video, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeVP8,
		ClockRate: 90000,
	}, "video", "nexus-camera")
	if err != nil {
		return nil, NewError("acquire camera", err)
	}

	return &Capture{audio: audio, video: video}, nil
}

func (c *Capture) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{c.audio, c.video}
}

func (c *Capture) CameraTrack() webrtc.TrackLocal {
	return c.video
}

// StartScreen acquires the screen track.
func (c *Capture) StartScreen() (webrtc.TrackLocal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrMediaUnavailable
	}
	if c.screen != nil {
		return nil, ErrAlreadySharing
	}
	screen, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeVP8,
		ClockRate: 90000,
	}, "screen", "nexus-screen")
	if err != nil {
		return nil, NewError("acquire screen", err)
	}
	c.screen = screen
	return screen, nil
}

// StopScreen releases the screen track.
func (c *Capture) StopScreen() {
	c.mu.Lock()
	c.screen = nil
	c.mu.Unlock()
}

// SetMicMuted toggles the microphone at the source.
func (c *Capture) SetMicMuted(muted bool) {
	c.mu.Lock()
	c.micMuted = muted
	c.mu.Unlock()
}

// SetCameraOff toggles the camera at the source.
func (c *Capture) SetCameraOff(off bool) {
	c.mu.Lock()
	c.cameraOff = off
	c.mu.Unlock()
}

func (c *Capture) MicMuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.micMuted
}

func (c *Capture) CameraOff() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cameraOff
}

// WriteAudio forwards one audio sample unless muted or closed.
func (c *Capture) WriteAudio(s media.Sample) error {
	c.mu.Lock()
	skip := c.micMuted || c.closed
	c.mu.Unlock()
	if skip {
		return nil
	}
	return c.audio.WriteSample(s)
}

// WriteVideo forwards one camera sample unless the camera is off or closed.
func (c *Capture) WriteVideo(s media.Sample) error {
	c.mu.Lock()
	skip := c.cameraOff || c.closed
	c.mu.Unlock()
	if skip {
		return nil
	}
	return c.video.WriteSample(s)
}

// WriteScreen forwards one screen sample while a share is active.
func (c *Capture) WriteScreen(s media.Sample) error {
	c.mu.Lock()
	screen := c.screen
	closed := c.closed
	c.mu.Unlock()
	if screen == nil || closed {
		return nil
	}
	return screen.WriteSample(s)
}

// Close releases every track. Idempotent; called on every exit path.
func (c *Capture) Close() {
	c.mu.Lock()
	c.closed = true
	c.screen = nil
	c.mu.Unlock()
}
