package config

import (
	"fmt"
	"os"
	"strings"
)

// Default configuration values.
const (
	DefaultDomain        = "nexus-meet.fly.dev"
	DefaultSTUN          = "stun:stun.l.google.com:19302"
	DefaultListenAddr    = ":3001"
	DefaultSummarizerURL = ""
	DefaultUploadURL     = ""
)

// Config holds application configuration for both binaries.
type Config struct {
	// Domain is the coordination server domain the client dials.
	Domain string

	// WebSocketURL is constructed from Domain unless overridden.
	WebSocketURL string

	// ICE servers for WebRTC negotiation.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// Server-side settings.
	ListenAddr    string
	SummarizerURL string
	UploadURL     string
}

// Options carries CLI flag overrides into Load.
type Options struct {
	Domain        string
	ServerURL     string
	STUNServer    string
	TURNServer    string
	TURNUser      string
	TURNPass      string
	ListenAddr    string
	SummarizerURL string
	UploadURL     string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := pick(opts.Domain, "NEXUS_DOMAIN", DefaultDomain)

	wsURL := pick(opts.ServerURL, "NEXUS_SERVER_URL", "")
	if wsURL == "" {
		scheme := "wss"
		if strings.HasPrefix(domain, "localhost") || strings.HasPrefix(domain, "127.0.0.1") {
			scheme = "ws"
		}
		wsURL = fmt.Sprintf("%s://%s/ws", scheme, domain)
	}

	return &Config{
		Domain:        domain,
		WebSocketURL:  wsURL,
		STUNServer:    pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer:    pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:      pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:      pick(opts.TURNPass, "TURN_PASSWORD", ""),
		ListenAddr:    pick(opts.ListenAddr, "NEXUS_LISTEN_ADDR", DefaultListenAddr),
		SummarizerURL: pick(opts.SummarizerURL, "SUMMARIZER_URL", DefaultSummarizerURL),
		UploadURL:     pick(opts.UploadURL, "UPLOAD_URL", DefaultUploadURL),
	}, nil
}

// pick resolves one setting: flag > env > default.
func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// GetRoomLink returns the shareable URL for a room ID.
func (c *Config) GetRoomLink(roomID string) string {
	return fmt.Sprintf("https://%s/room/%s", c.Domain, roomID)
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
