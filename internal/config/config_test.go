package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Domain != DefaultDomain {
		t.Fatalf("domain=%q, want default", cfg.Domain)
	}
	if cfg.WebSocketURL != "wss://"+DefaultDomain+"/ws" {
		t.Fatalf("ws url=%q", cfg.WebSocketURL)
	}
	if cfg.STUNServer != DefaultSTUN {
		t.Fatalf("stun=%q, want default", cfg.STUNServer)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("listen=%q, want default", cfg.ListenAddr)
	}
}

func TestFlagBeatsEnvBeatsDefault(t *testing.T) {
	t.Setenv("NEXUS_DOMAIN", "env.example.com")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Domain != "env.example.com" {
		t.Fatalf("domain=%q, want env value", cfg.Domain)
	}

	cfg, err = Load(Options{Domain: "flag.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Domain != "flag.example.com" {
		t.Fatalf("domain=%q, want flag value", cfg.Domain)
	}
}

func TestLocalhostGetsPlainScheme(t *testing.T) {
	cfg, err := Load(Options{Domain: "localhost:3001"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WebSocketURL != "ws://localhost:3001/ws" {
		t.Fatalf("ws url=%q, want plain ws for localhost", cfg.WebSocketURL)
	}

	cfg, err = Load(Options{Domain: "127.0.0.1:3001"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WebSocketURL != "ws://127.0.0.1:3001/ws" {
		t.Fatalf("ws url=%q, want plain ws for loopback", cfg.WebSocketURL)
	}
}

func TestExplicitServerURLWins(t *testing.T) {
	cfg, err := Load(Options{Domain: "meet.example.com", ServerURL: "ws://10.0.0.5:9999/ws"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WebSocketURL != "ws://10.0.0.5:9999/ws" {
		t.Fatalf("ws url=%q, want explicit override", cfg.WebSocketURL)
	}
}

func TestTURNServers(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.GetTURNServers(); got != nil {
		t.Fatalf("turn=%v, want nil when unconfigured", got)
	}

	cfg, err = Load(Options{TURNServer: "turn:relay.example.com", TURNUser: "u", TURNPass: "p"})
	if err != nil {
		t.Fatal(err)
	}
	urls := cfg.GetTURNServers()
	if len(urls) != 2 {
		t.Fatalf("turn urls=%v, want udp and tcp variants", urls)
	}
	if urls[0] != "turn:relay.example.com:3478?transport=udp" {
		t.Fatalf("udp url=%q", urls[0])
	}
	user, pass := cfg.GetTURNCredentials()
	if user != "u" || pass != "p" {
		t.Fatalf("credentials=%q/%q", user, pass)
	}
}

func TestRoomLink(t *testing.T) {
	cfg, err := Load(Options{Domain: "meet.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.GetRoomLink("amber-falcon-harbor-42"); got != "https://meet.example.com/room/amber-falcon-harbor-42" {
		t.Fatalf("room link=%q", got)
	}
}
