package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Domain != DefaultDomain {
		t.Errorf("domain = %q, want default", cfg.Domain)
	}
	if cfg.WebSocketURL != "wss://"+DefaultDomain+"/ws" {
		t.Errorf("websocket URL = %q", cfg.WebSocketURL)
	}
	if cfg.OfferTimeout != DefaultOfferTimeout {
		t.Errorf("offer timeout = %v, want %v", cfg.OfferTimeout, DefaultOfferTimeout)
	}
}

func TestFlagsBeatEnvBeatFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "letmeet.toml")
	contents := `
domain = "file.example.com"
stun_server = "stun:file.example.com:3478"
offer_timeout = "3s"
`
	if err := os.WriteFile(file, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("DOMAIN", "env.example.com")

	cfg, err := Load(Options{
		ConfigFile: file,
		Domain:     "flag.example.com",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Domain != "flag.example.com" {
		t.Errorf("domain = %q, flags must win over env and file", cfg.Domain)
	}
	if cfg.STUNServer != "stun:file.example.com:3478" {
		t.Errorf("stun = %q, file must win over defaults", cfg.STUNServer)
	}
	if cfg.OfferTimeout != 3*time.Second {
		t.Errorf("offer timeout = %v, want 3s from file", cfg.OfferTimeout)
	}
	if cfg.WebSocketURL != "wss://flag.example.com/ws" {
		t.Errorf("websocket URL = %q", cfg.WebSocketURL)
	}
}

func TestExplicitServerURLWins(t *testing.T) {
	cfg, err := Load(Options{ServerURL: "ws://localhost:8080/ws"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WebSocketURL != "ws://localhost:8080/ws" {
		t.Errorf("websocket URL = %q, want explicit override", cfg.WebSocketURL)
	}
}

func TestTURNServerList(t *testing.T) {
	cfg, err := Load(Options{TURNServer: "turn.example.com"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	servers := cfg.GetTURNServers()
	if len(servers) != 3 {
		t.Fatalf("expected udp, tcp and tls TURN entries, got %v", servers)
	}
	if servers[0] != "turn:turn.example.com:3478?transport=udp" {
		t.Errorf("unexpected first TURN entry %q", servers[0])
	}

	cfg.TURNServer = ""
	if cfg.GetTURNServers() != nil {
		t.Error("expected no TURN entries when unset")
	}
}
