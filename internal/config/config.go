package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values (production)
const (
	DefaultDomain   = "let-meet.app"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "turn.let-meet.app"
	DefaultTURNUser = "letmeet"
	DefaultTURNPass = "letmeet-secret"

	// Negotiation timeouts. Each bounds one suspension point of the
	// peer-connection lifecycle; expiry resets the affected link.
	DefaultOfferTimeout        = 10 * time.Second
	DefaultConnectionTimeout   = 30 * time.Second
	DefaultICEGatheringTimeout = 15 * time.Second
)

// Config holds the client-side application configuration.
type Config struct {
	// Domain is the relay server domain.
	Domain string

	// WebSocketURL is constructed from the domain unless overridden.
	WebSocketURL string

	// ICE servers for peer connections. The same list is handed to
	// every peer link.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	OfferTimeout        time.Duration
	ConnectionTimeout   time.Duration
	ICEGatheringTimeout time.Duration
}

// Options carries CLI flag overrides into Load.
type Options struct {
	ConfigFile string
	Domain     string
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// fileConfig mirrors the optional TOML config file.
type fileConfig struct {
	Domain     string `toml:"domain"`
	ServerURL  string `toml:"server_url"`
	STUNServer string `toml:"stun_server"`
	TURNServer string `toml:"turn_server"`
	TURNUser   string `toml:"turn_username"`
	TURNPass   string `toml:"turn_password"`

	OfferTimeout        duration `toml:"offer_timeout"`
	ConnectionTimeout   duration `toml:"connection_timeout"`
	ICEGatheringTimeout duration `toml:"ice_gathering_timeout"`
}

// duration lets TOML values like "10s" decode into time.Duration.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. TOML config file (Options.ConfigFile, when present)
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		Domain:              DefaultDomain,
		STUNServer:          DefaultSTUN,
		TURNServer:          DefaultTURN,
		TURNUser:            DefaultTURNUser,
		TURNPass:            DefaultTURNPass,
		OfferTimeout:        DefaultOfferTimeout,
		ConnectionTimeout:   DefaultConnectionTimeout,
		ICEGatheringTimeout: DefaultICEGatheringTimeout,
	}

	if opts.ConfigFile != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(opts.ConfigFile, &fc); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		overlayString(&cfg.Domain, fc.Domain)
		overlayString(&cfg.WebSocketURL, fc.ServerURL)
		overlayString(&cfg.STUNServer, fc.STUNServer)
		overlayString(&cfg.TURNServer, fc.TURNServer)
		overlayString(&cfg.TURNUser, fc.TURNUser)
		overlayString(&cfg.TURNPass, fc.TURNPass)
		overlayDuration(&cfg.OfferTimeout, time.Duration(fc.OfferTimeout))
		overlayDuration(&cfg.ConnectionTimeout, time.Duration(fc.ConnectionTimeout))
		overlayDuration(&cfg.ICEGatheringTimeout, time.Duration(fc.ICEGatheringTimeout))
	}

	overlayString(&cfg.Domain, os.Getenv("DOMAIN"))
	overlayString(&cfg.WebSocketURL, os.Getenv("SERVER_URL"))
	overlayString(&cfg.STUNServer, os.Getenv("STUN_SERVER"))
	overlayString(&cfg.TURNServer, os.Getenv("TURN_SERVER"))
	overlayString(&cfg.TURNUser, os.Getenv("TURN_USERNAME"))
	overlayString(&cfg.TURNPass, os.Getenv("TURN_PASSWORD"))

	overlayString(&cfg.Domain, opts.Domain)
	overlayString(&cfg.WebSocketURL, opts.ServerURL)
	overlayString(&cfg.STUNServer, opts.STUNServer)
	overlayString(&cfg.TURNServer, opts.TURNServer)
	overlayString(&cfg.TURNUser, opts.TURNUser)
	overlayString(&cfg.TURNPass, opts.TURNPass)

	if cfg.WebSocketURL == "" {
		cfg.WebSocketURL = fmt.Sprintf("wss://%s/ws", cfg.Domain)
	}

	return cfg, nil
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
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
		fmt.Sprintf("turn:%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("turn:%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns the static shared TURN credentials.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
