package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pion/webrtc/v4"

	"github.com/BioHazard786/peerlink/internal/netutil"
	"github.com/BioHazard786/peerlink/internal/peer"
)

// Default configuration values
const (
	DefaultRelayURL      = "ws://localhost:8080/ws"
	DefaultListenAddr    = ":8080"
	DefaultSTUN          = "stun:stun.l.google.com:19302"
	DefaultSignalTimeout = 10 * time.Second
)

var ErrRelayWithoutTURN = errors.New("cannot force relay mode without TURN server configured")

// Config holds application configuration
type Config struct {
	// RelayURL is the websocket endpoint of the relay server.
	RelayURL string

	// ListenAddr is where `peerlink relay` listens.
	ListenAddr string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN candidates.
	ForceRelay bool

	// SignalTimeout bounds each relay operation.
	SignalTimeout time.Duration
}

// Options for loading config with CLI flag overrides. Zero values mean "not
// set".
type Options struct {
	ConfigFile    string
	RelayURL      string
	ListenAddr    string
	STUNServer    string
	TURNServer    string
	TURNUser      string
	TURNPass      string
	ForceRelay    bool
	SignalTimeout time.Duration
}

// fileConfig is the layout of config.toml.
type fileConfig struct {
	RelayURL      string `toml:"relay_url"`
	ListenAddr    string `toml:"listen_addr"`
	STUNServer    string `toml:"stun_server"`
	TURNServer    string `toml:"turn_server"`
	TURNUser      string `toml:"turn_username"`
	TURNPass      string `toml:"turn_password"`
	ForceRelay    bool   `toml:"force_relay"`
	SignalTimeout string `toml:"signal_timeout"`
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Config file (TOML)
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	file, err := loadFile(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RelayURL:   pick(opts.RelayURL, os.Getenv("RELAY_URL"), file.RelayURL, DefaultRelayURL),
		ListenAddr: pick(opts.ListenAddr, os.Getenv("LISTEN_ADDR"), file.ListenAddr, DefaultListenAddr),
		STUNServer: pick(opts.STUNServer, os.Getenv("STUN_SERVER"), file.STUNServer, DefaultSTUN),
		TURNServer: pick(opts.TURNServer, os.Getenv("TURN_SERVER"), file.TURNServer),
		TURNUser:   pick(opts.TURNUser, os.Getenv("TURN_USERNAME"), file.TURNUser),
		TURNPass:   pick(opts.TURNPass, os.Getenv("TURN_PASSWORD"), file.TURNPass),
	}

	// Load force relay: CLI flag > env > file
	cfg.ForceRelay = opts.ForceRelay
	if !cfg.ForceRelay {
		if v, ok := os.LookupEnv("FORCE_RELAY"); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid FORCE_RELAY %q: %w", v, err)
			}
			cfg.ForceRelay = b
		} else {
			cfg.ForceRelay = file.ForceRelay
		}
	}

	// Load signal timeout: CLI flag > env > file > default
	cfg.SignalTimeout = opts.SignalTimeout
	if cfg.SignalTimeout == 0 {
		raw := pick(os.Getenv("SIGNAL_TIMEOUT"), file.SignalTimeout)
		if raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid signal timeout %q: %w", raw, err)
			}
			cfg.SignalTimeout = d
		}
	}
	if cfg.SignalTimeout <= 0 {
		cfg.SignalTimeout = DefaultSignalTimeout
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return fmt.Errorf("invalid relay URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid relay URL %q: scheme must be ws or wss", c.RelayURL)
	}
	if c.ForceRelay && c.GetTURNServers() == nil {
		return ErrRelayWithoutTURN
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/peerlink/config.toml or the platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "peerlink", "config.toml")
}

// loadFile reads path, or the default path when path is empty. A missing
// default file is not an error.
func loadFile(path string) (fileConfig, error) {
	var fc fileConfig

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return fc, nil
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return fc, nil
		}
		return fc, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(content, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse config file: %w", err)
	}
	return fc, nil
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetRoomLink returns a shareable link for a room ID, served by the same host
// as the relay.
func (c *Config) GetRoomLink(roomID string) string {
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return roomID
	}
	scheme := "https"
	if u.Scheme == "ws" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/r/%s", scheme, u.Host, url.PathEscape(roomID))
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// ICEServers returns the STUN and TURN servers in pion's form.
func (c *Config) ICEServers() []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if stun := c.GetSTUNServers(); stun != nil {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if turn := c.GetTURNServers(); turn != nil {
		username, password := c.GetTURNCredentials()
		servers = append(servers, webrtc.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}
	return servers
}

// RelayOnly reports whether ICE should use TURN candidates only: when forced,
// or when a TURN server is available and this host looks like it sits behind
// a VPN or CGNAT.
func (c *Config) RelayOnly() bool {
	if c.GetTURNServers() == nil {
		return false
	}
	return c.ForceRelay || netutil.RestrictedNetwork()
}

// PeerConfig builds the session configuration.
func (c *Config) PeerConfig(logger *slog.Logger) peer.Config {
	return peer.Config{
		ICEServers:    c.ICEServers(),
		ForceRelay:    c.RelayOnly(),
		SignalTimeout: c.SignalTimeout,
		Logger:        logger,
	}
}
