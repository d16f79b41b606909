// Package config loads the proxy's TOML configuration file into a
// validated Config struct.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the full CLI/file surface for the proxy: where to listen
// for downstream clients, which upstream server to proxy to, and how
// aggressively to reconnect when that upstream connection drops.
type Config struct {
	// ListenAddress is where downstream UO clients connect.
	ListenAddress string `toml:"listen_address" jsonschema:"required,description=TCP address the proxy listens on for downstream clients"`
	// UpstreamAddress is the real game server this proxy connects to.
	UpstreamAddress string `toml:"upstream_address" jsonschema:"required,description=TCP address of the upstream UO server"`
	// Username and Password authenticate the single upstream session.
	Username string `toml:"username" jsonschema:"required"`
	Password string `toml:"password" jsonschema:"required"`
	// ServerIndex and CharacterIndex select which shard/character the
	// upstream login selects, and double as the attach-matching key.
	ServerIndex    int `toml:"server_index"`
	CharacterIndex int `toml:"character_index"`

	// AutoReconnect reconnects to the upstream automatically on
	// disconnect instead of tearing the session down.
	AutoReconnect bool `toml:"auto_reconnect" jsonschema:"description=Reconnect to the upstream automatically on disconnect"`
	// Background keeps the session alive with zero attached downstream
	// clients, for %auto-style unattended operation.
	Background bool `toml:"background"`
	// MaxAttachedClients bounds how many downstream clients may attach
	// to one session concurrently. Zero means unbounded.
	MaxAttachedClients int `toml:"max_attached_clients" jsonschema:"minimum=0"`

	// ReconnectRatePerSecond and ReconnectBurst configure the token
	// bucket pacing reconnect attempts.
	ReconnectRatePerSecond float64       `toml:"reconnect_rate_per_second"`
	ReconnectBurst         int           `toml:"reconnect_burst"`
	ReconnectBackoffCap    time.Duration `toml:"reconnect_backoff_cap"`

	// ClientRevision is the protocol revision (6 or 7) the proxy
	// negotiates with attaching downstream clients by default.
	ClientRevision int `toml:"client_revision" jsonschema:"enum=6,enum=7"`

	LogLevel string `toml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`

	// AdminListenAddress serves the read-only dashboard. Empty disables it.
	AdminListenAddress string `toml:"admin_listen_address"`

	Diagnostics Diagnostics `toml:"diagnostics"`
}

// Diagnostics holds opt-in debugging toggles, folded in from the
// teacher's separate observability package since nothing else is
// left to toggle once the HTTP pprof mux it guarded is gone.
type Diagnostics struct {
	EnablePprofTrace bool `toml:"enable_pprof_trace"`
}

// Default returns a Config with every optional field set to a sane
// operating default; callers overlay a loaded TOML file on top.
func Default() Config {
	return Config{
		ListenAddress:          ":7775",
		ClientRevision:         7,
		AutoReconnect:          true,
		MaxAttachedClients:     4,
		ReconnectRatePerSecond: 0.2,
		ReconnectBurst:         1,
		ReconnectBackoffCap:    5 * time.Minute,
		LogLevel:               "info",
	}
}

// Load reads and validates a TOML config file, overlaying it on Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: decode %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects a Config that is missing fields no default can supply.
func (c Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("config: listen_address is required")
	}
	if c.UpstreamAddress == "" {
		return fmt.Errorf("config: upstream_address is required")
	}
	if c.Username == "" {
		return fmt.Errorf("config: username is required")
	}
	if c.ClientRevision != 6 && c.ClientRevision != 7 {
		return fmt.Errorf("config: client_revision must be 6 or 7, got %d", c.ClientRevision)
	}
	if c.MaxAttachedClients < 0 {
		return fmt.Errorf("config: max_attached_clients must be >= 0")
	}
	return nil
}
