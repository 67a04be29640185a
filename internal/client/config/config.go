package config

import "time"

// Config holds runtime settings for the POS client.
//
// Fields:
//   - ServerEndpointAddr: base URL of the sync server, e.g. "http://127.0.0.1:8080".
//   - DatabaseFile: path to the local SQLite database.
//   - Device: device name used for authentication.
//   - Secret: device secret; when empty the client prompts for it.
//   - SyncInterval: how often the periodic sync trigger fires.
//   - OnlineCheckInterval: how often the client probes server reachability.
type Config struct {
	ServerEndpointAddr  string
	DatabaseFile        string
	Device              string
	Secret              string
	SyncInterval        time.Duration
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabaseFile = "possync.db"
	c.SyncInterval = 1 * time.Minute
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
