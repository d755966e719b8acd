// Package config handles configuration for the goalkeeper CLI,
// including defaults, JSON overlay and command-line flags.
package config

// Config holds runtime settings for the goalkeeper CLI.
//
// Fields:
//   - ServerAddr: base URL of the backend HTTP endpoint.
//   - CacheDSN: path of the local SQLite cache file.
type Config struct {
	ServerAddr string
	CacheDSN   string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "http://127.0.0.1:8080"
	c.CacheDSN = "goalkeeper.db"
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
