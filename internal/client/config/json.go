package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/goalkeeper/internal/flagx"
)

// JsonConfig is the JSON file shape; values are copied into Config after
// unmarshalling.
type JsonConfig struct {
	ServerAddr string `json:"server_addr"`
	CacheDSN   string `json:"cache_dsn"`
}

// parseJson loads configuration values from a JSON file given via the -c
// or -config command-line flags. When neither is set, nothing is loaded.
func parseJson(cfg *Config) {

	jsonConfigFile := flagx.ConfigFileFlag()

	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.ServerAddr != "" {
		cfg.ServerAddr = c.ServerAddr
	}
	if c.CacheDSN != "" {
		cfg.CacheDSN = c.CacheDSN
	}
}
