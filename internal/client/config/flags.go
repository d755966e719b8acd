package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/goalkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend server (default from Config)
//	-f string   local cache file path (default from Config)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerAddr, "a", cfg.ServerAddr, "base URL to access server")
	fs.StringVar(&cfg.CacheDSN, "f", cfg.CacheDSN, "local cache file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
