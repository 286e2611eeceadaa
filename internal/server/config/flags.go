package config

import (
	"flag"
	"os"

	"github.com/573dev/gfdm-server/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":80")
//	-d string   PostgreSQL DSN; empty selects the in-memory store
//	-u string   advertised service base URL
//	-n string   advertised NTP URL
//	-m string   archive mode: none, dir or s3
//	-o string   archive directory for mode "dir"
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - S3 and facility settings have no flag forms; they come from the
//     environment overlay.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-u", "-n", "-m", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.ServiceURL, "u", config.ServiceURL, "advertised service base URL")
	fs.StringVar(&config.NTPURL, "n", config.NTPURL, "advertised NTP URL")
	fs.StringVar(&config.ArchiveMode, "m", config.ArchiveMode, "traffic archive mode (none, dir, s3)")
	fs.StringVar(&config.ArchiveDir, "o", config.ArchiveDir, "traffic archive directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
