// Package config handles configuration for the server component,
// including defaults, a .env/environment overlay, and command-line flags.
package config

// Config holds runtime settings for the eAmuse server.
//
// Fields:
//   - ListenAddr: bind address for the cabinet-facing HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory
//     identity store, which loses everything on restart.
//   - ServiceURL: externally reachable base URL advertised to cabinets in
//     the service directory, no trailing slash.
//   - NTPURL: time server advertised alongside the service table.
//   - ArchiveMode: raw-traffic diagnostic archive backend: "none", "dir"
//     or "s3".
//   - ArchiveDir: target directory for ArchiveMode "dir".
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
//   - FacilityID / FacilityCountry / FacilityRegion / FacilityName: arcade
//     location reported by the facility service.
type Config struct {
	ListenAddr      string
	DatabaseDSN     string
	ServiceURL      string
	NTPURL          string
	ArchiveMode     string
	ArchiveDir      string
	S3RootUser      string
	S3RootPassword  string
	S3Bucket        string
	S3Region        string
	S3BaseEndpoint  string
	FacilityID      string
	FacilityCountry string
	FacilityRegion  string
	FacilityName    string
}

// Archive backends accepted by ArchiveMode.
const (
	ArchiveNone = "none"
	ArchiveDir  = "dir"
	ArchiveS3   = "s3"
)

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values suit a single-cabinet bench setup and should be
// overridden for a real floor.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":80"
	c.DatabaseDSN = ""
	c.ServiceURL = "http://127.0.0.1:80"
	c.NTPURL = "ntp://pool.ntp.org/"
	c.ArchiveMode = ArchiveNone
	c.ArchiveDir = "./xml"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "eamuse-traffic"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.FacilityID = "CA-123"
	c.FacilityCountry = "CA"
	c.FacilityRegion = "MB"
	c.FacilityName = "SenPi Arcade"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional .env file plus the environment, and finally from
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
