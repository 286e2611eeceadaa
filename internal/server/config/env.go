package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/573dev/gfdm-server/internal/flagx"
)

// parseEnv overlays Config fields from the environment. An env file is
// loaded first: the one named by the -c/-config flags, or .env from the
// working directory. A missing file is normal; variables already present in
// the environment win over the file, which is godotenv's default.
//
// Recognized variables:
//
//	EAMUSE_LISTEN_ADDR
//	EAMUSE_DATABASE_DSN
//	EAMUSE_SERVICE_URL
//	EAMUSE_NTP_URL
//	EAMUSE_ARCHIVE_MODE
//	EAMUSE_ARCHIVE_DIR
//	EAMUSE_S3_ROOT_USER
//	EAMUSE_S3_ROOT_PASSWORD
//	EAMUSE_S3_BUCKET
//	EAMUSE_S3_REGION
//	EAMUSE_S3_BASE_ENDPOINT
//	EAMUSE_FACILITY_ID
//	EAMUSE_FACILITY_COUNTRY
//	EAMUSE_FACILITY_REGION
//	EAMUSE_FACILITY_NAME
func parseEnv(config *Config) {
	if file := flagx.ConfigFileFlags(); file != "" {
		_ = godotenv.Load(file)
	} else {
		_ = godotenv.Load()
	}

	overlay(&config.ListenAddr, "EAMUSE_LISTEN_ADDR")
	overlay(&config.DatabaseDSN, "EAMUSE_DATABASE_DSN")
	overlay(&config.ServiceURL, "EAMUSE_SERVICE_URL")
	overlay(&config.NTPURL, "EAMUSE_NTP_URL")
	overlay(&config.ArchiveMode, "EAMUSE_ARCHIVE_MODE")
	overlay(&config.ArchiveDir, "EAMUSE_ARCHIVE_DIR")
	overlay(&config.S3RootUser, "EAMUSE_S3_ROOT_USER")
	overlay(&config.S3RootPassword, "EAMUSE_S3_ROOT_PASSWORD")
	overlay(&config.S3Bucket, "EAMUSE_S3_BUCKET")
	overlay(&config.S3Region, "EAMUSE_S3_REGION")
	overlay(&config.S3BaseEndpoint, "EAMUSE_S3_BASE_ENDPOINT")
	overlay(&config.FacilityID, "EAMUSE_FACILITY_ID")
	overlay(&config.FacilityCountry, "EAMUSE_FACILITY_COUNTRY")
	overlay(&config.FacilityRegion, "EAMUSE_FACILITY_REGION")
	overlay(&config.FacilityName, "EAMUSE_FACILITY_NAME")
}

func overlay(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*target = v
	}
}
