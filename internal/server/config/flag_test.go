package config

import (
	"flag"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-a", "127.0.0.1:8573", "-d", "db", "-u", "http://arcade.example",
			"-n", "ntp://time.example/", "-m", "dir", "-o", "/var/log/eamuse",
		}, expectPanic: false,
			expected: &Config{
				ListenAddr:  "127.0.0.1:8573",
				DatabaseDSN: "db",
				ServiceURL:  "http://arcade.example",
				NTPURL:      "ntp://time.example/",
				ArchiveMode: ArchiveDir,
				ArchiveDir:  "/var/log/eamuse",
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Equal(t, tt.expected, config)
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
