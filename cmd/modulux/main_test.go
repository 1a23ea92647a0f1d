package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/modulux/internal/browser"
	"github.com/go-scripts/modulux/internal/crawler"
)

func parse(t *testing.T, args ...string) (*CLI, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, append(parserOptions(), kong.Exit(func(int) {}))...)
	require.NoError(t, err)
	_, err = parser.Parse(args)
	return &cli, err
}

func TestDefaults(t *testing.T) {
	cli, err := parse(t)
	require.NoError(t, err)

	assert.Equal(t, crawler.DefaultListingURL, cli.URL)
	assert.Equal(t, "htw_programs_with_modulux_details.json", cli.Output)
	assert.Equal(t, "error.png", cli.Screenshot)
	assert.Equal(t, 30*time.Second, cli.Timeout)
	assert.Equal(t, 500*time.Millisecond, cli.PollInterval)
	assert.Equal(t, 10, cli.MinRows)
	assert.True(t, cli.Headless)
	assert.Equal(t, browser.DefaultUserAgent, cli.UserAgent)

	cfg := cli.crawlerConfig()
	assert.Equal(t, cli.URL, cfg.ListingURL)
	assert.Equal(t, cli.Timeout, cfg.Timeout)

	opts := cli.chromeOptions(nil)
	assert.Equal(t, 1920, opts.WindowWidth)
	assert.Equal(t, 1080, opts.WindowHeight)
	assert.Equal(t, cli.Timeout, opts.OpTimeout)
}

func TestFlags(t *testing.T) {
	cli, err := parse(t, "--no-headless", "--timeout=45s", "--min-rows=50", "-o", "out/programs.json")
	require.NoError(t, err)

	assert.False(t, cli.Headless)
	assert.Equal(t, 45*time.Second, cli.Timeout)
	assert.Equal(t, 50, cli.MinRows)
	assert.Equal(t, "out/programs.json", cli.Output)
}

func TestEnv(t *testing.T) {
	t.Setenv("MODULUX_TIMEOUT", "1m")
	t.Setenv("MODULUX_POSTGRES_DSN", "postgres://localhost/modulux")

	cli, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cli.Timeout)
	assert.Equal(t, "postgres://localhost/modulux", cli.PostgresDSN)
}

func TestConfigFile(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"hyphenated keys", `{"min-rows": 25, "poll-interval": "2s", "postgres-dsn": "postgres://db/modulux", "screenshot": "debug/fail.png"}`},
		{"underscore keys", `{"min_rows": 25, "poll_interval": "2s", "postgres_dsn": "postgres://db/modulux", "screenshot": "debug/fail.png"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "modulux.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.json), 0644))

			cli, err := parse(t, "--config", path)
			require.NoError(t, err)
			assert.Equal(t, 25, cli.MinRows)
			assert.Equal(t, 2*time.Second, cli.PollInterval)
			assert.Equal(t, "postgres://db/modulux", cli.PostgresDSN)
			assert.Equal(t, "debug/fail.png", cli.Screenshot)
		})
	}
}

func TestConfigFileFlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modulux.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"min-rows": 25}`), 0644))

	cli, err := parse(t, "--config", path, "--min-rows=0")
	require.NoError(t, err)
	assert.Equal(t, 0, cli.MinRows)
	assert.Equal(t, 0, cli.crawlerConfig().MinRows)
}

func TestValidate(t *testing.T) {
	_, err := parse(t, "--timeout=0s")
	assert.Error(t, err)

	_, err = parse(t, "--timeout=1s", "--poll-interval=2s")
	assert.Error(t, err)

	_, err = parse(t, "--min-rows=-1")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false)
	assert.Equal(t, log.InfoLevel, logger.GetLevel())
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger = newLogger(&buf, true)
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	logger.Debug("visible", "program", "Informatik")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "program=Informatik")
}
