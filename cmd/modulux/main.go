package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/modulux/internal/browser"
	"github.com/go-scripts/modulux/internal/crawler"
	"github.com/go-scripts/modulux/internal/extract"
	"github.com/go-scripts/modulux/internal/writer"
	"github.com/go-scripts/modulux/ui"
)

// CLI flags structure
type CLI struct {
	Config kong.ConfigFlag `help:"Load flags from a JSON configuration file. Keys are flag names, e.g. \"min-rows\" or \"min_rows\"."`

	URL        string `help:"Listing page of the program catalog." default:"${listing_url}" env:"MODULUX_URL" short:"u"`
	Output     string `help:"Path to output file." default:"${output_file}" env:"MODULUX_OUTPUT" short:"o"`
	Screenshot string `help:"Screenshot written when the listing cannot be loaded." default:"${screenshot_file}" env:"MODULUX_SCREENSHOT"`

	Timeout      time.Duration `help:"Timeout for page loads and rendered content." default:"30s" env:"MODULUX_TIMEOUT"`
	PollInterval time.Duration `help:"Interval between checks for rendered content." default:"500ms"`
	MinRows      int           `help:"Row count the revealed listing must exceed before it counts as loaded." default:"${min_rows}"`

	Headless     bool   `help:"Run Chrome without a window." default:"true" negatable:""`
	UserAgent    string `help:"User agent sent by Chrome." default:"${user_agent}"`
	WindowWidth  int    `help:"Browser window width." default:"1920"`
	WindowHeight int    `help:"Browser window height." default:"1080"`

	PostgresDSN string `help:"Also store the results in this Postgres database." env:"MODULUX_POSTGRES_DSN" name:"postgres-dsn"`

	Debug bool `help:"Enable debug logging." env:"MODULUX_DEBUG"`
	Quiet bool `help:"Disable spinner, progress bar and summary." short:"q"`
}

func parserOptions() []kong.Option {
	return []kong.Option{
		kong.Name("modulux"),
		kong.Description("Extract the HTW Dresden program catalog and its detail pages into JSON."),
		kong.UsageOnError(),
		kong.Configuration(configJSON, "~/.modulux.json", "modulux.json"),
		kong.Vars{
			"listing_url":     crawler.DefaultListingURL,
			"output_file":     writer.DefaultOutputFile,
			"screenshot_file": crawler.DefaultScreenshotPath,
			"min_rows":        fmt.Sprint(extract.DefaultMinRows),
			"user_agent":      browser.DefaultUserAgent,
		},
	}
}

// configJSON loads a JSON config file, accepting flag names with hyphens
// as well as the underscore form kong resolves.
func configJSON(r io.Reader) (kong.Resolver, error) {
	var values map[string]any
	if err := json.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	data, err := json.Marshal(underscoreKeys(values))
	if err != nil {
		return nil, err
	}
	return kong.JSON(bytes.NewReader(data))
}

func underscoreKeys(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if nested, ok := v.(map[string]any); ok {
			v = underscoreKeys(nested)
		}
		out[strings.ReplaceAll(k, "-", "_")] = v
	}
	return out
}

func newLogger(out io.Writer, debug bool) *log.Logger {
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "modulux",
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func (c *CLI) chromeOptions(logger *log.Logger) browser.ChromeOptions {
	return browser.ChromeOptions{
		Headless:     c.Headless,
		UserAgent:    c.UserAgent,
		WindowWidth:  c.WindowWidth,
		WindowHeight: c.WindowHeight,
		OpTimeout:    c.Timeout,
		Logger:       logger,
	}
}

func (c *CLI) crawlerConfig() crawler.Configuration {
	return crawler.Configuration{
		ListingURL:     c.URL,
		ScreenshotPath: c.Screenshot,
		Timeout:        c.Timeout,
		PollInterval:   c.PollInterval,
		MinRows:        c.MinRows,
	}
}

func (c *CLI) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("--timeout must be positive, got %s", c.Timeout)
	}
	if c.PollInterval <= 0 || c.PollInterval > c.Timeout {
		return fmt.Errorf("--poll-interval must be positive and not exceed --timeout, got %s", c.PollInterval)
	}
	if c.MinRows < 0 {
		return fmt.Errorf("--min-rows must not be negative, got %d", c.MinRows)
	}
	return nil
}

func run(ctx context.Context, cli *CLI, logger *log.Logger) error {
	fileWriter, err := writer.New(cli.Output)
	if err != nil {
		return err
	}
	writers := writer.Multi{fileWriter}

	if cli.PostgresDSN != "" {
		pg, err := writer.Connect(ctx, cli.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pg.Close()
		writers = append(writers, pg)
	}

	opts := []crawler.Option{crawler.WithLogger(logger)}
	if !cli.Quiet {
		opts = append(opts, crawler.WithProgressOutput(os.Stderr))
	}
	c, err := crawler.New(cli.crawlerConfig(), browser.ChromeOpener(cli.chromeOptions(logger)), writers, opts...)
	if err != nil {
		return err
	}

	records, err := c.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("Data saved", "path", fileWriter.Path(), "programs", len(records))

	if !cli.Quiet {
		stats := c.Stats()
		stats.OutputFile = fileWriter.Path()
		fmt.Println(ui.NewStatsPanel(stats).View())
	}
	return nil
}

func main() {
	var cli CLI
	kong.Parse(&cli, parserOptions()...)

	logger := newLogger(os.Stderr, cli.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cli, logger); err != nil {
		logger.Error("Scraping failed", "err", err)
		stop()
		os.Exit(1)
	}
}
