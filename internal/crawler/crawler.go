package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/modulux/internal/browser"
	"github.com/go-scripts/modulux/internal/extract"
	"github.com/go-scripts/modulux/internal/progress"
	"github.com/go-scripts/modulux/internal/types"
	"github.com/go-scripts/modulux/internal/wait"
	"github.com/go-scripts/modulux/internal/writer"
	"github.com/go-scripts/modulux/ui"
)

const (
	DefaultListingURL     = "https://apps.htw-dresden.de/modulux/frontend/studiengaenge"
	DefaultScreenshotPath = "error.png"

	// NoDetailRowsMarker is recorded for detail pages that rendered but held no
	// decodable rows.
	NoDetailRowsMarker = "detail page contained no labeled rows"

	screenshotTimeout = 10 * time.Second
)

// Configuration holds the crawler settings
type Configuration struct {
	ListingURL     string
	ScreenshotPath string
	// Timeout bounds every wait for rendered content.
	Timeout      time.Duration
	PollInterval time.Duration
	// MinRows is the row count the revealed listing must exceed. Zero
	// accepts any non-empty table.
	MinRows int
}

// Crawler runs the listing and detail extraction over one browser session
type Crawler struct {
	config  Configuration
	open    browser.Opener
	writer  writer.Writer
	listing *extract.Listing
	detail  *extract.Detail

	logger      *log.Logger
	progressOut io.Writer
	progress    *progress.ProgressTracker

	state State
	stats ui.RunStats
}

// Option customizes a Crawler
type Option func(*Crawler)

// WithLogger sets the logger used by the crawler and its extractors
func WithLogger(logger *log.Logger) Option {
	return func(c *Crawler) { c.logger = logger }
}

// WithProgressOutput enables the spinner and progress bar on w
func WithProgressOutput(w io.Writer) Option {
	return func(c *Crawler) { c.progressOut = w }
}

// New creates a Crawler. open acquires the browser session at the start of
// Run, w receives the finished dataset.
func New(config Configuration, open browser.Opener, w writer.Writer, opts ...Option) (*Crawler, error) {
	if open == nil {
		return nil, errors.New("browser opener is required")
	}
	if w == nil {
		return nil, errors.New("writer is required")
	}
	if config.ListingURL == "" {
		config.ListingURL = DefaultListingURL
	}
	if config.ScreenshotPath == "" {
		config.ScreenshotPath = DefaultScreenshotPath
	}

	c := &Crawler{
		config:      config,
		open:        open,
		writer:      w,
		logger:      log.Default(),
		progressOut: io.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}

	waitCfg := wait.Config{Timeout: config.Timeout, Interval: config.PollInterval}
	c.listing = &extract.Listing{Wait: waitCfg, MinRows: config.MinRows, Logger: c.logger}
	c.detail = &extract.Detail{Wait: waitCfg, Logger: c.logger}
	c.progress = progress.New(c.progressOut)
	return c, nil
}

// State returns the phase the last run ended in
func (c *Crawler) State() State { return c.state }

// Stats returns the summary of the last run
func (c *Crawler) Stats() ui.RunStats { return c.stats }

// Run extracts the listing and every detail page and hands the records to
// the writer. A listing failure aborts the run after a diagnostic
// screenshot; detail failures are recorded on their record. The browser
// session is released on every path.
func (c *Crawler) Run(ctx context.Context) ([]types.ListingRecord, error) {
	c.state = Idle
	c.stats = ui.RunStats{StartTime: time.Now()}

	var records []types.ListingRecord
	opened := false
	err := browser.WithSession(ctx, c.open, func(sess browser.Session) error {
		opened = true
		var err error
		records, err = c.fetchListing(ctx, sess)
		if err != nil {
			c.captureFailure(ctx, sess)
			return err
		}

		if err := c.fetchDetails(ctx, sess, records); err != nil {
			return err
		}

		if err := c.writer.Write(ctx, records); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		c.moveTo(Finalized)
		return nil
	})
	if opened {
		c.logger.Info("Browser closed")
	}

	if err != nil {
		if canMove(c.state, Failed) {
			c.moveTo(Failed)
		}
		c.logger.Error("Extraction failed", "state", c.state, "err", err)
		return records, err
	}
	return records, nil
}

func (c *Crawler) fetchListing(ctx context.Context, sess browser.Session) ([]types.ListingRecord, error) {
	c.logger.Info("Navigating to listing", "url", c.config.ListingURL)
	if err := sess.Navigate(ctx, c.config.ListingURL); err != nil {
		return nil, err
	}

	stop := progress.Spin(c.progressOut, "Loading program listing...")
	records, err := c.listing.Extract(ctx, sess)
	stop()
	if err != nil {
		return nil, err
	}

	c.moveTo(ListingFetched)
	c.stats.Programs = len(records)
	c.logger.Info("Extracted programs", "count", len(records))
	return records, nil
}

// fetchDetails visits the detail page of every record in listing order.
// Only cancellation of ctx stops it early.
func (c *Crawler) fetchDetails(ctx context.Context, sess browser.Session, records []types.ListingRecord) error {
	c.moveTo(DetailsPending)

	withLink := 0
	for _, rec := range records {
		if rec.HasDetailLink() {
			withLink++
		}
	}
	c.progress.SetTotalPages(withLink)

	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec := &records[i]
		if !rec.HasDetailLink() {
			c.stats.Skipped++
			continue
		}

		c.logger.Info("Processing program", "index", fmt.Sprintf("%d/%d", i+1, len(records)), "name", rec.ProgramName)
		details, err := c.detail.Extract(ctx, sess, rec.DetailLink)
		switch {
		case err != nil:
			c.logger.Warn("Detail extraction failed", "program", rec.ProgramName, "err", err)
			rec.DetailsError = err.Error()
		case details.Len() == 0:
			c.logger.Warn("Detail page without rows", "program", rec.ProgramName, "url", rec.DetailLink)
			rec.DetailsError = NoDetailRowsMarker
		default:
			rec.Details = details
		}

		if rec.DetailsError != "" {
			c.stats.Failed++
			c.stats.Failures = append(c.stats.Failures, fmt.Sprintf("%s: %s", rec.ProgramName, rec.DetailsError))
		} else {
			c.stats.WithDetails++
		}
		c.progress.IncrementProcessed(rec.ProgramName)
	}

	c.moveTo(DetailsComplete)
	return nil
}

// captureFailure requests a screenshot of the failed page. It runs even
// when ctx is already cancelled and never fails the caller.
func (c *Crawler) captureFailure(ctx context.Context, sess browser.Session) {
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), screenshotTimeout)
	defer cancel()

	if err := sess.Screenshot(shotCtx, c.config.ScreenshotPath); err != nil {
		c.logger.Warn("Failed to save screenshot", "path", c.config.ScreenshotPath, "err", err)
		return
	}
	c.logger.Info("Screenshot saved", "path", c.config.ScreenshotPath)
}

func (c *Crawler) moveTo(next State) {
	if !canMove(c.state, next) {
		c.logger.Warn("Ignoring invalid state transition", "from", c.state, "to", next)
		return
	}
	c.logger.Debug("State changed", "from", c.state, "to", next)
	c.state = next
}
