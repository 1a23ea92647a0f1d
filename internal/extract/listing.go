package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/modulux/internal/browser"
	"github.com/go-scripts/modulux/internal/types"
	"github.com/go-scripts/modulux/internal/wait"
)

// Listing reveals the full program table and decomposes its rows
type Listing struct {
	Wait    wait.Config
	MinRows int
	Logger  *log.Logger
}

func (l *Listing) logger() *log.Logger {
	if l.Logger == nil {
		return log.Default()
	}
	return l.Logger
}

// Extract expects the session to be on the listing page. Every failure is
// returned: without the listing nothing else can be extracted.
func (l *Listing) Extract(ctx context.Context, sess browser.Session) ([]types.ListingRecord, error) {
	logger := l.logger()

	logger.Debug("Waiting for reveal control", "selector", RevealSelector)
	controls, err := wait.Until(ctx, sess, l.Wait, wait.Present(RevealSelector))
	if err != nil {
		return nil, fmt.Errorf("reveal control: %w", err)
	}

	control, err := l.findReveal(ctx, controls)
	if err != nil {
		return nil, err
	}
	logger.Info("Revealing all programs")
	if err := control.Click(ctx); err != nil {
		return nil, fmt.Errorf("click reveal control: %w", err)
	}

	logger.Debug("Waiting for table to load", "min_rows", l.MinRows)
	rows, err := wait.Until(ctx, sess, l.Wait, wait.CountAbove(RowSelector, l.MinRows))
	if err != nil {
		return nil, fmt.Errorf("listing table: %w", err)
	}
	logger.Info("Found table rows", "count", len(rows))

	records := make([]types.ListingRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := decodeRow(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("listing row %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (l *Listing) findReveal(ctx context.Context, controls []browser.Element) (browser.Element, error) {
	for _, c := range controls {
		text, err := c.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("read reveal control: %w", err)
		}
		if strings.Contains(text, RevealLabel) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("reveal control labeled %q: %w", RevealLabel, browser.NotFound(RevealSelector))
}

func decodeRow(ctx context.Context, row browser.Element) (types.ListingRecord, error) {
	cells, err := row.FindElements(ctx, CellSelector)
	if err != nil {
		return types.ListingRecord{}, err
	}
	texts := make([]string, len(cells))
	for i, cell := range cells {
		text, err := cell.Text(ctx)
		if err != nil {
			return types.ListingRecord{}, fmt.Errorf("cell %d: %w", i, err)
		}
		texts[i] = strings.TrimSpace(text)
	}

	rec := types.ListingFromCells(texts)
	link, ok, err := detailLink(ctx, row)
	if err != nil {
		return types.ListingRecord{}, err
	}
	if ok {
		rec.DetailLink = link
	}
	return rec, nil
}

// detailLink reads the href of the anchor inside the link cell. A missing
// cell, anchor or href means the program has no detail page.
func detailLink(ctx context.Context, row browser.Element) (string, bool, error) {
	cell, ok, err := browser.FindOptional(ctx, row, LinkCellSelector)
	if err != nil || !ok {
		return "", false, err
	}
	anchor, ok, err := browser.FindOptional(ctx, cell, "a")
	if err != nil || !ok {
		return "", false, err
	}
	href, ok, err := anchor.Attribute(ctx, "href")
	if err != nil {
		return "", false, fmt.Errorf("detail link href: %w", err)
	}
	href = strings.TrimSpace(href)
	return href, ok && href != "", nil
}
