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

// DetailError reports a detail page that could not be extracted
type DetailError struct {
	URL string
	Err error
}

func (e *DetailError) Error() string {
	return fmt.Sprintf("detail page %s: %v", e.URL, e.Err)
}

func (e *DetailError) Unwrap() error { return e.Err }

// Detail decodes the labeled rows of a program's detail page
type Detail struct {
	Wait   wait.Config
	Logger *log.Logger
}

func (d *Detail) logger() *log.Logger {
	if d.Logger == nil {
		return log.Default()
	}
	return d.Logger
}

// Extract navigates to url and decodes its detail rows. Rows that cannot
// be decoded are left out; only page-level failures are returned, as a
// *DetailError.
func (d *Detail) Extract(ctx context.Context, sess browser.Session, url string) (types.DetailMap, error) {
	var details types.DetailMap

	if err := sess.Navigate(ctx, url); err != nil {
		return details, &DetailError{URL: url, Err: err}
	}
	if _, err := wait.Until(ctx, sess, d.Wait, wait.Present(DetailContainerSelector)); err != nil {
		return details, &DetailError{URL: url, Err: err}
	}

	rows, err := sess.FindElements(ctx, DetailRowSelector)
	if err != nil {
		return details, &DetailError{URL: url, Err: err}
	}

	for i, row := range rows {
		label, value, err := d.decodeRow(ctx, row)
		if err != nil {
			d.logger().Debug("Skipping detail row", "url", url, "row", i, "err", err)
			continue
		}
		details.Set(label, value)
	}
	return details, nil
}

func (d *Detail) decodeRow(ctx context.Context, row browser.Element) (string, types.FieldValue, error) {
	labelEl, err := row.FindElement(ctx, DetailLabelSelector)
	if err != nil {
		return "", types.FieldValue{}, err
	}
	dataEl, err := row.FindElement(ctx, DetailDataSelector)
	if err != nil {
		return "", types.FieldValue{}, err
	}

	label, err := labelEl.Text(ctx)
	if err != nil {
		return "", types.FieldValue{}, err
	}
	label = strings.TrimSpace(label)

	if label == OrdinancesLabel {
		docs, err := d.documents(ctx, dataEl)
		if err != nil {
			return "", types.FieldValue{}, err
		}
		return label, types.LinkSequence(docs), nil
	}

	raw, err := dataEl.Text(ctx)
	if err != nil {
		return "", types.FieldValue{}, err
	}
	value := collapseSpace(raw)

	if isContactLabel(label) {
		if contact, ok := d.contact(ctx, dataEl); ok {
			value = contact
		}
	}
	return label, types.PlainValue(value), nil
}

// contact returns the display text of the mailto anchor. Without one the
// caller keeps the plain cell text.
func (d *Detail) contact(ctx context.Context, data browser.Element) (string, bool) {
	anchor, ok, err := browser.FindOptional(ctx, data, ContactLinkSelector)
	if err != nil || !ok {
		return "", false
	}
	text, err := anchor.Text(ctx)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(text), true
}

func (d *Detail) documents(ctx context.Context, data browser.Element) ([]types.LinkedDocument, error) {
	anchors, err := data.FindElements(ctx, "a")
	if err != nil {
		return nil, err
	}

	docs := make([]types.LinkedDocument, 0, len(anchors))
	for _, a := range anchors {
		text, err := a.Text(ctx)
		if err != nil {
			return nil, err
		}
		doc := types.LinkedDocument{Text: strings.TrimSpace(text)}

		href, ok, err := a.Attribute(ctx, "href")
		if err != nil {
			return nil, err
		}
		if ok {
			doc.Href = &href
		}

		// The effective date sits in the element after the anchor and is
		// only reachable through a script. Missing dates stay empty.
		if validFrom, err := a.Call(ctx, browser.NextSiblingTextScript); err == nil {
			doc.ValidFrom = strings.TrimSpace(validFrom)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func isContactLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), ContactMarker)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
