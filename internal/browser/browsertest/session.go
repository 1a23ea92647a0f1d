// Package browsertest provides an in-memory browser.Session backed by
// goquery documents, for exercising the extractors without Chrome.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/modulux/internal/browser"
)

const blankHTML = `<html><head></head><body></body></html>`

// Page is one URL served by the Session
type Page struct {
	HTML string
	// RevealedHTML replaces HTML after any element on the page is clicked.
	RevealedHTML string
	// RenderAfter is the number of session-level queries that still see an
	// empty body, simulating content rendered by a late script.
	RenderAfter int
	// NavigateErr makes navigation to the page fail.
	NavigateErr error
}

// Script emulates a JavaScript function declaration run against an element
type Script func(sel *goquery.Selection) (string, error)

// Session serves fixed pages. It is not safe for concurrent use.
type Session struct {
	Pages   map[string]*Page
	Scripts map[string]Script

	ScreenshotErr error
	QuitErr       error

	// Recorded interactions
	Navigations []string
	Clicks      []string
	Screenshots []string
	Quits       int

	page     *Page
	queries  int
	revealed bool
	docs     map[string]*goquery.Document
}

// New returns a session serving pages keyed by URL
func New(pages map[string]*Page) *Session {
	return &Session{
		Pages: pages,
		Scripts: map[string]Script{
			browser.NextSiblingTextScript: nextSiblingText,
		},
		docs: make(map[string]*goquery.Document),
	}
}

// Opener returns an Opener handing out this session
func (s *Session) Opener() browser.Opener {
	return func(ctx context.Context) (browser.Session, error) {
		return s, nil
	}
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Navigations = append(s.Navigations, url)

	page, ok := s.Pages[url]
	if !ok {
		return fmt.Errorf("%w: %s: net::ERR_NAME_NOT_RESOLVED", browser.ErrNavigation, url)
	}
	if page.NavigateErr != nil {
		return fmt.Errorf("%w: %s: %w", browser.ErrNavigation, url, page.NavigateErr)
	}
	s.page = page
	s.queries = 0
	s.revealed = false
	return nil
}

func (s *Session) FindElements(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.queries++
	doc, err := s.document()
	if err != nil {
		return nil, err
	}
	return s.wrap(doc.Find(selector)), nil
}

func (s *Session) FindElement(ctx context.Context, selector string) (browser.Element, error) {
	els, err := s.FindElements(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, browser.NotFound(selector)
	}
	return els[0], nil
}

func (s *Session) Screenshot(ctx context.Context, path string) error {
	s.Screenshots = append(s.Screenshots, path)
	return s.ScreenshotErr
}

func (s *Session) Quit() error {
	s.Quits++
	return s.QuitErr
}

// document returns the document as currently rendered
func (s *Session) document() (*goquery.Document, error) {
	html := blankHTML
	if s.page != nil && s.queries > s.page.RenderAfter {
		html = s.page.HTML
		if s.revealed && s.page.RevealedHTML != "" {
			html = s.page.RevealedHTML
		}
	}
	if doc, ok := s.docs[html]; ok {
		return doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	s.docs[html] = doc
	return doc, nil
}

func (s *Session) wrap(sel *goquery.Selection) []browser.Element {
	out := make([]browser.Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		out = append(out, &element{s: s, sel: node})
	})
	return out
}

type element struct {
	s   *Session
	sel *goquery.Selection
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.sel.Text(), ctx.Err()
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, ctx.Err()
}

func (e *element) FindElements(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.s.wrap(e.sel.Find(selector)), nil
}

func (e *element) FindElement(ctx context.Context, selector string) (browser.Element, error) {
	els, err := e.FindElements(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, browser.NotFound(selector)
	}
	return els[0], nil
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.s.Clicks = append(e.s.Clicks, strings.TrimSpace(e.sel.Text()))
	e.s.revealed = true
	return nil
}

func (e *element) Call(ctx context.Context, fn string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	script, ok := e.s.Scripts[fn]
	if !ok {
		return "", fmt.Errorf("script not supported: %q", fn)
	}
	return script(e.sel)
}

func nextSiblingText(sel *goquery.Selection) (string, error) {
	next := sel.Next()
	if next.Length() == 0 {
		return "", errors.New("TypeError: Cannot read properties of null (reading 'textContent')")
	}
	return next.Text(), nil
}
