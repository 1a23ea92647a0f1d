// Package browser defines the narrow surface the extractors use to drive a
// page: navigation, element queries, attribute/text reads, clicks and a
// script escape hatch. The Chrome implementation lives in chrome.go, an
// in-memory one for tests in browsertest.
package browser

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a wait condition is not met before its deadline
	ErrTimeout = errors.New("timed out waiting for condition")
	// ErrNavigation is returned when a page fails to load
	ErrNavigation = errors.New("navigation failed")
	// ErrElementNotFound is returned when an expected element is missing
	ErrElementNotFound = errors.New("element not found")
)

// NextSiblingTextScript reads the text of the element that follows the
// receiver. It throws when there is no such sibling.
const NextSiblingTextScript = `function() { return this.nextElementSibling.textContent; }`

// Element is a handle on one DOM node of the current page
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	FindElements(ctx context.Context, selector string) ([]Element, error)
	FindElement(ctx context.Context, selector string) (Element, error)
	Click(ctx context.Context) error
	// Call runs a JavaScript function declaration with this bound to the
	// element and returns its result as a string.
	Call(ctx context.Context, fn string) (string, error)
}

// Session is one browser tab shared by the whole run
type Session interface {
	Navigate(ctx context.Context, url string) error
	FindElements(ctx context.Context, selector string) ([]Element, error)
	FindElement(ctx context.Context, selector string) (Element, error)
	Screenshot(ctx context.Context, path string) error
	Quit() error
}

// Finder is implemented by both Session and Element
type Finder interface {
	FindElements(ctx context.Context, selector string) ([]Element, error)
	FindElement(ctx context.Context, selector string) (Element, error)
}

// Opener acquires a new session
type Opener func(ctx context.Context) (Session, error)

// FindOptional looks up selector below f. A missing element is reported
// through ok rather than as an error.
func FindOptional(ctx context.Context, f Finder, selector string) (el Element, ok bool, err error) {
	el, err = f.FindElement(ctx, selector)
	if errors.Is(err, ErrElementNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return el, true, nil
}

// WithSession opens a session, hands it to fn and quits it on every exit
// path, panics included. A quit failure is reported only if fn succeeded.
func WithSession(ctx context.Context, open Opener, fn func(Session) error) (err error) {
	sess, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if qerr := sess.Quit(); qerr != nil && err == nil {
			err = fmt.Errorf("quit browser session: %w", qerr)
		}
	}()
	return fn(sess)
}

// NotFound builds an error for a missing selector that matches ErrElementNotFound
func NotFound(selector string) error {
	return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
}
