// Package wait polls the page until a condition over its elements holds.
package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/go-scripts/modulux/internal/browser"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultInterval = 500 * time.Millisecond
)

// Config bounds a wait
type Config struct {
	Timeout  time.Duration
	Interval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	return c
}

// Condition inspects the page and reports the matching elements and
// whether the condition is satisfied. It must not change the page.
type Condition struct {
	Name  string
	Check func(ctx context.Context, f browser.Finder) ([]browser.Element, bool, error)
}

// Present is satisfied once at least one element matches selector
func Present(selector string) Condition {
	return Condition{
		Name: fmt.Sprintf("presence of %s", selector),
		Check: func(ctx context.Context, f browser.Finder) ([]browser.Element, bool, error) {
			els, err := f.FindElements(ctx, selector)
			if err != nil {
				return nil, false, err
			}
			return els, len(els) > 0, nil
		},
	}
}

// CountAbove is satisfied once strictly more than n elements match selector
func CountAbove(selector string, n int) Condition {
	return Condition{
		Name: fmt.Sprintf("more than %d of %s", n, selector),
		Check: func(ctx context.Context, f browser.Finder) ([]browser.Element, bool, error) {
			els, err := f.FindElements(ctx, selector)
			if err != nil {
				return nil, false, err
			}
			return els, len(els) > n, nil
		},
	}
}

// Until polls cond against f until it holds and returns the elements of
// the satisfying check. Query errors are retried like an unsatisfied check;
// the last one is reported with the timeout.
func Until(ctx context.Context, f browser.Finder, cfg Config, cond Condition) ([]browser.Element, error) {
	cfg = cfg.withDefaults()
	deadline := time.Now().Add(cfg.Timeout)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	var lastErr error
	for {
		els, ok, err := cond.Check(ctx, f)
		if err == nil && ok {
			return els, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		}

		if !time.Now().Before(deadline) {
			if lastErr != nil {
				return nil, fmt.Errorf("%w after %s: %s (last error: %v)", browser.ErrTimeout, cfg.Timeout, cond.Name, lastErr)
			}
			return nil, fmt.Errorf("%w after %s: %s", browser.ErrTimeout, cfg.Timeout, cond.Name)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
