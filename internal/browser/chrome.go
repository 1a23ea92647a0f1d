package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-json-experiment/json/jsontext"
)

// DefaultUserAgent is a desktop Chrome user agent; the catalog serves a
// reduced page to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const (
	innerTextScript = `function() { return this.innerText; }`
	attributeScript = `function(name) {
		if (!this.hasAttribute(name)) return null;
		const prop = this[name];
		return typeof prop === 'string' ? prop : this.getAttribute(name);
	}`
)

// ChromeOptions configures the Chrome session
type ChromeOptions struct {
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// OpTimeout bounds every single browser operation, navigation included.
	OpTimeout time.Duration
	Logger    *log.Logger
}

// ChromeSession drives one Chrome tab through chromedp
type ChromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opTimeout   time.Duration
	logger      *log.Logger
}

// ChromeOpener returns an Opener that starts a new Chrome per session
func ChromeOpener(opts ChromeOptions) Opener {
	return func(ctx context.Context) (Session, error) {
		return OpenChrome(ctx, opts)
	}
}

// OpenChrome starts Chrome and opens a tab. The browser process is bound
// to ctx: cancelling it kills the browser.
func OpenChrome(ctx context.Context, opts ChromeOptions) (*ChromeSession, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.WindowWidth == 0 || opts.WindowHeight == 0 {
		opts.WindowWidth, opts.WindowHeight = 1920, 1080
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 30 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		chromedp.UserAgent(opts.UserAgent),
	)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Debugf),
		chromedp.WithErrorf(logger.Debugf),
	)

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	logger.Debug("Chrome started", "headless", opts.Headless, "window", fmt.Sprintf("%dx%d", opts.WindowWidth, opts.WindowHeight))

	return &ChromeSession{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		opTimeout:   opts.OpTimeout,
		logger:      logger,
	}, nil
}

// run executes actions in the tab, bounded by the operation timeout and
// by the caller's ctx.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.opTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", "url", url)
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	return nil
}

func (s *ChromeSession) FindElements(ctx context.Context, selector string) ([]Element, error) {
	return s.query(ctx, nil, selector)
}

func (s *ChromeSession) FindElement(ctx context.Context, selector string) (Element, error) {
	els, err := s.query(ctx, nil, selector)
	return first(els, err, selector)
}

func (s *ChromeSession) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create screenshot directory: %w", err)
	}
	return os.WriteFile(path, buf, 0644)
}

// Quit closes the browser gracefully and releases the allocator
func (s *ChromeSession) Quit() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()
	return err
}

// query runs querySelectorAll below parent (the document when nil)
// without waiting for matches to appear.
func (s *ChromeSession) query(ctx context.Context, parent *cdp.Node, selector string) ([]Element, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if parent != nil {
		opts = append(opts, chromedp.FromNode(parent))
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}

	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &chromeElement{s: s, node: n})
	}
	return out, nil
}

// callOn runs fn with this bound to node and returns the JSON result
func (s *ChromeSession) callOn(ctx context.Context, node *cdp.Node, fn string, args ...any) (jsontext.Value, error) {
	var result jsontext.Value
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(node.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node: %w", err)
		}
		defer func() {
			_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
		}()

		callArgs := make([]*runtime.CallArgument, 0, len(args))
		for _, arg := range args {
			raw, err := json.Marshal(arg)
			if err != nil {
				return err
			}
			callArgs = append(callArgs, &runtime.CallArgument{Value: jsontext.Value(raw)})
		}

		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithArguments(callArgs).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if res != nil {
			result = res.Value
		}
		return nil
	}))
	return result, err
}

// first picks the first match, reporting an empty result as not found
func first(els []Element, err error, selector string) (Element, error) {
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, NotFound(selector)
	}
	return els[0], nil
}

type chromeElement struct {
	s    *ChromeSession
	node *cdp.Node
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	return e.Call(ctx, innerTextScript)
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	raw, err := e.s.callOn(ctx, e.node, attributeScript, name)
	if err != nil {
		return "", false, fmt.Errorf("read attribute %s: %w", name, err)
	}
	var v *string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", false, fmt.Errorf("decode attribute %s: %w", name, err)
		}
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *chromeElement) FindElements(ctx context.Context, selector string) ([]Element, error) {
	return e.s.query(ctx, e.node, selector)
}

func (e *chromeElement) FindElement(ctx context.Context, selector string) (Element, error) {
	els, err := e.s.query(ctx, e.node, selector)
	return first(els, err, selector)
}

func (e *chromeElement) Click(ctx context.Context) error {
	if err := e.s.run(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}

func (e *chromeElement) Call(ctx context.Context, fn string) (string, error) {
	raw, err := e.s.callOn(ctx, e.node, fn)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("decode script result: %w", err)
	}
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return string(raw), nil
	}
}
