// Package browser wraps a headless Chrome instance driven through chromedp.
//
// A Session owns one browser process and one tab. Every navigation reuses
// that tab, waits for network quiescence and is bounded by the session's
// per-navigation timeout. Close must always be called; it tears the
// process down.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrHTTPStatus is returned when the main document answers with an error status
var ErrHTTPStatus = errors.New("page returned error status")

// Options configures a browser session
type Options struct {
	Headless  bool
	UserAgent string
	Timeout   time.Duration
}

// Session is a single browser process with a single reusable tab
type Session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// linksJS returns every anchor href as resolved by the browser
const linksJS = `
(() => {
	return Array.from(document.querySelectorAll('a[href]'))
		.map(a => a.href)
		.filter(href => typeof href === 'string' && href.length > 0);
})()`

// Open starts a browser and its tab. The process lives until Close is
// called or ctx is cancelled.
func Open(ctx context.Context, opts Options) (*Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		timeout: opts.Timeout,
	}

	// The first Run allocates the browser. It must not carry a timeout,
	// otherwise the process dies with it.
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return s, nil
}

// Close shuts the tab and the browser process down
func (s *Session) Close() {
	s.cancel()
}

// Links navigates to pageURL and returns all anchor hrefs on the page
func (s *Session) Links(pageURL string) ([]string, error) {
	ctx, cancel := s.navContext()
	defer cancel()

	if err := s.navigate(ctx, pageURL); err != nil {
		return nil, err
	}

	var links []string
	if err := chromedp.Run(ctx, chromedp.Evaluate(linksJS, &links)); err != nil {
		return nil, fmt.Errorf("failed to collect links on %s: %w", pageURL, err)
	}
	return links, nil
}

// HTML navigates to pageURL and returns the rendered document markup
func (s *Session) HTML(pageURL string) (string, error) {
	ctx, cancel := s.navContext()
	defer cancel()

	if err := s.navigate(ctx, pageURL); err != nil {
		return "", err
	}

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read document of %s: %w", pageURL, err)
	}
	return html, nil
}

func (s *Session) navContext() (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(s.ctx)
	}
	return context.WithTimeout(s.ctx, s.timeout)
}

// lifecycleKey identifies one document load within one frame
type lifecycleKey struct {
	frame  cdp.FrameID
	loader cdp.LoaderID
}

// navigate loads pageURL and blocks until that document reports networkIdle.
// Events from other frames or earlier loads in the same tab are ignored.
func (s *Session) navigate(ctx context.Context, pageURL string) error {
	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		idle     = make(map[lifecycleKey]bool)
		statuses = make(map[cdp.LoaderID]int64)
		notify   = make(chan struct{}, 1)
	)
	poke := func() {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
	chromedp.ListenTarget(lctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventLifecycleEvent:
			if e.Name != "networkIdle" {
				return
			}
			mu.Lock()
			idle[lifecycleKey{frame: e.FrameID, loader: e.LoaderID}] = true
			mu.Unlock()
			poke()
		case *network.EventResponseReceived:
			if e.Type != network.ResourceTypeDocument || e.Response == nil {
				return
			}
			mu.Lock()
			statuses[e.LoaderID] = e.Response.Status
			mu.Unlock()
		}
	})

	var res page.NavigateReturns
	err := chromedp.Run(ctx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return cdp.Execute(ctx, page.CommandNavigate, page.Navigate(pageURL), &res)
		}),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", pageURL, err)
	}
	if res.ErrorText != "" {
		return fmt.Errorf("navigation to %s failed: %s", pageURL, res.ErrorText)
	}
	// Same-document navigations have no loader and fire no lifecycle events.
	if res.LoaderID == "" {
		return nil
	}

	want := lifecycleKey{frame: res.FrameID, loader: res.LoaderID}
	for {
		mu.Lock()
		done := idle[want]
		status := statuses[res.LoaderID]
		mu.Unlock()

		if done {
			if status >= 400 {
				return fmt.Errorf("%w: %s answered %d", ErrHTTPStatus, pageURL, status)
			}
			return nil
		}

		select {
		case <-notify:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to settle: %w", pageURL, ctx.Err())
		}
	}
}
