// Package analyzer drives one website analysis: discovery, page selection
// and content extraction into a bounded corpus.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/sitebot/internal/types"
)

const (
	DefaultMinContentLength = 100
	DefaultMaxContentLength = 3000
)

// Discovery steps reported to the Observer
const (
	StepSitemap = "sitemap"
	StepCrawl   = "crawl"
	StepSelect  = "select"
	StepExtract = "extract"
)

// ErrInvalidBaseURL is returned for base URLs that are not absolute http(s)
var ErrInvalidBaseURL = errors.New("invalid base URL")

// SitemapSource lists the URLs a site declares, or nil
type SitemapSource interface {
	Fetch(ctx context.Context, baseURL string) []string
}

// LinkCrawler discovers same-host URLs by following links
type LinkCrawler interface {
	Crawl(ctx context.Context, baseURL string) ([]string, error)
}

// Picker selects the URLs worth extracting
type Picker interface {
	Pick(ctx context.Context, discovered []string, baseURL string) []string
}

// PageExtractor loads a page and returns its content, or nil
type PageExtractor interface {
	Extract(ctx context.Context, pageURL string) *types.PageContent
}

// Observer is told about progress. Implementations must not block.
type Observer interface {
	StepStarted(step string)
	StepFinished(step string, count int)
	PageProcessed(index, total int, pageURL string, admitted bool)
}

// Options controls pacing and corpus admission
type Options struct {
	PageDelay        time.Duration
	MinContentLength int
	MaxContentLength int
	Now              func() time.Time
}

// Analyzer wires the discovery and extraction components together
type Analyzer struct {
	sitemap   SitemapSource
	crawler   LinkCrawler
	picker    Picker
	extractor PageExtractor
	observer  Observer
	opts      Options
}

// New creates an Analyzer. Zero content bounds fall back to the defaults;
// a zero PageDelay disables pacing.
func New(sitemap SitemapSource, crawler LinkCrawler, picker Picker, extractor PageExtractor, opts Options) *Analyzer {
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = DefaultMinContentLength
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = DefaultMaxContentLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analyzer{
		sitemap:   sitemap,
		crawler:   crawler,
		picker:    picker,
		extractor: extractor,
		observer:  nopObserver{},
		opts:      opts,
	}
}

// WithObserver sets the progress observer
func (a *Analyzer) WithObserver(o Observer) *Analyzer {
	if o != nil {
		a.observer = o
	}
	return a
}

// Analyze discovers, selects and extracts pages of baseURL. A result with
// zero pages is valid; errors come only from an unusable base URL, a crawl
// that cannot start, or cancellation.
func (a *Analyzer) Analyze(ctx context.Context, baseURL string) (*types.AnalysisResult, error) {
	if err := checkBaseURL(baseURL); err != nil {
		return nil, err
	}

	discovered, err := a.discover(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	a.observer.StepStarted(StepSelect)
	selected := a.picker.Pick(ctx, discovered, baseURL)
	a.observer.StepFinished(StepSelect, len(selected))
	log.Info("Selected relevant pages", "count", len(selected), "discovered", len(discovered))

	pages, err := a.extract(ctx, selected)
	if err != nil {
		return nil, err
	}

	return &types.AnalysisResult{
		BaseURL:         baseURL,
		AnalyzedPages:   pages,
		AnalysisDate:    a.opts.Now().UTC(),
		PageCount:       len(pages),
		DiscoveredCount: len(discovered),
	}, nil
}

func (a *Analyzer) discover(ctx context.Context, baseURL string) ([]string, error) {
	a.observer.StepStarted(StepSitemap)
	urls := a.sitemap.Fetch(ctx, baseURL)
	a.observer.StepFinished(StepSitemap, len(urls))
	if urls != nil {
		log.Info("Using sitemap", "urls", len(urls))
		return urls, nil
	}

	log.Info("No usable sitemap, crawling", "base", baseURL)
	a.observer.StepStarted(StepCrawl)
	urls, err := a.crawler.Crawl(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", baseURL, err)
	}
	a.observer.StepFinished(StepCrawl, len(urls))
	return urls, nil
}

func (a *Analyzer) extract(ctx context.Context, selected []string) ([]types.AnalyzedPage, error) {
	a.observer.StepStarted(StepExtract)

	pages := make([]types.AnalyzedPage, 0, len(selected))
	admitted := make(map[string]bool, len(selected))

	for i, pageURL := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if admitted[pageURL] {
			continue
		}

		page, ok := a.admit(pageURL, a.extractor.Extract(ctx, pageURL))
		if ok {
			admitted[pageURL] = true
			pages = append(pages, page)
		}
		a.observer.PageProcessed(i+1, len(selected), pageURL, ok)

		if err := a.pause(ctx); err != nil {
			return nil, err
		}
	}

	a.observer.StepFinished(StepExtract, len(pages))
	return pages, nil
}

// admit applies the corpus length policy to an extraction result
func (a *Analyzer) admit(pageURL string, content *types.PageContent) (types.AnalyzedPage, bool) {
	if content == nil {
		log.Debug("Skipping page without content", "url", pageURL)
		return types.AnalyzedPage{}, false
	}

	text := []rune(content.Content)
	if len(text) <= a.opts.MinContentLength {
		log.Debug("Skipping short page", "url", pageURL, "length", len(text))
		return types.AnalyzedPage{}, false
	}
	if len(text) > a.opts.MaxContentLength {
		text = text[:a.opts.MaxContentLength]
	}

	return types.AnalyzedPage{
		URL:         pageURL,
		Title:       content.Title,
		Description: content.MetaDescription,
		Content:     string(text),
	}, true
}

func (a *Analyzer) pause(ctx context.Context) error {
	if a.opts.PageDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(a.opts.PageDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func checkBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	return nil
}

type nopObserver struct{}

func (nopObserver) StepStarted(string) {}
func (nopObserver) StepFinished(string, int) {}
func (nopObserver) PageProcessed(int, int, string, bool) {}
