// Package sitemap retrieves a site's sitemap.xml and flattens it into the
// list of page URLs it declares.
package sitemap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gocolly/colly/v2"
)

// ErrSitemapUnavailable is returned when the sitemap request does not succeed
var ErrSitemapUnavailable = errors.New("sitemap unavailable")

// Fetcher downloads and parses sitemaps
type Fetcher struct {
	timeout   time.Duration
	userAgent string
}

// NewFetcher creates a Fetcher with the given request timeout
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{timeout: timeout, userAgent: userAgent}
}

// Fetch returns every <loc> of {baseURL}/sitemap.xml in document order.
// It returns nil when the sitemap is missing, malformed or lists no URLs;
// callers fall back to crawling in that case.
func (f *Fetcher) Fetch(ctx context.Context, baseURL string) []string {
	urls, err := f.fetch(ctx, baseURL)
	if err != nil {
		log.Debug("Sitemap not usable", "base", baseURL, "error", err)
		return nil
	}
	if len(urls) == 0 {
		log.Debug("Sitemap lists no URLs", "base", baseURL)
		return nil
	}
	return urls
}

func (f *Fetcher) fetch(ctx context.Context, baseURL string) ([]string, error) {
	sitemapURL := strings.TrimRight(baseURL, "/") + "/sitemap.xml"

	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
	)
	if f.userAgent != "" {
		c.UserAgent = f.userAgent
	}
	if f.timeout > 0 {
		c.SetRequestTimeout(f.timeout)
	}

	var (
		urls     []string
		fetchErr error
	)

	c.OnXML("//urlset/url/loc", func(e *colly.XMLElement) {
		if loc := strings.TrimSpace(e.Text); loc != "" {
			urls = append(urls, loc)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= 300 {
			fetchErr = fmt.Errorf("%w: status %d", ErrSitemapUnavailable, r.StatusCode)
			return
		}
		fetchErr = err
	})

	if err := c.Visit(sitemapURL); err != nil {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, fmt.Errorf("visit %s: %w", sitemapURL, err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	return urls, nil
}
