// Package crawler discovers same-host pages breadth-first through a single
// browser tab.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/sitebot/internal/queue"
)

// DefaultMaxPages bounds a crawl when no limit is configured
const DefaultMaxPages = 20

// Page is a browser tab that can be pointed at successive URLs
type Page interface {
	Links(pageURL string) ([]string, error)
	Close()
}

// OpenFunc starts a browser and returns its tab
type OpenFunc func(ctx context.Context) (Page, error)

// Crawler walks a site breadth-first
type Crawler struct {
	open     OpenFunc
	maxPages int
}

// New creates a Crawler that visits at most maxPages pages per crawl
func New(open OpenFunc, maxPages int) *Crawler {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Crawler{open: open, maxPages: maxPages}
}

// Crawl returns every same-host URL discovered from baseURL, in discovery
// order. Pages that fail to load are logged and skipped.
func (c *Crawler) Crawl(ctx context.Context, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Hostname() == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	host := base.Hostname()

	tab, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer tab.Close()

	state := queue.New(baseURL)

	for state.Len() > 0 && state.VisitedCount() < c.maxPages {
		if err := ctx.Err(); err != nil {
			return state.Discovered(), err
		}

		current, _ := state.Next()
		if state.IsVisited(current) {
			continue
		}
		state.MarkVisited(current)

		log.Debug("Crawling", "url", current, "visited", state.VisitedCount(), "queued", state.Len())

		links, err := tab.Links(current)
		if err != nil {
			log.Warn("Failed to crawl page", "url", current, "error", err)
			continue
		}

		for _, link := range links {
			if !strings.HasPrefix(link, "http") {
				continue
			}
			u, err := url.Parse(link)
			if err != nil {
				continue
			}
			if u.Hostname() != host {
				continue
			}
			state.Discover(link)
		}
	}

	discovered := state.Discovered()
	log.Info("Crawl finished", "base", baseURL, "visited", state.VisitedCount(), "discovered", len(discovered))
	return discovered, nil
}
