// Package extractor loads a single page in a fresh browser and reduces it
// to its title, meta description and main body text.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/sitebot/internal/types"
)

// nonContentSelectors lists regions stripped before reading body text
const nonContentSelectors = "script, style, noscript, template, iframe, " +
	"header, nav, footer, aside, " +
	".header, .nav, .navigation, .menu, .footer, .sidebar, #sidebar, " +
	".ads, .ad, .advertisement, [class*='cookie'], " +
	"[role='navigation'], [role='banner'], [role='contentinfo']"

// blockSelectors get a trailing space so adjacent blocks do not run together
const blockSelectors = "p, div, section, li, dd, dt, td, th, tr, " +
	"h1, h2, h3, h4, h5, h6, blockquote, pre"

// mainSelectors are tried in order; the first match supplies the body text
var mainSelectors = []string{"main", "article", ".content, #content"}

// Loader is a browser tab that returns rendered markup
type Loader interface {
	HTML(pageURL string) (string, error)
	Close()
}

// OpenFunc starts a browser for a single extraction
type OpenFunc func(ctx context.Context) (Loader, error)

// Extractor pulls readable content out of pages
type Extractor struct {
	open OpenFunc
}

// New creates an Extractor that opens a new browser for every page
func New(open OpenFunc) *Extractor {
	return &Extractor{open: open}
}

// Extract loads pageURL and returns its content, or nil if the page could
// not be loaded or parsed.
func (e *Extractor) Extract(ctx context.Context, pageURL string) *types.PageContent {
	html, err := e.load(ctx, pageURL)
	if err != nil {
		log.Warn("Failed to extract page", "url", pageURL, "error", err)
		return nil
	}

	content, err := Parse(html)
	if err != nil {
		log.Warn("Failed to parse page", "url", pageURL, "error", err)
		return nil
	}
	return content
}

func (e *Extractor) load(ctx context.Context, pageURL string) (string, error) {
	tab, err := e.open(ctx)
	if err != nil {
		return "", err
	}
	defer tab.Close()

	return tab.HTML(pageURL)
}

// Parse extracts title, meta description and main text from a document
func Parse(html string) (*types.PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	content := &types.PageContent{
		Title:           extractTitle(doc),
		MetaDescription: extractMetaDescription(doc),
	}

	doc.Find(nonContentSelectors).Remove()
	doc.Find(blockSelectors).AppendHtml(" ")

	content.Content = collapseWhitespace(mainText(doc))
	return content, nil
}

func extractTitle(doc *goquery.Document) string {
	if title := collapseWhitespace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return collapseWhitespace(doc.Find("h1").First().Text())
}

func extractMetaDescription(doc *goquery.Document) string {
	if desc, exists := doc.Find("meta[name='description']").Attr("content"); exists {
		return strings.TrimSpace(desc)
	}
	return ""
}

func mainText(doc *goquery.Document) string {
	for _, sel := range mainSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s.Text()
		}
	}
	return doc.Find("body").Text()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
