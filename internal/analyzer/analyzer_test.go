package analyzer_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/sitebot/internal/analyzer"
	"github.com/go-scripts/sitebot/internal/config"
	"github.com/go-scripts/sitebot/internal/crawler"
	"github.com/go-scripts/sitebot/internal/relevance"
	"github.com/go-scripts/sitebot/internal/sitemap"
	"github.com/go-scripts/sitebot/internal/types"
)

var fixedNow = time.Date(2024, 6, 16, 12, 0, 0, 0, time.UTC)

type fakeSitemap struct{ urls []string }

func (f fakeSitemap) Fetch(context.Context, string) []string { return f.urls }

type fakeCrawler struct {
	urls   []string
	err    error
	called bool
}

func (f *fakeCrawler) Crawl(context.Context, string) ([]string, error) {
	f.called = true
	return f.urls, f.err
}

type passPicker struct{}

func (passPicker) Pick(_ context.Context, discovered []string, _ string) []string { return discovered }

type fakeExtractor map[string]*types.PageContent

func (f fakeExtractor) Extract(_ context.Context, pageURL string) *types.PageContent {
	return f[pageURL]
}

type recordingObserver struct {
	steps     []string
	processed []bool
}

func (r *recordingObserver) StepStarted(step string) { r.steps = append(r.steps, step) }
func (r *recordingObserver) StepFinished(string, int) {}
func (r *recordingObserver) PageProcessed(_, _ int, _ string, admitted bool) {
	r.processed = append(r.processed, admitted)
}

func text(n int) *types.PageContent {
	return &types.PageContent{Title: "T", MetaDescription: "D", Content: strings.Repeat("a", n)}
}

func newAnalyzer(sm analyzer.SitemapSource, cr analyzer.LinkCrawler, ex analyzer.PageExtractor) *analyzer.Analyzer {
	return analyzer.New(sm, cr, passPicker{}, ex, analyzer.Options{Now: func() time.Time { return fixedNow }})
}

func TestAnalyzeAdmissionPolicy(t *testing.T) {
	urls := []string{
		"https://acme.test/short",
		"https://acme.test/exact",
		"https://acme.test/just-over",
		"https://acme.test/long",
		"https://acme.test/broken",
	}
	ex := fakeExtractor{
		"https://acme.test/short":     text(50),
		"https://acme.test/exact":     text(100),
		"https://acme.test/just-over": text(101),
		"https://acme.test/long":      text(5000),
	}

	result, err := newAnalyzer(fakeSitemap{urls: urls}, &fakeCrawler{}, ex).Analyze(context.Background(), "https://acme.test")
	require.NoError(t, err)

	require.Len(t, result.AnalyzedPages, 2)
	assert.Equal(t, "https://acme.test/just-over", result.AnalyzedPages[0].URL)
	assert.Len(t, result.AnalyzedPages[0].Content, 101)
	assert.Equal(t, "https://acme.test/long", result.AnalyzedPages[1].URL)
	assert.Len(t, result.AnalyzedPages[1].Content, 3000)
	assert.Equal(t, "T", result.AnalyzedPages[1].Title)
	assert.Equal(t, "D", result.AnalyzedPages[1].Description)
	assert.Equal(t, 2, result.PageCount)
	assert.Equal(t, 5, result.DiscoveredCount)
	assert.Equal(t, fixedNow, result.AnalysisDate)
}

func TestAnalyzeTruncatesByCharacter(t *testing.T) {
	ex := fakeExtractor{"https://acme.test/de": {Content: strings.Repeat("ü", 3500)}}

	result, err := newAnalyzer(fakeSitemap{urls: []string{"https://acme.test/de"}}, &fakeCrawler{}, ex).
		Analyze(context.Background(), "https://acme.test")
	require.NoError(t, err)

	require.Len(t, result.AnalyzedPages, 1)
	assert.Equal(t, 3000, len([]rune(result.AnalyzedPages[0].Content)))
}

func TestAnalyzeSitemapSkipsCrawl(t *testing.T) {
	cr := &fakeCrawler{}

	_, err := newAnalyzer(fakeSitemap{urls: []string{"https://acme.test/"}}, cr, fakeExtractor{}).
		Analyze(context.Background(), "https://acme.test")
	require.NoError(t, err)
	assert.False(t, cr.called)
}

func TestAnalyzeZeroPages(t *testing.T) {
	cr := &fakeCrawler{urls: []string{"https://acme.test"}}

	result, err := newAnalyzer(fakeSitemap{}, cr, fakeExtractor{}).Analyze(context.Background(), "https://acme.test")
	require.NoError(t, err)

	assert.True(t, cr.called)
	assert.Empty(t, result.AnalyzedPages)
	assert.Equal(t, 0, result.PageCount)
	assert.Equal(t, 1, result.DiscoveredCount)
}

func TestAnalyzeSkipsAdmittedDuplicates(t *testing.T) {
	urls := []string{"https://acme.test/faq", "https://acme.test/faq"}
	obs := &recordingObserver{}

	result, err := newAnalyzer(fakeSitemap{urls: urls}, &fakeCrawler{}, fakeExtractor{"https://acme.test/faq": text(200)}).
		WithObserver(obs).
		Analyze(context.Background(), "https://acme.test")
	require.NoError(t, err)

	assert.Equal(t, 1, result.PageCount)
	assert.Equal(t, []bool{true}, obs.processed)
	assert.Equal(t, []string{analyzer.StepSitemap, analyzer.StepSelect, analyzer.StepExtract}, obs.steps)
}

func TestAnalyzeErrors(t *testing.T) {
	t.Run("invalid base url", func(t *testing.T) {
		for _, base := range []string{"acme.test", "ftp://acme.test", "https://", "::"} {
			_, err := newAnalyzer(fakeSitemap{}, &fakeCrawler{}, fakeExtractor{}).Analyze(context.Background(), base)
			assert.ErrorIs(t, err, analyzer.ErrInvalidBaseURL, base)
		}
	})

	t.Run("crawl fails", func(t *testing.T) {
		boom := errors.New("chrome missing")

		_, err := newAnalyzer(fakeSitemap{}, &fakeCrawler{err: boom}, fakeExtractor{}).Analyze(context.Background(), "https://acme.test")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled during delay", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		a := analyzer.New(fakeSitemap{urls: []string{"https://acme.test/a", "https://acme.test/b"}}, &fakeCrawler{}, passPicker{},
			fakeExtractor{}, analyzer.Options{PageDelay: time.Hour})
		a.WithObserver(&cancelObserver{cancel: cancel})

		_, err := a.Analyze(ctx, "https://acme.test")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type cancelObserver struct {
	recordingObserver
	cancel context.CancelFunc
}

func (c *cancelObserver) PageProcessed(int, int, string, bool) { c.cancel() }

// acmePage is a crawled page of the end-to-end site
type acmePage struct{ links map[string][]string }

func (p acmePage) Links(pageURL string) ([]string, error) { return p.links[pageURL], nil }
func (p acmePage) Close() {}

type failingModel struct{}

func (failingModel) Complete(context.Context, string, float64, int) (string, error) {
	return "", errors.New("model unavailable")
}

func TestAnalyzeEndToEnd(t *testing.T) {
	// no sitemap.xml on this host
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	site := acmePage{links: map[string][]string{
		"https://acme.test": {"https://acme.test/faq", "https://acme.test/about", "https://elsewhere.test/faq"},
	}}
	cr := crawler.New(func(context.Context) (crawler.Page, error) { return site, nil }, 20)

	picker := relevance.New(failingModel{}, config.DefaultKeywords, 0, 0)

	body := strings.Repeat("x", 150)
	ex := fakeExtractor{
		"https://acme.test/faq":   {Title: "FAQ", Content: body},
		"https://acme.test/about": {Title: "About", Content: body},
	}

	sm := sitemapAt{fetcher: sitemap.NewFetcher(time.Second, ""), url: server.URL}

	a := analyzer.New(sm, cr, picker, ex, analyzer.Options{Now: func() time.Time { return fixedNow }})
	result, err := a.Analyze(context.Background(), "https://acme.test")
	require.NoError(t, err)

	assert.Equal(t, 2, result.PageCount)
	assert.Equal(t, 3, result.DiscoveredCount)
	assert.Equal(t, "https://acme.test/faq", result.AnalyzedPages[0].URL)
	assert.Equal(t, "https://acme.test/about", result.AnalyzedPages[1].URL)
}

// sitemapAt points the real fetcher at a local server standing in for the site
type sitemapAt struct {
	fetcher *sitemap.Fetcher
	url     string
}

func (s sitemapAt) Fetch(ctx context.Context, _ string) []string { return s.fetcher.Fetch(ctx, s.url) }
