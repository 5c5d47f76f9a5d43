package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/sitebot/internal/types"
)

type fakeModel struct {
	answer      string
	err         error
	calls       int
	prompt      string
	temperature float64
	maxTokens   int
}

func (f *fakeModel) Complete(_ context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	f.calls++
	f.prompt = prompt
	f.temperature = temperature
	f.maxTokens = maxTokens
	return f.answer, f.err
}

var pages = []types.AnalyzedPage{
	{URL: "https://acme.test/faq", Title: "FAQ", Description: "Common questions", Content: "Shipping takes three days."},
	{URL: "https://acme.test/about", Title: "", Content: "Acme sells anvils since 1949."},
}

func TestSummarizeNoPages(t *testing.T) {
	model := &fakeModel{}

	summary, err := New(model).Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NoContentSummary, summary)
	assert.Zero(t, model.calls)
}

func TestSummarize(t *testing.T) {
	model := &fakeModel{answer: "  Acme sells anvils.\n"}

	summary, err := New(model).Summarize(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, "Acme sells anvils.", summary)
	assert.Equal(t, 1, model.calls)
	assert.InDelta(t, 0.3, model.temperature, 1e-9)
	assert.Equal(t, 3000, model.maxTokens)
	for _, p := range pages {
		assert.Contains(t, model.prompt, "URL: "+p.URL)
		assert.Contains(t, model.prompt, p.Content)
	}
	assert.Contains(t, model.prompt, "Page: FAQ")
}

func TestSummarizeError(t *testing.T) {
	boom := errors.New("503")

	_, err := New(&fakeModel{err: boom}).Summarize(context.Background(), pages)
	assert.ErrorIs(t, err, boom)
}

func TestBuildAndRender(t *testing.T) {
	b := New(&fakeModel{answer: "Acme sells anvils."})
	b.now = func() time.Time { return time.Date(2024, 6, 16, 9, 30, 0, 0, time.UTC) }

	result := &types.AnalysisResult{BaseURL: "https://acme.test", AnalyzedPages: pages, PageCount: 2}
	kb, err := b.Build(context.Background(), types.Workspace{Root: "out", Company: "acme"}, result)
	require.NoError(t, err)

	assert.Equal(t, "acme", kb.Company)
	assert.Equal(t, "https://acme.test", kb.BaseURL)
	assert.Equal(t, "Acme sells anvils.", kb.Summary)
	assert.Len(t, kb.Pages, 2)

	doc, err := Render(kb)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "# acme Knowledge Base\n"))
	assert.Contains(t, doc, "Source: https://acme.test\n")
	assert.Contains(t, doc, "Generated: 2024-06-16\n")
	assert.Contains(t, doc, "## Business Summary\n\nAcme sells anvils.\n")
	assert.Contains(t, doc, "### FAQ\n")
	assert.Contains(t, doc, "> Common questions\n")
	assert.Contains(t, doc, "### https://acme.test/about\n")
	assert.Less(t, strings.Index(doc, "### FAQ"), strings.Index(doc, "### https://acme.test/about"))
}

func TestBuildNoPages(t *testing.T) {
	model := &fakeModel{}

	kb, err := New(model).Build(context.Background(), types.Workspace{Company: "acme"}, &types.AnalysisResult{BaseURL: "https://acme.test"})
	require.NoError(t, err)
	assert.Equal(t, NoContentSummary, kb.Summary)
	assert.Zero(t, model.calls)

	doc, err := Render(kb)
	require.NoError(t, err)
	assert.Contains(t, doc, NoContentSummary)
}

func TestPageDocument(t *testing.T) {
	doc, err := PageDocument(pages[0])
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "# FAQ\n\nSource: https://acme.test/faq\n"))
	assert.Contains(t, doc, "Common questions\n")
	assert.Contains(t, doc, "Shipping takes three days.\n")

	doc, err = PageDocument(pages[1])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "# https://acme.test/about\n"))
}
