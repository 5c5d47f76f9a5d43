package relevance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	answer      string
	err         error
	prompts     []string
	temperature float64
	maxTokens   int
}

func (f *fakeModel) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.temperature = temperature
	f.maxTokens = maxTokens
	return f.answer, f.err
}

var keywords = []string{"product", "services", "offer", "faq", "help", "support", "delivery", "returns", "about", "contact"}

func numberedURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://x.com/p%d", i)
	}
	return urls
}

func TestPickPromptCapsCandidates(t *testing.T) {
	model := &fakeModel{answer: "https://x.com/p1"}
	picker := New(model, keywords, 0, 0)

	picker.Pick(context.Background(), numberedURLs(60), "https://x.com")

	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	assert.Contains(t, prompt, "https://x.com/p0\n")
	assert.Contains(t, prompt, "https://x.com/p49\n")
	assert.NotContains(t, prompt, "https://x.com/p50\n")
	assert.NotContains(t, prompt, "https://x.com/p59\n")
	assert.Contains(t, prompt, "at most 15")
	assert.InDelta(t, 0.1, model.temperature, 1e-9)
	assert.Equal(t, 1000, model.maxTokens)
}

func TestPickParsesModelAnswer(t *testing.T) {
	discovered := []string{
		"https://acme.test/",
		"https://acme.test/faq",
		"https://acme.test/shipping",
		"https://acme.test/blog",
	}
	model := &fakeModel{answer: strings.Join([]string{
		"Here are the pages:",
		"  https://acme.test/shipping  ",
		"",
		"https://acme.test/faq",
		"https://acme.test/faq",
		"https://acme.test/invented",
		"- https://acme.test/blog",
	}, "\n")}

	selected := New(model, keywords, 0, 0).Pick(context.Background(), discovered, "https://acme.test")

	assert.Equal(t, []string{"https://acme.test/shipping", "https://acme.test/faq"}, selected)
}

func TestPickCapsSelection(t *testing.T) {
	urls := numberedURLs(30)
	model := &fakeModel{answer: strings.Join(urls, "\n")}

	selected := New(model, keywords, 0, 0).Pick(context.Background(), urls, "https://x.com")

	assert.Len(t, selected, 15)
	assert.Equal(t, urls[:15], selected)
}

func TestPickFallsBack(t *testing.T) {
	discovered := append(numberedURLs(55), "https://x.com/faq")

	testCases := []struct {
		name  string
		model *fakeModel
	}{
		{name: "model error", model: &fakeModel{err: errors.New("429 rate limited")}},
		{name: "no usable lines", model: &fakeModel{answer: "I cannot help with that."}},
		{name: "empty answer", model: &fakeModel{answer: ""}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			selected := New(tc.model, keywords, 0, 0).Pick(context.Background(), discovered, "https://x.com")

			// fallback scans the full list, past the candidate cap
			assert.Equal(t, []string{"https://x.com/faq"}, selected)
		})
	}
}

func TestPickEmpty(t *testing.T) {
	model := &fakeModel{}
	assert.Empty(t, New(model, keywords, 0, 0).Pick(context.Background(), nil, "https://x.com"))
	assert.Empty(t, model.prompts)
}

func TestKeywordFallback(t *testing.T) {
	testCases := []struct {
		name     string
		urls     []string
		keywords []string
		limit    int
		want     []string
	}{
		{
			name:     "faq and about",
			urls:     []string{"https://x.com/faq", "https://x.com/blog"},
			keywords: []string{"faq", "about"},
			limit:    15,
			want:     []string{"https://x.com/faq"},
		},
		{
			name:     "case insensitive",
			urls:     []string{"https://x.com/Support/Tickets", "https://x.com/HOME"},
			keywords: keywords,
			limit:    15,
			want:     []string{"https://x.com/Support/Tickets"},
		},
		{
			name:     "substring false positive kept",
			urls:     []string{"https://x.com/reproductions"},
			keywords: []string{"product"},
			limit:    15,
			want:     []string{"https://x.com/reproductions"},
		},
		{
			name:     "duplicates removed",
			urls:     []string{"https://x.com/help", "https://x.com/help"},
			keywords: keywords,
			limit:    15,
			want:     []string{"https://x.com/help"},
		},
		{
			name:     "capped",
			urls:     []string{"https://x.com/faq/1", "https://x.com/faq/2", "https://x.com/faq/3"},
			keywords: []string{"faq"},
			limit:    2,
			want:     []string{"https://x.com/faq/1", "https://x.com/faq/2"},
		},
		{
			name:     "no match",
			urls:     []string{"https://x.com/blog"},
			keywords: keywords,
			limit:    15,
			want:     nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KeywordFallback(tc.urls, tc.keywords, tc.limit))
		})
	}
}
