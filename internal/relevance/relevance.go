// Package relevance narrows a list of discovered URLs down to the pages most
// likely to describe products, support and policies.
package relevance

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// DefaultMaxCandidates bounds how many discovered URLs reach the model
	DefaultMaxCandidates = 50
	// DefaultLimit bounds how many URLs are selected
	DefaultLimit = 15

	temperature = 0.1
	maxTokens   = 1000
)

// Completer sends a single prompt to a language model
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Picker selects relevant URLs with a model and falls back to keywords
type Picker struct {
	model         Completer
	keywords      []string
	maxCandidates int
	limit         int
}

// New creates a Picker. Non-positive bounds use the defaults.
func New(model Completer, keywords []string, maxCandidates, limit int) *Picker {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Picker{
		model:         model,
		keywords:      keywords,
		maxCandidates: maxCandidates,
		limit:         limit,
	}
}

// Pick returns at most limit URLs from discovered. It never fails; when the
// model cannot be used the keyword fallback runs over the full list.
func (p *Picker) Pick(ctx context.Context, discovered []string, baseURL string) []string {
	if len(discovered) == 0 {
		return nil
	}

	candidates := discovered
	if len(candidates) > p.maxCandidates {
		candidates = candidates[:p.maxCandidates]
	}

	answer, err := p.model.Complete(ctx, BuildPrompt(baseURL, candidates, p.limit), temperature, maxTokens)
	if err != nil {
		log.Warn("Model page selection failed, using keywords", "error", err)
		return KeywordFallback(discovered, p.keywords, p.limit)
	}

	selected := parseSelection(answer, candidates, p.limit)
	if len(selected) == 0 {
		log.Warn("Model selected no usable URLs, using keywords", "answer_len", len(answer))
		return KeywordFallback(discovered, p.keywords, p.limit)
	}

	log.Debug("Model selected pages", "count", len(selected), "candidates", len(candidates))
	return selected
}

// BuildPrompt renders the selection request for candidates
func BuildPrompt(baseURL string, candidates []string, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are reviewing the website %s to build a customer support knowledge base.\n", baseURL)
	fmt.Fprintf(&b, "From the URLs below, select at most %d pages most likely to contain information about ", limit)
	b.WriteString("products, services, support, FAQ, pricing, delivery, returns or policies.\n")
	b.WriteString("Return only the selected URLs, one per line, exactly as listed, with no numbering or commentary.\n\n")
	b.WriteString("URLs:\n")
	for _, u := range candidates {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	return b.String()
}

// parseSelection keeps answer lines that are candidate URLs, in answer order
func parseSelection(answer string, candidates []string, limit int) []string {
	allowed := make(map[string]bool, len(candidates))
	for _, u := range candidates {
		allowed[u] = true
	}

	seen := make(map[string]bool)
	var selected []string
	for _, line := range strings.Split(answer, "\n") {
		u := strings.TrimSpace(line)
		if !strings.HasPrefix(u, "http") || seen[u] || !allowed[u] {
			continue
		}
		seen[u] = true
		selected = append(selected, u)
		if len(selected) == limit {
			break
		}
	}
	return selected
}

// KeywordFallback keeps URLs whose lowercase form contains a keyword, either
// bare or as a path segment, preserving input order.
func KeywordFallback(urls, keywords []string, limit int) []string {
	seen := make(map[string]bool)
	var matched []string
	for _, u := range urls {
		if seen[u] || !matchesKeyword(strings.ToLower(u), keywords) {
			continue
		}
		seen[u] = true
		matched = append(matched, u)
		if limit > 0 && len(matched) == limit {
			break
		}
	}
	return matched
}

func matchesKeyword(lowerURL string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lowerURL, kw) || strings.Contains(lowerURL, "/"+kw) {
			return true
		}
	}
	return false
}
